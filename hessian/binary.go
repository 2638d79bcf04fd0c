package hessian

import (
	"encoding/binary"
	"math"
)

// Big-endian primitive packing shared by the codec and the frame layer.
// Everything on the Dubbo wire is network byte order.

// EncodeI32 packs n as 4 big-endian bytes (two's complement).
func EncodeI32(n int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(n))
	return buf
}

// DecodeI32 reads a signed 32-bit big-endian integer from the first 4 bytes.
func DecodeI32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

// EncodeU64 packs n as exactly 8 big-endian bytes.
func EncodeU64(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

// DecodeU64 reads an unsigned 64-bit big-endian integer from the first 8 bytes.
func DecodeU64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// EncodeF64 packs d as its IEEE-754 bit pattern, big-endian.
func EncodeF64(d float64) []byte {
	return EncodeU64(math.Float64bits(d))
}

// DecodeF64 reads an IEEE-754 double from the first 8 bytes.
func DecodeF64(b []byte) float64 {
	return math.Float64frombits(DecodeU64(b))
}

// CharWidth returns the byte length of the UTF-8 sequence starting with b.
// Hessian string lengths count code points, so the decoder walks strings one
// character at a time. Four-byte sequences are not part of the dialect Dubbo
// 2.5.x emits and fail with ErrMalformedChar.
func CharWidth(b byte) (int, error) {
	switch {
	case b < 0x80:
		return 1, nil
	case b&0xe0 == 0xc0:
		return 2, nil
	case b&0xf0 == 0xe0:
		return 3, nil
	}
	return 0, ErrMalformedChar
}
