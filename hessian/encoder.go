package hessian

import (
	"bytes"
	"reflect"
	"unicode/utf8"
)

// Encoder writes Hessian-2 values, always picking the narrowest admissible
// tag. One Encoder covers one top-level encoding (one frame body): its
// class-name table decides whether an Object needs a C definition block or
// just a back-reference byte, and must never be shared across frames.
type Encoder struct {
	buf        bytes.Buffer
	classIdx   int
	classNames []string
}

// NewEncoder returns an encoder with an empty class-name table.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns everything written so far.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Write appends the encoding of v with class index 0.
func (e *Encoder) Write(v any) error {
	return e.WriteIndexed(v, 0)
}

// WriteIndexed appends the encoding of v. classIdx offsets the instance
// reference byte (0x60 + classIdx + table index); Dubbo request bodies pass
// the argument position here.
func (e *Encoder) WriteIndexed(v any, classIdx int) error {
	e.classIdx = classIdx
	return e.write(v)
}

// Encode is the one-shot form: a fresh class table, class index 0.
func Encode(v any) ([]byte, error) {
	e := NewEncoder()
	if err := e.Write(v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func (e *Encoder) write(v any) error {
	switch x := v.(type) {
	case nil:
		e.buf.WriteByte(tagNull)
		return nil
	case bool:
		if x {
			e.buf.WriteByte(tagTrue)
		} else {
			e.buf.WriteByte(tagFalse)
		}
		return nil
	case string:
		e.writeString(x)
		return nil
	case []byte:
		e.writeBinary(x)
		return nil
	case int:
		e.writeInt(int32(x))
		return nil
	case int8:
		e.writeInt(int32(x))
		return nil
	case int16:
		e.writeInt(int32(x))
		return nil
	case int32:
		e.writeInt(x)
		return nil
	case int64:
		e.writeLong(x)
		return nil
	case float32:
		e.writeDouble(float64(x))
		return nil
	case float64:
		e.writeDouble(x)
		return nil
	case *List:
		return e.writeList(x.TypeName, x.Values)
	case []any:
		return e.writeList("", x)
	case *Object:
		return e.writeObject(x)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		return e.writeMap(rv)
	case reflect.Slice, reflect.Array:
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = rv.Index(i).Interface()
		}
		return e.writeList("", values)
	}
	return &UnencodableError{Value: v}
}

// writeString emits the shortest string form for the code-point count.
// Lengths above 16 bits go out as R chunks followed by a final S chunk.
func (e *Encoder) writeString(s string) {
	maxChunk := 0x8000
	for utf8.RuneCountInString(s) > 0xffff {
		chunk, rest := splitRunes(s, maxChunk)
		e.buf.WriteByte(tagStringChunk)
		e.buf.WriteByte(byte(maxChunk >> 8))
		e.buf.WriteByte(byte(maxChunk))
		e.buf.WriteString(chunk)
		s = rest
	}
	length := utf8.RuneCountInString(s)
	switch {
	case length <= bcStringDirectMax:
		e.buf.WriteByte(byte(length))
	case length <= bcStringShortMax:
		e.buf.WriteByte(byte(bcStringShort + length>>8))
		e.buf.WriteByte(byte(length))
	default:
		e.buf.WriteByte(tagString)
		e.buf.WriteByte(byte(length >> 8))
		e.buf.WriteByte(byte(length))
	}
	e.buf.WriteString(s)
}

// writeBinary emits the shortest binary form for the byte length. Lengths
// above 16 bits go out as A chunks followed by a final chunk.
func (e *Encoder) writeBinary(b []byte) {
	maxChunk := 0x8000
	for len(b) > 0xffff {
		e.buf.WriteByte(tagBinaryChunk)
		e.buf.WriteByte(byte(maxChunk >> 8))
		e.buf.WriteByte(byte(maxChunk))
		e.buf.Write(b[:maxChunk])
		b = b[maxChunk:]
	}
	switch {
	case len(b) <= bcBinaryDirectMax:
		e.buf.WriteByte(byte(bcBinaryDirect + len(b)))
	case len(b) <= bcBinaryShortMax:
		e.buf.WriteByte(byte(bcBinaryShort + len(b)>>8))
		e.buf.WriteByte(byte(len(b)))
	default:
		e.buf.WriteByte(tagBinary)
		e.buf.WriteByte(byte(len(b) >> 8))
		e.buf.WriteByte(byte(len(b)))
	}
	e.buf.Write(b)
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for j := 0; j < n; j++ {
		_, width := utf8.DecodeRuneInString(s[i:])
		i += width
	}
	return s[:i], s[i:]
}

func (e *Encoder) writeInt(n int32) {
	switch {
	case n >= -0x10 && n <= 0x2f:
		e.buf.WriteByte(byte(n + bcIntZero))
	case n >= -0x800 && n <= 0x7ff:
		e.buf.WriteByte(byte(bcIntByteZero + n>>8))
		e.buf.WriteByte(byte(n))
	case n >= -0x40000 && n <= 0x3ffff:
		e.buf.WriteByte(byte(bcIntShortZero + n>>16))
		e.buf.WriteByte(byte(n >> 8))
		e.buf.WriteByte(byte(n))
	default:
		e.buf.WriteByte(tagInt)
		e.buf.Write(EncodeI32(n))
	}
}

func (e *Encoder) writeLong(n int64) {
	switch {
	case n >= -0x08 && n <= 0x0f:
		e.buf.WriteByte(byte(n + bcLongZero))
	case n >= -0x800 && n <= 0x7ff:
		e.buf.WriteByte(byte(bcLongByteZero + n>>8))
		e.buf.WriteByte(byte(n))
	case n >= -0x40000 && n <= 0x3ffff:
		e.buf.WriteByte(byte(bcLongShortZero + n>>16))
		e.buf.WriteByte(byte(n >> 8))
		e.buf.WriteByte(byte(n))
	case n >= -0x80000000 && n <= 0x7fffffff:
		e.buf.WriteByte(bcLongInt)
		e.buf.Write(EncodeI32(int32(n)))
	default:
		e.buf.WriteByte(tagLong)
		e.buf.Write(EncodeU64(uint64(n)))
	}
}

func (e *Encoder) writeDouble(d float64) {
	if i := int64(d); float64(i) == d {
		switch {
		case i == 0:
			e.buf.WriteByte(bcDoubleZero)
			return
		case i == 1:
			e.buf.WriteByte(bcDoubleOne)
			return
		case i >= -0x80 && i <= 0x7f:
			e.buf.WriteByte(bcDoubleByte)
			e.buf.WriteByte(byte(int8(i)))
			return
		case i >= -0x8000 && i <= 0x7fff:
			e.buf.WriteByte(bcDoubleShort)
			e.buf.WriteByte(byte(i >> 8))
			e.buf.WriteByte(byte(i))
			return
		}
	}
	if mills := int64(d * 1000); float64(mills)*0.001 == d &&
		mills >= -0x80000000 && mills <= 0x7fffffff {
		e.buf.WriteByte(bcDoubleMill)
		e.buf.Write(EncodeI32(int32(mills)))
		return
	}
	e.buf.WriteByte(tagDouble)
	e.buf.Write(EncodeF64(d))
}

func (e *Encoder) writeMap(rv reflect.Value) error {
	e.buf.WriteByte(tagMapUntyped)
	iter := rv.MapRange()
	for iter.Next() {
		if err := e.write(iter.Key().Interface()); err != nil {
			return err
		}
		if err := e.write(iter.Value().Interface()); err != nil {
			return err
		}
	}
	e.buf.WriteByte(tagEnd)
	return nil
}

// writeList emits the compact form below 8 elements, the length-prefixed
// form otherwise. A non-empty typeName selects the typed tags.
func (e *Encoder) writeList(typeName string, values []any) error {
	length := len(values)
	if length < 8 {
		if typeName != "" {
			e.buf.WriteByte(byte(bcListCompactTyped + length))
			e.writeString(typeName)
		} else {
			e.buf.WriteByte(byte(bcListCompact + length))
		}
	} else {
		if typeName != "" {
			e.buf.WriteByte(bcListTyped)
			e.writeString(typeName)
		} else {
			e.buf.WriteByte(bcListUntyped)
		}
		e.writeInt(int32(length))
	}
	for _, v := range values {
		if err := e.write(v); err != nil {
			return err
		}
	}
	return nil
}

// writeObject emits a C definition block the first time a class name shows
// up in this encoding, then the instance as 0x60 + classIdx + table index
// followed by the field values in declaration order.
func (e *Encoder) writeObject(o *Object) error {
	tableIdx := -1
	for i, name := range e.classNames {
		if name == o.TypeName {
			tableIdx = i
			break
		}
	}
	if tableIdx < 0 {
		tableIdx = len(e.classNames)
		e.classNames = append(e.classNames, o.TypeName)
		e.buf.WriteByte(tagClassDef)
		e.writeString(o.TypeName)
		e.writeInt(int32(len(o.Names)))
		for _, name := range o.Names {
			e.writeString(name)
		}
	}
	e.buf.WriteByte(byte(bcObject + e.classIdx + tableIdx))
	for _, v := range o.Values {
		if err := e.write(v); err != nil {
			return err
		}
	}
	return nil
}
