package hessian

import (
	"bytes"
	"time"
)

// Decoder reads Hessian-2 values from a bounded frame body.
//
// Two reference tables live exactly as long as one Decoder:
//   - classDefs, appended by C tags and addressed by instance tags 0x60..0x6f
//   - valueRefs, every decoded map/list/instance in creation order, addressed
//     by Q back-references
//
// The frame layer creates a fresh Decoder per frame, so references can never
// leak across frames.
type Decoder struct {
	r         *bytes.Reader
	classDefs []classDef
	valueRefs []any
}

// NewDecoder decodes from body. The caller has already read exactly the
// frame's declared body length, so running past the end is ErrTruncated,
// never an over-read into the next frame.
func NewDecoder(body []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(body)}
}

// Remaining reports how many body bytes were left untouched. Non-zero after
// a successful decode is suspicious but recoverable; the frame layer logs it.
func (d *Decoder) Remaining() int {
	return d.r.Len()
}

func (d *Decoder) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, ErrTruncated
	}
	return b, nil
}

// readFull reads exactly n bytes or fails with ErrTruncated.
func (d *Decoder) readFull(n int) ([]byte, error) {
	if n < 0 || n > d.r.Len() {
		return nil, ErrTruncated
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := d.r.Read(buf); err != nil {
		return nil, ErrTruncated
	}
	return buf, nil
}

func (d *Decoder) readU16() (int, error) {
	b, err := d.readFull(2)
	if err != nil {
		return 0, err
	}
	return int(b[0])<<8 | int(b[1]), nil
}

func (d *Decoder) readI16() (int, error) {
	n, err := d.readU16()
	if err != nil {
		return 0, err
	}
	return int(int16(n)), nil
}

func (d *Decoder) readI32() (int32, error) {
	b, err := d.readFull(4)
	if err != nil {
		return 0, err
	}
	return DecodeI32(b), nil
}

func (d *Decoder) readI64() (int64, error) {
	b, err := d.readFull(8)
	if err != nil {
		return 0, err
	}
	return int64(DecodeU64(b)), nil
}

// ReadObject decodes the next value. A top-level Z tag surfaces as
// ErrEndOfMap so collection readers can use ReadObject as their loop body.
func (d *Decoder) ReadObject() (any, error) {
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	return d.readTagged(tag)
}

func (d *Decoder) readTagged(tag byte) (any, error) {
	switch {
	case tag == tagNull:
		return nil, nil
	case tag == tagTrue:
		return true, nil
	case tag == tagFalse:
		return false, nil

	// int family, always int32
	case tag >= 0x80 && tag <= 0xbf:
		return int32(tag) - bcIntZero, nil
	case tag >= 0xc0 && tag <= 0xcf:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return (int32(tag)-bcIntByteZero)<<8 + int32(b), nil
	case tag >= 0xd0 && tag <= 0xd7:
		n, err := d.readU16()
		if err != nil {
			return nil, err
		}
		return (int32(tag)-bcIntShortZero)<<16 + int32(n), nil
	case tag == tagInt:
		return d.readI32()

	// long family, always int64
	case tag >= 0xd8 && tag <= 0xef:
		return int64(tag) - bcLongZero, nil
	case tag >= 0xf0 && tag <= 0xff:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return (int64(tag)-bcLongByteZero)*256 + int64(b), nil
	case tag >= 0x38 && tag <= 0x3f:
		n, err := d.readU16()
		if err != nil {
			return nil, err
		}
		return (int64(tag)-bcLongShortZero)<<16 + int64(n), nil
	case tag == bcLongInt:
		n, err := d.readI32()
		if err != nil {
			return nil, err
		}
		return int64(n), nil
	case tag == tagLong:
		return d.readI64()

	// double family
	case tag == bcDoubleZero:
		return 0.0, nil
	case tag == bcDoubleOne:
		return 1.0, nil
	case tag == bcDoubleByte:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return float64(int8(b)), nil
	case tag == bcDoubleShort:
		n, err := d.readI16()
		if err != nil {
			return nil, err
		}
		return float64(n), nil
	case tag == bcDoubleMill:
		n, err := d.readI32()
		if err != nil {
			return nil, err
		}
		return 0.001 * float64(n), nil
	case tag == tagDouble:
		b, err := d.readFull(8)
		if err != nil {
			return nil, err
		}
		return DecodeF64(b), nil

	// dates
	case tag == bcDate:
		ms, err := d.readI64()
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(ms), nil
	case tag == bcDateMinute:
		min, err := d.readI32()
		if err != nil {
			return nil, err
		}
		return time.Unix(int64(min)*60, 0), nil

	// strings, lengths in code points
	case tag <= bcStringDirectMax:
		return d.readString(int(tag), true)
	case tag >= 0x30 && tag <= 0x33:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return d.readString((int(tag)-bcStringShort)*256+int(b), true)
	case tag == tagString:
		n, err := d.readU16()
		if err != nil {
			return nil, err
		}
		return d.readString(n, true)
	case tag == tagStringChunk:
		n, err := d.readU16()
		if err != nil {
			return nil, err
		}
		return d.readString(n, false)

	// binary, lengths in bytes
	case tag >= 0x20 && tag <= 0x2f:
		return d.readFull(int(tag) - bcBinaryDirect)
	case tag >= 0x34 && tag <= 0x37:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return d.readFull((int(tag)-bcBinaryShort)*256 + int(b))
	case tag == tagBinary, tag == tagBinaryChunk:
		return d.readBinaryChunks(tag)

	// lists
	case tag == bcListTypedVar, tag == bcListUntypedVar:
		return nil, UnimplementedTagError(tag)
	case tag == bcListTyped:
		typeName, err := d.readTypeName()
		if err != nil {
			return nil, err
		}
		length, err := d.ReadInt()
		if err != nil {
			return nil, err
		}
		return d.readTypedList(typeName, length)
	case tag == bcListUntyped:
		length, err := d.ReadInt()
		if err != nil {
			return nil, err
		}
		return d.readUntypedList(length)
	case tag >= 0x70 && tag <= 0x77:
		typeName, err := d.readTypeName()
		if err != nil {
			return nil, err
		}
		return d.readTypedList(typeName, int(tag)-bcListCompactTyped)
	case tag >= 0x78 && tag <= 0x7f:
		return d.readUntypedList(int(tag) - bcListCompact)

	// maps
	case tag == tagMapUntyped:
		return d.readMap(false)
	case tag == tagMapTyped:
		return d.readMap(true)

	// class definitions and instances
	case tag == tagClassDef:
		if err := d.readClassDef(); err != nil {
			return nil, err
		}
		return d.ReadObject()
	case tag >= 0x60 && tag <= 0x6f:
		return d.readInstance(int(tag) - bcObject)

	case tag == tagRef:
		idx, err := d.ReadInt()
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(d.valueRefs) {
			return nil, ValueRefError(idx)
		}
		return d.valueRefs[idx], nil

	case tag == tagEnd:
		return nil, ErrEndOfMap
	}
	return nil, UnknownTagError(tag)
}

// readString reads n UTF-8 code points via the char reader. A non-final
// chunk (tag R) is followed by another string tag carrying the rest.
func (d *Decoder) readString(n int, final bool) (string, error) {
	var buf bytes.Buffer
	for {
		for i := 0; i < n; i++ {
			lead, err := d.readByte()
			if err != nil {
				return "", err
			}
			width, err := CharWidth(lead)
			if err != nil {
				return "", err
			}
			buf.WriteByte(lead)
			if width > 1 {
				rest, err := d.readFull(width - 1)
				if err != nil {
					return "", err
				}
				buf.Write(rest)
			}
		}
		if final {
			return buf.String(), nil
		}
		tag, err := d.readByte()
		if err != nil {
			return "", err
		}
		switch {
		case tag <= bcStringDirectMax:
			n, final = int(tag), true
		case tag >= 0x30 && tag <= 0x33:
			b, err := d.readByte()
			if err != nil {
				return "", err
			}
			n, final = (int(tag)-bcStringShort)*256+int(b), true
		case tag == tagString, tag == tagStringChunk:
			u, err := d.readU16()
			if err != nil {
				return "", err
			}
			n, final = u, tag == tagString
		default:
			return "", UnknownTagError(tag)
		}
	}
}

// readBinaryChunks reads A-continued binary, terminated by a B chunk or any
// short binary form. Chunk lengths are byte counts.
func (d *Decoder) readBinaryChunks(tag byte) ([]byte, error) {
	var buf bytes.Buffer
	for {
		switch {
		case tag == tagBinary, tag == tagBinaryChunk:
			n, err := d.readU16()
			if err != nil {
				return nil, err
			}
			chunk, err := d.readFull(n)
			if err != nil {
				return nil, err
			}
			buf.Write(chunk)
			if tag == tagBinary {
				return buf.Bytes(), nil
			}
		case tag >= 0x20 && tag <= 0x2f:
			chunk, err := d.readFull(int(tag) - bcBinaryDirect)
			if err != nil {
				return nil, err
			}
			buf.Write(chunk)
			return buf.Bytes(), nil
		case tag >= 0x34 && tag <= 0x37:
			b, err := d.readByte()
			if err != nil {
				return nil, err
			}
			chunk, err := d.readFull((int(tag)-bcBinaryShort)*256 + int(b))
			if err != nil {
				return nil, err
			}
			buf.Write(chunk)
			return buf.Bytes(), nil
		default:
			return nil, UnknownTagError(tag)
		}
		next, err := d.readByte()
		if err != nil {
			return nil, err
		}
		tag = next
	}
}

func (d *Decoder) readTypedList(typeName string, length int) (*List, error) {
	lst := &List{TypeName: typeName, Values: make([]any, length)}
	d.valueRefs = append(d.valueRefs, lst)
	for i := 0; i < length; i++ {
		v, err := d.ReadObject()
		if err != nil {
			return nil, err
		}
		lst.Values[i] = v
	}
	return lst, nil
}

func (d *Decoder) readUntypedList(length int) ([]any, error) {
	lst := make([]any, length)
	d.valueRefs = append(d.valueRefs, lst)
	for i := 0; i < length; i++ {
		v, err := d.ReadObject()
		if err != nil {
			return nil, err
		}
		lst[i] = v
	}
	return lst, nil
}

// readMap reads key/value pairs until the terminating Z. A typed map's type
// is read and discarded; both forms decode to map[any]any.
func (d *Decoder) readMap(typed bool) (map[any]any, error) {
	if typed {
		if _, err := d.ReadObject(); err != nil {
			return nil, err
		}
	}
	m := make(map[any]any)
	d.valueRefs = append(d.valueRefs, m)
	for {
		key, err := d.ReadObject()
		if err == ErrEndOfMap {
			return m, nil
		}
		if err != nil {
			return nil, err
		}
		value, err := d.ReadObject()
		if err == ErrEndOfMap {
			return m, nil
		}
		if err != nil {
			return nil, err
		}
		if !comparableKey(key) {
			return nil, &UnencodableError{Value: key}
		}
		m[key] = value
	}
}

func comparableKey(k any) bool {
	switch k.(type) {
	case nil, bool, int32, int64, float64, string:
		return true
	}
	return false
}

// readClassDef consumes a C block and appends to the reference table.
func (d *Decoder) readClassDef() error {
	typeName, err := d.readTypeName()
	if err != nil {
		return err
	}
	count, err := d.ReadInt()
	if err != nil {
		return err
	}
	fields := make([]string, count)
	for i := 0; i < count; i++ {
		fields[i], err = d.readTypeName()
		if err != nil {
			return err
		}
	}
	d.classDefs = append(d.classDefs, classDef{typeName: typeName, fields: fields})
	return nil
}

func (d *Decoder) readInstance(idx int) (*Object, error) {
	if idx < 0 || idx >= len(d.classDefs) {
		return nil, ClassRefError(idx)
	}
	def := d.classDefs[idx]
	obj := &Object{
		TypeName: def.typeName,
		Names:    def.fields,
		Values:   make([]any, len(def.fields)),
	}
	d.valueRefs = append(d.valueRefs, obj)
	for i := range def.fields {
		v, err := d.ReadObject()
		if err != nil {
			return nil, err
		}
		obj.Values[i] = v
	}
	return obj, nil
}

// readTypeName reads a value expected to be a string (class names, field
// names, list type tags) and coerces the permissible encodings.
func (d *Decoder) readTypeName() (string, error) {
	v, err := d.ReadObject()
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case nil:
		return "", nil
	}
	return "", &UnencodableError{Value: v}
}

// ReadInt decodes the next value through the full tag dispatch and coerces
// to int: null and false read as 0, true as 1, longs and mill-doubles are
// narrowed. Used for list lengths, field counts and response status codes.
func (d *Decoder) ReadInt() (int, error) {
	tag, err := d.readByte()
	if err != nil {
		return 0, err
	}
	switch {
	case tag == tagNull, tag == tagFalse:
		return 0, nil
	case tag == tagTrue:
		return 1, nil
	case tag == tagDouble:
		b, err := d.readFull(8)
		if err != nil {
			return 0, err
		}
		return int(DecodeF64(b)), nil
	case tag == bcDoubleZero:
		return 0, nil
	case tag == bcDoubleOne:
		return 1, nil
	case tag == bcDoubleByte:
		b, err := d.readByte()
		return int(int8(b)), err
	case tag == bcDoubleShort:
		return d.readI16()
	case tag == bcDoubleMill:
		n, err := d.readI32()
		return int(0.001 * float64(n)), err
	}
	v, err := d.readTagged(tag)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	}
	return 0, UnknownTagError(tag)
}
