// Package hessian implements the Hessian-2 serialization used as the Dubbo
// body encoding (serialization id 0x02).
//
// It is a self-describing binary format: every value starts with a tag byte,
// and the tag ranges double as compact encodings for small values. The
// Decoder reads the most general form of each tag family; the Encoder always
// emits the narrowest tag admissible for a value, which matters for wire
// compatibility with the reference Java implementation.
//
// The int/long distinction of the wire format is modeled as int32 vs int64:
// Go int, int8, int16 and int32 take the 32-bit tag family, int64 the 64-bit
// one. Decoded instances of named Java classes are represented as *Object,
// typed collections as *List.
package hessian

// One-character tags, named after the bytes they are on the wire.
const (
	tagNull  = 'N' // 0x4e
	tagTrue  = 'T' // 0x54
	tagFalse = 'F' // 0x46

	tagInt    = 'I' // 0x49, int32 follows
	tagLong   = 'L' // 0x4c, int64 follows
	tagDouble = 'D' // 0x44, IEEE-754 follows

	tagString      = 'S' // 0x53, final chunk, u16 length
	tagStringChunk = 'R' // 0x52, non-final chunk, u16 length

	tagBinaryChunk = 'A' // 0x41, non-final chunk, u16 length
	tagBinary      = 'B' // 0x42, final chunk, u16 length

	tagMapUntyped = 'H' // 0x48
	tagMapTyped   = 'M' // 0x4d
	tagClassDef   = 'C' // 0x43
	tagRef        = 'Q' // 0x51, value back-reference
	tagEnd        = 'Z' // 0x5a, map/list terminator
)

// Zero points and range markers of the compact numeric families.
const (
	bcIntZero      = 0x90 // one-byte int, -0x10..0x2f
	bcIntByteZero  = 0xc8 // two-byte int, -0x800..0x7ff
	bcIntShortZero = 0xd4 // three-byte int, -0x40000..0x3ffff

	bcLongZero      = 0xe0 // one-byte long, -0x08..0x0f
	bcLongByteZero  = 0xf8 // two-byte long, -0x800..0x7ff
	bcLongShortZero = 0x3c // three-byte long, -0x40000..0x3ffff
	bcLongInt       = 0x59 // long in 4 signed bytes

	bcDoubleZero  = 0x5b
	bcDoubleOne   = 0x5c
	bcDoubleByte  = 0x5d
	bcDoubleShort = 0x5e
	bcDoubleMill  = 0x5f // signed i32 of value*1000

	bcDate       = 0x4a // ms since epoch, i64
	bcDateMinute = 0x4b // minutes since epoch, i32

	bcStringDirectMax = 0x1f  // tags 0x00..0x1f, length in the tag
	bcStringShortMax  = 0x3ff // tags 0x30..0x33, length in tag+1 byte
	bcStringShort     = 0x30

	bcBinaryDirect    = 0x20 // tags 0x20..0x2f, length in the tag
	bcBinaryShort     = 0x34 // tags 0x34..0x37, length in tag+1 byte
	bcBinaryDirectMax = 0x0f
	bcBinaryShortMax  = 0x3ff

	bcListTypedVar     = 0x55 // variable-length typed list, unimplemented
	bcListTyped        = 0x56 // fixed-length typed list
	bcListUntypedVar   = 0x57 // variable-length untyped list, unimplemented
	bcListUntyped      = 0x58
	bcListCompactTyped = 0x70 // 0x70..0x77, length in the tag
	bcListCompact      = 0x78 // 0x78..0x7f, length in the tag

	bcObject = 0x60 // 0x60..0x6f, class-definition ref in the tag
)

// Field is one named slot of an Object, in declaration order.
type Field struct {
	Name  string
	Value any
}

// Object is an instance of a named Java class: a type name plus ordered
// fields. The decoder produces one per 0x60..0x6f instance tag; the encoder
// accepts the same structure and emits the class definition before the first
// instance of each type name.
type Object struct {
	TypeName string
	Names    []string
	Values   []any
}

// NewObject builds an Object from ordered fields.
func NewObject(typeName string, fields ...Field) *Object {
	o := &Object{TypeName: typeName}
	for _, f := range fields {
		o.Names = append(o.Names, f.Name)
		o.Values = append(o.Values, f.Value)
	}
	return o
}

// Get returns the value of the named field.
func (o *Object) Get(name string) (any, bool) {
	for i, n := range o.Names {
		if n == name {
			return o.Values[i], true
		}
	}
	return nil, false
}

// List is a typed collection, e.g. java.util.List. Untyped Hessian lists
// decode to plain []any; typed ones keep their container type name so the
// encoder can reproduce the same wire form.
type List struct {
	TypeName string
	Values   []any
}

// NewJavaList wraps values as a java.util.List, the container type Dubbo
// peers use for generic list arguments.
func NewJavaList(values ...any) *List {
	return &List{TypeName: "java.util.List", Values: values}
}

// classDef is one entry of the per-decode class-definition reference table,
// appended on tag C and addressed by tags 0x60..0x6f.
type classDef struct {
	typeName string
	fields   []string
}
