package protocol

import (
	"testing"
)

func TestConvertTyped(t *testing.T) {
	cases := []struct {
		typeName string
		in       any
		want     any
	}{
		{"short", "2", int32(2)},
		{"int", "2", int32(2)},
		{"java.lang.Integer", int64(7), int32(7)},
		{"double", "1", 1.0},
		{"float", "1", 1.0},
		{"java.lang.Double", int32(3), 3.0},
		{"java.lang.Long", "12", int64(12)},
		{"java.lang.Long", int32(12), int64(12)},
		{"java.lang.String", "1a", "1a"},
		{"java.lang.String", []byte("bs"), "bs"},
		{"boolean", "true", true},
		{"boolean", "false", false},
		{"java.lang.Boolean", int32(1), true},
	}
	for _, c := range cases {
		got, err := ConvertTyped(c.typeName, c.in)
		if err != nil {
			t.Fatalf("ConvertTyped(%s, %v) failed: %v", c.typeName, c.in, err)
		}
		if got != c.want {
			t.Errorf("ConvertTyped(%s, %v): got %#v, want %#v", c.typeName, c.in, got, c.want)
		}
	}
}

func TestConvertTypedUnsupported(t *testing.T) {
	_, err := ConvertTyped("java.util.HashMap", map[any]any{})
	if err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if _, ok := err.(UnsupportedGenericTypeError); !ok {
		t.Errorf("expected UnsupportedGenericTypeError, got %T", err)
	}

	if _, err := ConvertTyped("int", "not-a-number"); err == nil {
		t.Error("expected error for malformed int argument")
	}
}
