package protocol

import (
	"reflect"
	"testing"

	"dubbo-go/hessian"
)

func TestDescriptorOf(t *testing.T) {
	cases := []struct {
		args []any
		want string
	}{
		{[]any{hessian.NewObject("cn.com.xxx.SerwVi"), nil, []byte("x")}, "Lcn/com/xxx/SerwVi;VB"},
		{[]any{1, int64(2), true, "s", 1.5}, "IJZSD"},
		{[]any{hessian.NewJavaList(int64(1))}, "Ljava/util/List;"},
		{[]any{[]any{1}}, "Ljava/util/List;"},
		{[]any{hessian.NewObject("[[Lcom.bbcc.dd;")}, "[[Lcom/bbcc/dd;"},
		{nil, ""},
	}
	for _, c := range cases {
		got, err := DescriptorOf(c.args)
		if err != nil {
			t.Fatalf("DescriptorOf(%v) failed: %v", c.args, err)
		}
		if got != c.want {
			t.Errorf("DescriptorOf(%v): got %q, want %q", c.args, got, c.want)
		}
	}

	if _, err := DescriptorOf([]any{struct{}{}}); err == nil {
		t.Error("expected error for undescribable argument")
	}
}

func TestClassNamesOf(t *testing.T) {
	cases := []struct {
		desc string
		want []string
	}{
		{"Lcn/com/xxx/SerwVi;VB", []string{"cn.com.xxx.SerwVi", "nil", "[]byte"}},
		{
			"[[Lcom/bbcc/dd;DLcn/com/xxx/yyy;CS",
			[]string{"[[Lcom.bbcc.dd;", "float64", "cn.com.xxx.yyy", "rune", "int16"},
		},
		{"IJZ", []string{"int32", "int64", "bool"}},
		{"", nil},
	}
	for _, c := range cases {
		got, err := ClassNamesOf(c.desc)
		if err != nil {
			t.Fatalf("ClassNamesOf(%q) failed: %v", c.desc, err)
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("ClassNamesOf(%q): got %v, want %v", c.desc, got, c.want)
		}
	}
}
