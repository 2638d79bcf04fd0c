package protocol

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"dubbo-go/hessian"
)

// JVM argument-type descriptors: single-letter primitives, L<fqcn>; for
// classes, a [ prefix per array dimension. The token count determines how
// many arguments follow in a request body.
var descPattern = regexp.MustCompile(
	`(?:[VZBCDFIJS])|(?:L[_$a-zA-Z][_$a-zA-Z0-9/]*;)|(?:\[+(?:[VZBCDFIJS]|L[_$a-zA-Z][_$a-zA-Z0-9/]*;))`)

// primitiveNames translates descriptor primitives to the names the rest of
// this library uses for the corresponding Go kinds.
var primitiveNames = map[byte]string{
	'V': "nil",
	'Z': "bool",
	'B': "[]byte",
	'C': "rune",
	'D': "float64",
	'F': "float64",
	'I': "int32",
	'J': "int64",
	'S': "int16",
}

// ClassNamesOf parses a descriptor into one class name per argument.
func ClassNamesOf(desc string) ([]string, error) {
	var names []string
	for _, token := range descPattern.FindAllString(desc, -1) {
		switch first := token[0]; {
		case first == 'L':
			names = append(names, strings.ReplaceAll(token[1:len(token)-1], "/", "."))
		case first == '[':
			names = append(names, strings.ReplaceAll(token, "/", "."))
		default:
			name, ok := primitiveNames[first]
			if !ok {
				return nil, errors.Errorf("protocol: unknown descriptor type %q", string(first))
			}
			names = append(names, name)
		}
	}
	return names, nil
}

// DescriptorOf maps each argument's runtime kind to its descriptor token.
func DescriptorOf(args []any) (string, error) {
	var sb strings.Builder
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			sb.WriteByte('V')
		case bool:
			sb.WriteByte('Z')
		case int, int8, int16, int32:
			sb.WriteByte('I')
		case int64:
			sb.WriteByte('J')
		case []byte:
			sb.WriteByte('B')
		case string:
			sb.WriteByte('S')
		case float32, float64:
			sb.WriteByte('D')
		case *hessian.Object:
			sb.WriteString(classDescriptor(v.TypeName))
		case *hessian.List:
			sb.WriteString(classDescriptor(v.TypeName))
		case []any:
			sb.WriteString(classDescriptor("java.util.List"))
		default:
			return "", errors.Errorf("protocol: no descriptor for %T", arg)
		}
	}
	return sb.String(), nil
}

// classDescriptor turns a dotted class name into L<slashed>;. An array name
// keeps its [ prefix and only gets the slash substitution.
func classDescriptor(name string) string {
	if strings.HasPrefix(name, "[") {
		return strings.ReplaceAll(name, ".", "/")
	}
	return "L" + strings.ReplaceAll(name, ".", "/") + ";"
}
