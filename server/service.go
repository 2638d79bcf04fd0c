package server

import (
	"reflect"

	"github.com/pkg/errors"
)

// RegisterService scans a receiver struct and registers every exported
// method with the handler signature
//
//	func (r *T) Name(args ...any) (any, error)
//
// under the given service name. Methods with other signatures are skipped,
// so a receiver can mix RPC methods with plain ones.
func (s *Server) RegisterService(service string, rcvr any) error {
	typ := reflect.TypeOf(rcvr)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return errors.Errorf("server: receiver must be a pointer, got %T", rcvr)
	}
	if typ.Elem().Kind() != reflect.Struct {
		return errors.Errorf("server: receiver must point to a struct, got %s", typ.Elem().Kind())
	}

	val := reflect.ValueOf(rcvr)
	registered := 0
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		if !isHandlerMethod(method.Type) {
			continue
		}
		fn := val.Method(i).Interface().(func(...any) (any, error))
		s.AddMethod(service, method.Name, Handler(fn))
		registered++
	}
	if registered == 0 {
		return errors.Errorf("server: %T has no methods with signature func(...any) (any, error)", rcvr)
	}
	return nil
}

var (
	anySliceType = reflect.TypeOf([]any(nil))
	anyType      = reflect.TypeOf((*any)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
)

// isHandlerMethod checks for exactly: receiver + variadic []any in,
// (any, error) out.
func isHandlerMethod(t reflect.Type) bool {
	if !t.IsVariadic() || t.NumIn() != 2 || t.NumOut() != 2 {
		return false
	}
	return t.In(1) == anySliceType && t.Out(0) == anyType && t.Out(1) == errorType
}
