package server

import (
	"context"
	"testing"

	"dubbo-go/message"
)

type calcService struct{}

func (c *calcService) Exp(args ...any) (any, error) {
	n := args[0].(int32)
	return n * n, nil
}

func (c *calcService) Multi2(args ...any) (any, error) {
	return 2 * args[0].(int32), nil
}

// wrong signature, must be skipped
func (c *calcService) Helper(n int) int {
	return n
}

func TestRegisterService(t *testing.T) {
	s := NewServer(0, "unit-test")
	if err := s.RegisterService("calc", &calcService{}); err != nil {
		t.Fatalf("RegisterService failed: %v", err)
	}

	if s.services["calc"]["Exp"] == nil || s.services["calc"]["Multi2"] == nil {
		t.Fatalf("methods not registered: %v", s.services["calc"])
	}
	if s.services["calc"]["Helper"] != nil {
		t.Error("Helper has the wrong signature and must be skipped")
	}

	resp := s.dispatch(context.Background(), &message.Request{
		ID: 1, ServiceName: "calc", MethodName: "Exp", Args: []any{int32(5)},
	})
	if !resp.OK() || resp.Data != int32(25) {
		t.Errorf("Exp via reflection: %+v", resp)
	}
}

func TestRegisterServiceRejectsNonPointer(t *testing.T) {
	s := NewServer(0, "unit-test")
	if err := s.RegisterService("calc", calcService{}); err == nil {
		t.Error("expected error for value receiver")
	}
	if err := s.RegisterService("calc", &struct{}{}); err == nil {
		t.Error("expected error for receiver without handler methods")
	}
}
