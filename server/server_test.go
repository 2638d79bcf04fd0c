package server

import (
	"context"
	"net"
	"testing"
	"time"

	"dubbo-go/message"
	"dubbo-go/protocol"
)

func newTestServer() *Server {
	s := NewServer(0, "unit-test")
	s.AddMethod("calc", "exp", func(args ...any) (any, error) {
		n := args[0].(int32)
		return n * n, nil
	})
	s.AddMethod("calc", "divide", func(args ...any) (any, error) {
		a, b := args[0].(int32), args[1].(int32)
		if b == 0 {
			return nil, &message.DubboError{Status: 40, Message: "divide by zero"}
		}
		return float64(a) / float64(b), nil
	})
	s.AddMethod("calc", "panics", func(args ...any) (any, error) {
		panic("boom")
	})
	s.AddMethod("calc", "void", Void)
	s.AddMethod("calc", "emptyOk", EmptyOK)
	return s
}

func TestDispatch(t *testing.T) {
	s := newTestServer()

	resp := s.dispatch(context.Background(), &message.Request{
		ID: 1, ServiceName: "calc", MethodName: "exp", Args: []any{int32(4)},
	})
	if !resp.OK() || resp.Data != int32(16) {
		t.Errorf("exp: %+v", resp)
	}

	resp = s.dispatch(context.Background(), &message.Request{
		ID: 2, ServiceName: "calc", MethodName: "divide", Args: []any{int32(3), int32(0)},
	})
	if resp.Status != 40 || resp.Error != "divide by zero" || resp.Data != nil {
		t.Errorf("divide by zero: %+v", resp)
	}

	resp = s.dispatch(context.Background(), &message.Request{
		ID: 3, ServiceName: "calc", MethodName: "panics",
	})
	if resp.Status != message.StatusUnknownError || resp.Error != "boom" {
		t.Errorf("panic mapping: %+v", resp)
	}

	// unknown methods are dropped without a reply
	resp = s.dispatch(context.Background(), &message.Request{
		ID: 4, ServiceName: "calc", MethodName: "nope",
	})
	if resp != nil {
		t.Errorf("missing handler should drop: %+v", resp)
	}
	resp = s.dispatch(context.Background(), &message.Request{
		ID: 5, ServiceName: "nothing", MethodName: "nope",
	})
	if resp != nil {
		t.Errorf("missing service should drop: %+v", resp)
	}
}

func TestBuiltinHandlers(t *testing.T) {
	s := newTestServer()

	resp := s.dispatch(context.Background(), &message.Request{ID: 1, ServiceName: "calc", MethodName: "void"})
	if !resp.OK() || resp.Data != nil {
		t.Errorf("void: %+v", resp)
	}

	resp = s.dispatch(context.Background(), &message.Request{ID: 2, ServiceName: "calc", MethodName: "emptyOk"})
	m, ok := resp.Data.(map[any]any)
	if !resp.OK() || !ok || len(m) != 0 {
		t.Errorf("emptyOk: %+v", resp)
	}
}

// The per-connection heartbeat loop probes the consumer with two-way
// heartbeat requests.
func TestServerHeartbeat(t *testing.T) {
	s := newTestServer()
	s.heartbeatInterval = 50 * time.Millisecond
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Shutdown(time.Second)

	conn, err := net.Dial("tcp", s.listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := protocol.NewDecoder(conn).Decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	hb, ok := msg.(*message.HeartbeatRequest)
	if !ok {
		t.Fatalf("expected HeartbeatRequest, got %T", msg)
	}
	if !hb.TwoWay {
		t.Error("server heartbeat should be two-way")
	}
}

func TestShutdownStopsAccepting(t *testing.T) {
	s := newTestServer()
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	addr := s.listener.Addr().String()
	if err := s.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Error("listener still accepting after shutdown")
	}
}
