package middleware

import (
	"context"
	"testing"
	"time"

	"dubbo-go/message"
)

func okHandler(ctx context.Context, req *message.Request) *message.Response {
	return &message.Response{ID: req.ID, Status: message.StatusOK, Data: "ok"}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *message.Request) *message.Response {
				order = append(order, name+".before")
				resp := next(ctx, req)
				order = append(order, name+".after")
				return resp
			}
		}
	}

	handler := Chain(mw("a"), mw("b"))(okHandler)
	resp := handler(context.Background(), &message.Request{ID: 1})
	if resp == nil || !resp.OK() {
		t.Fatalf("unexpected response: %+v", resp)
	}

	want := []string{"a.before", "b.before", "b.after", "a.after"}
	for i, v := range want {
		if order[i] != v {
			t.Fatalf("order: got %v, want %v", order, want)
		}
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := func(ctx context.Context, req *message.Request) *message.Response {
		time.Sleep(200 * time.Millisecond)
		return okHandler(ctx, req)
	}
	handler := TimeoutMiddleware(20 * time.Millisecond)(slow)
	resp := handler(context.Background(), &message.Request{ID: 2})
	if resp.Status != message.StatusServerTimeout {
		t.Errorf("status: got %d, want %d", resp.Status, message.StatusServerTimeout)
	}

	handler = TimeoutMiddleware(time.Second)(okHandler)
	if resp := handler(context.Background(), &message.Request{ID: 3}); !resp.OK() {
		t.Errorf("fast handler should pass: %+v", resp)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(0.001, 1)(okHandler)

	if resp := handler(context.Background(), &message.Request{ID: 1}); !resp.OK() {
		t.Fatalf("first request should pass: %+v", resp)
	}
	resp := handler(context.Background(), &message.Request{ID: 2})
	if resp.Status != message.StatusServiceError {
		t.Errorf("status: got %d, want %d", resp.Status, message.StatusServiceError)
	}
}

func TestLoggingMiddlewarePassthrough(t *testing.T) {
	handler := LoggingMiddleware()(okHandler)
	resp := handler(context.Background(), &message.Request{ID: 1, ServiceName: "calc", MethodName: "exp"})
	if resp.Data != "ok" {
		t.Errorf("response altered: %+v", resp)
	}

	// a dropped request stays dropped
	dropper := LoggingMiddleware()(func(ctx context.Context, req *message.Request) *message.Response {
		return nil
	})
	if resp := dropper(context.Background(), &message.Request{ID: 1}); resp != nil {
		t.Errorf("expected nil passthrough, got %+v", resp)
	}
}

func TestRetryMiddleware(t *testing.T) {
	attempts := 0
	flaky := func(ctx context.Context, req *message.Request) *message.Response {
		attempts++
		if attempts < 3 {
			return &message.Response{ID: req.ID, Status: message.StatusServerTimeout, Error: "request timeout"}
		}
		return okHandler(ctx, req)
	}
	handler := RetryMiddleware(3, time.Millisecond)(flaky)
	resp := handler(context.Background(), &message.Request{ID: 1})
	if !resp.OK() {
		t.Errorf("expected success after retries: %+v", resp)
	}
	if attempts != 3 {
		t.Errorf("attempts: got %d, want 3", attempts)
	}

	// non-retryable errors return immediately
	attempts = 0
	fatal := func(ctx context.Context, req *message.Request) *message.Response {
		attempts++
		return &message.Response{ID: req.ID, Status: message.StatusUnknownError, Error: "boom"}
	}
	handler = RetryMiddleware(3, time.Millisecond)(fatal)
	if resp := handler(context.Background(), &message.Request{ID: 1}); resp.OK() {
		t.Error("expected failure response")
	}
	if attempts != 1 {
		t.Errorf("attempts: got %d, want 1", attempts)
	}
}
