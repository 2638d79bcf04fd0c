package middleware

import (
	"context"
	"time"

	"dubbo-go/message"
)

// TimeoutMiddleware caps how long a handler may run. A request that misses
// the deadline gets a status 31 response immediately.
//
// The handler goroutine itself is not cancelled, only abandoned; handlers
// that should stop early must watch ctx.Done() themselves.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.Response, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return &message.Response{
					ID:     req.ID,
					Status: message.StatusServerTimeout,
					Error:  "request timed out",
				}
			}
		}
	}
}
