package middleware

import (
	"context"
	"log"
	"time"

	"dubbo-go/message"
)

// LoggingMiddleware records the invoked method, duration and any non-OK
// status for each request.
func LoggingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			start := time.Now()
			resp := next(ctx, req)
			duration := time.Since(start)
			log.Printf("method: %s.%s, duration: %s", req.ServiceName, req.MethodName, duration)
			if resp != nil && !resp.OK() {
				log.Printf("status %d: %v", resp.Status, resp.Error)
			}
			return resp
		}
	}
}
