package middleware

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"dubbo-go/message"
)

// RetryMiddleware re-invokes the handler on transient failures (timeouts,
// refused downstream connections) with exponential backoff. Only register it
// around idempotent services.
func RetryMiddleware(maxRetries int, baseDelay time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			resp := next(ctx, req)
			for i := 0; i < maxRetries; i++ {
				if resp == nil || resp.OK() {
					return resp
				}
				errText := fmt.Sprint(resp.Error)
				if resp.Status == message.StatusServerTimeout ||
					strings.Contains(errText, "timeout") || strings.Contains(errText, "connection refused") {
					log.Printf("retry attempt %d for %s.%s: %s", i+1, req.ServiceName, req.MethodName, errText)
					time.Sleep(baseDelay * time.Duration(1<<i))
					resp = next(ctx, req)
				} else {
					return resp
				}
			}
			return resp
		}
	}
}
