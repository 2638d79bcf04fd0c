package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"dubbo-go/message"
)

// RateLimitMiddleware rejects requests beyond a token-bucket budget with a
// status 70 response.
//
// The limiter lives in the outer closure, shared across all requests; a
// per-request limiter would hand every call a full bucket.
//
// Parameters: r tokens per second refill, burst bucket size.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) *message.Response {
			if !limiter.Allow() {
				return &message.Response{
					ID:     req.ID,
					Status: message.StatusServiceError,
					Error:  "rate limit exceeded",
				}
			}
			return next(ctx, req)
		}
	}
}
