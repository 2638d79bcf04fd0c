// Package middleware implements the onion-model handler chain for the Dubbo
// provider side.
//
// Middleware wraps the dispatch handler to add cross-cutting concerns
// (logging, timeout, rate limiting, retry) without touching the handler.
//
// Execution order:
//
//	Chain(A, B, C)(handler)  →  A(B(C(handler)))
//
//	Request:   A.before → B.before → C.before → handler
//	Response:  handler → C.after → B.after → A.after
//
// A middleware may short-circuit by returning a response without calling
// next. A nil response means the request is dropped without a reply (the
// missing-handler case); middlewares must pass nil through untouched.
package middleware

import (
	"context"

	"dubbo-go/message"
)

// HandlerFunc is the signature shared by the dispatch handler and every
// wrapped layer.
type HandlerFunc func(ctx context.Context, req *message.Request) *message.Response

// Middleware takes a handler and returns a handler that wraps it.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one. It builds right to left so the first
// middleware in the list is the outermost layer.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
