package http

import (
	"net/http"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Router registers routes independently of the underlying mux.
// Route-level middleware is applied in order, first outermost.
type Router interface {
	GET(path string, handler http.HandlerFunc, middlewares ...Middleware)
	POST(path string, handler http.HandlerFunc, middlewares ...Middleware)

	// Group mounts routes under prefix with shared middleware.
	Group(prefix string, fn func(Router), middlewares ...Middleware)

	// Use adds middleware to every route of the router.
	Use(middlewares ...Middleware)

	// Handler returns the root handler for http.Server.
	Handler() http.Handler

	// Walk visits every registered route.
	Walk(fn func(method, path string) error) error
}

// Chain applies middlewares to a handler, first outermost.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
