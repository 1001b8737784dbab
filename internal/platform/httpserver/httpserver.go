package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with the timeouts this service relies on.
// WriteTimeout stays above the request timeout so the Timeout middleware
// answers first.
func New(addr string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
