// Package httpserver builds the admin API server.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the admin API. The write timeout sits above the
// admin route timeout so a timed-out request still gets its 504.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
