package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

// httpShutdownTimeout bounds how long in-flight requests may run during
// shutdown.
const httpShutdownTimeout = 10 * time.Second

// HTTPService adapts an http.Server into a lifecycle Service.
type HTTPService struct {
	srv *http.Server

	mu   sync.Mutex
	addr string
}

// NewHTTPService creates an HTTPService serving handler on addr.
//
// Precondition: addr must be a valid "host:port" address; handler must
// be non-nil.
func NewHTTPService(addr string, handler http.Handler) *HTTPService {
	return &HTTPService{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start listens and serves HTTP until Stop is called.
//
// Postcondition: Returns nil after a graceful shutdown, or the listen
// error otherwise.
func (h *HTTPService) Start() error {
	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.addr = ln.Addr().String()
	h.mu.Unlock()

	err = h.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the bound listen address, or the configured address if
// the service has not started yet.
func (h *HTTPService) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.addr != "" {
		return h.addr
	}
	return h.srv.Addr
}

// Stop shuts the server down, waiting up to httpShutdownTimeout for
// in-flight requests.
func (h *HTTPService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	_ = h.srv.Shutdown(ctx)
}
