package service

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

type HealthzServer struct {
	ctx    context.Context
	server *http.Server
	ready  func() bool
}

// NewHealthzServer creates a healthz server. ready reports whether the
// driver is still healthy; nil always reports OK.
func NewHealthzServer(ready func() bool) *HealthzServer {
	return &HealthzServer{ready: ready}
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	h.server = &http.Server{
		Handler: h.Handler(),
		Addr:    addr,
	}
	h.ctx = ctx
	return h.server.ListenAndServe()
}

// Handler returns the CORS-wrapped /healthz handler
func (h *HealthzServer) Handler() http.Handler {
	hdlr := http.NewServeMux()
	hdlr.HandleFunc("/healthz", h.Handle)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(hdlr)
}

func (h *HealthzServer) Shutdown() error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(h.ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received health check request", "path", r.URL.Path)
	if h.ready != nil && !h.ready() {
		http.Error(w, "stopped", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("OK")) //nolint:errcheck
}
