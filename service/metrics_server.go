package service

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	ctx    context.Context
	server *http.Server
}

func (m *MetricsServer) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	m.server = &http.Server{
		Handler: mux,
		Addr:    addr,
	}
	m.ctx = ctx
	return m.server.ListenAndServe()
}

func (m *MetricsServer) Shutdown() error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(m.ctx)
}
