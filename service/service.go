package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-devicetest/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = 8080
)

// Config selects which servers run and where
type Config struct {
	Enabled     bool
	HealthzAddr string
	MetricsAddr string
	Ready       func() bool
}

type Service struct {
	cfg     Config
	log     log.Logger
	Healthz *HealthzServer
	Metrics *MetricsServer
}

// DefaultHealthzAddr is the healthz listen address when none is configured
func DefaultHealthzAddr() string {
	return net.JoinHostPort(HealthzHost, strconv.Itoa(HealthzPort))
}

func New(cfg Config, logger log.Logger) *Service {
	if cfg.HealthzAddr == "" {
		cfg.HealthzAddr = DefaultHealthzAddr()
	}
	return &Service{
		cfg:     cfg,
		log:     logger,
		Healthz: NewHealthzServer(cfg.Ready),
		Metrics: &MetricsServer{},
	}
}

func (s *Service) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Debug("service disabled")
		return
	}
	s.log.Info("service starting")

	go func() {
		s.log.Info("starting healthz server", "addr", s.cfg.HealthzAddr)
		if err := s.Healthz.Start(ctx, s.cfg.HealthzAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("healthz_server", err)
		}
	}()

	if s.cfg.MetricsAddr != "" {
		go func() {
			s.log.Info("starting metrics server", "addr", s.cfg.MetricsAddr)
			if err := s.Metrics.Start(ctx, s.cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("error starting metrics server", "err", err)
				metrics.RecordErrorDetails("metrics_server", err)
			}
		}()
	}

	s.log.Info("service started")
}

func (s *Service) Shutdown() {
	if !s.cfg.Enabled {
		return
	}
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.log.Info("service stopped")
}
