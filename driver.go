package devicetest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-devicetest/auth"
	"github.com/ethereum-optimism/infra/op-devicetest/logwatch"
	"github.com/ethereum-optimism/infra/op-devicetest/metrics"
	"github.com/ethereum-optimism/infra/op-devicetest/protocol"
	"github.com/ethereum-optimism/infra/op-devicetest/server"
)

// Authenticator logs in before the project is served
type Authenticator interface {
	Login(ctx context.Context, creds auth.Credentials) (*auth.Session, error)
}

// Server starts and stops the serving process
type Server interface {
	Start(ctx context.Context, root string, sink server.LogSink) error
	Port(ctx context.Context, root string) (int, error)
	Stop(ctx context.Context) error
}

// Device controls the execution environment
type Device interface {
	Open(ctx context.Context) error
	Uninstall(ctx context.Context) error
	Install(ctx context.Context, artifact string) error
	WaitInstalled(ctx context.Context) error
	OpenURL(ctx context.Context, url string) error
}

// ManifestFetcher retrieves the manifest served at a URL
type ManifestFetcher interface {
	Fetch(ctx context.Context, url string) (*Manifest, error)
}

// Collaborators are the external services a Driver sequences. Auth may be
// nil, in which case login is skipped.
type Collaborators struct {
	Auth      Authenticator
	Server    Server
	Device    Device
	Manifests ManifestFetcher
}

// Driver runs one end-to-end device test run
type Driver struct {
	cfg    *Config
	deps   Collaborators
	log    log.Logger
	tracer trace.Tracer
}

// NewDriver creates a Driver
func NewDriver(cfg *Config, deps Collaborators) (*Driver, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Server == nil || deps.Device == nil || deps.Manifests == nil {
		return nil, errors.New("server, device and manifest fetcher are required")
	}
	if cfg.ReadyMarker == "" {
		cfg.ReadyMarker = protocol.ReadyMarker
	}
	if cfg.LinkScheme == "" {
		cfg.LinkScheme = protocol.DefaultLinkScheme
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	return &Driver{
		cfg:    cfg,
		deps:   deps,
		log:    logger,
		tracer: otel.Tracer("device test driver"),
	}, nil
}

// Run executes the run strictly in sequence: login, start serving, wait for
// the ready marker, resolve the URL, check the manifest, optionally install,
// launch, wait for the completion marker and stop serving. The first failure
// aborts the run; the serving process is then stopped best effort.
func (d *Driver) Run(ctx context.Context) (summary *protocol.RunSummary, err error) {
	runID := uuid.New().String()
	logger := d.log.New("run_id", runID)
	ctx, span := d.tracer.Start(ctx, "device test run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("root", d.cfg.Root),
	))
	defer span.End()
	start := time.Now()

	watcher := logwatch.New()
	serving := false
	defer func() {
		if err != nil && serving {
			d.stopBestEffort(ctx, logger)
		}
		d.recordRun(span, runID, summary, err, time.Since(start))
	}()

	// 1. Authenticate
	if d.deps.Auth != nil && d.cfg.Credentials.Username != "" {
		if err := d.step(ctx, logger, "login", func(ctx context.Context) error {
			_, err := d.deps.Auth.Login(ctx, d.cfg.Credentials)
			return err
		}); err != nil {
			return nil, err
		}
	}

	// 2. Start serving. The ready waiter exists before the process can log.
	ready := watcher.Subscribe(protocol.ContainsMarker(d.cfg.ReadyMarker))
	defer ready.Cancel()
	if err := d.step(ctx, logger, "start server", func(ctx context.Context) error {
		return d.deps.Server.Start(ctx, d.cfg.Root, newEchoSink(watcher, d.cfg.Echo))
	}); err != nil {
		return nil, err
	}
	serving = true

	// 3. Wait for the ready marker
	if err := d.step(ctx, logger, "wait ready", func(ctx context.Context) error {
		_, err := waitMarker(ctx, ready, "ready", d.cfg.ReadyMarker, d.cfg.ReadyTimeout)
		return err
	}); err != nil {
		return nil, err
	}

	// 4. Resolve the access URL
	var link string
	if err := d.step(ctx, logger, "resolve url", func(ctx context.Context) error {
		port, err := d.deps.Server.Port(ctx, d.cfg.Root)
		if err != nil {
			return err
		}
		link = protocol.LinkURL(d.cfg.LinkScheme, port)
		return nil
	}); err != nil {
		return nil, err
	}
	logger.Info("Url is", "url", link)

	// 5. Sanity check the manifest
	if err := d.step(ctx, logger, "check manifest", func(ctx context.Context) error {
		m, err := d.deps.Manifests.Fetch(ctx, protocol.FetchURL(link, d.cfg.LinkScheme))
		if err != nil {
			return err
		}
		return ValidateManifest(m, d.cfg.ManifestName)
	}); err != nil {
		return nil, err
	}

	// 6. Install the artifact
	if d.cfg.ArtifactURL != "" {
		logger.Info("Installing artifact", "artifact", d.cfg.ArtifactURL)
		steps := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"open device", d.deps.Device.Open},
			{"uninstall", d.deps.Device.Uninstall},
			{"install", func(ctx context.Context) error { return d.deps.Device.Install(ctx, d.cfg.ArtifactURL) }},
			{"wait installed", d.deps.Device.WaitInstalled},
		}
		for _, s := range steps {
			if err := d.step(ctx, logger, s.name, s.fn); err != nil {
				return nil, err
			}
		}
	}

	// 7. Launch. The completion waiter exists before the app can start.
	done := watcher.Subscribe(protocol.IsCompletion)
	defer done.Cancel()
	if err := d.step(ctx, logger, "launch", func(ctx context.Context) error {
		return d.deps.Device.OpenURL(ctx, link)
	}); err != nil {
		return nil, err
	}

	// 8. Wait for and parse the results
	if err := d.step(ctx, logger, "wait completion", func(ctx context.Context) error {
		chunk, err := waitMarker(ctx, done, "completion", protocol.CompletionMarker, d.cfg.DoneTimeout)
		if err != nil {
			return err
		}
		summary, err = protocol.ParseCompletion(chunk)
		return err
	}); err != nil {
		return nil, err
	}

	// 9. Stop serving. A failed stop is reported, not attempted again.
	serving = false
	if err := d.step(ctx, logger, "stop server", d.deps.Server.Stop); err != nil {
		return summary, err
	}

	logger.Info("Run complete", "failed", summary.Failed, "duration", time.Since(start))
	return summary, nil
}

// step runs fn inside its own span, logging and timing it
func (d *Driver) step(ctx context.Context, logger log.Logger, name string, fn func(context.Context) error) error {
	ctx, span := d.tracer.Start(ctx, name)
	defer span.End()

	logger.Info("Step started", "step", name)
	start := time.Now()
	err := fn(ctx)
	metrics.RecordStep(name, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Step failed", "step", name, "err", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug("Step done", "step", name, "duration", time.Since(start))
	return nil
}

func (d *Driver) stopBestEffort(ctx context.Context, logger log.Logger) {
	timeout := d.cfg.StopTimeout
	if timeout <= 0 {
		timeout = server.DefaultStopTimeout
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout+time.Second)
	defer cancel()
	if err := d.deps.Server.Stop(stopCtx); err != nil && !errors.Is(err, server.ErrNotStarted) {
		logger.Warn("Failed to stop serving process after abort", "err", err)
	}
}

func (d *Driver) recordRun(span trace.Span, runID string, summary *protocol.RunSummary, err error, elapsed time.Duration) {
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordRun(runID, "error", 0, elapsed)
		metrics.RecordErrorDetails("run", err)
	case summary.Passed():
		metrics.RecordRun(runID, "pass", 0, elapsed)
	default:
		span.SetAttributes(attribute.Int("failed", summary.Failed))
		metrics.RecordRun(runID, "fail", summary.Failed, elapsed)
	}
}

// waitMarker waits for sub, bounded by timeout when positive
func waitMarker(ctx context.Context, sub *logwatch.Subscription, name, marker string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	chunk, err := sub.Wait(ctx)
	metrics.RecordMarkerWait(name, err, time.Since(start))
	switch {
	case err == nil:
		return chunk, nil
	case timeout > 0 && errors.Is(err, context.DeadlineExceeded):
		return "", &MarkerTimeoutError{Marker: marker, Timeout: timeout}
	case errors.Is(err, logwatch.ErrClosed):
		return "", fmt.Errorf("serving process exited before the %s marker: %w", name, err)
	default:
		return "", err
	}
}

// echoSink publishes serving process output to the watcher and copies it to
// an optional writer
type echoSink struct {
	w    *logwatch.Watcher
	mu   sync.Mutex
	echo io.Writer
}

func newEchoSink(w *logwatch.Watcher, echo io.Writer) *echoSink {
	return &echoSink{w: w, echo: echo}
}

func (s *echoSink) Publish(chunk string) {
	if s.echo != nil {
		s.mu.Lock()
		fmt.Fprintln(s.echo, chunk)
		s.mu.Unlock()
	}
	s.w.Publish(chunk)
}

func (s *echoSink) Close() {
	s.w.Close()
}
