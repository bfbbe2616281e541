package devicetest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/op-devicetest/auth"
	"github.com/ethereum-optimism/infra/op-devicetest/device"
	"github.com/ethereum-optimism/infra/op-devicetest/reporting"
	"github.com/ethereum-optimism/infra/op-devicetest/server"
	"github.com/ethereum-optimism/infra/op-devicetest/service"
)

// app implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &app{}

// app performs a single device test run and then asks to be shut down.
type app struct {
	config  *Config
	version string
	driver  *Driver
	svc     *service.Service
	out     io.Writer

	running atomic.Bool
	stopped atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New wires the production collaborators into an app
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*app, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating device test app with config",
		"root", config.Root,
		"artifact", config.ArtifactURL,
		"serveCmd", config.ServeCommand,
		"readyTimeout", config.ReadyTimeout,
		"doneTimeout", config.DoneTimeout)

	deps := Collaborators{
		Server: server.NewProcess(server.Config{
			Command:      config.ServeCommand,
			SettingsFile: config.SettingsFile,
			StopTimeout:  config.StopTimeout,
		}, config.Log.New("component", "server")),
		Device:    device.NewSimulator(config.Device, nil, nil, config.Log.New("component", "device")),
		Manifests: &HTTPManifestFetcher{Platform: "ios", Log: config.Log},
	}
	if config.AuthURL != "" {
		deps.Auth = auth.NewClient(config.AuthURL, config.ClientID, config.Log.New("component", "auth"))
	}

	driver, err := NewDriver(config, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}
	return newApp(config, version, driver, os.Stdout, shutdownCallback), nil
}

func newApp(config *Config, version string, driver *Driver, out io.Writer, shutdownCallback func(error)) *app {
	a := &app{
		config:           config,
		version:          version,
		driver:           driver,
		out:              out,
		shutdownCallback: shutdownCallback,
	}
	svcCfg := config.Service
	svcCfg.Ready = a.running.Load
	a.svc = service.New(svcCfg, config.Log.New("component", "service"))
	return a
}

// Start runs the device test once. A completed run with failures returns a
// TestFailureError; any other failure returns a RuntimeError. Stop is not
// called after a failed Start, so both paths shut the service down here.
// Start implements the cliapp.Lifecycle interface.
func (a *app) Start(ctx context.Context) error {
	a.config.Log.Info("Starting op-devicetest", "version", a.version)
	a.svc.Start(ctx)
	a.running.Store(true)

	start := time.Now()
	summary, err := a.driver.Run(ctx)
	if err != nil {
		if summary != nil {
			a.config.Log.Error("Device test run completed but cleanup failed", "failed", summary.Failed)
		}
		a.config.Log.Error("Device test run aborted", "error", err)
		a.shutdown()
		return NewRuntimeError(err)
	}

	title := fmt.Sprintf("Device Test Results (%s)", time.Since(start).Round(time.Millisecond))
	fmt.Fprintln(a.out, reporting.ResultsTable(title, *summary))

	if !summary.Passed() {
		a.config.Log.Warn("Device test run completed with failures", "failed", summary.Failed)
		a.shutdown()
		return NewTestFailureError(summary.Failed, "device test run reported failures")
	}

	a.config.Log.Info("Device test run passed, exiting")
	go func() {
		a.shutdownCallback(nil)
	}()
	return nil
}

// Stop implements the cliapp.Lifecycle interface.
func (a *app) Stop(ctx context.Context) error {
	a.shutdown()
	return nil
}

func (a *app) shutdown() {
	if a.running.Swap(false) {
		a.config.Log.Info("Stopping op-devicetest")
		a.svc.Shutdown()
	}
	a.stopped.Store(true)
}

// Stopped implements the cliapp.Lifecycle interface.
func (a *app) Stopped() bool {
	return a.stopped.Load()
}
