// Package server runs the process that builds and serves the test artifact
// and streams its output into a log sink.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/ethereum-optimism/infra/op-devicetest/logwatch"
)

// DefaultSettingsFile is where the serving process records its bound port,
// relative to the project root.
const DefaultSettingsFile = ".expo/packager-info.json"

// DefaultStopTimeout is how long Stop waits after an interrupt before killing
const DefaultStopTimeout = 10 * time.Second

var (
	ErrNotStarted     = errors.New("serving process not started")
	ErrAlreadyStarted = errors.New("serving process already started")
	ErrNoPort         = errors.New("settings do not contain a server port")
)

// LogSink receives the process output. Close is called once both output
// streams have ended.
type LogSink interface {
	Publish(chunk string)
	Close()
}

// Settings is the subset of the serving process settings file that is read
type Settings struct {
	ServerPort int `json:"expoServerPort"`
}

// Config configures a Process
type Config struct {
	Command      []string
	SettingsFile string
	StopTimeout  time.Duration
	Env          []string
}

// Process supervises one serving process
type Process struct {
	cfg Config
	log log.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{} // Closed once the process exited and its output drained
	waitErr error
	stopped bool
}

// NewProcess creates a supervisor for cfg.Command
func NewProcess(cfg Config, logger log.Logger) *Process {
	if cfg.SettingsFile == "" {
		cfg.SettingsFile = DefaultSettingsFile
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	return &Process{cfg: cfg, log: logger}
}

// Start launches the command in root and pumps stdout and stderr into sink,
// one line per chunk. It returns once the process is running. The process
// outlives ctx; use Stop to end it.
func (p *Process) Start(ctx context.Context, root string, sink LogSink) error {
	if len(p.cfg.Command) == 0 {
		return errors.New("no serve command configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(p.cfg.Command[0], p.cfg.Command[1:]...)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.cfg.Command[0], err)
	}
	p.log.Info("Started serving process", "cmd", p.cfg.Command, "root", root, "pid", cmd.Process.Pid)

	p.cmd = cmd
	p.exited = make(chan struct{})

	var g errgroup.Group
	g.Go(func() error { return logwatch.PumpLines(stdout, sink.Publish) })
	g.Go(func() error { return logwatch.PumpLines(stderr, sink.Publish) })

	go func() {
		pumpErr := g.Wait()
		// Wait closes the pipes, so it must follow the pumps.
		waitErr := cmd.Wait()
		sink.Close()

		p.mu.Lock()
		p.waitErr = errors.Join(waitErr, pumpErr)
		stopped := p.stopped
		p.mu.Unlock()
		close(p.exited)

		if stopped {
			p.log.Info("Serving process stopped")
		} else {
			p.log.Warn("Serving process exited", "err", p.waitErr)
		}
	}()
	return nil
}

// Port reads the bound port from the settings file under root
func (p *Process) Port(ctx context.Context, root string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path := p.cfg.SettingsFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return ReadPort(path)
}

// ReadPort parses the settings file at path
func ReadPort(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if s.ServerPort <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoPort, path)
	}
	return s.ServerPort, nil
}

// Stop interrupts the process and kills it if it has not exited within the
// stop timeout or before ctx is done. Stopping an exited process is a no-op.
func (p *Process) Stop(ctx context.Context) error {
	p.mu.Lock()
	cmd, exited := p.cmd, p.exited
	if cmd == nil {
		p.mu.Unlock()
		return ErrNotStarted
	}
	p.stopped = true
	p.mu.Unlock()

	select {
	case <-exited:
		return nil
	default:
	}

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.log.Warn("Failed to interrupt serving process", "err", err)
	}

	timer := time.NewTimer(p.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-exited:
		return nil
	case <-timer.C:
		p.log.Warn("Serving process did not stop in time, killing", "timeout", p.cfg.StopTimeout)
	case <-ctx.Done():
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill serving process: %w", err)
	}
	<-exited
	return nil
}
