// Package device controls the execution environment the test artifact runs
// in. Every operation is a single external command; there are no retries
// apart from the install confirmation poll.
package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"code.cloudfoundry.org/clock"
	"github.com/ethereum/go-ethereum/log"
)

// ErrInstallTimeout is returned when the install is not confirmed in time
var ErrInstallTimeout = errors.New("timed out waiting for install to complete")

// CommandRunner runs one external command and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Simulator drives a simulator or device through configured commands
type Simulator struct {
	cfg    Config
	runner CommandRunner
	clock  clock.Clock
	log    log.Logger
}

// NewSimulator creates a Simulator. A nil runner uses ExecRunner, a nil clock
// the wall clock.
func NewSimulator(cfg Config, runner CommandRunner, clk clock.Clock, logger log.Logger) *Simulator {
	if runner == nil {
		runner = ExecRunner{}
	}
	if clk == nil {
		clk = clock.NewClock()
	}
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	return &Simulator{cfg: cfg, runner: runner, clock: clk, log: logger}
}

// Open brings up the execution environment
func (s *Simulator) Open(ctx context.Context) error {
	return s.run(ctx, "open", s.cfg.Commands.Open, nil)
}

// Uninstall removes any prior instance of the app
func (s *Simulator) Uninstall(ctx context.Context) error {
	return s.run(ctx, "uninstall", s.cfg.Commands.Uninstall, nil)
}

// Install installs the artifact. The reference is passed to the install
// command as is.
func (s *Simulator) Install(ctx context.Context, artifact string) error {
	return s.run(ctx, "install", s.cfg.Commands.Install, map[string]string{PlaceholderArtifact: artifact})
}

// WaitInstalled polls the installed-check command until it succeeds, the
// install timeout elapses or ctx is done.
func (s *Simulator) WaitInstalled(ctx context.Context) error {
	deadline := s.clock.NewTimer(s.cfg.InstallTimeout)
	defer deadline.Stop()

	for attempt := 1; ; attempt++ {
		err := s.run(ctx, "installed", s.cfg.Commands.Installed, nil)
		if err == nil {
			s.log.Info("Install confirmed", "attempts", attempt)
			return nil
		}
		s.log.Debug("Install not confirmed yet", "attempt", attempt, "err", err)

		poll := s.clock.NewTimer(s.cfg.PollInterval)
		select {
		case <-ctx.Done():
			poll.Stop()
			return ctx.Err()
		case <-deadline.C():
			poll.Stop()
			return fmt.Errorf("%w after %v: %w", ErrInstallTimeout, s.cfg.InstallTimeout, err)
		case <-poll.C():
		}
	}
}

// OpenURL launches the app at url
func (s *Simulator) OpenURL(ctx context.Context, url string) error {
	return s.run(ctx, "open url", s.cfg.Commands.OpenURL, map[string]string{PlaceholderURL: url})
}

func (s *Simulator) run(ctx context.Context, op string, argv []string, vars map[string]string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%s: no command configured", op)
	}
	all := map[string]string{PlaceholderBundleID: s.cfg.BundleID}
	for k, v := range vars {
		all[k] = v
	}
	argv = expand(argv, all)

	s.log.Debug("Running device command", "op", op, "cmd", strings.Join(argv, " "))
	out, err := s.runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return fmt.Errorf("%s (%s): %w: %s", op, argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
