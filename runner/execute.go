package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

// DefaultSpecTimeout bounds a single spec body
const DefaultSpecTimeout = 10 * time.Second

// Options controls an execution
type Options struct {
	SpecTimeout time.Duration
	Log         log.Logger
}

type executor struct {
	opts     Options
	reporter Reporter
	focus    bool
}

// Execute runs every spec declared in env, one at a time and in declaration
// order, reporting lifecycle events to reporters. It returns declaration
// errors before running anything, and aborts on the first reporter error.
// Spec failures are reported, not returned.
func Execute(ctx context.Context, env *Env, opts Options, reporters ...Reporter) error {
	if err := env.Err(); err != nil {
		return fmt.Errorf("invalid test declarations: %w", err)
	}
	if opts.SpecTimeout <= 0 {
		opts.SpecTimeout = DefaultSpecTimeout
	}
	if opts.Log == nil {
		opts.Log = log.NewLogger(log.DiscardHandler())
	}

	x := &executor{
		opts:     opts,
		reporter: multiReporter(reporters),
		focus:    env.hasFocus(),
	}

	if err := x.reporter.RunStarted(env.SpecCount()); err != nil {
		return fmt.Errorf("run started: %w", err)
	}
	for _, it := range env.root.items {
		if err := x.runSuite(ctx, it.suite); err != nil {
			return err
		}
	}
	if err := x.reporter.RunDone(); err != nil {
		return fmt.Errorf("run done: %w", err)
	}
	return nil
}

func (x *executor) runSuite(ctx context.Context, s *suiteDecl) error {
	info := types.SuiteInfo{
		ID:          s.id,
		Description: s.description,
		FullName:    fullName(s.parent, s.description),
	}
	if err := x.reporter.SuiteStarted(info); err != nil {
		return fmt.Errorf("suite started %s: %w", info.FullName, err)
	}
	for _, it := range s.items {
		var err error
		if it.spec != nil {
			err = x.runSpec(ctx, it.spec)
		} else {
			err = x.runSuite(ctx, it.suite)
		}
		if err != nil {
			return err
		}
	}
	if err := x.reporter.SuiteDone(info); err != nil {
		return fmt.Errorf("suite done %s: %w", info.FullName, err)
	}
	return nil
}

func (x *executor) runSpec(ctx context.Context, s *specDecl) error {
	result := types.SpecResult{
		ID:          s.id,
		Description: s.description,
		FullName:    fullName(s.parent, s.description),
		Status:      types.StatusRunning,
	}
	if err := x.reporter.SpecStarted(result); err != nil {
		return fmt.Errorf("spec started %s: %w", result.FullName, err)
	}

	if s.mode == specExcluded || (x.focus && s.mode != specFocused) {
		result.Status = types.StatusDisabled
	} else {
		start := time.Now()
		result.FailedExpectations = x.runBody(ctx, s.fn)
		result.Duration = time.Since(start)
		if len(result.FailedExpectations) > 0 {
			result.Status = types.StatusFailed
		} else {
			result.Status = types.StatusPassed
		}
	}
	x.opts.Log.Debug("Spec done", "spec", result.FullName, "status", result.Status, "duration", result.Duration)

	if err := x.reporter.SpecDone(result); err != nil {
		return fmt.Errorf("spec done %s: %w", result.FullName, err)
	}
	return nil
}

// runBody runs fn with a deadline. A body that ignores its context past the
// deadline is abandoned; checks it records afterwards are dropped.
func (x *executor) runBody(ctx context.Context, fn SpecFunc) []types.FailedExpectation {
	ctx, cancel := context.WithTimeout(ctx, x.opts.SpecTimeout)
	defer cancel()

	t := &T{}
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				x.opts.Log.Error("Spec panicked", "panic", r, "stack", string(debug.Stack()))
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- fn(ctx, t)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fail(MatcherThrown, "%v", err)
		}
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			t.Fail(MatcherTimeout, "Timeout - spec did not complete within %v", x.opts.SpecTimeout)
		} else {
			t.Fail(MatcherTimeout, "Spec interrupted: %v", context.Cause(ctx))
		}
	}
	return t.Failures()
}
