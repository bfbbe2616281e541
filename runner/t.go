package runner

import (
	"fmt"
	"sync"

	"github.com/google/go-cmp/cmp"

	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

// Matcher names recorded on failed expectations
const (
	MatcherToBe    = "toBe"
	MatcherToEqual = "toEqual"
	MatcherNoError = "toNotThrow"
	MatcherThrown  = "thrown"
	MatcherTimeout = "timeout"
)

// T records the checks made by a spec body. It is safe for use by the
// goroutines a body starts.
type T struct {
	mu       sync.Mutex
	failures []types.FailedExpectation
}

// Fail records a failed check
func (t *T) Fail(matcher string, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = append(t.failures, types.FailedExpectation{
		MatcherName: matcher,
		Message:     fmt.Sprintf(format, args...),
	})
}

// True checks that cond holds
func (t *T) True(cond bool, msgAndArgs ...any) bool {
	if !cond {
		t.Fail(MatcherToBe, "Expected false to be true.%s", suffix(msgAndArgs))
	}
	return cond
}

// False checks that cond does not hold
func (t *T) False(cond bool, msgAndArgs ...any) bool {
	if cond {
		t.Fail(MatcherToBe, "Expected true to be false.%s", suffix(msgAndArgs))
	}
	return !cond
}

// Equal checks that got equals want, recording a diff otherwise. Values
// with unexported fields must be compared through their exported state.
func (t *T) Equal(want, got any, msgAndArgs ...any) bool {
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fail(MatcherToEqual, "Expected values to be equal (-want +got):\n%s%s", diff, suffix(msgAndArgs))
		return false
	}
	return true
}

// NoError checks that err is nil
func (t *T) NoError(err error, msgAndArgs ...any) bool {
	if err != nil {
		t.Fail(MatcherNoError, "Unexpected error: %v%s", err, suffix(msgAndArgs))
		return false
	}
	return true
}

// Failed reports whether any check failed
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failures) > 0
}

// Failures returns a copy of the failed checks
func (t *T) Failures() []types.FailedExpectation {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.failures) == 0 {
		return nil
	}
	out := make([]types.FailedExpectation, len(t.failures))
	copy(out, t.failures)
	return out
}

func suffix(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return " " + fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return " " + fmt.Sprint(msgAndArgs...)
}
