package suites

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-devicetest/runner"
)

// registerBasic checks that the framework itself behaves: values compare,
// errors propagate and async bodies are awaited.
func registerBasic(e *runner.Env) {
	e.Describe("Basic", func() {
		e.It("compares values", func(_ context.Context, t *runner.T) error {
			t.True(1+1 == 2)
			t.Equal([]string{"a", "b"}, []string{"a", "b"})
			t.Equal(map[string]int{"x": 1}, map[string]int{"x": 1})
			return nil
		})

		e.It("unwraps wrapped errors", func(_ context.Context, t *runner.T) error {
			base := errors.New("base")
			wrapped := fmt.Errorf("outer: %w", base)
			t.True(errors.Is(wrapped, base), "wrapped error should match its cause")
			t.Equal("outer: base", wrapped.Error())
			return nil
		})

		e.Describe("async", func() {
			e.It("waits for goroutines", func(ctx context.Context, t *runner.T) error {
				var wg sync.WaitGroup
				results := make([]int, 4)
				for i := range results {
					wg.Add(1)
					go func() {
						defer wg.Done()
						results[i] = i * i
					}()
				}
				wg.Wait()
				t.Equal([]int{0, 1, 4, 9}, results)
				return nil
			})

			e.It("resolves timers before the spec deadline", func(ctx context.Context, t *runner.T) error {
				select {
				case <-time.After(10 * time.Millisecond):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		})
	})
}
