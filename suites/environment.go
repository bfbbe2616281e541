package suites

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ethereum-optimism/infra/op-devicetest/runner"
)

func registerEnvironment(e *runner.Env) {
	e.Describe("Environment", func() {
		e.It("reports a platform", func(_ context.Context, t *runner.T) error {
			t.True(runtime.GOOS != "", "GOOS should be set")
			t.True(runtime.NumCPU() > 0, "at least one CPU")
			return nil
		})

		e.It("has a writable temp directory", func(_ context.Context, t *runner.T) error {
			dir, err := os.MkdirTemp("", "devicetest-*")
			if !t.NoError(err) {
				return nil
			}
			defer os.RemoveAll(dir)

			path := filepath.Join(dir, "probe")
			t.NoError(os.WriteFile(path, []byte("probe"), 0o644))
			data, err := os.ReadFile(path)
			t.NoError(err)
			t.Equal("probe", string(data))
			return nil
		})

		e.It("has a monotonic clock", func(_ context.Context, t *runner.T) error {
			start := time.Now()
			time.Sleep(time.Millisecond)
			t.True(time.Since(start) > 0, "elapsed time should be positive")
			return nil
		})
	})
}
