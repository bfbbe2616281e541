package devicetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-devicetest/protocol"
	"github.com/ethereum-optimism/infra/op-devicetest/runner"
)

// mockManifests is a ManifestFetcher driven by testify expectations
type mockManifests struct {
	mock.Mock
}

func (m *mockManifests) Fetch(ctx context.Context, url string) (*Manifest, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Manifest), args.Error(1)
}

func newTestApp(t *testing.T, env *runner.Env, shutdown func(error)) (*app, *bytes.Buffer, *mockManifests) {
	srv := &fakeServer{onStart: []string{protocol.ReadyMarker}, port: 19000}
	dev := &fakeDevice{}
	if env != nil {
		dev.onOpen = runInApp(t, srv, env)
	}
	manifests := &mockManifests{}

	cfg := testConfig()
	d, err := NewDriver(cfg, Collaborators{Server: srv, Device: dev, Manifests: manifests})
	require.NoError(t, err)

	var out bytes.Buffer
	return newApp(cfg, "test", d, &out, shutdown), &out, manifests
}

// healthz queries the app's health handler without binding a port
func healthz(t *testing.T, a *app) int {
	ts := httptest.NewServer(a.svc.Healthz.Handler())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestApp_PassingRunRequestsShutdown(t *testing.T) {
	env := runner.NewEnv()
	env.Describe("Smoke", func() {
		env.It("works", func(context.Context, *runner.T) error { return nil })
	})

	shutdownCalled := make(chan error, 1)
	a, out, manifests := newTestApp(t, env, func(err error) { shutdownCalled <- err })
	manifests.On("Fetch", mock.Anything, "http://localhost:19000").Return(&Manifest{Name: "test-suite"}, nil).Once()

	require.NoError(t, a.Start(context.Background()))

	select {
	case err := <-shutdownCalled:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("shutdown callback not invoked")
	}

	assert.Contains(t, out.String(), "works")
	assert.Equal(t, http.StatusOK, healthz(t, a))
	manifests.AssertExpectations(t)

	require.NoError(t, a.Stop(context.Background()))
	assert.True(t, a.Stopped())
}

func TestApp_FailingRunReturnsTestFailure(t *testing.T) {
	env := runner.NewEnv()
	env.Describe("Suite", func() {
		env.It("one", func(_ context.Context, t *runner.T) error { return errors.New("broken") })
		env.It("two", func(_ context.Context, t *runner.T) error {
			t.False(true)
			return nil
		})
	})

	a, _, manifests := newTestApp(t, env, func(error) { t.Error("shutdown must not be requested") })
	manifests.On("Fetch", mock.Anything, mock.Anything).Return(&Manifest{Name: "test-suite"}, nil)

	err := a.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))

	var failure *TestFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 2, failure.Failed)

	assert.True(t, a.Stopped(), "service is shut down without a call to Stop")
	assert.Equal(t, http.StatusServiceUnavailable, healthz(t, a))
}

func TestApp_AbortedRunReturnsRuntimeError(t *testing.T) {
	a, out, manifests := newTestApp(t, nil, func(error) {})
	manifests.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	err := a.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(err))
	assert.NotContains(t, out.String(), "Device Test Results")

	assert.True(t, a.Stopped(), "service is shut down without a call to Stop")
	assert.Equal(t, http.StatusServiceUnavailable, healthz(t, a))
}

func TestApp_StopBeforeStart(t *testing.T) {
	a, _, _ := newTestApp(t, nil, func(error) {})
	assert.False(t, a.Stopped())
	require.NoError(t, a.Stop(context.Background()))
	assert.True(t, a.Stopped())
}

func TestErrorHelpers(t *testing.T) {
	base := errors.New("boom")

	runtimeErr := fmt.Errorf("wrapped: %w", NewRuntimeError(base))
	assert.True(t, IsRuntimeError(runtimeErr))
	assert.ErrorIs(t, runtimeErr, base)
	assert.False(t, IsRuntimeError(base))
	assert.False(t, IsRuntimeError(nil))

	failureErr := fmt.Errorf("wrapped: %w", NewTestFailureError(3, "specs failed"))
	assert.True(t, IsTestFailureError(failureErr))
	assert.False(t, IsTestFailureError(runtimeErr))
	assert.Contains(t, failureErr.Error(), "3 failed")

	timeout := &MarkerTimeoutError{Marker: protocol.CompletionMarker, Timeout: time.Second}
	assert.Equal(t, `marker "[TEST-SUITE-END]" not seen within 1s`, timeout.Error())
}

func TestValidateManifest(t *testing.T) {
	require.NoError(t, ValidateManifest(&Manifest{Name: "test-suite"}, "test-suite"))

	err := ValidateManifest(&Manifest{Name: "wrong"}, "test-suite")
	require.Error(t, err)
	assert.Equal(t, `bad name in manifest: expected "test-suite", got "wrong"`, err.Error())

	require.Error(t, ValidateManifest(&Manifest{Name: "Test-Suite"}, "test-suite"))
	require.Error(t, ValidateManifest(nil, "test-suite"))
}

func TestHTTPManifestFetcher(t *testing.T) {
	t.Run("decodes manifest", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "ios", r.Header.Get("Exponent-Platform"))
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			_, _ = w.Write([]byte(`{"name":"test-suite","slug":"test-suite","sdkVersion":"39.0.0","extra":true}`))
		}))
		defer ts.Close()

		m, err := (&HTTPManifestFetcher{Platform: "ios"}).Fetch(context.Background(), ts.URL)
		require.NoError(t, err)
		assert.Equal(t, &Manifest{Name: "test-suite", Slug: "test-suite", SDK: "39.0.0"}, m)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusNotFound)
		}))
		defer ts.Close()

		_, err := (&HTTPManifestFetcher{}).Fetch(context.Background(), ts.URL)
		require.ErrorContains(t, err, "404")
	})

	t.Run("malformed body is an error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer ts.Close()

		_, err := (&HTTPManifestFetcher{}).Fetch(context.Background(), ts.URL)
		require.ErrorContains(t, err, "failed to parse manifest")
	})
}
