package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("marker \"[TEST-SUITE-END]\" not seen"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
			assert.Regexp(t, validLabelRegex, result)
		})
	}
}

func TestRecordError(t *testing.T) {
	before := testutil.ToFloat64(errorsTotal.WithLabelValues("test_error"))
	RecordError("test_error")
	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("test_error")))

	RecordErrorDetails("test", nil)
	RecordErrorDetails("test", errors.New("sample error"))
	assert.Equal(t, float64(1), testutil.ToFloat64(errorsTotal.WithLabelValues("test.sample_error")))
}

func TestRecordRun(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues("fail"))
	RecordRun("run1", "fail", 3, 2*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(runsTotal.WithLabelValues("fail")))
	assert.Equal(t, float64(3), testutil.ToFloat64(runFailedSpecs.WithLabelValues("run1")))
	assert.Equal(t, float64(2), testutil.ToFloat64(runDuration.WithLabelValues("run1")))
}

func TestRecordSpec(t *testing.T) {
	before := testutil.ToFloat64(specsTotal.WithLabelValues("passed"))
	RecordSpec(types.StatusPassed)
	RecordSpec(types.StatusRunning)
	assert.Equal(t, before+1, testutil.ToFloat64(specsTotal.WithLabelValues("passed")))
	assert.Zero(t, testutil.ToFloat64(specsTotal.WithLabelValues("running")))
}

func TestRecordStepAndMarker(t *testing.T) {
	RecordStep("login", nil, time.Millisecond)
	RecordStep("login", errors.New("denied"), time.Millisecond)
	RecordMarkerWait("ready", nil, time.Second)
	assert.Equal(t, 2, testutil.CollectAndCount(stepDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(markerWait))
}
