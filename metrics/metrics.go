package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

const (
	MetricsNamespace = "devicetest"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of device test runs by result",
	}, []string{
		"result",
	})

	runFailedSpecs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_failed_specs",
		Help:      "Number of failed specs reported by a run",
	}, []string{
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of a device test run",
	}, []string{
		"run_id",
	})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "step_duration_seconds",
		Help:      "Duration of each driver step",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{
		"step",
		"result",
	})

	markerWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "marker_wait_seconds",
		Help:      "Time spent waiting for a log marker",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
	}, []string{
		"marker",
		"result",
	})

	specsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "specs_total",
		Help:      "Count of finished specs by status",
	}, []string{
		"status",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordStep observes one driver step
func RecordStep(step string, err error, d time.Duration) {
	stepDuration.WithLabelValues(step, resultLabel(err)).Observe(d.Seconds())
}

// RecordMarkerWait observes a wait on a log marker
func RecordMarkerWait(marker string, err error, d time.Duration) {
	markerWait.WithLabelValues(marker, resultLabel(err)).Observe(d.Seconds())
}

// RecordRun records the outcome of a whole run. result is "pass", "fail" or
// "error".
func RecordRun(runID string, result string, failed int, d time.Duration) {
	if Debug {
		log.Debug("metric inc",
			"m", "runs_total",
			"run_id", runID,
			"result", result,
			"failed", failed)
	}
	runsTotal.WithLabelValues(result).Inc()
	runFailedSpecs.WithLabelValues(runID).Set(float64(failed))
	runDuration.WithLabelValues(runID).Set(d.Seconds())
}

// RecordSpec counts a finished spec
func RecordSpec(status types.Status) {
	if !status.IsFinal() {
		log.Error("RecordSpec - status is not final", "status", status)
		return
	}
	specsTotal.WithLabelValues(string(status)).Inc()
}
