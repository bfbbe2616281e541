package reporting

import (
	"github.com/ethereum-optimism/infra/op-devicetest/metrics"
	"github.com/ethereum-optimism/infra/op-devicetest/runner"
	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

var _ runner.Reporter = MetricsReporter{}

// MetricsReporter counts finished specs by status
type MetricsReporter struct{}

func (MetricsReporter) RunStarted(int) error               { return nil }
func (MetricsReporter) SuiteStarted(types.SuiteInfo) error { return nil }
func (MetricsReporter) SpecStarted(types.SpecResult) error { return nil }
func (MetricsReporter) SuiteDone(types.SuiteInfo) error    { return nil }
func (MetricsReporter) RunDone() error                     { return nil }

func (MetricsReporter) SpecDone(spec types.SpecResult) error {
	metrics.RecordSpec(spec.Status)
	return nil
}
