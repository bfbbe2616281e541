package runner

import (
	"errors"

	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

// Reporter receives lifecycle callbacks in the order the runner executes
// suites and specs. Suite and spec events are always well nested. A non-nil
// error aborts the run.
type Reporter interface {
	RunStarted(totalSpecs int) error
	SuiteStarted(info types.SuiteInfo) error
	SpecStarted(spec types.SpecResult) error
	SpecDone(spec types.SpecResult) error
	SuiteDone(info types.SuiteInfo) error
	RunDone() error
}

// multiReporter fans callbacks out to several reporters in registration order
type multiReporter []Reporter

func (m multiReporter) each(fn func(Reporter) error) error {
	var errs []error
	for _, r := range m {
		if err := fn(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiReporter) RunStarted(total int) error {
	return m.each(func(r Reporter) error { return r.RunStarted(total) })
}

func (m multiReporter) SuiteStarted(info types.SuiteInfo) error {
	return m.each(func(r Reporter) error { return r.SuiteStarted(info) })
}

func (m multiReporter) SpecStarted(spec types.SpecResult) error {
	return m.each(func(r Reporter) error { return r.SpecStarted(spec) })
}

func (m multiReporter) SpecDone(spec types.SpecResult) error {
	return m.each(func(r Reporter) error { return r.SpecDone(spec) })
}

func (m multiReporter) SuiteDone(info types.SuiteInfo) error {
	return m.each(func(r Reporter) error { return r.SuiteDone(info) })
}

func (m multiReporter) RunDone() error {
	return m.each(func(r Reporter) error { return r.RunDone() })
}
