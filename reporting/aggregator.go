package reporting

import (
	"fmt"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-devicetest/protocol"
	"github.com/ethereum-optimism/infra/op-devicetest/runner"
	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

var _ runner.Reporter = (*Aggregator)(nil)

// Aggregator binds runner lifecycle events to a ResultTree and a Console. When
// the run is done it writes the completion marker line to its output and hands
// the payload to the optional CompletionSink.
type Aggregator struct {
	log     log.Logger
	out     io.Writer
	tree    *types.ResultTree
	console *Console
	sink    CompletionSink

	mu      sync.Mutex
	summary *protocol.RunSummary
}

// NewAggregator creates an Aggregator writing console lines and the marker
// line to out. sink may be nil.
func NewAggregator(out io.Writer, sink CompletionSink, logger log.Logger) *Aggregator {
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	return &Aggregator{
		log:     logger,
		out:     out,
		tree:    types.NewResultTree(),
		console: NewConsole(out),
		sink:    sink,
	}
}

// Tree returns the live result tree
func (a *Aggregator) Tree() *types.ResultTree {
	return a.tree
}

// Summary returns the summary of the last finished run, or nil
func (a *Aggregator) Summary() *protocol.RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary
}

func (a *Aggregator) RunStarted(totalSpecs int) error {
	a.mu.Lock()
	a.summary = nil
	a.mu.Unlock()

	a.tree.Reset()
	a.console.Reset()
	a.console.Started()
	a.log.Info("Tests started", "specs", totalSpecs)
	return nil
}

func (a *Aggregator) SuiteStarted(info types.SuiteInfo) error {
	return a.tree.SuiteStarted(info)
}

func (a *Aggregator) SpecStarted(spec types.SpecResult) error {
	return a.tree.SpecStarted(spec)
}

func (a *Aggregator) SpecDone(spec types.SpecResult) error {
	if err := a.tree.SpecDone(spec); err != nil {
		return err
	}
	a.console.SpecDone(spec)
	return nil
}

func (a *Aggregator) SuiteDone(info types.SuiteInfo) error {
	return a.tree.SuiteDone(info)
}

func (a *Aggregator) RunDone() error {
	snap := a.tree.Snapshot()
	if snap.Depth != 0 {
		return fmt.Errorf("run finished with %d suites still open", snap.Depth)
	}

	a.console.Done()
	summary := protocol.NewRunSummary(snap.FailedCount(), a.console.Results())
	line, err := summary.MarkerLine()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(a.out, line); err != nil {
		return fmt.Errorf("failed to write completion marker: %w", err)
	}

	a.mu.Lock()
	a.summary = &summary
	a.mu.Unlock()

	stats := snap.Stats()
	a.log.Info("Tests done", "total", stats.Total, "passed", stats.Passed, "failed", stats.Failed, "disabled", stats.Disabled)

	if a.sink == nil {
		return nil
	}
	payload, err := summary.Payload()
	if err != nil {
		return fmt.Errorf("failed to encode completion payload: %w", err)
	}
	if err := a.sink.Completed(payload); err != nil {
		return fmt.Errorf("completion sink: %w", err)
	}
	return nil
}
