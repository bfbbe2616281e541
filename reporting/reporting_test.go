package reporting

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-devicetest/protocol"
	"github.com/ethereum-optimism/infra/op-devicetest/runner"
	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

func failedSpec(id, name string, msgs ...string) types.SpecResult {
	spec := types.SpecResult{ID: id, FullName: name, Status: types.StatusFailed}
	for _, m := range msgs {
		spec.FailedExpectations = append(spec.FailedExpectations, types.FailedExpectation{MatcherName: "toBe", Message: m})
	}
	return spec
}

func TestConsole_SpecLines(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out)

	c.Started()
	c.SpecDone(types.SpecResult{FullName: "Contacts.reads all", Status: types.StatusPassed})
	c.SpecDone(failedSpec("spec1", "Contacts.writes", "Expected 1 to be 2.", "Expected a to be b."))
	c.SpecDone(types.SpecResult{FullName: "Contacts.skipped", Status: types.StatusDisabled})
	c.Done()

	assert.Equal(t, strings.Join([]string{
		"--- tests started",
		"--- :green_heart: Contacts.reads all",
		"+++ :broken_heart: Contacts.writes",
		"toBe: Expected 1 to be 2.",
		"toBe: Expected a to be b.",
		"--- tests done",
		"--- send results to runner",
		"",
	}, "\n"), out.String())

	assert.Equal(t, "--- Contacts.reads all\n+++ Contacts.writes\ntoBe: Expected 1 to be 2.\ntoBe: Expected a to be b.\n", c.Results())

	c.Reset()
	assert.Empty(t, c.Results())
}

type memorySink struct {
	payloads [][]byte
	err      error
}

func (s *memorySink) Completed(payload []byte) error {
	s.payloads = append(s.payloads, payload)
	return s.err
}

func sampleEnv() *runner.Env {
	env := runner.NewEnv()
	env.Describe("A", func() {
		env.It("s1", func(context.Context, *runner.T) error { return nil })
		env.Describe("B", func() {
			env.It("s2", func(_ context.Context, t *runner.T) error {
				t.True(false)
				return nil
			})
		})
	})
	return env
}

func TestAggregator_WritesMarkerLineAfterRun(t *testing.T) {
	var out bytes.Buffer
	sink := &memorySink{}
	agg := NewAggregator(&out, sink, log.NewLogger(log.DiscardHandler()))

	require.NoError(t, runner.Execute(context.Background(), sampleEnv(), runner.Options{}, agg))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "--- tests started", lines[0])
	assert.Equal(t, "--- send results to runner", lines[len(lines)-2])

	markerLine := lines[len(lines)-1]
	require.True(t, protocol.IsCompletion(markerLine))
	summary, err := protocol.ParseCompletion(markerLine)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "--- A.s1\n+++ A.B.s2\ntoBe: Expected false to be true.\n", summary.Results)
	assert.Equal(t, summary, agg.Summary())

	require.Len(t, sink.payloads, 1)
	fromSink, err := protocol.ParseCompletion(protocol.CompletionMarker + string(sink.payloads[0]))
	require.NoError(t, err)
	assert.Equal(t, summary, fromSink)

	snap := agg.Tree().Snapshot()
	assert.Zero(t, snap.Depth)
	assert.Equal(t, types.StatusFailed, snap.Find("A").Status)
}

func TestAggregator_RerunRebuildsTree(t *testing.T) {
	var out bytes.Buffer
	agg := NewAggregator(&out, nil, nil)

	require.NoError(t, runner.Execute(context.Background(), sampleEnv(), runner.Options{}, agg))
	require.NoError(t, runner.Execute(context.Background(), sampleEnv(), runner.Options{}, agg))

	snap := agg.Tree().Snapshot()
	require.Len(t, snap.Suites, 1)
	assert.Equal(t, 1, snap.FailedCount())
	assert.Equal(t, 1, agg.Summary().Failed)
	assert.Equal(t, "--- A.s1\n+++ A.B.s2\ntoBe: Expected false to be true.\n", agg.Summary().Results)
}

func TestAggregator_RejectsUnbalancedRun(t *testing.T) {
	agg := NewAggregator(&bytes.Buffer{}, nil, nil)
	require.NoError(t, agg.RunStarted(1))
	require.NoError(t, agg.SuiteStarted(types.SuiteInfo{ID: "suite1", Description: "A"}))
	require.Error(t, agg.RunDone())
	assert.Nil(t, agg.Summary())
}

func TestAggregator_SinkErrorIsReturned(t *testing.T) {
	agg := NewAggregator(&bytes.Buffer{}, &memorySink{err: errors.New("bridge gone")}, nil)
	err := runner.Execute(context.Background(), sampleEnv(), runner.Options{}, agg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bridge gone")
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "completion.json")
	require.NoError(t, FileSink{Path: path}.Completed([]byte(`{"failed":0}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"failed":0}`, string(data))
}

func buildTree(t *testing.T) *types.Snapshot {
	tree := types.NewResultTree()
	require.NoError(t, tree.SuiteStarted(types.SuiteInfo{ID: "suite1", Description: "A"}))
	require.NoError(t, tree.SpecStarted(types.SpecResult{ID: "spec0", Description: "s1"}))
	require.NoError(t, tree.SpecDone(types.SpecResult{ID: "spec0", Description: "s1", Status: types.StatusPassed}))
	require.NoError(t, tree.SuiteStarted(types.SuiteInfo{ID: "suite2", Description: "B"}))
	require.NoError(t, tree.SpecStarted(types.SpecResult{ID: "spec1", Description: "s2"}))
	failed := failedSpec("spec1", "A.B.s2", "Expected false to be true.")
	failed.Description = "s2"
	require.NoError(t, tree.SpecDone(failed))
	require.NoError(t, tree.SuiteDone(types.SuiteInfo{ID: "suite2"}))
	require.NoError(t, tree.SuiteDone(types.SuiteInfo{ID: "suite1"}))
	return tree.Snapshot()
}

func TestTreeTextFormatter(t *testing.T) {
	snap := buildTree(t)

	plain := NewTreeTextFormatter(false, false).Format(snap)
	assert.Equal(t, "✗ A\n├── ✓ s1 (0ms)\n└── ✗ B\n    └── ✗ s2 (0ms)\n", plain)

	detailed := NewTreeTextFormatter(true, true).Format(snap)
	assert.Contains(t, detailed, "├── ✓ 😄 s1 (0ms)\n")
	assert.Contains(t, detailed, "    └── ✗ 😞 s2 (0ms)\n          toBe: Expected false to be true.\n")

	assert.Empty(t, NewTreeTextFormatter(true, true).Format(&types.Snapshot{}))
}

func TestTreeTextFormatter_LiveSpec(t *testing.T) {
	tree := types.NewResultTree()
	require.NoError(t, tree.SuiteStarted(types.SuiteInfo{ID: "suite1", Description: "A"}))
	require.NoError(t, tree.SpecStarted(types.SpecResult{ID: "spec0", Description: "loading"}))

	out := NewTreeTextFormatter(false, true).Format(tree.Snapshot())
	assert.Equal(t, "… A\n└── … 😮 loading\n", out)
}

func TestTreeTableFormatter(t *testing.T) {
	out := NewTreeTableFormatter("Device tests").Format(buildTree(t))
	assert.Contains(t, out, "Device tests")
	assert.Contains(t, out, "└── s2")
	assert.Contains(t, strings.ToUpper(out), "2 SPECS, 1 PASSED, 1 FAILED, 0 DISABLED")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "PASSED")
}

func TestParseResults(t *testing.T) {
	lines := ParseResults("--- A.s1\n+++ A.B.s2\ntoBe: Expected false to be true.\ntoEqual: diff\n")
	assert.Equal(t, []ResultLine{
		{FullName: "A.s1", Status: types.StatusPassed},
		{FullName: "A.B.s2", Status: types.StatusFailed, Details: []string{"toBe: Expected false to be true.", "toEqual: diff"}},
	}, lines)

	assert.Empty(t, ParseResults(""))
	assert.Empty(t, ParseResults("orphan detail\n"))
}

func TestResultsTable(t *testing.T) {
	out := ResultsTable("Results", protocol.NewRunSummary(1, "--- A.s1\n+++ A.B.s2\ntoBe: nope\n"))
	assert.Contains(t, out, "A.B.s2")
	assert.Contains(t, out, "toBe: nope")
	assert.Contains(t, strings.ToUpper(out), "1 FAILED")
	assert.Contains(t, strings.ToUpper(out), "2 SPECS")
}
