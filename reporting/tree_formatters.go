package reporting

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-devicetest/types"
	"github.com/ethereum-optimism/infra/op-devicetest/ui"
)

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// treeItem is either a spec or a nested suite inside a suite
type treeItem struct {
	suite *types.SuiteNode
	spec  *types.SpecResult
}

func suiteItems(n *types.SuiteNode) []treeItem {
	items := make([]treeItem, 0, len(n.Specs)+len(n.Children))
	for _, s := range n.Specs {
		items = append(items, treeItem{spec: s})
	}
	for _, c := range n.Children {
		items = append(items, treeItem{suite: c})
	}
	return items
}

// walkTree visits every suite and spec of snap with its tree prefix. Specs of
// a suite come before its nested suites.
func walkTree(snap *types.Snapshot, fn func(item treeItem, depth int, prefix string)) {
	var visit func(items []treeItem, depth int, ancestorsLast []bool)
	visit = func(items []treeItem, depth int, ancestorsLast []bool) {
		for i, it := range items {
			isLast := i == len(items)-1
			fn(it, depth, ui.BuildTreePrefix(depth, isLast, ancestorsLast))
			if it.suite == nil {
				continue
			}
			var next []bool
			if depth > 0 {
				next = append(ancestorsLast[:len(ancestorsLast):len(ancestorsLast)], isLast)
			}
			visit(suiteItems(it.suite), depth+1, next)
		}
	}
	if snap == nil {
		return
	}
	top := make([]treeItem, 0, len(snap.Suites))
	for _, s := range snap.Suites {
		top = append(top, treeItem{suite: s})
	}
	// Top-level suites are not connected to each other.
	for _, it := range top {
		fn(it, 0, "")
		visit(suiteItems(it.suite), 1, nil)
	}
}

// TreeTextFormatter renders a snapshot as an indented plain-text tree
type TreeTextFormatter struct {
	includeDetails bool
	includeEmoji   bool
}

// NewTreeTextFormatter creates a tree text formatter. includeDetails adds the
// failed expectations below each failed spec, includeEmoji prefixes specs with
// the live status face.
func NewTreeTextFormatter(includeDetails, includeEmoji bool) *TreeTextFormatter {
	return &TreeTextFormatter{
		includeDetails: includeDetails,
		includeEmoji:   includeEmoji,
	}
}

// Format renders snap. The output depends only on the snapshot.
func (f *TreeTextFormatter) Format(snap *types.Snapshot) string {
	var buf bytes.Buffer
	walkTree(snap, func(it treeItem, _ int, prefix string) {
		if it.suite != nil {
			fmt.Fprintf(&buf, "%s%s %s\n", prefix, ui.StatusGlyph(it.suite.Status), it.suite.Description)
			return
		}
		spec := it.spec
		line := prefix + ui.StatusGlyph(spec.Status) + " "
		if f.includeEmoji {
			if e := ui.StatusEmoji(spec.Status); e != "" {
				line += e + " "
			}
		}
		line += spec.Description
		if spec.Status.IsFinal() && spec.Status != types.StatusDisabled {
			line += fmt.Sprintf(" (%s)", formatDuration(spec.Duration))
		}
		buf.WriteString(line + "\n")

		if f.includeDetails {
			indent := strings.Repeat(" ", len([]rune(prefix))+2)
			for _, e := range spec.FailedExpectations {
				fmt.Fprintf(&buf, "%s%s: %s\n", indent, e.MatcherName, e.Message)
			}
		}
	})
	return buf.String()
}

// TreeTableFormatter renders a snapshot as a go-pretty table
type TreeTableFormatter struct {
	title string
}

// NewTreeTableFormatter creates a table formatter with the given title
func NewTreeTableFormatter(title string) *TreeTableFormatter {
	return &TreeTableFormatter{title: title}
}

// Format renders snap as a table with one row per suite and spec
func (f *TreeTableFormatter) Format(snap *types.Snapshot) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(f.title)
	t.AppendHeader(table.Row{"TYPE", "NAME", "DURATION", "STATUS"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "TYPE", AutoMerge: true},
		{Name: "NAME", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
		{Name: "DURATION", Align: text.AlignRight},
	})

	walkTree(snap, func(it treeItem, _ int, prefix string) {
		if it.suite != nil {
			t.AppendRow(table.Row{"Suite", prefix + it.suite.Description, "", strings.ToUpper(string(it.suite.Status))})
			return
		}
		status := ui.StatusColor(it.spec.Status).Sprint(strings.ToUpper(string(it.spec.Status)))
		t.AppendRow(table.Row{"Spec", prefix + it.spec.Description, formatDuration(it.spec.Duration), status})
	})

	stats := snap.Stats()
	switch {
	case stats.Failed > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case stats.Passed > 0:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleDefault)
	}
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d specs, %d passed, %d failed, %d disabled", stats.Total, stats.Passed, stats.Failed, stats.Disabled),
		"",
		overallStatus(stats),
	})

	t.Render()
	return buf.String()
}

func overallStatus(stats types.TreeStats) string {
	switch {
	case stats.Failed > 0:
		return "FAIL"
	case stats.Running > 0 || stats.Pending > 0:
		return "RUNNING"
	default:
		return "PASS"
	}
}
