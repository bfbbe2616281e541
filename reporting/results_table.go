package reporting

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-devicetest/protocol"
	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

// ResultLine is one spec parsed back out of a results text
type ResultLine struct {
	FullName string
	Status   types.Status
	Details  []string
}

// ParseResults splits the results text produced by Console into specs. Lines
// that do not start a spec are attached to the preceding spec as details.
func ParseResults(results string) []ResultLine {
	var lines []ResultLine
	for _, raw := range strings.Split(results, "\n") {
		raw = strings.TrimRight(raw, "\r")
		switch {
		case strings.HasPrefix(raw, GroupPassed+" "):
			lines = append(lines, ResultLine{FullName: strings.TrimPrefix(raw, GroupPassed+" "), Status: types.StatusPassed})
		case strings.HasPrefix(raw, GroupFailed+" "):
			lines = append(lines, ResultLine{FullName: strings.TrimPrefix(raw, GroupFailed+" "), Status: types.StatusFailed})
		case raw == "":
		case len(lines) > 0:
			last := &lines[len(lines)-1]
			last.Details = append(last.Details, raw)
		}
	}
	return lines
}

// ResultsTable renders a run summary received by the driver as a table
func ResultsTable(title string, summary protocol.RunSummary) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"STATUS", "SPEC", "DETAILS"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "SPEC", WidthMax: 100, WidthMaxEnforcer: text.WrapSoft},
		{Name: "DETAILS", WidthMax: 100, WidthMaxEnforcer: text.WrapSoft},
	})

	parsed := ParseResults(summary.Results)
	for _, l := range parsed {
		t.AppendRow(table.Row{strings.ToUpper(string(l.Status)), l.FullName, strings.Join(l.Details, "\n")})
	}

	if summary.Passed() {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}
	status := "PASS"
	if !summary.Passed() {
		status = "FAIL"
	}
	t.AppendFooter(table.Row{status, fmt.Sprintf("%d specs", len(parsed)), fmt.Sprintf("%d failed", summary.Failed)})

	t.Render()
	return buf.String()
}
