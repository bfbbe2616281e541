package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

// Line group prefixes. Log viewers fold "---" groups and expand "+++" groups,
// so failures are open by default.
const (
	GroupPassed = "---"
	GroupFailed = "+++"

	emojiPassed = ":green_heart:"
	emojiFailed = ":broken_heart:"
)

// Console writes one line per finished spec and accumulates the plain-text
// results that are shipped back to the driver.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	results strings.Builder
}

// NewConsole creates a Console writing to out
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Started announces the beginning of a run
func (c *Console) Started() {
	c.println("--- tests started")
}

// SpecDone writes the lines for a finished spec. Only passed and failed specs
// produce output.
func (c *Console) SpecDone(spec types.SpecResult) {
	var group, emoji string
	switch spec.Status {
	case types.StatusPassed:
		group, emoji = GroupPassed, emojiPassed
	case types.StatusFailed:
		group, emoji = GroupFailed, emojiFailed
	default:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "%s %s %s\n", group, emoji, spec.FullName)
	fmt.Fprintf(&c.results, "%s %s\n", group, spec.FullName)
	if spec.Status != types.StatusFailed {
		return
	}
	for _, e := range spec.FailedExpectations {
		line := fmt.Sprintf("%s: %s\n", e.MatcherName, e.Message)
		io.WriteString(c.out, line)
		c.results.WriteString(line)
	}
}

// Done announces the end of the run and that results are about to be sent
func (c *Console) Done() {
	c.println("--- tests done")
	c.println("--- send results to runner")
}

// Results returns the accumulated results text
func (c *Console) Results() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results.String()
}

// Reset clears the accumulated results
func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results.Reset()
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}
