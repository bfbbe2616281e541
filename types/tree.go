package types

// SuiteNode represents a suite in the result tree.
//
// Nodes reachable from a Snapshot are never mutated. The ResultTree replaces
// every node on the path to a change with a fresh copy instead.
type SuiteNode struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Status      Status        `json:"status"`
	Specs       []*SpecResult `json:"specs"`
	Children    []*SuiteNode  `json:"children"`
}

// Snapshot is an immutable view of the result tree at one point in time
type Snapshot struct {
	Suites  []*SuiteNode `json:"suites"`
	Depth   int          `json:"depth"`   // Number of suites still open
	Version uint64       `json:"version"` // Incremented on every update
}

// TreeStats contains aggregated spec counts
type TreeStats struct {
	Total    int
	Passed   int
	Failed   int
	Pending  int
	Running  int
	Disabled int
}

// Walk visits every suite depth-first in insertion order. Returning false
// from fn skips the suite's descendants.
func (s *Snapshot) Walk(fn func(node *SuiteNode, path []*SuiteNode) bool) {
	if s == nil {
		return
	}
	var visit func(nodes []*SuiteNode, path []*SuiteNode)
	visit = func(nodes []*SuiteNode, path []*SuiteNode) {
		for _, n := range nodes {
			if !fn(n, path) {
				continue
			}
			visit(n.Children, append(path[:len(path):len(path)], n))
		}
	}
	visit(s.Suites, nil)
}

// Specs returns every spec in the tree, suite by suite.
func (s *Snapshot) Specs() []*SpecResult {
	var specs []*SpecResult
	s.Walk(func(n *SuiteNode, _ []*SuiteNode) bool {
		specs = append(specs, n.Specs...)
		return true
	})
	return specs
}

// Stats counts specs by status across the whole tree
func (s *Snapshot) Stats() TreeStats {
	var stats TreeStats
	for _, spec := range s.Specs() {
		stats.Total++
		switch spec.Status {
		case StatusPassed:
			stats.Passed++
		case StatusFailed:
			stats.Failed++
		case StatusPending:
			stats.Pending++
		case StatusRunning:
			stats.Running++
		case StatusDisabled:
			stats.Disabled++
		}
	}
	return stats
}

// FailedCount returns the number of failed specs at any depth
func (s *Snapshot) FailedCount() int {
	return s.Stats().Failed
}

// HasFailure reports whether any spec at or below n failed
func (n *SuiteNode) HasFailure() bool {
	for _, spec := range n.Specs {
		if spec.Status == StatusFailed {
			return true
		}
	}
	for _, child := range n.Children {
		if child.HasFailure() {
			return true
		}
	}
	return false
}

// Find returns the first suite with the given description path, or nil
func (s *Snapshot) Find(descriptions ...string) *SuiteNode {
	if s == nil || len(descriptions) == 0 {
		return nil
	}
	nodes := s.Suites
	var found *SuiteNode
	for _, d := range descriptions {
		found = nil
		for _, n := range nodes {
			if n.Description == d {
				found = n
				break
			}
		}
		if found == nil {
			return nil
		}
		nodes = found.Children
	}
	return found
}
