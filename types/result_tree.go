package types

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

var (
	ErrNoOpenSuite   = errors.New("no open suite")
	ErrSuiteMismatch = errors.New("suite done does not match the innermost open suite")
	ErrNoRunningSpec = errors.New("no running spec in the innermost open suite")
	ErrSpecMismatch  = errors.New("spec done does not match the running spec")
	ErrNotFinal      = errors.New("spec done without a final status")
)

// ResultTree builds a suite/spec tree from an ordered stream of lifecycle
// events. The path of open suites is kept as a stack of child indices; every
// update copies the nodes along that path and publishes a new Snapshot, so
// readers holding an older snapshot never observe a partial write.
type ResultTree struct {
	mu      sync.Mutex
	path    []int
	current atomic.Pointer[Snapshot]

	subs    map[int]func(*Snapshot)
	nextSub int
}

// NewResultTree creates an empty tree
func NewResultTree() *ResultTree {
	t := &ResultTree{
		subs: make(map[int]func(*Snapshot)),
	}
	t.current.Store(&Snapshot{})
	return t
}

// Snapshot returns the latest published state. It never blocks on writers.
func (t *ResultTree) Snapshot() *Snapshot {
	return t.current.Load()
}

// Depth returns the number of suites currently open
func (t *ResultTree) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.path)
}

// Subscribe registers fn to be called with every new snapshot, in update
// order, on the writer's goroutine. fn must not call back into the tree other
// than through Snapshot. The returned function unregisters fn.
func (t *ResultTree) Subscribe(fn func(*Snapshot)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// Reset discards the tree and starts from empty
func (t *ResultTree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.path = nil
	t.publish(nil)
}

// SuiteStarted appends a running suite to the innermost open suite (or the
// top level) and makes it the innermost open suite.
func (t *ResultTree) SuiteStarted(info SuiteInfo) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node := &SuiteNode{
		ID:          info.ID,
		Description: info.Description,
		Status:      StatusRunning,
	}

	suites := t.Snapshot().Suites
	var index int
	if len(t.path) == 0 {
		suites = append(slices.Clone(suites), node)
		index = len(suites) - 1
	} else {
		var err error
		suites, err = replaceAt(suites, t.path, func(n *SuiteNode) (*SuiteNode, error) {
			n.Children = append(slices.Clone(n.Children), node)
			index = len(n.Children) - 1
			return n, nil
		})
		if err != nil {
			return err
		}
	}

	t.path = append(t.path, index)
	t.publish(suites)
	return nil
}

// SuiteDone closes the innermost open suite and finalizes its status from
// its descendants. An empty info.ID skips the identity check.
func (t *ResultTree) SuiteDone(info SuiteInfo) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.path) == 0 {
		return fmt.Errorf("suite done %q: %w", info.Description, ErrNoOpenSuite)
	}

	suites, err := replaceAt(t.Snapshot().Suites, t.path, func(n *SuiteNode) (*SuiteNode, error) {
		if info.ID != "" && n.ID != info.ID {
			return nil, fmt.Errorf("%w: got %s, open suite is %s", ErrSuiteMismatch, info.ID, n.ID)
		}
		if n.HasFailure() {
			n.Status = StatusFailed
		} else {
			n.Status = StatusPassed
		}
		return n, nil
	})
	if err != nil {
		return err
	}

	t.path = t.path[:len(t.path)-1]
	t.publish(suites)
	return nil
}

// SpecStarted appends spec as the last spec of the innermost open suite
func (t *ResultTree) SpecStarted(spec SpecResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.path) == 0 {
		return fmt.Errorf("spec started %q: %w", spec.Description, ErrNoOpenSuite)
	}
	if spec.Status == "" {
		spec.Status = StatusRunning
	}

	suites, err := replaceAt(t.Snapshot().Suites, t.path, func(n *SuiteNode) (*SuiteNode, error) {
		n.Specs = append(slices.Clone(n.Specs), &spec)
		return n, nil
	})
	if err != nil {
		return err
	}
	t.publish(suites)
	return nil
}

// SpecDone replaces the last spec of the innermost open suite with the final
// result. The spec keeps its position.
func (t *ResultTree) SpecDone(spec SpecResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.path) == 0 {
		return fmt.Errorf("spec done %q: %w", spec.Description, ErrNoOpenSuite)
	}
	if !spec.Status.IsFinal() {
		return fmt.Errorf("spec done %q with status %q: %w", spec.Description, spec.Status, ErrNotFinal)
	}

	suites, err := replaceAt(t.Snapshot().Suites, t.path, func(n *SuiteNode) (*SuiteNode, error) {
		last := len(n.Specs) - 1
		if last < 0 || n.Specs[last].Status.IsFinal() {
			return nil, fmt.Errorf("spec done %q in suite %q: %w", spec.Description, n.Description, ErrNoRunningSpec)
		}
		if spec.ID != "" && n.Specs[last].ID != spec.ID {
			return nil, fmt.Errorf("%w: got %s, running spec is %s", ErrSpecMismatch, spec.ID, n.Specs[last].ID)
		}
		n.Specs = slices.Clone(n.Specs)
		n.Specs[last] = &spec
		return n, nil
	})
	if err != nil {
		return err
	}
	t.publish(suites)
	return nil
}

// publish must be called with mu held
func (t *ResultTree) publish(suites []*SuiteNode) {
	prev := t.current.Load()
	snap := &Snapshot{
		Suites:  suites,
		Depth:   len(t.path),
		Version: prev.Version + 1,
	}
	t.current.Store(snap)
	for _, fn := range t.subs {
		fn(snap)
	}
}

// replaceAt returns a copy of nodes where the node addressed by path is
// replaced with fn's result. fn receives a shallow copy it may modify; slices
// on that copy are still shared and must be cloned before mutation.
func replaceAt(nodes []*SuiteNode, path []int, fn func(*SuiteNode) (*SuiteNode, error)) ([]*SuiteNode, error) {
	i := path[0]
	if i < 0 || i >= len(nodes) {
		return nil, fmt.Errorf("result tree path index %d out of range (%d nodes)", i, len(nodes))
	}

	cp := *nodes[i]
	var (
		replaced *SuiteNode
		err      error
	)
	if len(path) == 1 {
		replaced, err = fn(&cp)
	} else {
		cp.Children, err = replaceAt(cp.Children, path[1:], fn)
		replaced = &cp
	}
	if err != nil {
		return nil, err
	}

	out := slices.Clone(nodes)
	out[i] = replaced
	return out, nil
}
