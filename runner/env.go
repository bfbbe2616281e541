package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SpecFunc is the body of a spec. A returned error fails the spec.
type SpecFunc func(ctx context.Context, t *T) error

type specMode int

const (
	specNormal specMode = iota
	specExcluded
	specFocused
)

type suiteDecl struct {
	id          string
	description string
	parent      *suiteDecl
	items       []declItem // specs and child suites in declaration order
}

type specDecl struct {
	id          string
	description string
	parent      *suiteDecl
	fn          SpecFunc
	mode        specMode
}

type declItem struct {
	suite *suiteDecl
	spec  *specDecl
}

// Env collects suite and spec declarations before execution.
type Env struct {
	root      *suiteDecl
	current   *suiteDecl
	nextSuite int
	nextSpec  int
	errs      []error
}

// NewEnv creates an empty declaration environment
func NewEnv() *Env {
	root := &suiteDecl{id: "root"}
	return &Env{
		root:      root,
		current:   root,
		nextSuite: 1,
	}
}

// Describe declares a suite. Declarations made by fn are nested inside it.
func (e *Env) Describe(description string, fn func()) {
	s := &suiteDecl{
		id:          fmt.Sprintf("suite%d", e.nextSuite),
		description: description,
		parent:      e.current,
	}
	e.nextSuite++
	e.current.items = append(e.current.items, declItem{suite: s})

	prev := e.current
	e.current = s
	defer func() { e.current = prev }()
	fn()
}

// It declares a spec in the enclosing suite
func (e *Env) It(description string, fn SpecFunc) {
	e.addSpec(description, fn, specNormal)
}

// XIt declares a spec that is reported as disabled and never run
func (e *Env) XIt(description string, fn SpecFunc) {
	e.addSpec(description, fn, specExcluded)
}

// FIt declares a focused spec. When any spec is focused, all unfocused specs
// are reported as disabled.
func (e *Env) FIt(description string, fn SpecFunc) {
	e.addSpec(description, fn, specFocused)
}

func (e *Env) addSpec(description string, fn SpecFunc, mode specMode) {
	if e.current == e.root {
		e.errs = append(e.errs, fmt.Errorf("spec %q must be declared inside Describe", description))
		return
	}
	if fn == nil && mode != specExcluded {
		e.errs = append(e.errs, fmt.Errorf("spec %q has no body", fullName(e.current, description)))
		return
	}
	e.current.items = append(e.current.items, declItem{spec: &specDecl{
		id:          fmt.Sprintf("spec%d", e.nextSpec),
		description: description,
		parent:      e.current,
		fn:          fn,
		mode:        mode,
	}})
	e.nextSpec++
}

// Err returns the declaration errors collected so far
func (e *Env) Err() error {
	return errors.Join(e.errs...)
}

// SpecCount returns the number of declared specs
func (e *Env) SpecCount() int {
	return e.nextSpec
}

func (e *Env) hasFocus() bool {
	var found bool
	walkSpecs(e.root, func(s *specDecl) {
		if s.mode == specFocused {
			found = true
		}
	})
	return found
}

func walkSpecs(s *suiteDecl, fn func(*specDecl)) {
	for _, it := range s.items {
		if it.spec != nil {
			fn(it.spec)
		} else {
			walkSpecs(it.suite, fn)
		}
	}
}

// fullName joins the descriptions from the outermost suite down to leaf with
// dots.
func fullName(parent *suiteDecl, leaf string) string {
	var parts []string
	for s := parent; s != nil && s.parent != nil; s = s.parent {
		parts = append(parts, s.description)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(append(parts, leaf), ".")
}
