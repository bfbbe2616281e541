package runner

import (
	"fmt"
	"regexp"
	"strings"
)

// Module is a named group of suites registered with the runner
type Module struct {
	Name     string
	Register func(e *Env)
}

// FilterModules keeps the modules selected by a deep link. When uri starts
// with linkingURI, the remainder is compiled as a regular expression and only
// modules whose name matches it are kept. Any other uri selects every module.
func FilterModules(modules []Module, uri, linkingURI string) ([]Module, error) {
	if uri == "" || linkingURI == "" || !strings.HasPrefix(uri, linkingURI) {
		return modules, nil
	}

	expr := strings.TrimPrefix(uri, linkingURI)
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid module filter %q: %w", expr, err)
	}

	var selected []Module
	for _, m := range modules {
		if re.MatchString(m.Name) {
			selected = append(selected, m)
		}
	}
	return selected, nil
}

// Load registers each module's suites into a fresh Env
func Load(modules []Module) *Env {
	env := NewEnv()
	for _, m := range modules {
		if m.Register == nil {
			env.errs = append(env.errs, fmt.Errorf("module %q has no Register function", m.Name))
			continue
		}
		m.Register(env)
	}
	return env
}
