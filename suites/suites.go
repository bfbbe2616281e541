// Package suites holds the test modules built into the runner. Each module
// is selectable by name through the deep link the runner is opened with.
package suites

import (
	"github.com/ethereum-optimism/infra/op-devicetest/runner"
)

// Modules is every built-in module, in registration order
var Modules = []runner.Module{
	{Name: "Basic", Register: registerBasic},
	{Name: "Environment", Register: registerEnvironment},
	{Name: "Protocol", Register: registerProtocol},
}

// Names returns the module names
func Names() []string {
	names := make([]string, 0, len(Modules))
	for _, m := range Modules {
		names = append(names, m.Name)
	}
	return names
}
