package flags

import (
	"slices"
	"testing"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range slices.Concat(optionalFlags, RunnerFlags) {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, including the
// runner subcommand flags which share the environment prefix.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range slices.Concat(Flags, RunnerFlags) {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range slices.Concat(Flags, RunnerFlags) {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
			require.Equal(t, opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix), envFlags[0])
		})
	}
}

func TestCheckRequired(t *testing.T) {
	testCases := []struct {
		name        string
		args        []string
		shouldError bool
	}{
		{"no credentials", []string{"app"}, false},
		{"both credentials", []string{"app", "--username", "ci", "--password", "pw"}, false},
		{"username only", []string{"app", "--username", "ci"}, true},
		{"password only", []string{"app", "--password", "pw"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := &cli.App{
				Flags: Flags,
				Action: func(ctx *cli.Context) error {
					return CheckRequired(ctx)
				},
			}
			err := app.Run(tc.args)
			if tc.shouldError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	app := &cli.App{
		Flags: Flags,
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, []string{"exp", "start", "--non-interactive"}, ctx.StringSlice(ServeCommand.Name))
			assert.Equal(t, "test-suite", ctx.String(ManifestName.Name))
			assert.Equal(t, "exp", ctx.String(LinkScheme.Name))
			assert.Zero(t, ctx.Duration(ReadyTimeout.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app"}))
}
