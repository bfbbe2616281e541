package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-devicetest/protocol"
	"github.com/ethereum-optimism/infra/op-devicetest/server"
)

const EnvVarPrefix = "OP_DEVICETEST"

var (
	Root = &cli.StringFlag{
		Name:    "root",
		Value:   ".",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ROOT"),
		Usage:   "Path to the test project that is served to the device",
	}
	Username = &cli.StringFlag{
		Name:    "username",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "USERNAME"),
		Usage:   "Username used to log in before serving",
	}
	Password = &cli.StringFlag{
		Name:    "password",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PASSWORD"),
		Usage:   "Password used to log in before serving",
	}
	AuthURL = &cli.StringFlag{
		Name:    "auth-url",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "AUTH_URL"),
		Usage:   "Login endpoint. Login is skipped when empty",
	}
	ClientID = &cli.StringFlag{
		Name:    "client-id",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CLIENT_ID"),
		Usage:   "Client ID sent with the login request",
	}
	ArtifactURL = &cli.StringFlag{
		Name:    "artifact-url",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ARTIFACT_URL"),
		Usage:   "App artifact to install on the device before launching. Install is skipped when empty",
	}
	ServeCommand = &cli.StringSliceFlag{
		Name:    "serve-cmd",
		Value:   cli.NewStringSlice("exp", "start", "--non-interactive"),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE_CMD"),
		Usage:   "Command line that builds and serves the project, one argument per flag occurrence",
	}
	SettingsFile = &cli.StringFlag{
		Name:    "settings-file",
		Value:   server.DefaultSettingsFile,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SETTINGS_FILE"),
		Usage:   "Settings file written by the serving process, relative to --root unless absolute",
	}
	DeviceConfig = &cli.StringFlag{
		Name:    "device-config",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DEVICE_CONFIG"),
		Usage:   "YAML file overriding the device control commands (defaults drive the booted iOS simulator)",
	}
	ManifestName = &cli.StringFlag{
		Name:    "manifest-name",
		Value:   "test-suite",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MANIFEST_NAME"),
		Usage:   "Name the served manifest must carry",
	}
	ReadyMarker = &cli.StringFlag{
		Name:    "ready-marker",
		Value:   protocol.ReadyMarker,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "READY_MARKER"),
		Usage:   "Log text announcing that the serving process is ready",
	}
	ReadyTimeout = &cli.DurationFlag{
		Name:    "ready-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "READY_TIMEOUT"),
		Usage:   "Maximum wait for the ready marker (0 waits forever)",
	}
	DoneTimeout = &cli.DurationFlag{
		Name:    "done-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DONE_TIMEOUT"),
		Usage:   "Maximum wait for the completion marker after launch (0 waits forever)",
	}
	LinkScheme = &cli.StringFlag{
		Name:    "link-scheme",
		Value:   protocol.DefaultLinkScheme,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LINK_SCHEME"),
		Usage:   "URL scheme the device opens the served project with",
	}
	StopTimeout = &cli.DurationFlag{
		Name:    "stop-timeout",
		Value:   10 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STOP_TIMEOUT"),
		Usage:   "Grace period for the serving process to exit before it is killed",
	}
)

// Runner subcommand flags
var (
	URI = &cli.StringFlag{
		Name:    "uri",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "URI"),
		Usage:   "Deep link the runner was opened with",
	}
	LinkingURI = &cli.StringFlag{
		Name:    "linking-uri",
		Value:   protocol.DefaultLinkScheme + "://localhost:19000/+",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LINKING_URI"),
		Usage:   "Deep link prefix; the rest of --uri is a regular expression selecting modules",
	}
	SpecTimeout = &cli.DurationFlag{
		Name:    "spec-timeout",
		Value:   10 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SPEC_TIMEOUT"),
		Usage:   "Maximum duration of a single spec",
	}
	CompletionFile = &cli.StringFlag{
		Name:    "completion-file",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COMPLETION_FILE"),
		Usage:   "Also write the completion payload to this file",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	Root,
	Username,
	Password,
	AuthURL,
	ClientID,
	ArtifactURL,
	ServeCommand,
	SettingsFile,
	DeviceConfig,
	ManifestName,
	ReadyMarker,
	ReadyTimeout,
	DoneTimeout,
	LinkScheme,
	StopTimeout,
}

// Flags are the driver flags
var Flags []cli.Flag

// RunnerFlags are the flags of the runner subcommand
var RunnerFlags = []cli.Flag{
	URI,
	LinkingURI,
	SpecTimeout,
	CompletionFile,
}

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	if ctx.IsSet(Username.Name) != ctx.IsSet(Password.Name) {
		return fmt.Errorf("flags %s and %s must be set together", Username.Name, Password.Name)
	}
	return nil
}
