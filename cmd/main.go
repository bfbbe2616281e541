package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	devicetest "github.com/ethereum-optimism/infra/op-devicetest"
	"github.com/ethereum-optimism/infra/op-devicetest/exitcodes"
	"github.com/ethereum-optimism/infra/op-devicetest/flags"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-devicetest"
	app.Usage = "End-to-end device test driver"
	app.Description = "op-devicetest serves a test project, launches it on a device and reports the specs it ran"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.Commands = []*cli.Command{RunnerCommand()}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
	}
	return app
}

// exitCode maps an error returned by the app to the process exit status:
// the failed spec count for test failures and RuntimeErr for anything else.
func exitCode(err error) int {
	if err == nil {
		return exitcodes.Success
	}
	var failure *devicetest.TestFailureError
	if errors.As(err, &failure) {
		return exitcodes.FromFailed(failure.Failed)
	}
	var exitErr cli.ExitCoder
	if !devicetest.IsRuntimeError(err) && errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return exitcodes.RuntimeErr
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := devicetest.NewConfig(ctx, log)
	if err != nil {
		return nil, devicetest.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	app, err := devicetest.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		return nil, devicetest.NewRuntimeError(fmt.Errorf("failed to create app: %w", err))
	}
	return app, nil
}
