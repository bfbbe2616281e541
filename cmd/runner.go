package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	devicetest "github.com/ethereum-optimism/infra/op-devicetest"
	"github.com/ethereum-optimism/infra/op-devicetest/flags"
	"github.com/ethereum-optimism/infra/op-devicetest/reporting"
	"github.com/ethereum-optimism/infra/op-devicetest/runner"
	"github.com/ethereum-optimism/infra/op-devicetest/service"
	"github.com/ethereum-optimism/infra/op-devicetest/suites"
	"github.com/ethereum-optimism/infra/op-devicetest/types"
	"github.com/ethereum-optimism/infra/op-devicetest/ui"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const bannerWidth = 60

// RunnerCommand runs the built-in modules in process. Spec lines and the
// completion marker go to stdout; logs and the final tree go to stderr. With
// metrics enabled, spec counts are served for as long as the run lasts.
func RunnerCommand() *cli.Command {
	return &cli.Command{
		Name:   "runner",
		Usage:  "Run the built-in test modules and print the completion marker",
		Flags:  cliapp.ProtectFlags(flags.RunnerFlags),
		Action: runRunner,
	}
}

func runRunner(ctx *cli.Context) error {
	errOut := ctx.App.ErrWriter
	logger := oplog.NewLogger(errOut, oplog.ReadCLIConfig(ctx)).New("run_id", uuid.New().String())

	svcCfg, err := devicetest.ReadServiceConfig(ctx)
	if err != nil {
		return devicetest.NewRuntimeError(err)
	}
	var running atomic.Bool
	svcCfg.Ready = running.Load
	svc := service.New(svcCfg, logger.New("component", "service"))
	svc.Start(ctx.Context)
	running.Store(true)
	defer func() {
		running.Store(false)
		svc.Shutdown()
	}()

	modules, err := runner.FilterModules(suites.Modules, ctx.String(flags.URI.Name), ctx.String(flags.LinkingURI.Name))
	if err != nil {
		return devicetest.NewRuntimeError(err)
	}
	if len(modules) == 0 {
		logger.Warn("No module matches the deep link", "uri", ctx.String(flags.URI.Name), "available", suites.Names())
	}
	names := make([]string, 0, len(modules))
	for _, m := range modules {
		names = append(names, m.Name)
	}

	env := runner.Load(modules)
	var sink reporting.CompletionSink
	if path := ctx.String(flags.CompletionFile.Name); path != "" {
		sink = reporting.FileSink{Path: path}
	}
	agg := reporting.NewAggregator(ctx.App.Writer, sink, logger)

	live := reporting.NewTreeTextFormatter(false, true)
	cancel := agg.Tree().Subscribe(func(snap *types.Snapshot) {
		if logger.Enabled(context.Background(), log.LevelTrace) {
			logger.Trace("Result tree updated", "version", snap.Version, "tree", live.Format(snap))
		}
	})
	defer cancel()

	fmt.Fprint(errOut, ui.BuildBoxHeader("op-devicetest runner", bannerWidth))
	fmt.Fprint(errOut, ui.BuildBoxLine("modules: "+strings.Join(names, ", "), bannerWidth))
	fmt.Fprint(errOut, ui.BuildBoxLine(fmt.Sprintf("specs: %d", env.SpecCount()), bannerWidth))
	fmt.Fprint(errOut, ui.BuildBoxFooter(bannerWidth))

	opts := runner.Options{
		SpecTimeout: ctx.Duration(flags.SpecTimeout.Name),
		Log:         logger,
	}
	if err := runner.Execute(ctx.Context, env, opts, agg, reporting.MetricsReporter{}); err != nil {
		return devicetest.NewRuntimeError(err)
	}

	snap := agg.Tree().Snapshot()
	for _, name := range names {
		if node := snap.Find(name); node != nil {
			logger.Info("Module finished", "module", name, "status", node.Status)
		}
	}
	fmt.Fprintln(errOut, reporting.NewTreeTableFormatter("op-devicetest runner results").Format(snap))

	summary := agg.Summary()
	if summary == nil {
		return devicetest.NewRuntimeError(errors.New("run finished without a summary"))
	}
	if !summary.Passed() {
		return devicetest.NewTestFailureError(summary.Failed, "runner reported failures")
	}
	return nil
}
