package devicetest

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-devicetest/auth"
	"github.com/ethereum-optimism/infra/op-devicetest/device"
	"github.com/ethereum-optimism/infra/op-devicetest/flags"
	"github.com/ethereum-optimism/infra/op-devicetest/service"
)

// Config holds the driver configuration
type Config struct {
	Root         string           // Absolute path of the served project
	ArtifactURL  string           // Artifact installed before launch; empty skips install
	Credentials  auth.Credentials // Login credentials; empty skips login
	AuthURL      string
	ClientID     string
	ServeCommand []string
	SettingsFile string
	StopTimeout  time.Duration
	Device       device.Config
	ManifestName string        // Name the served manifest must carry
	ReadyMarker  string        // Log text announcing the serving process is ready
	ReadyTimeout time.Duration // 0 waits forever
	DoneTimeout  time.Duration // 0 waits forever
	LinkScheme   string
	Echo         io.Writer // Receives the serving process output; nil discards it
	Service      service.Config
	Log          log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	root, err := filepath.Abs(ctx.String(flags.Root.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for root '%s': %w", ctx.String(flags.Root.Name), err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	deviceCfg, err := device.LoadConfig(ctx.String(flags.DeviceConfig.Name))
	if err != nil {
		return nil, err
	}

	serveCmd := ctx.StringSlice(flags.ServeCommand.Name)
	if len(serveCmd) == 0 {
		return nil, fmt.Errorf("flag %s must not be empty", flags.ServeCommand.Name)
	}

	svcCfg, err := ReadServiceConfig(ctx)
	if err != nil {
		return nil, err
	}

	return &Config{
		Root:        root,
		ArtifactURL: ctx.String(flags.ArtifactURL.Name),
		Credentials: auth.Credentials{
			Username: ctx.String(flags.Username.Name),
			Password: ctx.String(flags.Password.Name),
		},
		AuthURL:      ctx.String(flags.AuthURL.Name),
		ClientID:     ctx.String(flags.ClientID.Name),
		ServeCommand: serveCmd,
		SettingsFile: ctx.String(flags.SettingsFile.Name),
		StopTimeout:  ctx.Duration(flags.StopTimeout.Name),
		Device:       deviceCfg,
		ManifestName: ctx.String(flags.ManifestName.Name),
		ReadyMarker:  ctx.String(flags.ReadyMarker.Name),
		ReadyTimeout: ctx.Duration(flags.ReadyTimeout.Name),
		DoneTimeout:  ctx.Duration(flags.DoneTimeout.Name),
		LinkScheme:   ctx.String(flags.LinkScheme.Name),
		Echo:         os.Stdout,
		Service:      svcCfg,
		Log:          log,
	}, nil
}

// ReadServiceConfig builds the healthz and metrics server settings from the
// metrics flags
func ReadServiceConfig(ctx *cli.Context) (service.Config, error) {
	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return service.Config{}, fmt.Errorf("invalid metrics config: %w", err)
	}
	return service.Config{
		Enabled:     metricsCfg.Enabled,
		MetricsAddr: net.JoinHostPort(metricsCfg.ListenAddr, strconv.Itoa(metricsCfg.ListenPort)),
	}, nil
}
