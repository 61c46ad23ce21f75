package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/appkeeper/internal/cliconfig"
	"github.com/bft-labs/appkeeper/internal/metrics"
	"github.com/bft-labs/appkeeper/pkg/appkeeper"
	"github.com/bft-labs/appkeeper/pkg/log"
)

const helpDescription = `
Bootstrap, tear down and resynchronize the control-plane state of an
application: its coordination namespace in ZooKeeper, its backing table,
and the shared configuration snapshot every oracle and worker reads.

Settings come from flags, APPKEEPER_* environment variables and a TOML
file, in that order of precedence. Application properties come from a
Java .properties file (--properties), the [properties] table of the TOML
file, and repeated --set key=value flags.
`

var exampleUsage = strings.TrimSpace(`
  appkeeper init --properties app.properties
  appkeeper init --app billing --zookeepers zk1:2181/apps --table billing --instance accumulo --force
  appkeeper sync-config --properties app.properties --watch
  appkeeper status --app billing
`)

// Exit codes.
const (
	exitFailure       = 1
	exitConfiguration = 2
	exitConflict      = 3
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return appkeeper.Version
}

// cli carries the state shared by every command.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	logger  log.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func newCLI() *cli {
	reg := prometheus.NewRegistry()
	return &cli{
		cfg:      cliconfig.DefaultConfig(),
		logger:   &log.NoopLogger{},
		registry: reg,
		metrics:  metrics.New(reg),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := newCLI()
	err := c.rootCommand().ExecuteContext(ctx)
	if ferr := c.flushMetrics(); ferr != nil {
		c.logger.Warn("write metrics textfile", log.Err(ferr))
	}
	if err != nil {
		c.logger.Error("appkeeper", log.Err(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "appkeeper",
		Short:             "Manage the lifecycle of a coordinated application",
		Long:              strings.TrimSpace(helpDescription),
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.load(cmd) },
	}

	f := root.PersistentFlags()
	f.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.appkeeper/config.toml)")
	f.StringVar(&c.cfg.PropertiesFile, "properties", "", "application properties file")
	f.StringArrayVar(&c.cfg.Sets, "set", nil, "application property as key=value (repeatable)")
	f.StringVar(&c.cfg.Application, "app", "", "application name")
	f.StringVar(&c.cfg.Zookeepers, "zookeepers", "", "instance ZooKeeper connection string with chroot")
	f.DurationVar(&c.cfg.ZookeeperTimeout, "zookeeper-timeout", 0, "ZooKeeper session timeout (default 30s)")
	f.StringVar(&c.cfg.Table, "table", "", "backing table name")
	f.StringVar(&c.cfg.Instance, "instance", "", "table store instance name")
	f.StringVar(&c.cfg.TableStore, "table-store", "", "table store: badger or memory (default badger)")
	f.StringVar(&c.cfg.TableStoreDir, "table-store-dir", "", "badger table store directory (default: $HOME/.appkeeper/tables)")
	f.StringVar(&c.cfg.DFSRoot, "dfs-root", "", "artifact namespace root (file path or s3://bucket/prefix)")
	f.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level: debug, info, warn, error")
	f.StringVar(&c.cfg.MetricsTextfile, "metrics-textfile", "", "write operation metrics to this node-exporter textfile")
	f.DurationVar(&c.cfg.Timeout, "timeout", c.cfg.Timeout, "deadline for a single command")

	root.AddCommand(
		c.initCommand(),
		c.removeCommand(),
		c.syncConfigCommand(),
		c.statusCommand(),
		c.configCommand(),
	)
	return root
}

// load resolves the configuration: defaults, then the TOML file, then
// APPKEEPER_* variables, then explicitly set flags.
func (c *cli) load(cmd *cobra.Command) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return configError(fmt.Errorf("load config: %w", err))
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return configError(err)
		}
	}
	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return configError(err)
	}
	if err := c.cfg.Validate(); err != nil {
		return configError(err)
	}

	c.logger = c.cfg.Logger()
	c.logger.Debug("configuration loaded",
		log.String("config", cfgFile),
		log.String("properties", c.cfg.PropertiesFile),
		log.String("app", c.cfg.Application))
	return nil
}

// open builds the application properties and connects a coordinator.
func (c *cli) open(ctx context.Context) (*appkeeper.Coordinator, error) {
	props, err := c.cfg.BuildConfiguration()
	if err != nil {
		return nil, configError(err)
	}
	return c.openWith(ctx, props)
}

func (c *cli) openWith(ctx context.Context, props *appkeeper.Configuration) (*appkeeper.Coordinator, error) {
	return appkeeper.Open(ctx, props,
		appkeeper.WithLogger(c.logger),
		appkeeper.WithObserver(c.metrics),
	)
}

func (c *cli) flushMetrics() error {
	if c.cfg.MetricsTextfile == "" {
		return nil
	}
	return metrics.WriteTextfile(c.registry, c.cfg.MetricsTextfile)
}

func configError(err error) error {
	return fmt.Errorf("%w: %w", appkeeper.ErrConfiguration, err)
}

// exitCode maps an error kind to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, appkeeper.ErrAlreadyInitialized),
		errors.Is(err, appkeeper.ErrTableExists),
		errors.Is(err, appkeeper.ErrApplicationRunning):
		return exitConflict
	case errors.Is(err, appkeeper.ErrConfiguration):
		return exitConfiguration
	default:
		return exitFailure
	}
}
