package main

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/shannai37/github-star-plugin/internal/config"
	"github.com/shannai37/github-star-plugin/internal/manager"
	"github.com/shannai37/github-star-plugin/pkg/metrics"
)

// app holds what the sub-commands share. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	getenv func(string) string

	configPath string
	logLevel   string
	logFormat  string
	user       string
	flags      config.Flags

	cfg         *config.Config
	logger      *slog.Logger
	registry    *prometheus.Registry
	manager     *manager.Manager
	managerOpts []manager.Option
}

func newRootCommand(getenv func(string) string, opts ...manager.Option) *cobra.Command {
	a := &app{getenv: getenv, managerOpts: opts}

	cmd := &cobra.Command{
		Use:   "starmanager [sub-command]",
		Short: "Find chat-bot plugins and star their GitHub repositories",
		Long: `starmanager searches the community plugin index, reconciles the plugins
installed on this bot with it, and stars their GitHub repositories with
the configured token.`,
		Version:           version + " (" + commit + ")",
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Path to the YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "text", "Log format (json, text)")
	pf.StringVarP(&a.user, "user", "u", "cli", "Chat user ID the command runs as")
	a.flags.AddFlags(pf)

	cmd.AddCommand(
		a.findCommand(),
		a.authorCommand(),
		a.starCommand(),
		a.installedCommand(),
		a.starAllCommand(),
		a.meCommand(),
		a.testNetworkCommand(),
		a.updateCommand(),
		a.debugCommand(),
		a.serveCommand(),
	)

	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if !cmd.HasParent() {
		return nil
	}

	handler := newLogHandler(cmd.ErrOrStderr(), a.logLevel, a.logFormat)
	a.logger = slog.New(handler)
	slog.SetDefault(a.logger)

	cfg, err := config.Load(a.configPath, a.getenv)
	if err != nil {
		return err
	}

	a.flags.Apply(cmd.Flags(), cfg)

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	a.cfg = cfg
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := append([]manager.Option{
		manager.WithRecorder(metrics.NewPrometheusRecorder(a.registry)),
		manager.WithLogger(a.logger),
	}, a.managerOpts...)

	a.manager = manager.New(cfg, opts...)

	a.logger.Debug("configuration loaded", "config", cfg.Redacted())

	return nil
}
