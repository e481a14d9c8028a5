package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shannai37/github-star-plugin/internal/server"
	"github.com/shannai37/github-star-plugin/pkg/cron"
)

func (a *app) findCommand() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:     "find [query]",
		Aliases: []string{"search"},
		Short:   "Search the plugin catalog; an empty query lists everything",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.manager.Find(cmd.Context(), a.user, strings.Join(args, " "), page)
			if err != nil {
				return err
			}

			renderSearch(cmd.OutOrStdout(), result)

			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Result page")

	return cmd
}

func (a *app) authorCommand() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "author <name>",
		Short: "List the plugins of an author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.manager.FindByAuthor(cmd.Context(), a.user, args[0], page)
			if err != nil {
				return err
			}

			renderSearch(cmd.OutOrStdout(), result)

			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Result page")

	return cmd
}

func (a *app) starCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "star <id|name>",
		Short: "Star a plugin by display ID or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.manager.StarPlugin(cmd.Context(), a.user, args[0])
			if err != nil {
				return err
			}

			renderStar(cmd.OutOrStdout(), out)

			return nil
		},
	}
}

func (a *app) installedCommand() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "installed",
		Short: "List installed plugins with their catalog match and star status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.manager.ListInstalled(cmd.Context(), a.user, page)
			if err != nil {
				return err
			}

			renderInstalled(cmd.OutOrStdout(), result)

			return nil
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Result page")

	return cmd
}

func (a *app) starAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "starall",
		Short: "Star every installed plugin that is not starred yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.manager.StarAllInstalled(cmd.Context(), a.user)
			if err != nil {
				return err
			}

			renderReport(cmd.OutOrStdout(), report)

			return nil
		},
	}
}

func (a *app) meCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the GitHub account of the configured token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.manager.MyGitHub(cmd.Context(), a.user)
			if err != nil {
				return err
			}

			renderUser(cmd.OutOrStdout(), user)

			return nil
		},
	}
}

func (a *app) testNetworkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test-network",
		Short: "Probe the GitHub API endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.manager.TestNetwork(cmd.Context(), a.user)
			if err != nil {
				return err
			}

			renderNetwork(cmd.OutOrStdout(), report)

			return nil
		},
	}
}

func (a *app) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Rebuild the plugin catalog now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.manager.UpdatePlugins(cmd.Context(), a.user)
			if err != nil {
				return err
			}

			renderUpdate(cmd.OutOrStdout(), n)

			return nil
		},
	}
}

func (a *app) debugCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Show the effective configuration and cache state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := a.manager.Debug(a.user)
			if err != nil {
				return err
			}

			renderDebug(cmd.OutOrStdout(), info)

			return nil
		},
	}
}

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the commands over HTTP and refresh the catalog on schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.manager, a.cfg.ListenAddr,
				server.WithGatherer(a.registry), server.WithLogger(a.logger))

			var jobs []cron.Job
			if a.cfg.RefreshSchedule != "" {
				jobs = append(jobs, server.RefreshJob(a.manager, a.cfg.RefreshSchedule))
			}

			if a.cfg.ProbeSchedule != "" {
				jobs = append(jobs, server.ProbeJob(a.manager, a.cfg.ProbeSchedule))
			}

			return server.Run(ctx, a.manager, srv, cron.NewRealScheduler(a.logger), a.logger, jobs...)
		},
	}
}
