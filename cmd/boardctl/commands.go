// cmd/boardctl/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gurkanbulca/kanboard/internal/app"
	"github.com/gurkanbulca/kanboard/internal/config"
	"github.com/gurkanbulca/kanboard/internal/database"
)

// errViolations makes check exit non-zero when any project is unhealthy.
var errViolations = errors.New("integrity violations found")

// boardFactory opens the board for one command run.
type boardFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.Board, error)

func defaultFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.Board, error) {
	return app.Build(ctx, cfg, false, logger)
}

type cli struct {
	open    boardFactory
	verbose bool
}

func newRootCommand(open boardFactory) *cobra.Command {
	if open == nil {
		open = defaultFactory
	}
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "boardctl",
		Short:         "Maintenance tool for the kanban board store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log service activity to stderr")

	root.AddCommand(
		c.migrateCommand(),
		c.checkCommand(),
		c.recomputeCommand(),
		c.refreshOverdueCommand(),
		c.flushCacheCommand(),
	)
	return root
}

func (c *cli) logger(cmd *cobra.Command) *slog.Logger {
	if !c.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// withBoard loads config, opens the board and closes it after fn.
func (c *cli) withBoard(cmd *cobra.Command, fn func(ctx context.Context, b *app.Board) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	b, err := c.open(ctx, cfg, c.logger(cmd))
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(ctx, b)
}

// projectArgs parses explicit ids or, with none, lists every project.
func projectArgs(ctx context.Context, b *app.Board, args []string) ([]uuid.UUID, error) {
	if len(args) == 0 {
		return b.Service.ProjectIDs(ctx)
	}
	ids := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		id, err := uuid.Parse(a)
		if err != nil {
			return nil, fmt.Errorf("invalid project id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the Postgres tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrate needs DB_DRIVER=postgres, got %s", cfg.Database.Driver)
			}
			ctx := cmd.Context()
			db, err := database.Open(ctx, cfg.ToDatabaseConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Running database migrations...")
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed")
			return nil
		},
	}
}

func (c *cli) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [project-id...]",
		Short: "Report invariant violations and stats drift",
		Long:  "Checks the given projects, or every project when no id is given. Exits non-zero if any project is unhealthy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBoard(cmd, func(ctx context.Context, b *app.Board) error {
				ids, err := projectArgs(ctx, b, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				unhealthy := 0
				for _, id := range ids {
					report, err := b.Service.CheckIntegrity(ctx, id)
					if err != nil {
						return fmt.Errorf("check %s: %w", id, err)
					}
					if report.OK() {
						fmt.Fprintf(out, "%s ok\n", id)
						continue
					}
					unhealthy++
					fmt.Fprintf(out, "%s FAILED\n", id)
					for _, v := range report.Violations {
						fmt.Fprintf(out, "  violation: %s\n", v)
					}
					for _, d := range report.StatsDrift {
						fmt.Fprintf(out, "  stats drift: %s\n", d)
					}
				}
				fmt.Fprintf(out, "%d projects checked, %d unhealthy\n", len(ids), unhealthy)
				if unhealthy > 0 {
					return errViolations
				}
				return nil
			})
		},
	}
}

func (c *cli) recomputeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute-stats [project-id...]",
		Short: "Rebuild task statistics from live tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBoard(cmd, func(ctx context.Context, b *app.Board) error {
				ids, err := projectArgs(ctx, b, args)
				if err != nil {
					return err
				}
				repaired := 0
				for _, id := range ids {
					changed, err := b.Service.RecomputeTaskStats(ctx, id)
					if err != nil {
						return fmt.Errorf("recompute %s: %w", id, err)
					}
					if changed {
						repaired++
						fmt.Fprintf(cmd.OutOrStdout(), "%s repaired\n", id)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d projects scanned, %d repaired\n", len(ids), repaired)
				return nil
			})
		},
	}
}

func (c *cli) refreshOverdueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-overdue",
		Short: "Recompute overdue counters for every project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withBoard(cmd, func(ctx context.Context, b *app.Board) error {
				n, err := b.Service.RefreshOverdue(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d projects updated\n", n)
				return nil
			})
		},
	}
}

func (c *cli) flushCacheCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-cache",
		Short: "Drop every cached project overview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withBoard(cmd, func(ctx context.Context, b *app.Board) error {
				if b.Cache == nil {
					return errors.New("overview cache is not enabled (REDIS_ENABLED)")
				}
				n, err := b.Cache.Flush(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d keys removed\n", n)
				return nil
			})
		},
	}
}
