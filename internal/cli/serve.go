package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/guildbot/internal/api"
	"github.com/mcoot/guildbot/internal/factory"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot, the scheduler and the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, settings, logger, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Error("failed to close storage", slog.String("error", err.Error()))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if migrate {
				if err := app.Migrate(ctx); err != nil && !errors.Is(err, factory.ErrNotRelational) {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			app.Scheduler.Start()
			defer func() {
				if err := app.Scheduler.Shutdown(); err != nil {
					logger.Error("failed to stop scheduler", slog.String("error", err.Error()))
				}
			}()

			serverConfig := api.DefaultServerConfig()
			serverConfig.Port = settings.HTTPPort
			server := api.NewServer(app.Router(), serverConfig, logger)

			return runAll(ctx, stop, logger, map[string]func(context.Context) error{
				"http": server.Run,
				"bot": func(ctx context.Context) error {
					if settings.DiscordToken == "" {
						logger.Warn("DISCORD_TOKEN not set, Discord bot disabled")
						<-ctx.Done()
						return nil
					}
					return app.Bot.Run(ctx)
				},
			})
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Migrate the relational schema before starting")

	return cmd
}

// runAll runs every component until ctx ends. The first failure stops the
// others and is returned once all of them have exited.
func runAll(ctx context.Context, stop context.CancelFunc, logger *slog.Logger, components map[string]func(context.Context) error) error {
	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(components))
	for name, run := range components {
		go func() {
			results <- result{name: name, err: run(ctx)}
		}()
	}

	var first error
	for range len(components) {
		r := <-results
		if r.err == nil {
			continue
		}
		logger.Error("component failed", slog.String("component", r.name), slog.String("error", r.err.Error()))
		if first == nil {
			first = fmt.Errorf("%s: %w", r.name, r.err)
			stop()
		}
	}
	logger.Info("guildbot stopped")
	return first
}
