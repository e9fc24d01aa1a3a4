package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mcoot/guildbot/internal/config"
	"github.com/mcoot/guildbot/internal/factory"
)

// openApp loads the bot settings and wires the application. Callers own the
// returned App and must Close it.
func openApp(cmd *cobra.Command) (*factory.App, *config.Config, *slog.Logger, error) {
	settings, err := config.Load(cfg.envFiles()...)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := settings.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, nil, err
	}
	app, err := factory.New(settings, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return app, settings, logger, nil
}
