package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "guildbot",
		Short: "Raid sign-up bot for a World of Warcraft guild",
		Long: `guildbot runs the Discord raid roster bot and its admin API.

Process commands (serve, migrate, template, event, guild, hash-token) read the
bot settings from the environment or a dotenv file. Query commands (events,
roster, logs, resolve, health) talk to a running bot's admin API.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.LoadToken(); err != nil {
				return err
			}

			client = NewClient(cfg.ServerURL, cfg.Token)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "Dotenv file with bot settings (default: .env)")
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Admin API URL (env: GUILDBOT_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Admin API token (env: GUILDBOT_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: GUILDBOT_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Process commands
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newTemplateCmd())
	rootCmd.AddCommand(newEventCmd())
	rootCmd.AddCommand(newGuildCmd())
	rootCmd.AddCommand(newHashTokenCmd())

	// Admin API commands
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newRosterCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
