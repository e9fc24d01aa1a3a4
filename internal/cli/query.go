package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/guildbot/internal/api/response"
)

func newEventsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List raid events",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if status != "" {
				query.Set("status", status)
			}

			var result []response.Event
			if err := client.Get(cmd.Context(), "/api/v1/events", query, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status: upcoming, completed, cancelled")

	return cmd
}

func newRosterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roster <event-id>",
		Short: "Show the roster of a raid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}

			var result response.Roster
			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/v1/events/%d/roster", id), nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newLogsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs <event-id>",
		Short: "Show recent roster changes of a raid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}

			query := url.Values{}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}

			var result []response.LogEntry
			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/v1/events/%d/logs", id), query, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries (default: server default)")

	return cmd
}

func newResolveCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a character name the way sign-up does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{"name": {args[0]}}
			if server != "" {
				query.Set("server", server)
			}

			var result response.Resolution
			if err := client.Get(cmd.Context(), "/api/v1/characters/resolve", query, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server name in English or Korean")

	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show guild statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.GuildStats
			if err := client.Get(cmd.Context(), "/api/v1/guild/stats", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func parseEventID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid event id %q", s)
	}
	return id, nil
}
