package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/guildbot/internal/api/response"
	"github.com/mcoot/guildbot/internal/model"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the relational schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, _, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.Migrate(cmd.Context()); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage("Schema is up to date")
			return nil
		},
	}
}

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Weekly raid template commands",
	}

	cmd.AddCommand(newTemplateAddCmd())
	cmd.AddCommand(newTemplateListCmd())

	return cmd
}

func newTemplateAddCmd() *cobra.Command {
	var (
		t        model.EventTemplate
		day      string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create or replace a weekly raid template",
		Long: `Create or replace a weekly raid template.

The name is the key used by "event create" and the event-create slash command.
It is slugified, and derived from --title when omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekday, err := parseWeekday(day)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				t.Name = args[0]
			}
			t.DayOfWeek = weekday
			t.Active = !inactive

			app, _, _, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			saved, err := app.EventService.SaveTemplate(cmd.Context(), &t)
			if err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(templateResult(saved))
			return nil
		},
	}

	cmd.Flags().StringVar(&t.Title, "title", "", "Title shown on the announcement")
	cmd.Flags().StringVar(&t.ContentName, "content", "", "Raid or dungeon name")
	cmd.Flags().StringVar(&t.Difficulty, "difficulty", "", "Difficulty, e.g. heroic or mythic")
	cmd.Flags().StringVar(&day, "day", "", "Weekday, e.g. wednesday")
	cmd.Flags().StringVar(&t.StartTime, "start", "", "Start time HH:MM in the guild time zone")
	cmd.Flags().IntVar(&t.DurationMinutes, "duration", 0, "Duration in minutes (default: 180)")
	cmd.Flags().IntVar(&t.MaxParticipants, "max", 0, "Seats (default: 20)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Save the template without allowing new instances")
	_ = cmd.MarkFlagRequired("day")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func newTemplateListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List raid templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, _, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			templates, err := app.EventService.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			if cfg.Output == "json" {
				results := make([]TemplateResult, len(templates))
				for i, t := range templates {
					results[i] = templateResult(t)
				}
				out.Print(results)
				return nil
			}
			if len(templates) == 0 {
				out.PrintMessage("No templates.")
			}
			for _, t := range templates {
				out.Print(templateResult(t))
			}
			return nil
		},
	}
}

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Raid instance commands",
	}

	cmd.AddCommand(newEventCreateCmd())
	cmd.AddCommand(newEventCancelCmd())

	return cmd
}

func newEventCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <template> <date>",
		Short: "Schedule a template on a date (YYYY-MM-DD)",
		Long: `Schedule a template on a date (YYYY-MM-DD).

The announcement is posted when an officer runs the event-create slash command
in the sign-up channel; events created here are listed by the schedule command.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, _, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			event, err := app.EventService.CreateInstance(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			event, err = app.EventService.Get(cmd.Context(), event.ID)
			if err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(response.EventFromModel(event))
			return nil
		},
	}
}

func newEventCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <event-id>",
		Short: "Cancel an upcoming raid and close its sign-up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}

			app, _, _, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err := app.EventService.Cancel(cmd.Context(), model.EventID(id)); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(fmt.Sprintf("Raid #%d cancelled", id))
			return nil
		},
	}
}

func newGuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guild",
		Short: "Guild member commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <server>",
		Short: "Look a character up and mark it as a guild member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, _, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			c, err := app.DirectoryService.RegisterGuildMember(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(response.CharacterFromModel(c))
			return nil
		},
	})

	return cmd
}

func templateResult(t *model.EventTemplate) TemplateResult {
	return TemplateResult{
		Name:            t.Name,
		Title:           t.Title,
		Weekday:         t.DayOfWeek.String(),
		StartTime:       t.StartTime,
		DurationMinutes: t.DurationMinutes,
		MaxParticipants: t.MaxParticipants,
		Active:          t.Active,
	}
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}
