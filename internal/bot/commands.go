package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/mcoot/guildbot/internal/model"
)

// Command names
const (
	CommandSchedule    = "schedule"
	CommandEventCreate = "event-create"
	CommandWhoAmI      = "whoami"
	CommandLookup      = "lookup"
	CommandRoster      = "roster"
	CommandGuildStats  = "guild-stats"

	subcommandAdd    = "add"
	subcommandStatus = "status"
	subcommandRemove = "remove"
	subcommandLog    = "log"
)

var (
	eventOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "event",
		Description: "Event number",
		Required:    true,
	}
	nameOption = &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: "Character name",
		Required:    true,
	}
	serverOption = &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         "server",
		Description:  "Server, in English or Korean",
		Required:     true,
		Autocomplete: true,
	}
)

func statusChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(model.Statuses))
	for i, s := range model.Statuses {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: statusLabel(s), Value: string(s)}
	}
	return choices
}

// Commands returns every slash command the bot registers
func Commands() []*discordgo.ApplicationCommand {
	optionalServer := *serverOption
	optionalServer.Required = false

	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandSchedule,
			Description: "List upcoming raids",
		},
		{
			Name:        CommandEventCreate,
			Description: "Schedule a raid from a template and announce it here",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "template",
					Description: "Template name",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "date",
					Description: "Date as YYYY-MM-DD",
					Required:    true,
				},
			},
		},
		{
			Name:        CommandWhoAmI,
			Description: "Show your verified character",
		},
		{
			Name:        CommandLookup,
			Description: "Look a character up",
			Options:     []*discordgo.ApplicationCommandOption{nameOption, &optionalServer},
		},
		{
			Name:        CommandGuildStats,
			Description: "Show guild statistics",
		},
		{
			Name:        CommandRoster,
			Description: "Manage a raid roster",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subcommandAdd,
					Description: "Seat a character that has not signed up yet",
					Options: []*discordgo.ApplicationCommandOption{
						eventOption, nameOption, serverOption,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "memo",
							Description: "Note shown on the roster",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subcommandStatus,
					Description: "Change a participant's status",
					Options: []*discordgo.ApplicationCommandOption{
						eventOption, nameOption, serverOption,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "status",
							Description: "New status",
							Required:    true,
							Choices:     statusChoices(),
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subcommandRemove,
					Description: "Remove a participant",
					Options:     []*discordgo.ApplicationCommandOption{eventOption, nameOption, serverOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subcommandLog,
					Description: "Show recent roster changes",
					Options: []*discordgo.ApplicationCommandOption{
						eventOption,
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "count",
							Description: "How many entries (default 10)",
						},
					},
				},
			},
		},
	}
}

// options indexes command options by name
type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	m := make(options, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func (o options) str(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o options) int(name string) int64 {
	if opt, ok := o[name]; ok {
		return opt.IntValue()
	}
	return 0
}
