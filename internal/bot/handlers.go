package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/signup"
)

// maxAutocompleteChoices is the platform limit on suggestion lists
const maxAutocompleteChoices = 25

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	if !b.deferReply(i) {
		return
	}

	switch data.Name {
	case CommandSchedule:
		b.schedule(ctx, i)
	case CommandEventCreate:
		b.createEvent(ctx, i, optionMap(data.Options))
	case CommandWhoAmI:
		b.whoami(ctx, i)
	case CommandLookup:
		b.lookup(ctx, i, optionMap(data.Options))
	case CommandRoster:
		b.rosterCommand(ctx, i, data.Options)
	case CommandGuildStats:
		b.guildStats(ctx, i)
	default:
		b.reply(i, "Unknown command.")
	}
}

func (b *Bot) schedule(ctx context.Context, i *discordgo.Interaction) {
	upcoming, err := b.events.ListUpcoming(ctx)
	if err != nil {
		b.replyError(i, CommandSchedule, err)
		return
	}
	b.reply(i, scheduleLines(upcoming))
}

func (b *Bot) createEvent(ctx context.Context, i *discordgo.Interaction, opts options) {
	if !b.isAdmin(i.Member) {
		b.replyError(i, CommandEventCreate, errNotAdmin)
		return
	}
	event, err := b.events.CreateInstance(ctx, opts.str("template"), opts.str("date"))
	if err != nil {
		b.replyError(i, CommandEventCreate, err)
		return
	}
	if err := b.Post(ctx, event.ID, i.ChannelID); err != nil {
		b.replyError(i, CommandEventCreate, err)
		return
	}
	b.reply(i, fmt.Sprintf("Raid **#%d** %s announced.", event.ID, eventTitle(event)))
}

func (b *Bot) whoami(ctx context.Context, i *discordgo.Interaction) {
	c, err := b.linker.VerifiedByPlatformID(ctx, i.Member.User.ID)
	if err != nil {
		b.replyError(i, CommandWhoAmI, err)
		return
	}
	b.reply(i, "Your verified character: "+characterLine(c))
}

func (b *Bot) lookup(ctx context.Context, i *discordgo.Interaction, opts options) {
	var (
		res *directory.Resolution
		err error
	)
	if server := opts.str("server"); server != "" {
		res, err = b.directory.ResolveOnServer(ctx, opts.str("name"), server)
	} else {
		res, err = b.directory.Resolve(ctx, opts.str("name"))
	}
	if err != nil {
		b.replyError(i, CommandLookup, err)
		return
	}
	if err := res.Err(); err != nil {
		b.reply(i, userMessage(err))
		return
	}
	b.reply(i, characterLine(res.Character))
}

func (b *Bot) guildStats(ctx context.Context, i *discordgo.Interaction) {
	report, err := b.stats.Guild(ctx)
	if err != nil {
		b.replyError(i, CommandGuildStats, err)
		return
	}
	b.replyEmbed(i, StatsEmbed(report))
}

func (b *Bot) rosterCommand(ctx context.Context, i *discordgo.Interaction, raw []*discordgo.ApplicationCommandInteractionDataOption) {
	if !b.isAdmin(i.Member) {
		b.replyError(i, CommandRoster, errNotAdmin)
		return
	}
	if len(raw) == 0 {
		b.reply(i, "Pick a roster subcommand.")
		return
	}

	sub := raw[0]
	opts := optionMap(sub.Options)
	op := CommandRoster + " " + sub.Name
	eventID := model.EventID(opts.int("event"))
	actor := actorOf(i.Member).DisplayName

	switch sub.Name {
	case subcommandAdd:
		seated, err := b.admin.Seat(ctx, eventID, opts.str("name"), opts.str("server"), opts.str("memo"), actor)
		if err != nil {
			b.replyError(i, op, err)
			return
		}
		verb := "seated"
		if seated.Updated {
			verb = "updated"
		}
		b.reply(i, fmt.Sprintf("%s-%s %s on raid #%d.", seated.Row.Character.Name, seated.Row.Character.Server, verb, eventID))

	case subcommandStatus:
		status, err := model.ParseStatus(opts.str("status"))
		if err != nil {
			b.replyError(i, op, err)
			return
		}
		c, err := b.admin.FindCharacter(ctx, opts.str("name"), opts.str("server"))
		if err != nil {
			b.replyError(i, op, err)
			return
		}
		row, err := b.admin.ChangeStatus(ctx, eventID, c.ID, status, actor)
		if err != nil {
			b.replyError(i, op, err)
			return
		}
		b.reply(i, fmt.Sprintf("%s-%s is now **%s**.", row.Character.Name, row.Character.Server, statusLabel(row.Status)))

	case subcommandRemove:
		c, err := b.admin.FindCharacter(ctx, opts.str("name"), opts.str("server"))
		if err != nil {
			b.replyError(i, op, err)
			return
		}
		row, err := b.admin.Remove(ctx, eventID, c.ID, actor)
		if err != nil {
			b.replyError(i, op, err)
			return
		}
		b.reply(i, fmt.Sprintf("%s-%s removed from raid #%d.", row.Character.Name, row.Character.Server, eventID))

	case subcommandLog:
		entries, err := b.admin.Logs(ctx, eventID, int(opts.int("count")))
		if err != nil {
			b.replyError(i, op, err)
			return
		}
		b.reply(i, LogLines(entries))

	default:
		b.reply(i, "Unknown roster subcommand.")
	}
}

// handleAutocomplete suggests server names for the focused server option
func (b *Bot) handleAutocomplete(i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	opts := data.Options
	if len(opts) > 0 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		opts = opts[0].Options
	}

	var partial string
	for _, o := range opts {
		if o.Focused {
			partial = o.StringValue()
		}
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, label := range model.ServerSuggestions(partial, maxAutocompleteChoices) {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: label, Value: label})
	}
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		b.logger.Error("failed to send autocomplete choices", slog.Any("error", err))
	}
}

// handleComponent handles the announcement buttons
func (b *Bot) handleComponent(ctx context.Context, i *discordgo.Interaction) {
	id, err := parseCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		b.logger.Warn("unknown component", slog.Any("error", err))
		b.respond(i, genericErrorMessage)
		return
	}

	switch {
	case id.prefix == prefixChange:
		b.showModal(i, characterModal(id.eventID))
	case id.status.AcceptsMemo():
		b.showModal(i, memoModal(id.status, id.eventID))
	default:
		if !b.deferReply(i) {
			return
		}
		b.signUp(ctx, i, signup.Request{EventID: id.eventID, Status: id.status})
	}
}

// handleModal handles the memo and character-change modals
func (b *Bot) handleModal(ctx context.Context, i *discordgo.Interaction) {
	data := i.ModalSubmitData()
	id, err := parseCustomID(data.CustomID)
	if err != nil || (id.prefix != prefixMemo && id.prefix != prefixCharacter) {
		b.logger.Warn("unknown modal", slog.String("custom_id", data.CustomID))
		b.respond(i, genericErrorMessage)
		return
	}
	if !b.deferReply(i) {
		return
	}

	inputs := modalInputs(data.Components)
	req := signup.Request{EventID: id.eventID, Status: id.status, Memo: inputs[inputMemo]}
	if id.prefix == prefixCharacter {
		req.Status = model.StatusConfirmed
		req.Character = &signup.CharacterRef{Name: inputs[inputName], Server: inputs[inputServer]}
	}
	b.signUp(ctx, i, req)
}

func (b *Bot) signUp(ctx context.Context, i *discordgo.Interaction, req signup.Request) {
	req.Actor = actorOf(i.Member)
	res, err := b.signup.SignUp(ctx, req)
	if err != nil {
		b.replyError(i, "signup", err)
		return
	}
	b.reply(i, signupReply(res.Row, res.Action))

	if req.Character != nil {
		b.syncNickname(i, res.Row.Character.Name)
	}
}

// syncNickname renames the member after the character they switched to so
// later display-name resolution finds it
func (b *Bot) syncNickname(i *discordgo.Interaction, name string) {
	if strings.EqualFold(model.CleanCharacterName(i.Member.Nick), name) {
		return
	}
	if err := b.session.GuildMemberNickname(i.GuildID, i.Member.User.ID, name); err != nil {
		b.logger.Warn("failed to update nickname",
			slog.String("user_id", i.Member.User.ID),
			slog.Any("error", err),
		)
	}
}

func modalInputs(rows []discordgo.MessageComponent) map[string]string {
	values := make(map[string]string)
	for _, c := range rows {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				values[input.CustomID] = strings.TrimSpace(input.Value)
			}
		}
	}
	return values
}
