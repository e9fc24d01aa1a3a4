// Package bot is the Discord adapter: it registers the slash commands, posts
// and edits raid announcements, and turns button presses and modal submits
// into sign-up calls.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/mcoot/guildbot/internal/services/admin"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/events"
	"github.com/mcoot/guildbot/internal/services/linker"
	"github.com/mcoot/guildbot/internal/services/roster"
	"github.com/mcoot/guildbot/internal/services/signup"
	"github.com/mcoot/guildbot/internal/services/stats"
)

// Config holds the Discord connection settings
type Config struct {
	Token        string
	GuildID      string
	AdminRoleIDs []string
}

// Services are the application services the bot drives
type Services struct {
	Signup    *signup.Service
	Events    *events.Service
	Roster    *roster.Service
	Admin     *admin.Service
	Directory *directory.Service
	Linker    *linker.Service
	Stats     *stats.Service
}

// Bot handles Discord interactions
type Bot struct {
	cfg       Config
	session   Session
	signup    *signup.Service
	events    *events.Service
	roster    *roster.Service
	admin     *admin.Service
	directory *directory.Service
	linker    *linker.Service
	stats     *stats.Service
	logger    *slog.Logger
}

// New creates a bot and installs it as the announcer of the sign-up and admin services
func New(cfg Config, services Services, logger *slog.Logger) *Bot {
	b := &Bot{
		cfg:       cfg,
		signup:    services.Signup,
		events:    services.Events,
		roster:    services.Roster,
		admin:     services.Admin,
		directory: services.Directory,
		linker:    services.Linker,
		stats:     services.Stats,
		logger:    logger,
	}
	b.signup.SetAnnouncer(b)
	b.admin.SetAnnouncer(b)
	return b
}

// SetSession replaces the Discord session; Run sets it to the live gateway session
func (b *Bot) SetSession(s Session) {
	b.session = s
}

// Run connects to the gateway and handles interactions until ctx is done
func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.Token)
	if err != nil {
		return fmt.Errorf("creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.Info("connected to discord", slog.String("user", r.User.Username))
		if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, b.cfg.GuildID, Commands()); err != nil {
			b.logger.Error("failed to register commands", slog.Any("error", err))
		}
	})
	dg.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		b.HandleInteraction(ctx, i.Interaction)
	})

	b.SetSession(dg)
	if err := dg.Open(); err != nil {
		return fmt.Errorf("opening discord connection: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	b.logger.Info("disconnecting from discord")
	return nil
}

// HandleInteraction dispatches one inbound interaction. discordgo calls it
// from its own goroutine per event.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i.Member == nil || i.Member.User == nil {
		b.respond(i, "Use this in the guild server.")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic handling interaction",
				slog.Any("panic", r),
				slog.String("interaction_id", i.ID),
			)
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, i)
	case discordgo.InteractionModalSubmit:
		b.handleModal(ctx, i)
	default:
		b.logger.Debug("ignoring interaction", slog.Int("type", int(i.Type)))
	}
}

func (b *Bot) isAdmin(m *discordgo.Member) bool {
	if m.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, role := range m.Roles {
		if slices.Contains(b.cfg.AdminRoleIDs, role) {
			return true
		}
	}
	return false
}

func actorOf(m *discordgo.Member) signup.Actor {
	name := m.Nick
	if name == "" {
		name = m.User.GlobalName
	}
	if name == "" {
		name = m.User.Username
	}
	return signup.Actor{
		PlatformID:  m.User.ID,
		Username:    m.User.Username,
		DisplayName: name,
	}
}

// respond sends an immediate ephemeral message
func (b *Bot) respond(i *discordgo.Interaction, content string) {
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error("failed to respond to interaction", slog.Any("error", err))
	}
}

// deferReply acknowledges the interaction so the handler may take longer than
// the platform's three second window
func (b *Bot) deferReply(i *discordgo.Interaction) bool {
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		b.logger.Error("failed to defer interaction", slog.Any("error", err))
		return false
	}
	return true
}

// reply edits the deferred response
func (b *Bot) reply(i *discordgo.Interaction, content string) {
	if _, err := b.session.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &content}); err != nil {
		b.logger.Error("failed to edit interaction response", slog.Any("error", err))
	}
}

func (b *Bot) replyEmbed(i *discordgo.Interaction, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := b.session.InteractionResponseEdit(i, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		b.logger.Error("failed to edit interaction response", slog.Any("error", err))
	}
}

// replyError logs unexpected failures and shows the member a readable message
func (b *Bot) replyError(i *discordgo.Interaction, op string, err error) {
	msg := userMessage(err)
	if msg == genericErrorMessage {
		b.logger.Error("interaction failed",
			slog.String("op", op),
			slog.String("user_id", i.Member.User.ID),
			slog.Any("error", err),
		)
	} else {
		b.logger.Info("interaction rejected",
			slog.String("op", op),
			slog.String("user_id", i.Member.User.ID),
			slog.String("reason", err.Error()),
		)
	}
	b.reply(i, msg)
}

func (b *Bot) showModal(i *discordgo.Interaction, data *discordgo.InteractionResponseData) {
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: data,
	})
	if err != nil {
		b.logger.Error("failed to show modal", slog.Any("error", err))
	}
}
