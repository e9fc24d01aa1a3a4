package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/signup"
)

var _ signup.Announcer = (*Bot)(nil)

// Post sends the announcement of an event instance to channelID and records
// the message so later roster changes edit it
func (b *Bot) Post(ctx context.Context, eventID model.EventID, channelID string) error {
	r, err := b.roster.Build(ctx, eventID)
	if err != nil {
		return err
	}

	msg, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{AnnouncementEmbed(r)},
		Components: AnnouncementComponents(r.Event),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return model.Transient("posting announcement", err)
	}

	ref := model.AnnouncementRef{ChannelID: channelID, MessageID: msg.ID}
	if err := b.events.SetAnnouncement(ctx, eventID, ref); err != nil {
		return fmt.Errorf("recording announcement: %w", err)
	}
	b.logger.Info("announcement posted",
		slog.Int64("event_instance_id", int64(eventID)),
		slog.String("channel_id", channelID),
		slog.String("message_id", msg.ID),
	)
	return nil
}

// RefreshAnnouncement re-renders the announcement message of an event
// instance. Instances that were never announced are skipped.
func (b *Bot) RefreshAnnouncement(ctx context.Context, eventID model.EventID) error {
	if b.session == nil {
		return nil
	}
	r, err := b.roster.Build(ctx, eventID)
	if err != nil {
		return err
	}
	ref := r.Event.Announcement
	if ref.IsZero() {
		return nil
	}

	embeds := []*discordgo.MessageEmbed{AnnouncementEmbed(r)}
	components := AnnouncementComponents(r.Event)
	_, err = b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         ref.MessageID,
		Channel:    ref.ChannelID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return model.Transient("editing announcement", err)
	}
	return nil
}
