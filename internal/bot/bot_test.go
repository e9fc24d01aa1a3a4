package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/guildbot/internal/dependencies/mocks"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/admin"
	"github.com/mcoot/guildbot/internal/services/audit"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/events"
	"github.com/mcoot/guildbot/internal/services/ledger"
	"github.com/mcoot/guildbot/internal/services/linker"
	"github.com/mcoot/guildbot/internal/services/placeholder"
	"github.com/mcoot/guildbot/internal/services/roster"
	"github.com/mcoot/guildbot/internal/services/signup"
	"github.com/mcoot/guildbot/internal/services/stats"
	"github.com/mcoot/guildbot/internal/storage/memory"
	"github.com/mcoot/guildbot/internal/testutil"
)

type nickname struct {
	guildID, userID, nick string
}

type fakeSession struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	sent      []*discordgo.MessageSend
	edited    []*discordgo.MessageEdit
	nicknames []nickname
	editErr   error
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", len(f.sent)), ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edited = append(f.edited, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeSession) GuildMemberNickname(guildID, userID, nick string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nicknames = append(f.nicknames, nickname{guildID, userID, nick})
	return nil
}

func (f *fakeSession) lastReply() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 || f.edits[len(f.edits)-1].Content == nil {
		return ""
	}
	return *f.edits[len(f.edits)-1].Content
}

func (f *fakeSession) lastEmbed() *discordgo.MessageEmbed {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 || f.edits[len(f.edits)-1].Embeds == nil {
		return nil
	}
	embeds := *f.edits[len(f.edits)-1].Embeds
	if len(embeds) == 0 {
		return nil
	}
	return embeds[0]
}

type BotSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	lookup  *mocks.MockLookup
	session *fakeSession
	events  *events.Service
	ledger  *ledger.Service
	bot     *Bot
	ctx     context.Context
	event   *model.EventInstance
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotSuite))
}

func (s *BotSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.lookup = mocks.NewMockLookup()
	s.session = &fakeSession{}
	s.ctx = context.Background()
	logger := testutil.NopLogger()

	dir := directory.New(s.storage, s.lookup, s.clock, logger)
	lnk := linker.New(s.storage, s.clock, logger)
	s.ledger = ledger.New(s.storage, s.clock, logger)
	seats := placeholder.New(s.storage, mocks.NewMockIDs(), s.clock, logger)
	log := audit.New(s.storage, s.clock, logger)
	s.events = events.New(s.storage, s.clock, time.UTC, logger)

	s.bot = New(Config{GuildID: "guild-1", AdminRoleIDs: []string{"role-admin"}}, Services{
		Signup:    signup.New(s.storage, dir, lnk, s.ledger, seats, log, logger),
		Events:    s.events,
		Roster:    roster.New(s.storage),
		Admin:     admin.New(s.storage, dir, s.ledger, seats, log, logger),
		Directory: dir,
		Linker:    lnk,
		Stats:     stats.New(s.storage, logger),
	}, logger)
	s.bot.SetSession(s.session)

	_, err := s.events.SaveTemplate(s.ctx, &model.EventTemplate{
		Name: "heroic", Title: "Heroic Night", DayOfWeek: time.Wednesday, StartTime: "21:00", Active: true,
	})
	s.Require().NoError(err)
	s.event, err = s.events.CreateInstance(s.ctx, "heroic", "2024-01-03")
	s.Require().NoError(err)

	_, err = s.storage.UpsertCharacter(s.ctx, &model.Character{
		Name: "Frostbite", Server: "Azshara", Class: "Mage", Spec: "Frost", IsGuildMember: true,
	})
	s.Require().NoError(err)
}

func member(id, nick string, roles ...string) *discordgo.Member {
	return &discordgo.Member{
		User:  &discordgo.User{ID: id, Username: "user" + id},
		Nick:  nick,
		Roles: roles,
	}
}

func (s *BotSuite) press(m *discordgo.Member, customID string) {
	s.bot.HandleInteraction(s.ctx, &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Member:    m,
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: discordgo.ButtonComponent},
	})
}

func (s *BotSuite) submit(m *discordgo.Member, customID string, inputs map[string]string) {
	var rows []discordgo.MessageComponent
	for id, value := range inputs {
		rows = append(rows, &discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.TextInput{CustomID: id, Value: value},
		}})
	}
	s.bot.HandleInteraction(s.ctx, &discordgo.Interaction{
		Type:    discordgo.InteractionModalSubmit,
		GuildID: "guild-1",
		Member:  m,
		Data:    discordgo.ModalSubmitInteractionData{CustomID: customID, Components: rows},
	})
}

func (s *BotSuite) command(m *discordgo.Member, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) {
	s.bot.HandleInteraction(s.ctx, &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Member:    m,
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	})
}

func str(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func integer(name string, value int64) *discordgo.ApplicationCommandInteractionDataOption {
	// option values arrive as JSON numbers
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

func sub(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

func (s *BotSuite) rows() []*model.Participation {
	rows, err := s.ledger.List(s.ctx, s.event.ID)
	s.Require().NoError(err)
	return rows
}

func (s *BotSuite) TestPostRecordsAnnouncement() {
	s.Require().NoError(s.bot.Post(s.ctx, s.event.ID, "chan-1"))

	s.Require().Len(s.session.sent, 1)
	s.Equal("Heroic Night", s.session.sent[0].Embeds[0].Title)

	got, err := s.events.Get(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Equal(model.AnnouncementRef{ChannelID: "chan-1", MessageID: "msg-1"}, got.Announcement)
}

func (s *BotSuite) TestConfirmButtonSignsUpAndEditsAnnouncement() {
	s.Require().NoError(s.bot.Post(s.ctx, s.event.ID, "chan-1"))

	s.press(member("1001", "🚀Frostbite"), signupButtonID(model.StatusConfirmed, s.event.ID))

	s.Require().Len(s.session.responses, 1)
	s.Equal(discordgo.InteractionResponseDeferredChannelMessageWithSource, s.session.responses[0].Type)
	s.Contains(s.session.lastReply(), "Frostbite-Azshara is now **Confirmed**")

	rows := s.rows()
	s.Require().Len(rows, 1)
	s.Equal(model.StatusConfirmed, rows[0].Status)

	s.Require().Len(s.session.edited, 1)
	s.Equal("msg-1", s.session.edited[0].ID)
	s.Contains((*s.session.edited[0].Embeds)[0].Footer.Text, "1/20 confirmed")
}

func (s *BotSuite) TestTentativeButtonOpensMemoModal() {
	s.press(member("1001", "Frostbite"), signupButtonID(model.StatusTentative, s.event.ID))

	s.Require().Len(s.session.responses, 1)
	resp := s.session.responses[0]
	s.Equal(discordgo.InteractionResponseModal, resp.Type)
	s.Equal(memoModalID(model.StatusTentative, s.event.ID), resp.Data.CustomID)
	s.Empty(s.rows())
}

func (s *BotSuite) TestMemoModalStoresMemo() {
	s.submit(member("1001", "Frostbite"), memoModalID(model.StatusTentative, s.event.ID), map[string]string{inputMemo: " late by 30m "})

	rows := s.rows()
	s.Require().Len(rows, 1)
	s.Equal(model.StatusTentative, rows[0].Status)
	s.Equal("late by 30m", rows[0].Memo)
}

func (s *BotSuite) TestCharacterModalConfirmsAndRenamesMember() {
	s.lookup.AddProfile(&model.CharacterProfile{Name: "Icyveins", Server: "Hyjal", Class: "Priest", Spec: "Holy"})

	s.submit(member("1001", "Frostbite"), characterModalID(s.event.ID), map[string]string{
		inputName:   "Icyveins",
		inputServer: "하이잘",
	})

	rows := s.rows()
	s.Require().Len(rows, 1)
	s.Equal(model.StatusConfirmed, rows[0].Status)
	s.Equal("Icyveins", rows[0].Character.Name)
	s.Equal(model.RoleHealer, rows[0].DetailedRole)

	s.Require().Len(s.session.nicknames, 1)
	s.Equal(nickname{"guild-1", "1001", "Icyveins"}, s.session.nicknames[0])
}

func (s *BotSuite) TestUnknownCharacterShowsHelp() {
	s.press(member("1001", "Nobody"), signupButtonID(model.StatusConfirmed, s.event.ID))

	s.Contains(s.session.lastReply(), "Character not found")
	s.Empty(s.rows())
}

func (s *BotSuite) TestAnnouncementEditFailureStillConfirmsSignUp() {
	s.Require().NoError(s.bot.Post(s.ctx, s.event.ID, "chan-1"))
	s.session.editErr = errors.New("discord unavailable")

	s.press(member("1001", "Frostbite"), signupButtonID(model.StatusConfirmed, s.event.ID))

	s.Contains(s.session.lastReply(), "is now **Confirmed**")
	s.Len(s.rows(), 1)
}

func (s *BotSuite) TestRosterCommandRequiresAdmin() {
	s.command(member("1001", "Frostbite"), CommandRoster, sub(subcommandLog, integer("event", int64(s.event.ID))))

	s.Equal("Only raid administrators can do that.", s.session.lastReply())
}

func (s *BotSuite) TestRosterAddSeatsAndLogs() {
	s.lookup.AddProfile(&model.CharacterProfile{Name: "Stoneguard", Server: "Azshara", Class: "Warrior", Spec: "Protection"})
	officer := member("2001", "Officer", "role-admin")

	s.command(officer, CommandRoster, sub(subcommandAdd,
		integer("event", int64(s.event.ID)), str("name", "Stoneguard"), str("server", "아즈샤라"), str("memo", "main tank"),
	))
	s.Contains(s.session.lastReply(), "Stoneguard-Azshara seated")

	rows := s.rows()
	s.Require().Len(rows, 1)
	s.Equal("*main tank*", rows[0].Memo)

	s.command(officer, CommandRoster, sub(subcommandLog, integer("event", int64(s.event.ID))))
	s.Contains(s.session.lastReply(), string(model.ActionAdminAdded))
	s.Contains(s.session.lastReply(), "admin:Officer")
}

func (s *BotSuite) TestRosterStatusAndRemove() {
	s.press(member("1001", "Frostbite"), signupButtonID(model.StatusConfirmed, s.event.ID))
	officer := &discordgo.Member{
		User:        &discordgo.User{ID: "2001", Username: "officer", GlobalName: "Officer"},
		Permissions: discordgo.PermissionAdministrator,
	}

	s.command(officer, CommandRoster, sub(subcommandStatus,
		integer("event", int64(s.event.ID)), str("name", "Frostbite"), str("server", "Azshara"), str("status", "declined"),
	))
	s.Contains(s.session.lastReply(), "is now **Declined**")
	s.Equal(model.StatusDeclined, s.rows()[0].Status)

	s.command(officer, CommandRoster, sub(subcommandRemove,
		integer("event", int64(s.event.ID)), str("name", "Frostbite"), str("server", "Azshara"),
	))
	s.Contains(s.session.lastReply(), "removed from raid")
	s.Empty(s.rows())
}

func (s *BotSuite) TestEventCreatePostsAnnouncement() {
	s.command(member("2001", "Officer", "role-admin"), CommandEventCreate, str("template", "heroic"), str("date", "2024-01-10"))

	s.Contains(s.session.lastReply(), "announced")
	s.Require().Len(s.session.sent, 1)

	upcoming, err := s.events.ListUpcoming(s.ctx)
	s.Require().NoError(err)
	s.Len(upcoming, 2)
}

func (s *BotSuite) TestEventCreateRejectsBadDate() {
	s.command(member("2001", "Officer", "role-admin"), CommandEventCreate, str("template", "heroic"), str("date", "next week"))

	s.Equal(userMessage(model.ErrInvalidDate), s.session.lastReply())
	s.Empty(s.session.sent)
}

func (s *BotSuite) TestScheduleListsUpcoming() {
	s.command(member("1001", "Frostbite"), CommandSchedule)

	s.Contains(s.session.lastReply(), "Heroic Night")
}

func (s *BotSuite) TestGuildStatsRendersEmbed() {
	_, err := s.storage.UpsertCharacter(s.ctx, &model.Character{
		Name: "Stoneguard", Server: "Hyjal", Class: "Warrior", Spec: "Protection", IsGuildMember: true, AchievementPoints: 9000,
	})
	s.Require().NoError(err)

	s.command(member("1001", "Frostbite"), CommandGuildStats)

	embed := s.session.lastEmbed()
	s.Require().NotNil(embed)
	s.Equal("Guild statistics", embed.Title)
	s.Equal("2 guild characters on record", embed.Description)
	s.Require().NotEmpty(embed.Fields)
	s.Equal("Top classes", embed.Fields[0].Name)
	s.Contains(embed.Fields[0].Value, "Mage (1)")
	s.Contains(embed.Fields[3].Value, "Stoneguard-Hyjal (9000)")
}

func (s *BotSuite) TestWhoAmI() {
	s.command(member("1001", "Frostbite"), CommandWhoAmI)
	s.Equal(userMessage(model.ErrNoVerifiedCharacter), s.session.lastReply())

	s.press(member("1001", "Frostbite"), signupButtonID(model.StatusConfirmed, s.event.ID))
	s.command(member("1001", "Frostbite"), CommandWhoAmI)
	s.Contains(s.session.lastReply(), "Frostbite-Azshara")
}

func (s *BotSuite) TestLookupAmbiguousListsServers() {
	s.lookup.AddProfile(&model.CharacterProfile{Name: "Twin", Server: "Azshara", Class: "Rogue", Spec: "Subtlety"})
	s.lookup.AddProfile(&model.CharacterProfile{Name: "Twin", Server: "Hyjal", Class: "Rogue", Spec: "Outlaw"})

	s.command(member("1001", "Frostbite"), CommandLookup, str("name", "Twin"))

	s.Contains(s.session.lastReply(), "Azshara")
	s.Contains(s.session.lastReply(), "Hyjal")
}

func (s *BotSuite) TestAutocompleteSuggestsServers() {
	focused := str("server", "storm")
	focused.Focused = true
	s.bot.HandleInteraction(s.ctx, &discordgo.Interaction{
		Type:   discordgo.InteractionApplicationCommandAutocomplete,
		Member: member("1001", "Frostbite"),
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    CommandLookup,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{str("name", "x"), focused},
		},
	})

	s.Require().Len(s.session.responses, 1)
	choices := s.session.responses[0].Data.Choices
	s.Require().Len(choices, 1)
	s.Equal("스톰레이지 (Stormrage)", choices[0].Name)
}

func (s *BotSuite) TestDirectMessageIsRejected() {
	s.bot.HandleInteraction(s.ctx, &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		User: &discordgo.User{ID: "1001"},
		Data: discordgo.MessageComponentInteractionData{CustomID: signupButtonID(model.StatusConfirmed, s.event.ID)},
	})

	s.Require().Len(s.session.responses, 1)
	s.Equal("Use this in the guild server.", s.session.responses[0].Data.Content)
	s.Empty(s.rows())
}
