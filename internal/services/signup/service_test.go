package signup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/guildbot/internal/dependencies/mocks"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/audit"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/ledger"
	"github.com/mcoot/guildbot/internal/services/linker"
	"github.com/mcoot/guildbot/internal/services/placeholder"
	"github.com/mcoot/guildbot/internal/storage/memory"
	"github.com/mcoot/guildbot/internal/testutil"
)

type recordingAnnouncer struct {
	refreshed []model.EventID
	err       error
}

func (a *recordingAnnouncer) RefreshAnnouncement(_ context.Context, eventID model.EventID) error {
	a.refreshed = append(a.refreshed, eventID)
	return a.err
}

type ServiceSuite struct {
	suite.Suite
	storage     *memory.Storage
	clock       *mocks.MockClock
	lookup      *mocks.MockLookup
	ledger      *ledger.Service
	linker      *linker.Service
	placeholder *placeholder.Service
	audit       *audit.Service
	announcer   *recordingAnnouncer
	service     *Service
	ctx         context.Context
	event       *model.EventInstance
	frostbite   *model.Character
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.lookup = mocks.NewMockLookup()
	s.ctx = context.Background()
	logger := testutil.NopLogger()

	s.ledger = ledger.New(s.storage, s.clock, logger)
	s.linker = linker.New(s.storage, s.clock, logger)
	s.placeholder = placeholder.New(s.storage, mocks.NewMockIDs(), s.clock, logger)
	s.audit = audit.New(s.storage, s.clock, logger)
	s.service = New(
		s.storage,
		directory.New(s.storage, s.lookup, s.clock, logger),
		s.linker,
		s.ledger,
		s.placeholder,
		s.audit,
		logger,
	)
	s.announcer = &recordingAnnouncer{}
	s.service.SetAnnouncer(s.announcer)

	s.event = s.createEvent(model.EventStatusUpcoming)
	s.frostbite = s.guildCharacter("Frostbite", "Azshara", "Mage", "Frost")
}

func (s *ServiceSuite) createEvent(status model.EventStatus) *model.EventInstance {
	tmpl, err := s.storage.SaveEventTemplate(s.ctx, &model.EventTemplate{
		Name: "heroic", Title: "Heroic", StartTime: "21:00", DurationMinutes: 180, Active: true,
	})
	s.Require().NoError(err)
	e, err := s.storage.CreateEventInstance(s.ctx, &model.EventInstance{
		TemplateID: tmpl.ID, StartsAt: s.clock.Now().Add(48 * time.Hour), Status: status,
	})
	s.Require().NoError(err)
	return e
}

func (s *ServiceSuite) guildCharacter(name, server, class, spec string) *model.Character {
	c, err := s.storage.UpsertCharacter(s.ctx, &model.Character{
		Name: name, Server: server, Class: class, Spec: spec, SpecRole: "DPS", IsGuildMember: true,
	})
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) signUp(platformID, displayName string, status model.Status, memo string) *Result {
	res, err := s.service.SignUp(s.ctx, Request{
		Actor:   Actor{PlatformID: platformID, Username: "user" + platformID, DisplayName: displayName},
		EventID: s.event.ID,
		Status:  status,
		Memo:    memo,
	})
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) rows() []*model.Participation {
	rows, err := s.ledger.List(s.ctx, s.event.ID)
	s.Require().NoError(err)
	return rows
}

// Primary flow

func (s *ServiceSuite) TestFirstSignUpJoins() {
	res := s.signUp("1001", "Frostbite", model.StatusConfirmed, "")

	s.Equal(directory.OutcomeResolved, res.Resolution.Outcome)
	s.Equal(model.ActionJoined, res.Action)
	s.Nil(res.Previous)
	s.Equal(model.RoleRangedDPS, res.Role)
	s.Equal(s.frostbite.ID, res.Row.CharacterID)
	s.Equal(model.StatusConfirmed, res.Row.Status)
	s.Empty(s.lookup.Calls(), "guild characters resolve locally")
}

func (s *ServiceSuite) TestConfirmedThenDeclinedLogsBothInOrder() {
	s.signUp("1001", "Frostbite", model.StatusConfirmed, "")
	s.clock.Advance(time.Minute)
	res := s.signUp("1001", "Frostbite", model.StatusDeclined, "dentist")

	s.Equal(model.ActionChangedTo(model.StatusDeclined), res.Action)
	s.Require().NotNil(res.Previous)
	s.Equal(model.StatusConfirmed, res.Previous.Status)

	rows := s.rows()
	s.Require().Len(rows, 1)
	s.Equal(model.StatusDeclined, rows[0].Status)
	s.Equal("dentist", rows[0].Memo)

	logs, err := s.audit.Recent(s.ctx, s.event.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(logs, 2)
	s.Equal(model.ActionChangedTo(model.StatusDeclined), logs[0].Action)
	s.Equal(model.StatusConfirmed, logs[0].OldStatus)
	s.Equal(model.StatusDeclined, logs[0].NewStatus)
	s.Equal("dentist", logs[0].Memo)
	s.Equal("Frostbite", logs[0].OldCharacter.Name)
	s.Equal(model.RoleRangedDPS, logs[0].OldDetailedRole)
	s.False(logs[0].CharacterChanged())
	s.Equal(model.ActionJoined, logs[1].Action)
	s.Empty(logs[1].OldStatus)
	s.Equal("Frostbite", logs[1].ActorDisplayName)
}

func (s *ServiceSuite) TestRepeatedSignUpKeepsOneRow() {
	s.signUp("1001", "Frostbite", model.StatusConfirmed, "")
	s.signUp("1001", "Frostbite", model.StatusConfirmed, "")

	s.Len(s.rows(), 1)
}

func (s *ServiceSuite) TestConfirmClearsMemo() {
	s.signUp("1001", "Frostbite", model.StatusTentative, "might be late")
	res := s.signUp("1001", "Frostbite", model.StatusConfirmed, "ignored")

	s.Empty(res.Row.Memo)
}

func (s *ServiceSuite) TestSignUpBindsVerifiedCharacter() {
	s.signUp("1001", "Frostbite", model.StatusConfirmed, "")

	verified, err := s.linker.VerifiedByPlatformID(s.ctx, "1001")
	s.Require().NoError(err)
	s.Equal(s.frostbite.ID, verified.ID)
}

func (s *ServiceSuite) TestRemoteResolutionStoresCharacter() {
	s.lookup.AddProfile(&model.CharacterProfile{Name: "Emberlyn", Server: "Azshara", Class: "Evoker", Spec: "Preservation"})

	res := s.signUp("1001", "Emberlyn", model.StatusConfirmed, "")
	s.Equal(model.RoleHealer, res.Role)

	stored, err := s.storage.GetCharacterByNameServer(s.ctx, "Emberlyn", "Azshara")
	s.Require().NoError(err)
	s.Equal(stored.ID, res.Row.CharacterID)
	s.False(stored.IsGuildMember)
}

// Explicit character change

func (s *ServiceSuite) TestExplicitCharacterWithoutPreviousRow() {
	s.lookup.AddProfile(&model.CharacterProfile{Name: "Frostbite", Server: "Azshara", Class: "Mage", Spec: "Frost"})

	res, err := s.service.SignUp(s.ctx, Request{
		Actor:     Actor{PlatformID: "1001", DisplayName: "Someone"},
		EventID:   s.event.ID,
		Status:    model.StatusDeclined,
		Character: &CharacterRef{Name: "Frostbite", Server: "아즈샤라"},
	})
	s.Require().NoError(err)
	s.Equal(model.ActionCharacterChangedAndJoined, res.Action)
	s.Equal(model.StatusConfirmed, res.Row.Status, "explicit character always confirms")
	s.Equal(s.frostbite.ID, res.Row.CharacterID)
}

func (s *ServiceSuite) TestExplicitCharacterChangeRebindsAndLogsOldCharacter() {
	s.signUp("1001", "Frostbite", model.StatusTentative, "maybe")
	s.lookup.AddProfile(&model.CharacterProfile{Name: "Icyveins", Server: "Hyjal", Class: "Priest", Spec: "Holy"})

	res, err := s.service.SignUp(s.ctx, Request{
		Actor:     Actor{PlatformID: "1001", DisplayName: "Frostbite"},
		EventID:   s.event.ID,
		Character: &CharacterRef{Name: "Icyveins", Server: "Hyjal"},
	})
	s.Require().NoError(err)
	s.Equal(model.ActionCharacterChangedFrom(model.StatusTentative), res.Action)
	s.Equal(model.RoleHealer, res.Role)
	s.Empty(res.Row.Memo)
	s.Len(s.rows(), 1)

	logs, err := s.audit.Recent(s.ctx, s.event.ID, 1)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal("Frostbite", logs[0].OldCharacter.Name)
	s.Equal("Icyveins", logs[0].Character.Name)
	s.Equal(model.RoleRangedDPS, logs[0].OldDetailedRole)

	verified, err := s.linker.VerifiedByPlatformID(s.ctx, "1001")
	s.Require().NoError(err)
	s.Equal("Icyveins", verified.Name)
}

// Placeholder reconciliation

func (s *ServiceSuite) TestSignUpClaimsPlaceholderRow() {
	seated, err := s.placeholder.Seat(s.ctx, s.event.ID, s.frostbite, "*added manually by an administrator*")
	s.Require().NoError(err)

	res := s.signUp("1001", "Frostbite", model.StatusTentative, "late")
	s.Equal(model.ActionPlaceholderClaimed, res.Action)
	s.Equal(seated.Row.ID, res.Row.ID)
	s.Equal(model.StatusTentative, res.Row.Status)
	s.Equal("late", res.Row.Memo)

	user, err := s.storage.GetPlatformUserByPlatformID(s.ctx, "1001")
	s.Require().NoError(err)
	rows, err := s.ledger.ForCharacter(s.ctx, s.event.ID, s.frostbite.ID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(user.ID, rows[0].UserID)

	logs, err := s.audit.Recent(s.ctx, s.event.ID, 1)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(model.ActionPlaceholderClaimed, logs[0].Action)
	s.Equal(model.StatusConfirmed, logs[0].OldStatus)
}

func (s *ServiceSuite) TestPlaceholderMergesIntoExistingRow() {
	s.guildCharacter("Icyveins", "Hyjal", "Priest", "Holy")
	s.signUp("1001", "Icyveins", model.StatusConfirmed, "")
	_, err := s.placeholder.Seat(s.ctx, s.event.ID, s.frostbite, "*added manually by an administrator*")
	s.Require().NoError(err)

	res := s.signUp("1001", "Frostbite", model.StatusConfirmed, "")
	s.Equal(model.ActionPlaceholderMerged, res.Action)
	s.Equal(s.frostbite.ID, res.Row.CharacterID)

	rows := s.rows()
	s.Require().Len(rows, 1)
	s.Equal(s.frostbite.ID, rows[0].CharacterID)
}

func (s *ServiceSuite) TestCharacterSeatedByAnotherMemberIsRejected() {
	s.signUp("1001", "Frostbite", model.StatusConfirmed, "")

	_, err := s.service.SignUp(s.ctx, Request{
		Actor:   Actor{PlatformID: "1002", DisplayName: "Frostbite"},
		EventID: s.event.ID,
		Status:  model.StatusConfirmed,
	})
	s.ErrorIs(err, model.ErrCharacterTaken)
	s.Len(s.rows(), 1)

	_, err = s.storage.GetPlatformUserByPlatformID(s.ctx, "1002")
	s.ErrorIs(err, model.ErrUserNotFound, "transaction rolled back")
}

// Resolution failures

func (s *ServiceSuite) TestUnknownCharacterIsNotFound() {
	res, err := s.service.SignUp(s.ctx, Request{
		Actor:   Actor{PlatformID: "1001", DisplayName: "Nobody"},
		EventID: s.event.ID,
		Status:  model.StatusConfirmed,
	})
	s.ErrorIs(err, model.ErrCharacterNotFound)
	s.Require().NotNil(res)
	s.Equal(directory.OutcomeNotFound, res.Resolution.Outcome)
	s.Empty(s.rows())
	s.Empty(s.announcer.refreshed)
}

func (s *ServiceSuite) TestAmbiguousNameCarriesServers() {
	s.guildCharacter("Frostbite", "Hyjal", "Mage", "Fire")

	res, err := s.service.SignUp(s.ctx, Request{
		Actor:   Actor{PlatformID: "1001", DisplayName: "Frostbite"},
		EventID: s.event.ID,
		Status:  model.StatusConfirmed,
	})
	var ambiguous *model.AmbiguousCharacterError
	s.Require().True(errors.As(err, &ambiguous))
	s.ElementsMatch([]string{"Azshara", "Hyjal"}, ambiguous.Servers)
	s.Equal(directory.OutcomeAmbiguous, res.Resolution.Outcome)
	s.Empty(s.rows())
}

// Validation

func (s *ServiceSuite) TestClosedEventIsRejected() {
	s.event = s.createEvent(model.EventStatusCancelled)

	_, err := s.service.SignUp(s.ctx, Request{
		Actor:   Actor{PlatformID: "1001", DisplayName: "Frostbite"},
		EventID: s.event.ID,
		Status:  model.StatusConfirmed,
	})
	s.ErrorIs(err, model.ErrEventClosed)
}

func (s *ServiceSuite) TestUnknownEvent() {
	_, err := s.service.SignUp(s.ctx, Request{
		Actor:   Actor{PlatformID: "1001", DisplayName: "Frostbite"},
		EventID: 999,
		Status:  model.StatusConfirmed,
	})
	s.ErrorIs(err, model.ErrEventNotFound)
}

func (s *ServiceSuite) TestInvalidStatus() {
	_, err := s.service.SignUp(s.ctx, Request{
		Actor:   Actor{PlatformID: "1001", DisplayName: "Frostbite"},
		EventID: s.event.ID,
		Status:  model.Status("maybe"),
	})
	s.ErrorIs(err, model.ErrInvalidStatus)
}

// Announcement refresh

func (s *ServiceSuite) TestAnnouncementRefreshedAfterSignUp() {
	s.signUp("1001", "Frostbite", model.StatusConfirmed, "")

	s.Equal([]model.EventID{s.event.ID}, s.announcer.refreshed)
}

func (s *ServiceSuite) TestAnnouncementFailureDoesNotFailSignUp() {
	s.announcer.err = errors.New("discord unavailable")

	res := s.signUp("1001", "Frostbite", model.StatusConfirmed, "")
	s.Equal(model.ActionJoined, res.Action)
	s.Len(s.rows(), 1)
}
