package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/guildbot/internal/dependencies/mocks"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/audit"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/ledger"
	"github.com/mcoot/guildbot/internal/services/placeholder"
	"github.com/mcoot/guildbot/internal/storage/memory"
	"github.com/mcoot/guildbot/internal/testutil"
)

type countingAnnouncer struct {
	calls int
}

func (a *countingAnnouncer) RefreshAnnouncement(context.Context, model.EventID) error {
	a.calls++
	return nil
}

type ServiceSuite struct {
	suite.Suite
	storage   *memory.Storage
	clock     *mocks.MockClock
	lookup    *mocks.MockLookup
	ledger    *ledger.Service
	audit     *audit.Service
	announcer *countingAnnouncer
	service   *Service
	ctx       context.Context
	event     *model.EventInstance
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
	s.audit = audit.New(s.storage, s.clock, logger)
	s.service = New(
		s.storage,
		directory.New(s.storage, s.lookup, s.clock, logger),
		s.ledger,
		placeholder.New(s.storage, mocks.NewMockIDs(), s.clock, logger),
		s.audit,
		logger,
	)
	s.announcer = &countingAnnouncer{}
	s.service.SetAnnouncer(s.announcer)

	tmpl, err := s.storage.SaveEventTemplate(s.ctx, &model.EventTemplate{Name: "heroic", StartTime: "21:00", Active: true})
	s.Require().NoError(err)
	s.event, err = s.storage.CreateEventInstance(s.ctx, &model.EventInstance{
		TemplateID: tmpl.ID, StartsAt: s.clock.Now().Add(24 * time.Hour), Status: model.EventStatusUpcoming,
	})
	s.Require().NoError(err)

	s.lookup.AddProfile(&model.CharacterProfile{Name: "Frostbite", Server: "Azshara", Class: "Mage", Spec: "Frost"})
}

func (s *ServiceSuite) seat(memo string) *placeholder.SeatResult {
	res, err := s.service.Seat(s.ctx, s.event.ID, "Frostbite", "Azshara", memo, "Officer")
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) latestLog() *model.ParticipationLogEntry {
	logs, err := s.service.Logs(s.ctx, s.event.ID, 1)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	return logs[0]
}

func (s *ServiceSuite) TestSeatMemo() {
	s.Equal(DefaultSeatMemo, SeatMemo("  "))
	s.Equal("*bringing flasks*", SeatMemo("bringing flasks"))
}

func (s *ServiceSuite) TestSeatAddsPlaceholderAndLogs() {
	res := s.seat("")
	s.False(res.Updated)
	s.Equal(DefaultSeatMemo, res.Row.Memo)
	s.Equal(model.StatusConfirmed, res.Row.Status)

	entry := s.latestLog()
	s.Equal(model.ActionAdminAdded, entry.Action)
	s.Equal("admin:Officer", entry.ActorDisplayName)
	s.Equal(DefaultSeatMemo, entry.Memo)
	s.Equal(1, s.announcer.calls)
}

func (s *ServiceSuite) TestSeatWithoutAnnouncer() {
	s.service.SetAnnouncer(nil)

	res := s.seat("")
	s.Equal(model.StatusConfirmed, res.Row.Status)
	s.Zero(s.announcer.calls)

	_, err := s.service.Remove(s.ctx, s.event.ID, res.Row.CharacterID, "Officer")
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestSeatAgainUpdatesPlaceholder() {
	s.seat("")
	res := s.seat("late")

	s.True(res.Updated)
	s.Equal("*late*", res.Row.Memo)
	s.Equal(model.ActionAdminUpdatedPlaceholder, s.latestLog().Action)

	rows, err := s.ledger.List(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *ServiceSuite) TestSeatUnknownCharacter() {
	_, err := s.service.Seat(s.ctx, s.event.ID, "Nobody", "Azshara", "", "Officer")
	s.ErrorIs(err, model.ErrCharacterNotFound)
}

func (s *ServiceSuite) TestSeatUnknownEvent() {
	_, err := s.service.Seat(s.ctx, 404, "Frostbite", "Azshara", "", "Officer")
	s.ErrorIs(err, model.ErrEventNotFound)
}

func (s *ServiceSuite) TestChangeStatusKeepsRowMemo() {
	seated := s.seat("late")

	row, err := s.service.ChangeStatus(s.ctx, s.event.ID, seated.Row.CharacterID, model.StatusTentative, "Officer")
	s.Require().NoError(err)
	s.Equal(model.StatusTentative, row.Status)

	stored, err := s.ledger.Get(s.ctx, s.event.ID, seated.Row.UserID)
	s.Require().NoError(err)
	s.Equal(model.StatusTentative, stored.Status)
	s.Equal("*late*", stored.Memo)

	entry := s.latestLog()
	s.Equal(model.ActionAdminChangedTo(model.StatusTentative), entry.Action)
	s.Equal(model.StatusConfirmed, entry.OldStatus)
	s.Equal(model.StatusTentative, entry.NewStatus)
	s.Equal("*admin changed confirmed to tentative*", entry.Memo)
}

func (s *ServiceSuite) TestChangeStatusWithoutRow() {
	c, err := s.storage.UpsertCharacter(s.ctx, &model.Character{Name: "Icyveins", Server: "Hyjal"})
	s.Require().NoError(err)

	_, err = s.service.ChangeStatus(s.ctx, s.event.ID, c.ID, model.StatusDeclined, "Officer")
	s.ErrorIs(err, model.ErrParticipationNotFound)
}

func (s *ServiceSuite) TestChangeStatusRejectsInvalidStatus() {
	seated := s.seat("")

	_, err := s.service.ChangeStatus(s.ctx, s.event.ID, seated.Row.CharacterID, model.Status("late"), "Officer")
	s.ErrorIs(err, model.ErrInvalidStatus)
}

func (s *ServiceSuite) TestRemoveDeletesRowAndLogs() {
	seated := s.seat("")

	_, err := s.service.Remove(s.ctx, s.event.ID, seated.Row.CharacterID, "Officer")
	s.Require().NoError(err)

	rows, err := s.ledger.List(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Empty(rows)

	entry := s.latestLog()
	s.Equal(model.ActionAdminRemoved, entry.Action)
	s.Equal(model.StatusConfirmed, entry.OldStatus)
	s.Empty(entry.NewStatus)
	s.Equal(RemovedMemo, entry.Memo)
}

func (s *ServiceSuite) TestFindCharacterTranslatesServer() {
	seated := s.seat("")

	c, err := s.service.FindCharacter(s.ctx, "Frostbite", "아즈샤라")
	s.Require().NoError(err)
	s.Equal(seated.Row.CharacterID, c.ID)
}

func (s *ServiceSuite) TestLogsUnknownEvent() {
	_, err := s.service.Logs(s.ctx, 404, 10)
	s.ErrorIs(err, model.ErrEventNotFound)
}
