package placeholder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/guildbot/internal/dependencies/mocks"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage/memory"
	"github.com/mcoot/guildbot/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	ids     *mocks.MockIDs
	service *Service
	ctx     context.Context
	event   *model.EventInstance
	char    *model.Character
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ids = mocks.NewMockIDs()
	s.service = New(s.storage, s.ids, s.clock, testutil.NopLogger())
	s.ctx = context.Background()

	tmpl, err := s.storage.SaveEventTemplate(s.ctx, &model.EventTemplate{Name: "heroic", StartTime: "21:00", Active: true})
	s.Require().NoError(err)
	s.event, err = s.storage.CreateEventInstance(s.ctx, &model.EventInstance{
		TemplateID: tmpl.ID, StartsAt: s.clock.Now().Add(24 * time.Hour), Status: model.EventStatusUpcoming,
	})
	s.Require().NoError(err)
	s.char, err = s.storage.UpsertCharacter(s.ctx, &model.Character{
		Name: "Frostbite", Server: "Azshara", Class: "Mage", Spec: "Frost", SpecRole: "DPS",
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) realUser(platformID string) *model.PlatformUser {
	u, err := s.storage.UpsertPlatformUser(s.ctx, &model.PlatformUser{PlatformID: platformID})
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) seat(memo string) *SeatResult {
	res, err := s.service.Seat(s.ctx, s.event.ID, s.char, memo)
	s.Require().NoError(err)
	return res
}

// Seat tests

func (s *ServiceSuite) TestSeatCreatesPlaceholderRow() {
	s.ids.QueuePlaceholder(model.PlaceholderPlatformPrefix + "fixed")

	res := s.seat("*added manually*")
	s.False(res.Updated)
	s.Equal(model.StatusConfirmed, res.Row.Status)
	s.Equal(model.RoleRangedDPS, res.Row.DetailedRole)
	s.Equal("*added manually*", res.Row.Memo)

	owner, err := s.storage.GetPlatformUser(s.ctx, res.Row.UserID)
	s.Require().NoError(err)
	s.True(owner.IsPlaceholder)
	s.Equal(model.PlaceholderPlatformPrefix+"fixed", owner.PlatformID)
}

func (s *ServiceSuite) TestSeatTwiceOnlyUpdatesMemo() {
	first := s.seat("*first*")
	second := s.seat("*second*")

	s.True(second.Updated)
	s.Equal(first.Row.ID, second.Row.ID)
	s.Equal("*second*", second.Row.Memo)

	rows, err := s.storage.ListParticipations(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *ServiceSuite) TestSeatRefusesCharacterOfRealMember() {
	u := s.realUser("1001")
	_, _, err := s.storage.UpsertParticipation(s.ctx, &model.Participation{
		EventID: s.event.ID, CharacterID: s.char.ID, UserID: u.ID, Status: model.StatusConfirmed,
	})
	s.Require().NoError(err)

	_, err = s.service.Seat(s.ctx, s.event.ID, s.char, "*memo*")
	s.ErrorIs(err, model.ErrCharacterTaken)
}

// Reconcile tests

func (s *ServiceSuite) TestReconcileWithoutPlaceholder() {
	u := s.realUser("1001")

	rec, err := s.service.Reconcile(s.ctx, s.event.ID, s.char.ID, u.ID, model.StatusConfirmed, "")
	s.Require().NoError(err)
	s.Equal(OutcomeNone, rec.Outcome)
}

func (s *ServiceSuite) TestReconcileClaimsRowWithoutSecondRow() {
	seated := s.seat("*added manually*")
	u := s.realUser("1001")

	rec, err := s.service.Reconcile(s.ctx, s.event.ID, s.char.ID, u.ID, model.StatusTentative, "might be late")
	s.Require().NoError(err)
	s.Require().Equal(OutcomeClaimed, rec.Outcome)
	s.Equal(seated.Row.ID, rec.Row.ID)
	s.Equal(u.ID, rec.Row.UserID)
	s.Equal(model.StatusTentative, rec.Row.Status)
	s.Equal("might be late", rec.Row.Memo)
	s.Equal(seated.Row.Character, rec.Row.Character)
	s.Equal(seated.Row.DetailedRole, rec.Row.DetailedRole)
	s.Equal(seated.Row.UserID, rec.Placeholder.UserID)

	rows, err := s.storage.ListParticipationsByCharacter(s.ctx, s.event.ID, s.char.ID)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *ServiceSuite) TestReconcileConfirmedClearsMemo() {
	s.seat("*added manually*")
	u := s.realUser("1001")

	rec, err := s.service.Reconcile(s.ctx, s.event.ID, s.char.ID, u.ID, model.StatusConfirmed, "ignored")
	s.Require().NoError(err)
	s.Equal(OutcomeClaimed, rec.Outcome)
	s.Empty(rec.Row.Memo)
}

func (s *ServiceSuite) TestReconcileOnlyOneClaimWins() {
	s.seat("")
	first := s.realUser("1001")
	second := s.realUser("1002")

	rec, err := s.service.Reconcile(s.ctx, s.event.ID, s.char.ID, first.ID, model.StatusConfirmed, "")
	s.Require().NoError(err)
	s.Equal(OutcomeClaimed, rec.Outcome)

	rec, err = s.service.Reconcile(s.ctx, s.event.ID, s.char.ID, second.ID, model.StatusConfirmed, "")
	s.Require().NoError(err)
	s.Equal(OutcomeNone, rec.Outcome)
}

func (s *ServiceSuite) TestReconcileMergesIntoExistingRow() {
	seated := s.seat("")
	u := s.realUser("1001")
	other, err := s.storage.UpsertCharacter(s.ctx, &model.Character{Name: "Emberfall", Server: "Azshara"})
	s.Require().NoError(err)
	_, own, err := s.storage.UpsertParticipation(s.ctx, &model.Participation{
		EventID: s.event.ID, CharacterID: other.ID, UserID: u.ID, Status: model.StatusTentative,
	})
	s.Require().NoError(err)

	rec, err := s.service.Reconcile(s.ctx, s.event.ID, s.char.ID, u.ID, model.StatusConfirmed, "")
	s.Require().NoError(err)
	s.Equal(OutcomeMerged, rec.Outcome)
	s.Equal(seated.Row.ID, rec.Placeholder.ID)

	rows, err := s.storage.ListParticipations(s.ctx, s.event.ID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(own.ID, rows[0].ID)
}
