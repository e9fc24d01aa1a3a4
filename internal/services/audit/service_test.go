package audit

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
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) row() *model.Participation {
	return &model.Participation{
		EventID:      10,
		CharacterID:  3,
		UserID:       7,
		Status:       model.StatusDeclined,
		DetailedRole: model.RoleHealer,
		Character:    model.CharacterSnapshot{Name: "Lumen", Server: "Hyjal", Class: "Priest", Spec: "Holy"},
		Memo:         "work",
	}
}

func (s *ServiceSuite) TestEntryCopiesRow() {
	e := Entry(s.row(), model.ActionChangedTo(model.StatusDeclined), "Lumen")

	s.Equal(model.EventID(10), e.EventID)
	s.Equal(model.StatusDeclined, e.NewStatus)
	s.Equal("Lumen", e.Character.Name)
	s.Equal(model.RoleHealer, e.DetailedRole)
	s.Equal("work", e.Memo)
	s.Equal(model.Action("changed_to_declined"), e.Action)
}

func (s *ServiceSuite) TestAppendStampsTime() {
	saved, err := s.service.Append(s.ctx, Entry(s.row(), model.ActionJoined, "Lumen"))
	s.Require().NoError(err)
	s.NotZero(saved.ID)
	s.Equal(s.clock.Now(), saved.CreatedAt)
}

func (s *ServiceSuite) TestRecentIsNewestFirst() {
	for _, a := range []model.Action{model.ActionJoined, model.ActionChangedTo(model.StatusDeclined), model.ActionAdminRemoved} {
		_, err := s.service.Append(s.ctx, Entry(s.row(), a, "Lumen"))
		s.Require().NoError(err)
		s.clock.Advance(time.Second)
	}

	recent, err := s.service.Recent(s.ctx, 10, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(model.ActionAdminRemoved, recent[0].Action)
	s.Equal(model.ActionChangedTo(model.StatusDeclined), recent[1].Action)
}

func (s *ServiceSuite) TestRecentDefaultsAndCaps() {
	for i := 0; i < MaxRecent+5; i++ {
		_, err := s.service.Append(s.ctx, Entry(s.row(), model.ActionJoined, "Lumen"))
		s.Require().NoError(err)
	}

	recent, err := s.service.Recent(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Len(recent, DefaultRecent)

	recent, err = s.service.Recent(s.ctx, 10, 1000)
	s.Require().NoError(err)
	s.Len(recent, MaxRecent)
}

func (s *ServiceSuite) TestAdminActor() {
	s.Equal("admin:Raidlead", AdminActor("Raidlead"))
}
