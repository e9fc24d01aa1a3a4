package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/guildbot/internal/dependencies/mocks"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/auth"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/events"
	"github.com/mcoot/guildbot/internal/storage/memory"
	"github.com/mcoot/guildbot/internal/testutil"
)

type recordingAnnouncer struct {
	refreshed []model.EventID
}

func (a *recordingAnnouncer) RefreshAnnouncement(_ context.Context, id model.EventID) error {
	a.refreshed = append(a.refreshed, id)
	return nil
}

type SchedulerSuite struct {
	suite.Suite
	storage   *memory.Storage
	clock     *mocks.MockClock
	lookup    *mocks.MockLookup
	events    *events.Service
	auth      *auth.Service
	scheduler *Scheduler
	ctx       context.Context
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.lookup = mocks.NewMockLookup()
	s.ctx = context.Background()
	logger := testutil.NopLogger()

	s.events = events.New(s.storage, s.clock, time.UTC, logger)
	s.auth = auth.New(s.clock, auth.DefaultConfig())

	var err error
	s.scheduler, err = New(
		DefaultConfig(),
		directory.New(s.storage, s.lookup, s.clock, logger),
		s.events,
		s.auth,
		logger,
	)
	s.Require().NoError(err)
}

func (s *SchedulerSuite) TearDownTest() {
	s.NoError(s.scheduler.Shutdown())
}

func (s *SchedulerSuite) TestRegistersJobs() {
	s.ElementsMatch([]string{"refresh-characters", "complete-events", "clean-sessions"}, s.scheduler.JobNames())
}

func (s *SchedulerSuite) TestZeroIntervalSkipsJob() {
	cfg := DefaultConfig()
	cfg.CleanupInterval = 0
	sched, err := New(cfg, nil, s.events, s.auth, testutil.NopLogger())
	s.Require().NoError(err)
	defer func() { s.NoError(sched.Shutdown()) }()

	s.NotContains(sched.JobNames(), "clean-sessions")
}

func (s *SchedulerSuite) TestRefreshCharactersUpdatesStaleGuildMembers() {
	_, err := s.storage.UpsertCharacter(s.ctx, &model.Character{
		Name: "Frostbite", Server: "Azshara", Spec: "Frost", IsGuildMember: true,
		LastRefreshedAt: s.clock.Now().Add(-48 * time.Hour),
	})
	s.Require().NoError(err)
	s.lookup.AddProfile(&model.CharacterProfile{Name: "Frostbite", Server: "Azshara", Class: "Mage", Spec: "Fire"})

	s.Require().NoError(s.scheduler.RefreshCharacters(s.ctx))

	c, err := s.storage.GetCharacterByNameServer(s.ctx, "Frostbite", "Azshara")
	s.Require().NoError(err)
	s.Equal("Fire", c.Spec)
	s.True(c.IsGuildMember)
}

func (s *SchedulerSuite) TestCompleteEventsRefreshesAnnouncements() {
	announcer := &recordingAnnouncer{}
	s.scheduler.SetAnnouncer(announcer)

	_, err := s.events.SaveTemplate(s.ctx, &model.EventTemplate{Title: "Heroic", StartTime: "20:00", DayOfWeek: time.Monday, Active: true})
	s.Require().NoError(err)
	announced, err := s.events.CreateInstance(s.ctx, "heroic", "2024-01-01")
	s.Require().NoError(err)
	s.Require().NoError(s.events.SetAnnouncement(s.ctx, announced.ID, model.AnnouncementRef{ChannelID: "c", MessageID: "m"}))
	_, err = s.events.CreateInstance(s.ctx, "heroic", "2023-12-25")
	s.Require().NoError(err)

	s.clock.Set(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(s.scheduler.CompleteEvents(s.ctx))

	s.Equal([]model.EventID{announced.ID}, announcer.refreshed)
	upcoming, err := s.events.ListUpcoming(s.ctx)
	s.Require().NoError(err)
	s.Empty(upcoming)
}

func (s *SchedulerSuite) TestCleanSessions() {
	hash, err := auth.HashToken("t")
	s.Require().NoError(err)
	s.scheduler.auth = auth.New(s.clock, auth.Config{TokenHash: hash})
	_, err = s.scheduler.auth.Authenticate("t")
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Hour)
	s.NoError(s.scheduler.CleanSessions(s.ctx))
	s.Equal(0, s.scheduler.auth.CleanExpiredSessions())
}
