// Package storagetest holds the behavioural suite every storage backend runs.
package storagetest

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

// Suite exercises the storage.Storage contract against a backend
type Suite struct {
	suite.Suite

	// NewStorage returns an empty store; called before each test
	NewStorage func() storage.Storage

	store storage.Storage
	ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.store = s.NewStorage()
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Store returns the store under test
func (s *Suite) Store() storage.Storage {
	return s.store
}

func (s *Suite) character(name, server string, guild bool) *model.Character {
	c, err := s.store.UpsertCharacter(s.ctx, &model.Character{
		Name:            name,
		Server:          server,
		Class:           "Mage",
		Spec:            "Frost",
		IsGuildMember:   guild,
		LastRefreshedAt: s.now,
		CreatedAt:       s.now,
		UpdatedAt:       s.now,
	})
	s.Require().NoError(err)
	return c
}

func (s *Suite) user(platformID string, placeholder bool) *model.PlatformUser {
	u, err := s.store.UpsertPlatformUser(s.ctx, &model.PlatformUser{
		PlatformID:    platformID,
		Username:      platformID,
		DisplayName:   platformID,
		IsPlaceholder: placeholder,
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
	})
	s.Require().NoError(err)
	return u
}

func (s *Suite) event() *model.EventInstance {
	tmpl, err := s.store.SaveEventTemplate(s.ctx, &model.EventTemplate{
		Name:            "heroic-thursday",
		Title:           "Heroic raid",
		DayOfWeek:       time.Thursday,
		StartTime:       "21:00",
		DurationMinutes: 180,
		MaxParticipants: 20,
		Active:          true,
		CreatedAt:       s.now,
		UpdatedAt:       s.now,
	})
	s.Require().NoError(err)
	e, err := s.store.CreateEventInstance(s.ctx, &model.EventInstance{
		TemplateID: tmpl.ID,
		StartsAt:   s.now.Add(48 * time.Hour),
		Status:     model.EventStatusUpcoming,
		CreatedAt:  s.now,
		UpdatedAt:  s.now,
	})
	s.Require().NoError(err)
	return e
}

func (s *Suite) participation(e *model.EventInstance, u *model.PlatformUser, c *model.Character, status model.Status) *model.Participation {
	_, saved, err := s.store.UpsertParticipation(s.ctx, &model.Participation{
		EventID:      e.ID,
		CharacterID:  c.ID,
		UserID:       u.ID,
		Status:       status,
		DetailedRole: c.DetailedRole(),
		Character:    c.Snapshot(),
		CreatedAt:    s.now,
		UpdatedAt:    s.now,
	})
	s.Require().NoError(err)
	return saved
}

// Character tests

func (s *Suite) TestUpsertCharacterIsKeyedOnNameAndServer() {
	first := s.character("Frostbite", "Azshara", false)

	updated, err := s.store.UpsertCharacter(s.ctx, &model.Character{
		Name:      "Frostbite",
		Server:    "Azshara",
		Class:     "Mage",
		Spec:      "Fire",
		CreatedAt: s.now.Add(time.Hour),
		UpdatedAt: s.now.Add(time.Hour),
	})
	s.Require().NoError(err)
	s.Equal(first.ID, updated.ID)

	got, err := s.store.GetCharacter(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal("Fire", got.Spec)

	other := s.character("Frostbite", "Hyjal", false)
	s.NotEqual(first.ID, other.ID)
}

func (s *Suite) TestUpsertCharacterKeepsGuildFlag() {
	c := s.character("Frostbite", "Azshara", true)

	_, err := s.store.UpsertCharacter(s.ctx, &model.Character{
		Name: "Frostbite", Server: "Azshara", CreatedAt: s.now, UpdatedAt: s.now,
	})
	s.Require().NoError(err)

	got, err := s.store.GetCharacter(s.ctx, c.ID)
	s.Require().NoError(err)
	s.True(got.IsGuildMember)
}

func (s *Suite) TestGetCharacterNotFound() {
	_, err := s.store.GetCharacter(s.ctx, 999)
	s.ErrorIs(err, model.ErrCharacterNotFound)

	_, err = s.store.GetCharacterByNameServer(s.ctx, "Nobody", "Azshara")
	s.ErrorIs(err, model.ErrCharacterNotFound)
}

func (s *Suite) TestFindGuildCharactersByName() {
	s.character("Frostbite", "Azshara", true)
	s.character("Frostbite", "Hyjal", true)
	s.character("Frostbite", "Durotan", false)
	s.character("Emberfall", "Azshara", true)

	found, err := s.store.FindGuildCharactersByName(s.ctx, "Frostbite")
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	s.ElementsMatch([]string{"Azshara", "Hyjal"}, []string{found[0].Server, found[1].Server})
}

func (s *Suite) TestListStaleGuildCharacters() {
	old := s.character("Frostbite", "Azshara", true)
	_, err := s.store.UpsertCharacter(s.ctx, &model.Character{
		Name: "Emberfall", Server: "Azshara", IsGuildMember: true,
		LastRefreshedAt: s.now.Add(time.Hour), CreatedAt: s.now, UpdatedAt: s.now,
	})
	s.Require().NoError(err)
	s.character("Outsider", "Azshara", false)

	stale, err := s.store.ListStaleGuildCharacters(s.ctx, s.now.Add(30*time.Minute), 10)
	s.Require().NoError(err)
	s.Require().Len(stale, 1)
	s.Equal(old.ID, stale[0].ID)
}

func (s *Suite) TestListGuildCharacters() {
	s.character("Frostbite", "Hyjal", true)
	s.character("Frostbite", "Azshara", true)
	s.character("Emberfall", "Azshara", true)
	s.character("Outsider", "Azshara", false)

	guild, err := s.store.ListGuildCharacters(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(guild, 3)
	s.Equal("Emberfall", guild[0].Name)
	s.Equal("Azshara", guild[1].Server)
	s.Equal("Hyjal", guild[2].Server)
}

// Platform user tests

func (s *Suite) TestUpsertPlatformUserRefreshesDisplayName() {
	u := s.user("1001", false)

	updated, err := s.store.UpsertPlatformUser(s.ctx, &model.PlatformUser{
		PlatformID: "1001", Username: "alice", DisplayName: "🚀Frostbite", CreatedAt: s.now, UpdatedAt: s.now,
	})
	s.Require().NoError(err)
	s.Equal(u.ID, updated.ID)

	got, err := s.store.GetPlatformUserByPlatformID(s.ctx, "1001")
	s.Require().NoError(err)
	s.Equal("🚀Frostbite", got.DisplayName)
	s.False(got.IsPlaceholder)
}

func (s *Suite) TestGetPlatformUserNotFound() {
	_, err := s.store.GetPlatformUser(s.ctx, 12345)
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Ownership tests

func (s *Suite) TestBindVerifiedOwnershipKeepsOneVerifiedRow() {
	u := s.user("1001", false)
	x := s.character("Frostbite", "Azshara", true)
	y := s.character("Emberfall", "Azshara", true)

	s.Require().NoError(s.store.BindVerifiedOwnership(s.ctx, u.ID, x.ID, s.now))
	s.Require().NoError(s.store.BindVerifiedOwnership(s.ctx, u.ID, y.ID, s.now.Add(time.Minute)))

	rows, err := s.store.ListOwnerships(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(rows, 2)

	verified := 0
	for _, o := range rows {
		if o.Verified {
			verified++
			s.Equal(y.ID, o.CharacterID)
		}
	}
	s.Equal(1, verified)

	got, err := s.store.GetVerifiedOwnership(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(y.ID, got.CharacterID)
}

func (s *Suite) TestRebindSameCharacterUpdatesInPlace() {
	u := s.user("1001", false)
	x := s.character("Frostbite", "Azshara", true)

	s.Require().NoError(s.store.BindVerifiedOwnership(s.ctx, u.ID, x.ID, s.now))
	s.Require().NoError(s.store.BindVerifiedOwnership(s.ctx, u.ID, x.ID, s.now.Add(time.Minute)))

	rows, err := s.store.ListOwnerships(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.True(rows[0].Verified)
}

func (s *Suite) TestGetVerifiedOwnershipNone() {
	u := s.user("1001", false)
	_, err := s.store.GetVerifiedOwnership(s.ctx, u.ID)
	s.ErrorIs(err, model.ErrNoVerifiedCharacter)
}

// Event tests

func (s *Suite) TestSaveEventTemplateUpsertsByName() {
	e := s.event()

	tmpl, err := s.store.SaveEventTemplate(s.ctx, &model.EventTemplate{
		Name: "heroic-thursday", Title: "Heroic raid (late)", StartTime: "22:00", Active: true,
		CreatedAt: s.now, UpdatedAt: s.now,
	})
	s.Require().NoError(err)
	s.Equal(e.TemplateID, tmpl.ID)

	templates, err := s.store.ListEventTemplates(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(templates, 1)
	s.Equal("22:00", templates[0].StartTime)

	byName, err := s.store.GetEventTemplateByName(s.ctx, "heroic-thursday")
	s.Require().NoError(err)
	s.Equal(tmpl.ID, byName.ID)

	_, err = s.store.GetEventTemplateByName(s.ctx, "mythic")
	s.ErrorIs(err, model.ErrTemplateNotFound)
}

func (s *Suite) TestEventInstanceLifecycle() {
	e := s.event()

	got, err := s.store.GetEventInstance(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Template)
	s.Equal("heroic-thursday", got.Template.Name)
	s.True(got.StartsAt.Equal(e.StartsAt))
	s.True(got.Announcement.IsZero())

	ref := model.AnnouncementRef{ChannelID: "c1", MessageID: "m1"}
	s.Require().NoError(s.store.SetEventAnnouncement(s.ctx, e.ID, ref, s.now))
	s.Require().NoError(s.store.UpdateEventInstanceStatus(s.ctx, e.ID, model.EventStatusCompleted, s.now))

	got, err = s.store.GetEventInstance(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(ref, got.Announcement)
	s.Equal(model.EventStatusCompleted, got.Status)

	upcoming, err := s.store.ListEventInstances(s.ctx, model.EventStatusUpcoming)
	s.Require().NoError(err)
	s.Empty(upcoming)

	all, err := s.store.ListEventInstances(s.ctx, "")
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *Suite) TestEventInstanceNotFound() {
	_, err := s.store.GetEventInstance(s.ctx, 999)
	s.ErrorIs(err, model.ErrEventNotFound)
	s.ErrorIs(s.store.UpdateEventInstanceStatus(s.ctx, 999, model.EventStatusCancelled, s.now), model.ErrEventNotFound)
}

// Participation tests

func (s *Suite) TestUpsertParticipationIsIdempotent() {
	e := s.event()
	u := s.user("1001", false)
	c := s.character("Frostbite", "Azshara", true)

	first := s.participation(e, u, c, model.StatusConfirmed)
	second := s.participation(e, u, c, model.StatusConfirmed)
	s.Equal(first.ID, second.ID)

	rows, err := s.store.ListParticipations(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *Suite) TestUpsertParticipationReturnsPrevious() {
	e := s.event()
	u := s.user("1001", false)
	c := s.character("Frostbite", "Azshara", true)

	previous, _, err := s.store.UpsertParticipation(s.ctx, &model.Participation{
		EventID: e.ID, CharacterID: c.ID, UserID: u.ID, Status: model.StatusConfirmed,
		Character: c.Snapshot(), CreatedAt: s.now, UpdatedAt: s.now,
	})
	s.Require().NoError(err)
	s.Nil(previous)

	previous, saved, err := s.store.UpsertParticipation(s.ctx, &model.Participation{
		EventID: e.ID, CharacterID: c.ID, UserID: u.ID, Status: model.StatusDeclined, Memo: "work",
		Character: c.Snapshot(), CreatedAt: s.now, UpdatedAt: s.now.Add(time.Minute),
	})
	s.Require().NoError(err)
	s.Require().NotNil(previous)
	s.Equal(model.StatusConfirmed, previous.Status)
	s.Equal(model.StatusDeclined, saved.Status)
	s.Equal("work", saved.Memo)
}

func (s *Suite) TestClaimPlaceholderParticipation() {
	e := s.event()
	placeholder := s.user(model.PlaceholderPlatformPrefix+"abc", true)
	member := s.user("1001", false)
	c := s.character("Frostbite", "Azshara", true)
	seated := s.participation(e, placeholder, c, model.StatusConfirmed)

	found, err := s.store.FindPlaceholderParticipation(s.ctx, e.ID, c.ID)
	s.Require().NoError(err)
	s.Equal(seated.ID, found.ID)

	claimed, err := s.store.ClaimPlaceholderParticipation(s.ctx, storage.PlaceholderClaim{
		ParticipationID:   seated.ID,
		PlaceholderUserID: placeholder.ID,
		RealUserID:        member.ID,
		Status:            model.StatusTentative,
		Memo:              "late",
		Now:               s.now,
	})
	s.Require().NoError(err)
	s.True(claimed)

	got, err := s.store.GetParticipation(s.ctx, e.ID, member.ID)
	s.Require().NoError(err)
	s.Equal(seated.ID, got.ID)
	s.Equal(model.StatusTentative, got.Status)
	s.Equal("late", got.Memo)
	s.Equal(c.Snapshot(), got.Character)

	_, err = s.store.GetParticipation(s.ctx, e.ID, placeholder.ID)
	s.ErrorIs(err, model.ErrParticipationNotFound)

	rows, err := s.store.ListParticipationsByCharacter(s.ctx, e.ID, c.ID)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *Suite) TestClaimPlaceholderParticipationOnlyOnce() {
	e := s.event()
	placeholder := s.user(model.PlaceholderPlatformPrefix+"abc", true)
	first := s.user("1001", false)
	second := s.user("1002", false)
	c := s.character("Frostbite", "Azshara", true)
	seated := s.participation(e, placeholder, c, model.StatusConfirmed)

	claim := storage.PlaceholderClaim{
		ParticipationID:   seated.ID,
		PlaceholderUserID: placeholder.ID,
		RealUserID:        first.ID,
		Status:            model.StatusConfirmed,
		Now:               s.now,
	}
	claimed, err := s.store.ClaimPlaceholderParticipation(s.ctx, claim)
	s.Require().NoError(err)
	s.True(claimed)

	claim.RealUserID = second.ID
	claimed, err = s.store.ClaimPlaceholderParticipation(s.ctx, claim)
	s.Require().NoError(err)
	s.False(claimed)
}

func (s *Suite) TestClaimRefusesRealOwner() {
	e := s.event()
	owner := s.user("1001", false)
	other := s.user("1002", false)
	c := s.character("Frostbite", "Azshara", true)
	row := s.participation(e, owner, c, model.StatusConfirmed)

	claimed, err := s.store.ClaimPlaceholderParticipation(s.ctx, storage.PlaceholderClaim{
		ParticipationID:   row.ID,
		PlaceholderUserID: owner.ID,
		RealUserID:        other.ID,
		Status:            model.StatusConfirmed,
		Now:               s.now,
	})
	s.Require().NoError(err)
	s.False(claimed)

	_, err = s.store.FindPlaceholderParticipation(s.ctx, e.ID, c.ID)
	s.ErrorIs(err, model.ErrParticipationNotFound)
}

func (s *Suite) TestUpdateAndDeleteParticipation() {
	e := s.event()
	u := s.user("1001", false)
	c := s.character("Frostbite", "Azshara", true)
	row := s.participation(e, u, c, model.StatusConfirmed)

	s.Require().NoError(s.store.UpdateParticipationStatus(s.ctx, row.ID, model.StatusDeclined, "sick", s.now))
	s.Require().NoError(s.store.UpdateParticipationMemo(s.ctx, row.ID, "*very* sick", s.now))

	got, err := s.store.GetParticipation(s.ctx, e.ID, u.ID)
	s.Require().NoError(err)
	s.Equal(model.StatusDeclined, got.Status)
	s.Equal("*very* sick", got.Memo)

	s.Require().NoError(s.store.DeleteParticipation(s.ctx, row.ID))
	_, err = s.store.GetParticipation(s.ctx, e.ID, u.ID)
	s.ErrorIs(err, model.ErrParticipationNotFound)

	s.ErrorIs(s.store.UpdateParticipationStatus(s.ctx, row.ID, model.StatusConfirmed, "", s.now), model.ErrParticipationNotFound)
}

// Log tests

func (s *Suite) TestRecentParticipationLogsNewestFirst() {
	e := s.event()
	u := s.user("1001", false)
	c := s.character("Frostbite", "Azshara", true)

	actions := []model.Action{model.ActionJoined, model.ActionChangedTo(model.StatusDeclined), model.ActionChangedTo(model.StatusConfirmed)}
	for i, a := range actions {
		_, err := s.store.AppendParticipationLog(s.ctx, &model.ParticipationLogEntry{
			EventID:     e.ID,
			CharacterID: c.ID,
			UserID:      u.ID,
			Action:      a,
			Character:   c.Snapshot(),
			CreatedAt:   s.now.Add(time.Duration(i) * time.Second),
		})
		s.Require().NoError(err)
	}

	recent, err := s.store.RecentParticipationLogs(s.ctx, e.ID, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(actions[2], recent[0].Action)
	s.Equal(actions[1], recent[1].Action)
}

func (s *Suite) TestRecentParticipationLogsTieBreaksOnInsertion() {
	e := s.event()
	u := s.user("1001", false)
	c := s.character("Frostbite", "Azshara", true)

	for _, a := range []model.Action{model.ActionJoined, model.ActionChangedTo(model.StatusDeclined)} {
		_, err := s.store.AppendParticipationLog(s.ctx, &model.ParticipationLogEntry{
			EventID: e.ID, CharacterID: c.ID, UserID: u.ID, Action: a, CreatedAt: s.now,
		})
		s.Require().NoError(err)
	}

	recent, err := s.store.RecentParticipationLogs(s.ctx, e.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(model.ActionChangedTo(model.StatusDeclined), recent[0].Action)
}

// Transaction tests

func (s *Suite) TestWithTxCommits() {
	err := s.store.WithTx(s.ctx, func(tx storage.Storage) error {
		_, err := tx.UpsertPlatformUser(s.ctx, &model.PlatformUser{PlatformID: "1001", CreatedAt: s.now, UpdatedAt: s.now})
		return err
	})
	s.Require().NoError(err)

	_, err = s.store.GetPlatformUserByPlatformID(s.ctx, "1001")
	s.NoError(err)
}

func (s *Suite) TestWithTxRollsBack() {
	boom := errors.New("boom")
	err := s.store.WithTx(s.ctx, func(tx storage.Storage) error {
		if _, err := tx.UpsertPlatformUser(s.ctx, &model.PlatformUser{PlatformID: "1001", CreatedAt: s.now, UpdatedAt: s.now}); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.GetPlatformUserByPlatformID(s.ctx, "1001")
	s.ErrorIs(err, model.ErrUserNotFound)
}
