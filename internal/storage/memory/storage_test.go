package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
	"github.com/mcoot/guildbot/internal/storage/storagetest"
)

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func() storage.Storage { return New() },
	})
}

func TestReturnedRowsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := New()

	saved, err := store.UpsertCharacter(ctx, &model.Character{Name: "Frostbite", Server: "Azshara", Spec: "Frost"})
	require.NoError(t, err)
	saved.Spec = "Fire"

	got, err := store.GetCharacter(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Frost", got.Spec)
}

func TestNestedWithTxJoinsOuterTransaction(t *testing.T) {
	ctx := context.Background()
	store := New()
	boom := errors.New("boom")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	err := store.WithTx(ctx, func(tx storage.Storage) error {
		err := tx.WithTx(ctx, func(inner storage.Storage) error {
			_, err := inner.UpsertPlatformUser(ctx, &model.PlatformUser{PlatformID: "1001", CreatedAt: now})
			return err
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetPlatformUserByPlatformID(ctx, "1001")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestClaimIntoExistingKeyConflicts(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	placeholder, _ := store.UpsertPlatformUser(ctx, &model.PlatformUser{PlatformID: model.PlaceholderPlatformPrefix + "x", IsPlaceholder: true})
	member, _ := store.UpsertPlatformUser(ctx, &model.PlatformUser{PlatformID: "1001"})
	tmpl, _ := store.SaveEventTemplate(ctx, &model.EventTemplate{Name: "heroic", StartTime: "21:00"})
	event, err := store.CreateEventInstance(ctx, &model.EventInstance{TemplateID: tmpl.ID, StartsAt: now, Status: model.EventStatusUpcoming})
	require.NoError(t, err)

	_, seated, _ := store.UpsertParticipation(ctx, &model.Participation{EventID: event.ID, CharacterID: 1, UserID: placeholder.ID, Status: model.StatusConfirmed})
	_, _, _ = store.UpsertParticipation(ctx, &model.Participation{EventID: event.ID, CharacterID: 2, UserID: member.ID, Status: model.StatusConfirmed})

	claimed, err := store.ClaimPlaceholderParticipation(ctx, storage.PlaceholderClaim{
		ParticipationID:   seated.ID,
		PlaceholderUserID: placeholder.ID,
		RealUserID:        member.ID,
		Status:            model.StatusConfirmed,
		Now:               now,
	})
	assert.False(t, claimed)
	assert.ErrorIs(t, err, storage.ErrConflict)
}
