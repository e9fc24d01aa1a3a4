// Package linker binds platform users to their verified character.
package linker

import (
	"context"
	"log/slog"

	"github.com/mcoot/guildbot/internal/dependencies/clock"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

// Service is the identity linker
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new identity linker
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger,
	}
}

// WithStorage returns a copy of the service that uses st, typically a
// transaction
func (s *Service) WithStorage(st storage.Storage) *Service {
	cp := *s
	cp.storage = st
	return &cp
}

// EnsureUser upserts a real platform user, refreshing their names
func (s *Service) EnsureUser(ctx context.Context, platformID, username, displayName string) (*model.PlatformUser, error) {
	if platformID == "" || model.IsPlaceholderPlatformID(platformID) {
		return nil, model.ErrInvalidName
	}
	now := s.clock.Now()
	return s.storage.UpsertPlatformUser(ctx, &model.PlatformUser{
		PlatformID:  platformID,
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Bind makes characterID the user's only verified character. The check that
// nobody else has verified the same character is deliberately absent.
func (s *Service) Bind(ctx context.Context, userID model.UserID, characterID model.CharacterID) error {
	if err := s.storage.BindVerifiedOwnership(ctx, userID, characterID, s.clock.Now()); err != nil {
		return err
	}
	s.logger.Debug("bound verified character",
		slog.Int64("user_id", int64(userID)),
		slog.Int64("character_id", int64(characterID)),
	)
	return nil
}

// Verified returns the user's verified character
func (s *Service) Verified(ctx context.Context, userID model.UserID) (*model.Character, error) {
	o, err := s.storage.GetVerifiedOwnership(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.storage.GetCharacter(ctx, o.CharacterID)
}

// VerifiedByPlatformID is Verified keyed on the platform identity
func (s *Service) VerifiedByPlatformID(ctx context.Context, platformID string) (*model.Character, error) {
	u, err := s.storage.GetPlatformUserByPlatformID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	return s.Verified(ctx, u.ID)
}
