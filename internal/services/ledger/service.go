// Package ledger records who is coming to which event instance.
package ledger

import (
	"context"
	"log/slog"

	"github.com/mcoot/guildbot/internal/dependencies/clock"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

// UpsertRequest describes one member's participation in an event instance
type UpsertRequest struct {
	EventID      model.EventID
	UserID       model.UserID
	Character    *model.Character
	Status       model.Status
	Memo         string
	Announcement model.AnnouncementRef
}

// UpsertResult is the row written, the row it replaced if any, and the
// detailed role derived for the character
type UpsertResult struct {
	Previous *model.Participation
	Row      *model.Participation
	Role     model.DetailedRole
}

// Service is the participation ledger
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new participation ledger
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger,
	}
}

// WithStorage returns a copy of the service that uses st
func (s *Service) WithStorage(st storage.Storage) *Service {
	cp := *s
	cp.storage = st
	return &cp
}

// Upsert writes the (event, user) row. Confirming clears the memo. Capacity
// is not enforced here.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) (*UpsertResult, error) {
	if !req.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	if req.Character == nil {
		return nil, model.ErrCharacterNotFound
	}

	memo := req.Memo
	if req.Status == model.StatusConfirmed {
		memo = ""
	}

	now := s.clock.Now()
	role := req.Character.DetailedRole()
	previous, row, err := s.storage.UpsertParticipation(ctx, &model.Participation{
		EventID:      req.EventID,
		CharacterID:  req.Character.ID,
		UserID:       req.UserID,
		Status:       req.Status,
		SpecRole:     req.Character.SpecRole,
		DetailedRole: role,
		Character:    req.Character.Snapshot(),
		Memo:         memo,
		Announcement: req.Announcement,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("participation recorded",
		slog.Int64("event_id", int64(req.EventID)),
		slog.Int64("user_id", int64(req.UserID)),
		slog.String("character", row.Character.Name),
		slog.String("status", string(row.Status)),
	)
	return &UpsertResult{Previous: previous, Row: row, Role: role}, nil
}

// Get returns the user's row for an event instance
func (s *Service) Get(ctx context.Context, eventID model.EventID, userID model.UserID) (*model.Participation, error) {
	return s.storage.GetParticipation(ctx, eventID, userID)
}

// List returns every row for an event instance
func (s *Service) List(ctx context.Context, eventID model.EventID) ([]*model.Participation, error) {
	return s.storage.ListParticipations(ctx, eventID)
}

// ForCharacter returns the rows seating a character at an event instance
func (s *Service) ForCharacter(ctx context.Context, eventID model.EventID, characterID model.CharacterID) ([]*model.Participation, error) {
	return s.storage.ListParticipationsByCharacter(ctx, eventID, characterID)
}

// SetStatus overwrites a row's status and memo
func (s *Service) SetStatus(ctx context.Context, id model.ParticipationID, status model.Status, memo string) error {
	if !status.Valid() {
		return model.ErrInvalidStatus
	}
	return s.storage.UpdateParticipationStatus(ctx, id, status, memo, s.clock.Now())
}

// Remove deletes a row
func (s *Service) Remove(ctx context.Context, id model.ParticipationID) error {
	return s.storage.DeleteParticipation(ctx, id)
}
