// Package audit keeps the append-only trail of participation changes.
package audit

import (
	"context"
	"log/slog"

	"github.com/mcoot/guildbot/internal/dependencies/clock"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

const (
	// DefaultRecent is how many entries Recent returns when asked for none
	DefaultRecent = 10
	// MaxRecent caps a single Recent call
	MaxRecent = 50
)

// AdminActorPrefix marks log entries written on an administrator's behalf
const AdminActorPrefix = "admin:"

// AdminActor returns the actor label for an administrator
func AdminActor(displayName string) string {
	return AdminActorPrefix + displayName
}

// Service is the audit log
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new audit log
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

// Entry starts a log entry describing row
func Entry(row *model.Participation, action model.Action, actor string) *model.ParticipationLogEntry {
	return &model.ParticipationLogEntry{
		EventID:          row.EventID,
		CharacterID:      row.CharacterID,
		UserID:           row.UserID,
		Action:           action,
		NewStatus:        row.Status,
		Character:        row.Character,
		DetailedRole:     row.DetailedRole,
		ActorDisplayName: actor,
		Memo:             row.Memo,
	}
}

// Append stores an entry, stamping it with the current time
func (s *Service) Append(ctx context.Context, entry *model.ParticipationLogEntry) (*model.ParticipationLogEntry, error) {
	e := *entry
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now()
	}
	saved, err := s.storage.AppendParticipationLog(ctx, &e)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("participation logged",
		slog.Int64("event_id", int64(saved.EventID)),
		slog.String("action", string(saved.Action)),
		slog.String("actor", saved.ActorDisplayName),
	)
	return saved, nil
}

// Recent returns up to n entries for an event instance, newest first
func (s *Service) Recent(ctx context.Context, eventID model.EventID, n int) ([]*model.ParticipationLogEntry, error) {
	switch {
	case n <= 0:
		n = DefaultRecent
	case n > MaxRecent:
		n = MaxRecent
	}
	return s.storage.RecentParticipationLogs(ctx, eventID, n)
}
