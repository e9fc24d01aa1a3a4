// Package placeholder reconciles rows an administrator seated under a
// synthetic user with the real member who later signs up.
package placeholder

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/guildbot/internal/dependencies/clock"
	"github.com/mcoot/guildbot/internal/dependencies/ids"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

// Outcome says what Reconcile did
type Outcome int

const (
	// OutcomeNone means there was no placeholder row to act on
	OutcomeNone Outcome = iota
	// OutcomeClaimed means the placeholder row now belongs to the real user
	OutcomeClaimed
	// OutcomeMerged means the real user already had a row, so the
	// placeholder row was dropped and the caller must upsert theirs
	OutcomeMerged
)

// Reconciliation is the result of Reconcile. Row is set for Claimed;
// Placeholder is the placeholder row as it was before.
type Reconciliation struct {
	Outcome     Outcome
	Row         *model.Participation
	Placeholder *model.Participation
}

// SeatResult is the result of Seat
type SeatResult struct {
	Row *model.Participation
	// Updated is true when an existing placeholder row only had its memo replaced
	Updated bool
}

// Service is placeholder reconciliation
type Service struct {
	storage storage.Storage
	ids     ids.Generator
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new placeholder service
func New(storage storage.Storage, ids ids.Generator, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		ids:     ids,
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

// Reconcile looks for a placeholder row seating characterID at eventID and
// hands it to realUserID. The rebind is one conditional write, so of two
// concurrent sign-ups only one claims the row; the other sees OutcomeNone.
func (s *Service) Reconcile(ctx context.Context, eventID model.EventID, characterID model.CharacterID, realUserID model.UserID, status model.Status, memo string) (*Reconciliation, error) {
	seated, err := s.storage.FindPlaceholderParticipation(ctx, eventID, characterID)
	if errors.Is(err, model.ErrParticipationNotFound) {
		return &Reconciliation{Outcome: OutcomeNone}, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.storage.GetParticipation(ctx, eventID, realUserID); err == nil {
		if err := s.storage.DeleteParticipation(ctx, seated.ID); err != nil {
			return nil, err
		}
		s.logger.Info("placeholder merged into existing sign-up",
			slog.Int64("event_id", int64(eventID)),
			slog.Int64("user_id", int64(realUserID)),
			slog.String("character", seated.Character.Name),
		)
		return &Reconciliation{Outcome: OutcomeMerged, Placeholder: seated}, nil
	} else if !errors.Is(err, model.ErrParticipationNotFound) {
		return nil, err
	}

	if status == model.StatusConfirmed {
		memo = ""
	}
	claimed, err := s.storage.ClaimPlaceholderParticipation(ctx, storage.PlaceholderClaim{
		ParticipationID:   seated.ID,
		PlaceholderUserID: seated.UserID,
		RealUserID:        realUserID,
		Status:            status,
		Memo:              memo,
		Now:               s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return &Reconciliation{Outcome: OutcomeNone}, nil
	}

	row, err := s.storage.GetParticipation(ctx, eventID, realUserID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("placeholder claimed",
		slog.Int64("event_id", int64(eventID)),
		slog.Int64("user_id", int64(realUserID)),
		slog.String("character", row.Character.Name),
	)
	return &Reconciliation{Outcome: OutcomeClaimed, Row: row, Placeholder: seated}, nil
}

// Seat pre-registers a character as confirmed under a fresh placeholder
// user. If a placeholder already seats the character only its memo changes;
// a character seated by a real member is refused.
func (s *Service) Seat(ctx context.Context, eventID model.EventID, c *model.Character, memo string) (*SeatResult, error) {
	now := s.clock.Now()

	seated, err := s.storage.FindPlaceholderParticipation(ctx, eventID, c.ID)
	switch {
	case err == nil:
		if err := s.storage.UpdateParticipationMemo(ctx, seated.ID, memo, now); err != nil {
			return nil, err
		}
		seated.Memo = memo
		seated.UpdatedAt = now
		return &SeatResult{Row: seated, Updated: true}, nil
	case !errors.Is(err, model.ErrParticipationNotFound):
		return nil, err
	}

	existing, err := s.storage.ListParticipationsByCharacter(ctx, eventID, c.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, model.ErrCharacterTaken
	}

	user, err := s.storage.UpsertPlatformUser(ctx, &model.PlatformUser{
		PlatformID:    s.ids.PlaceholderPlatformID(),
		Username:      "placeholder-" + c.Name,
		DisplayName:   c.Name,
		IsPlaceholder: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	_, row, err := s.storage.UpsertParticipation(ctx, &model.Participation{
		EventID:      eventID,
		CharacterID:  c.ID,
		UserID:       user.ID,
		Status:       model.StatusConfirmed,
		SpecRole:     c.SpecRole,
		DetailedRole: c.DetailedRole(),
		Character:    c.Snapshot(),
		Memo:         memo,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	return &SeatResult{Row: row}, nil
}
