// Package signup runs a member's sign-up for an event instance end to end:
// resolve the character, bind it, reconcile placeholders, write the ledger
// row and the audit entry, then refresh the announcement.
package signup

import (
	"context"
	"log/slog"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/audit"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/ledger"
	"github.com/mcoot/guildbot/internal/services/linker"
	"github.com/mcoot/guildbot/internal/services/placeholder"
	"github.com/mcoot/guildbot/internal/storage"
)

// Actor is the chat platform identity signing up
type Actor struct {
	PlatformID  string
	Username    string
	DisplayName string
}

// CharacterRef names a character explicitly, bypassing display-name resolution
type CharacterRef struct {
	Name   string
	Server string
}

// Request is one sign-up interaction
type Request struct {
	Actor   Actor
	EventID model.EventID
	Status  model.Status
	Memo    string
	// Character is set by the change-character flow, which always confirms
	Character *CharacterRef
}

// Result describes what a sign-up did. Resolution is always set once the
// event check passed; the remaining fields only when it resolved.
type Result struct {
	Resolution *directory.Resolution
	Previous   *model.Participation
	Row        *model.Participation
	Role       model.DetailedRole
	Action     model.Action
}

// Announcer re-renders an event's announcement after its roster changed
type Announcer interface {
	RefreshAnnouncement(ctx context.Context, eventID model.EventID) error
}

// NopAnnouncer is the Announcer used until a chat adapter is installed
type NopAnnouncer struct{}

func (NopAnnouncer) RefreshAnnouncement(context.Context, model.EventID) error { return nil }

// Service orchestrates sign-ups
type Service struct {
	storage     storage.Storage
	directory   *directory.Service
	linker      *linker.Service
	ledger      *ledger.Service
	placeholder *placeholder.Service
	audit       *audit.Service
	announcer   Announcer
	logger      *slog.Logger
}

// New creates a new sign-up service
func New(
	storage storage.Storage,
	directory *directory.Service,
	linker *linker.Service,
	ledger *ledger.Service,
	placeholder *placeholder.Service,
	audit *audit.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:     storage,
		directory:   directory,
		linker:      linker,
		ledger:      ledger,
		placeholder: placeholder,
		audit:       audit,
		announcer:   NopAnnouncer{},
		logger:      logger,
	}
}

// SetAnnouncer installs the announcement refresher. The chat adapter is
// built after the services, hence the setter.
func (s *Service) SetAnnouncer(a Announcer) {
	if a == nil {
		a = NopAnnouncer{}
	}
	s.announcer = a
}

// SignUp records req. When the character cannot be resolved the returned
// Result carries the resolution alongside the matching error.
func (s *Service) SignUp(ctx context.Context, req Request) (*Result, error) {
	explicit := req.Character != nil
	status := req.Status
	if explicit {
		status = model.StatusConfirmed
	}
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	event, err := s.storage.GetEventInstance(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOpen() {
		return nil, model.ErrEventClosed
	}

	var res *directory.Resolution
	if explicit {
		res, err = s.directory.ResolveOnServer(ctx, req.Character.Name, req.Character.Server)
	} else {
		res, err = s.directory.Resolve(ctx, req.Actor.DisplayName)
	}
	if err != nil {
		return nil, err
	}
	result := &Result{Resolution: res}
	if err := res.Err(); err != nil {
		return result, err
	}
	character := res.Character

	err = s.storage.WithTx(ctx, func(tx storage.Storage) error {
		user, err := s.linker.WithStorage(tx).EnsureUser(ctx, req.Actor.PlatformID, req.Actor.Username, req.Actor.DisplayName)
		if err != nil {
			return err
		}
		if err := s.linker.WithStorage(tx).Bind(ctx, user.ID, character.ID); err != nil {
			return err
		}

		rec, err := s.placeholder.WithStorage(tx).Reconcile(ctx, event.ID, character.ID, user.ID, status, req.Memo)
		if err != nil {
			return err
		}

		if rec.Outcome == placeholder.OutcomeClaimed {
			result.Previous = rec.Placeholder
			result.Row = rec.Row
			result.Role = rec.Row.DetailedRole
			result.Action = model.ActionPlaceholderClaimed
		} else {
			if err := s.checkSeat(ctx, tx, event.ID, character.ID, user.ID); err != nil {
				return err
			}
			up, err := s.ledger.WithStorage(tx).Upsert(ctx, ledger.UpsertRequest{
				EventID:      event.ID,
				UserID:       user.ID,
				Character:    character,
				Status:       status,
				Memo:         req.Memo,
				Announcement: event.Announcement,
			})
			if err != nil {
				return err
			}
			result.Previous = up.Previous
			result.Row = up.Row
			result.Role = up.Role
			result.Action = actionFor(up.Previous, up.Row, explicit)
			if rec.Outcome == placeholder.OutcomeMerged {
				result.Action = model.ActionPlaceholderMerged
			}
		}

		entry := audit.Entry(result.Row, result.Action, req.Actor.DisplayName)
		if prev := result.Previous; prev != nil {
			entry.OldStatus = prev.Status
			entry.OldCharacter = prev.Character
			entry.OldDetailedRole = prev.DetailedRole
		}
		_, err = s.audit.WithStorage(tx).Append(ctx, entry)
		return err
	})
	if err != nil {
		return result, err
	}

	s.logger.Info("sign-up recorded",
		slog.Int64("event_id", int64(event.ID)),
		slog.String("platform_id", req.Actor.PlatformID),
		slog.String("character", character.Name),
		slog.String("server", character.Server),
		slog.String("action", string(result.Action)),
	)

	if err := s.announcer.RefreshAnnouncement(ctx, event.ID); err != nil {
		s.logger.Warn("failed to refresh announcement",
			slog.Int64("event_id", int64(event.ID)),
			slog.String("error", err.Error()),
		)
	}
	return result, nil
}

// checkSeat refuses a character already seated at the event by another member
func (s *Service) checkSeat(ctx context.Context, tx storage.Storage, eventID model.EventID, characterID model.CharacterID, userID model.UserID) error {
	rows, err := s.ledger.WithStorage(tx).ForCharacter(ctx, eventID, characterID)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.UserID != userID {
			return model.ErrCharacterTaken
		}
	}
	return nil
}

func actionFor(previous, row *model.Participation, explicit bool) model.Action {
	switch {
	case explicit && previous == nil:
		return model.ActionCharacterChangedAndJoined
	case explicit:
		return model.ActionCharacterChangedFrom(previous.Status)
	case previous == nil:
		return model.ActionJoined
	default:
		return model.ActionChangedTo(row.Status)
	}
}
