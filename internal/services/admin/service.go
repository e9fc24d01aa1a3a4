// Package admin implements the roster commands available to guild officers.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/audit"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/ledger"
	"github.com/mcoot/guildbot/internal/services/placeholder"
	"github.com/mcoot/guildbot/internal/services/signup"
	"github.com/mcoot/guildbot/internal/storage"
)

const (
	// DefaultSeatMemo is used when an officer seats a character without a memo
	DefaultSeatMemo = "*added manually by an administrator*"
	// RemovedMemo is logged when an officer removes a row
	RemovedMemo = "*removed from the roster by an administrator*"
)

// Service is admin roster management
type Service struct {
	storage     storage.Storage
	directory   *directory.Service
	ledger      *ledger.Service
	placeholder *placeholder.Service
	audit       *audit.Service
	announcer   signup.Announcer
	logger      *slog.Logger
}

// New creates a new admin service
func New(
	storage storage.Storage,
	directory *directory.Service,
	ledger *ledger.Service,
	placeholder *placeholder.Service,
	audit *audit.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:     storage,
		directory:   directory,
		ledger:      ledger,
		placeholder: placeholder,
		audit:       audit,
		announcer:   signup.NopAnnouncer{},
		logger:      logger,
	}
}

// SetAnnouncer installs the announcement refresher. Nil restores the no-op.
func (s *Service) SetAnnouncer(a signup.Announcer) {
	if a == nil {
		a = signup.NopAnnouncer{}
	}
	s.announcer = a
}

// SeatMemo formats an officer's memo for a seated row
func SeatMemo(memo string) string {
	memo = strings.TrimSpace(memo)
	if memo == "" {
		return DefaultSeatMemo
	}
	return "*" + memo + "*"
}

// FindCharacter returns a stored character by name and server. Server may be
// a Korean realm name.
func (s *Service) FindCharacter(ctx context.Context, name, server string) (*model.Character, error) {
	return s.storage.GetCharacterByNameServer(ctx, model.CleanCharacterName(name), model.NormalizeServer(server))
}

// Seat pre-seats a character under a placeholder user, looking it up remotely
// first. Re-seating a placeholder only replaces its memo.
func (s *Service) Seat(ctx context.Context, eventID model.EventID, name, server, memo, actor string) (*placeholder.SeatResult, error) {
	if _, err := s.storage.GetEventInstance(ctx, eventID); err != nil {
		return nil, err
	}
	res, err := s.directory.ResolveOnServer(ctx, name, server)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}

	var seated *placeholder.SeatResult
	err = s.storage.WithTx(ctx, func(tx storage.Storage) error {
		seated, err = s.placeholder.WithStorage(tx).Seat(ctx, eventID, res.Character, SeatMemo(memo))
		if err != nil {
			return err
		}
		action := model.ActionAdminAdded
		if seated.Updated {
			action = model.ActionAdminUpdatedPlaceholder
		}
		_, err = s.audit.WithStorage(tx).Append(ctx, audit.Entry(seated.Row, action, audit.AdminActor(actor)))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("character seated by admin",
		slog.Int64("event_id", int64(eventID)),
		slog.String("character", res.Character.Name),
		slog.String("server", res.Character.Server),
		slog.String("actor", actor),
	)
	s.refresh(ctx, eventID)
	return seated, nil
}

// ChangeStatus overrides the status of the row seating characterID. The
// row's memo is kept.
func (s *Service) ChangeStatus(ctx context.Context, eventID model.EventID, characterID model.CharacterID, status model.Status, actor string) (*model.Participation, error) {
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	var row *model.Participation
	err := s.storage.WithTx(ctx, func(tx storage.Storage) error {
		var err error
		row, err = s.seatedRow(ctx, tx, eventID, characterID)
		if err != nil {
			return err
		}
		old := row.Status
		if err := s.ledger.WithStorage(tx).SetStatus(ctx, row.ID, status, row.Memo); err != nil {
			return err
		}
		row.Status = status

		entry := audit.Entry(row, model.ActionAdminChangedTo(status), audit.AdminActor(actor))
		entry.OldStatus = old
		entry.Memo = fmt.Sprintf("*admin changed %s to %s*", old, status)
		_, err = s.audit.WithStorage(tx).Append(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("status changed by admin",
		slog.Int64("event_id", int64(eventID)),
		slog.String("character", row.Character.Name),
		slog.String("status", string(status)),
		slog.String("actor", actor),
	)
	s.refresh(ctx, eventID)
	return row, nil
}

// Remove deletes the row seating characterID
func (s *Service) Remove(ctx context.Context, eventID model.EventID, characterID model.CharacterID, actor string) (*model.Participation, error) {
	var row *model.Participation
	err := s.storage.WithTx(ctx, func(tx storage.Storage) error {
		var err error
		row, err = s.seatedRow(ctx, tx, eventID, characterID)
		if err != nil {
			return err
		}
		if err := s.ledger.WithStorage(tx).Remove(ctx, row.ID); err != nil {
			return err
		}

		entry := audit.Entry(row, model.ActionAdminRemoved, audit.AdminActor(actor))
		entry.OldStatus = row.Status
		entry.NewStatus = ""
		entry.Memo = RemovedMemo
		_, err = s.audit.WithStorage(tx).Append(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("participation removed by admin",
		slog.Int64("event_id", int64(eventID)),
		slog.String("character", row.Character.Name),
		slog.String("actor", actor),
	)
	s.refresh(ctx, eventID)
	return row, nil
}

// Logs returns the most recent audit entries of an event instance
func (s *Service) Logs(ctx context.Context, eventID model.EventID, n int) ([]*model.ParticipationLogEntry, error) {
	if _, err := s.storage.GetEventInstance(ctx, eventID); err != nil {
		return nil, err
	}
	return s.audit.Recent(ctx, eventID, n)
}

func (s *Service) seatedRow(ctx context.Context, tx storage.Storage, eventID model.EventID, characterID model.CharacterID) (*model.Participation, error) {
	if _, err := tx.GetEventInstance(ctx, eventID); err != nil {
		return nil, err
	}
	rows, err := s.ledger.WithStorage(tx).ForCharacter(ctx, eventID, characterID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, model.ErrParticipationNotFound
	}
	return rows[0], nil
}

func (s *Service) refresh(ctx context.Context, eventID model.EventID) {
	if err := s.announcer.RefreshAnnouncement(ctx, eventID); err != nil {
		s.logger.Warn("failed to refresh announcement",
			slog.Int64("event_id", int64(eventID)),
			slog.String("error", err.Error()),
		)
	}
}
