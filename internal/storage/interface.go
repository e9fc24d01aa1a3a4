package storage

import (
	"context"
	"time"

	"github.com/mcoot/guildbot/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Character operations
	UpsertCharacter(ctx context.Context, c *model.Character) (*model.Character, error)
	GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error)
	GetCharacterByNameServer(ctx context.Context, name, server string) (*model.Character, error)
	FindGuildCharactersByName(ctx context.Context, name string) ([]*model.Character, error)
	ListStaleGuildCharacters(ctx context.Context, refreshedBefore time.Time, limit int) ([]*model.Character, error)
	// ListGuildCharacters returns every guild member ordered by name, server
	ListGuildCharacters(ctx context.Context) ([]*model.Character, error)

	// Platform user operations
	UpsertPlatformUser(ctx context.Context, u *model.PlatformUser) (*model.PlatformUser, error)
	GetPlatformUser(ctx context.Context, id model.UserID) (*model.PlatformUser, error)
	GetPlatformUserByPlatformID(ctx context.Context, platformID string) (*model.PlatformUser, error)

	// Ownership operations
	// BindVerifiedOwnership demotes every verified ownership of the user and
	// upserts (user, character) as verified, atomically.
	BindVerifiedOwnership(ctx context.Context, userID model.UserID, characterID model.CharacterID, now time.Time) error
	GetVerifiedOwnership(ctx context.Context, userID model.UserID) (*model.Ownership, error)
	ListOwnerships(ctx context.Context, userID model.UserID) ([]*model.Ownership, error)

	// Event template operations
	SaveEventTemplate(ctx context.Context, t *model.EventTemplate) (*model.EventTemplate, error)
	GetEventTemplate(ctx context.Context, id model.TemplateID) (*model.EventTemplate, error)
	GetEventTemplateByName(ctx context.Context, name string) (*model.EventTemplate, error)
	ListEventTemplates(ctx context.Context) ([]*model.EventTemplate, error)

	// Event instance operations
	CreateEventInstance(ctx context.Context, e *model.EventInstance) (*model.EventInstance, error)
	GetEventInstance(ctx context.Context, id model.EventID) (*model.EventInstance, error)
	ListEventInstances(ctx context.Context, status model.EventStatus) ([]*model.EventInstance, error)
	UpdateEventInstanceStatus(ctx context.Context, id model.EventID, status model.EventStatus, now time.Time) error
	SetEventAnnouncement(ctx context.Context, id model.EventID, ref model.AnnouncementRef, now time.Time) error

	// Participation operations
	// UpsertParticipation writes the row keyed on (EventID, UserID) and returns
	// the row it replaced, or nil.
	UpsertParticipation(ctx context.Context, p *model.Participation) (previous *model.Participation, saved *model.Participation, err error)
	GetParticipation(ctx context.Context, eventID model.EventID, userID model.UserID) (*model.Participation, error)
	ListParticipations(ctx context.Context, eventID model.EventID) ([]*model.Participation, error)
	ListParticipationsByCharacter(ctx context.Context, eventID model.EventID, characterID model.CharacterID) ([]*model.Participation, error)
	// FindPlaceholderParticipation returns the row for (eventID, characterID)
	// owned by a placeholder user.
	FindPlaceholderParticipation(ctx context.Context, eventID model.EventID, characterID model.CharacterID) (*model.Participation, error)
	// ClaimPlaceholderParticipation moves a row to realUserID only if it is
	// still owned by placeholderUserID and that user is a placeholder. It
	// reports false when the row was not claimed.
	ClaimPlaceholderParticipation(ctx context.Context, claim PlaceholderClaim) (bool, error)
	UpdateParticipationStatus(ctx context.Context, id model.ParticipationID, status model.Status, memo string, now time.Time) error
	UpdateParticipationMemo(ctx context.Context, id model.ParticipationID, memo string, now time.Time) error
	DeleteParticipation(ctx context.Context, id model.ParticipationID) error

	// Participation log operations
	AppendParticipationLog(ctx context.Context, e *model.ParticipationLogEntry) (*model.ParticipationLogEntry, error)
	RecentParticipationLogs(ctx context.Context, eventID model.EventID, limit int) ([]*model.ParticipationLogEntry, error)

	// WithTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Storage) error) error
}

// PlaceholderClaim is the compare-and-swap input of ClaimPlaceholderParticipation
type PlaceholderClaim struct {
	ParticipationID   model.ParticipationID
	PlaceholderUserID model.UserID
	RealUserID        model.UserID
	Status            model.Status
	Memo              string
	Now               time.Time
}
