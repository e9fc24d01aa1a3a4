package model

import (
	"fmt"
	"time"
)

// ParticipationID identifies a participation row
type ParticipationID int64

// Participation is a member's entry for one event instance, unique on (EventID, UserID)
type Participation struct {
	ID           ParticipationID
	EventID      EventID
	CharacterID  CharacterID
	UserID       UserID
	Status       Status
	SpecRole     string
	DetailedRole DetailedRole
	Character    CharacterSnapshot
	Memo         string
	Announcement AnnouncementRef
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LogEntryID identifies an audit log entry
type LogEntryID int64

// ParticipationLogEntry is an append-only record of a participation change
type ParticipationLogEntry struct {
	ID               LogEntryID
	EventID          EventID
	CharacterID      CharacterID
	UserID           UserID
	Action           Action
	OldStatus        Status // empty when there was no previous row
	NewStatus        Status // empty for removals
	Character        CharacterSnapshot
	OldCharacter     CharacterSnapshot // zero when there was no previous row
	DetailedRole     DetailedRole
	OldDetailedRole  DetailedRole
	ActorDisplayName string
	Memo             string
	CreatedAt        time.Time
}

// CharacterChanged reports whether the previous row was held by a different
// character
func (e *ParticipationLogEntry) CharacterChanged() bool {
	if e.OldCharacter.IsZero() {
		return false
	}
	return e.OldCharacter.Name != e.Character.Name || e.OldCharacter.Server != e.Character.Server
}

// Action labels a participation log entry
type Action string

const (
	ActionJoined                    Action = "joined"
	ActionCharacterChangedAndJoined Action = "character_changed_and_joined"
	ActionPlaceholderClaimed        Action = "placeholder_claimed"
	ActionPlaceholderMerged         Action = "placeholder_merged"
	ActionAdminAdded                Action = "manual_added_by_admin"
	ActionAdminUpdatedPlaceholder   Action = "admin_updated_placeholder"
	ActionAdminRemoved              Action = "admin_removed"
)

// ActionChangedTo labels a member status change
func ActionChangedTo(s Status) Action {
	return Action(fmt.Sprintf("changed_to_%s", s))
}

// ActionCharacterChangedFrom labels a character change from a previous status
func ActionCharacterChangedFrom(s Status) Action {
	return Action(fmt.Sprintf("character_changed_from_%s", s))
}

// ActionAdminChangedTo labels a status change made by an administrator
func ActionAdminChangedTo(s Status) Action {
	return Action(fmt.Sprintf("admin_changed_to_%s", s))
}
