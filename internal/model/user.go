package model

import (
	"strings"
	"time"
)

// UserID uniquely identifies a platform user row
type UserID int64

// PlaceholderPlatformPrefix prefixes the platform id of synthetic users
const PlaceholderPlatformPrefix = "placeholder:"

// PlatformUser is a chat platform identity, or a synthetic placeholder
// created by an administrator to pre-seat a character
type PlatformUser struct {
	ID            UserID
	PlatformID    string // chat platform user id, unique
	Username      string
	DisplayName   string
	IsPlaceholder bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsPlaceholderPlatformID reports whether a platform id belongs to a synthetic user
func IsPlaceholderPlatformID(platformID string) bool {
	return strings.HasPrefix(platformID, PlaceholderPlatformPrefix)
}

// Ownership links a platform user to a character.
// At most one ownership per user is verified.
type Ownership struct {
	UserID      UserID
	CharacterID CharacterID
	Verified    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
