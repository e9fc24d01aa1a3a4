package model

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// CharacterID uniquely identifies a game character
type CharacterID int64

// Character is a game character known to the guild, unique on (Name, Server)
type Character struct {
	ID                CharacterID
	Name              string
	Server            string
	Region            string
	Class             string
	Spec              string
	SpecRole          string // role reported by the lookup service, e.g. "DPS"
	Race              string
	Faction           string
	Gender            string
	AchievementPoints int
	ProfileURL        string
	ThumbnailURL      string
	IsGuildMember     bool
	LastRefreshedAt   time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Snapshot returns the denormalized copy stored on participation rows
func (c *Character) Snapshot() CharacterSnapshot {
	return CharacterSnapshot{
		Name:   c.Name,
		Server: c.Server,
		Class:  c.Class,
		Spec:   c.Spec,
	}
}

// DetailedRole derives the roster role from class and spec
func (c *Character) DetailedRole() DetailedRole {
	return DetailedRoleFor(c.Class, c.Spec)
}

// CharacterSnapshot is the character data copied onto participation and log rows
type CharacterSnapshot struct {
	Name   string
	Server string
	Class  string
	Spec   string
}

// IsZero reports whether the snapshot is empty
func (s CharacterSnapshot) IsZero() bool {
	return s == CharacterSnapshot{}
}

// CharacterProfile is the attribute set returned by the remote lookup service
type CharacterProfile struct {
	Name              string `json:"name"`
	Server            string `json:"realm"`
	Region            string `json:"region"`
	Race              string `json:"race"`
	Class             string `json:"class"`
	Spec              string `json:"active_spec_name"`
	SpecRole          string `json:"active_spec_role"`
	Gender            string `json:"gender"`
	Faction           string `json:"faction"`
	AchievementPoints int    `json:"achievement_points"`
	ProfileURL        string `json:"profile_url"`
	ThumbnailURL      string `json:"thumbnail_url"`
}

// ToCharacter converts a remote profile into a character row
func (p *CharacterProfile) ToCharacter(refreshedAt time.Time) *Character {
	return &Character{
		Name:              p.Name,
		Server:            p.Server,
		Region:            p.Region,
		Class:             p.Class,
		Spec:              p.Spec,
		SpecRole:          p.SpecRole,
		Race:              p.Race,
		Faction:           p.Faction,
		Gender:            p.Gender,
		AchievementPoints: p.AchievementPoints,
		ProfileURL:        p.ProfileURL,
		ThumbnailURL:      p.ThumbnailURL,
		LastRefreshedAt:   refreshedAt,
	}
}

// decorations are stripped from member nicknames before they are used as character names
var decorations = []string{"🚀", "⭐"}

// CleanCharacterName turns a chat display name into a character name
func CleanCharacterName(displayName string) string {
	name := displayName
	for _, d := range decorations {
		name = strings.ReplaceAll(name, d, "")
	}
	return norm.NFC.String(strings.TrimSpace(name))
}
