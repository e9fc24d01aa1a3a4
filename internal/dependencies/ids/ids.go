// Package ids mints the opaque identifiers the bot hands out.
package ids

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/mcoot/guildbot/internal/model"
)

// Generator provides identifier generation that can be mocked for testing
type Generator interface {
	// PlaceholderPlatformID returns a fresh platform id for a placeholder user
	PlaceholderPlatformID() string

	// Token returns a random secret suitable for an API bearer token
	Token() string
}

// UUIDGenerator implements Generator with random UUIDs and crypto/rand
type UUIDGenerator struct{}

// New creates a new UUIDGenerator
func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) PlaceholderPlatformID() string {
	return model.PlaceholderPlatformPrefix + uuid.NewString()
}

func (g *UUIDGenerator) Token() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
