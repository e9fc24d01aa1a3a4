package mocks

import (
	"fmt"

	"github.com/mcoot/guildbot/internal/dependencies/ids"
	"github.com/mcoot/guildbot/internal/model"
)

// MockIDs is a mock implementation of ids.Generator for testing. Queued values
// are returned first; after that ids are numbered sequentially.
type MockIDs struct {
	PlaceholderResults []string
	placeholderIndex   int

	TokenResults []string
	tokenIndex   int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a new MockIDs
func NewMockIDs() *MockIDs {
	return &MockIDs{}
}

func (m *MockIDs) PlaceholderPlatformID() string {
	defer func() { m.placeholderIndex++ }()
	if m.placeholderIndex < len(m.PlaceholderResults) {
		return m.PlaceholderResults[m.placeholderIndex]
	}
	return fmt.Sprintf("%s%d", model.PlaceholderPlatformPrefix, m.placeholderIndex+1)
}

func (m *MockIDs) Token() string {
	defer func() { m.tokenIndex++ }()
	if m.tokenIndex < len(m.TokenResults) {
		return m.TokenResults[m.tokenIndex]
	}
	return fmt.Sprintf("token-%d", m.tokenIndex+1)
}

// QueuePlaceholder adds values to the placeholder id queue
func (m *MockIDs) QueuePlaceholder(values ...string) {
	m.PlaceholderResults = append(m.PlaceholderResults, values...)
}

// QueueToken adds values to the token queue
func (m *MockIDs) QueueToken(values ...string) {
	m.TokenResults = append(m.TokenResults, values...)
}

// Reset clears all queued results
func (m *MockIDs) Reset() {
	m.PlaceholderResults = nil
	m.placeholderIndex = 0
	m.TokenResults = nil
	m.tokenIndex = 0
}
