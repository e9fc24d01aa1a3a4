package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/guildbot/internal/model"
)

func TestPlaceholderPlatformID(t *testing.T) {
	g := New()
	a, b := g.PlaceholderPlatformID(), g.PlaceholderPlatformID()

	assert.True(t, model.IsPlaceholderPlatformID(a))
	assert.True(t, strings.HasPrefix(a, model.PlaceholderPlatformPrefix))
	assert.NotEqual(t, a, b)
}

func TestToken(t *testing.T) {
	g := New()
	assert.Len(t, g.Token(), 64)
	assert.NotEqual(t, g.Token(), g.Token())
}
