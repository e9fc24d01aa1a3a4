package lookup

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

// ProfileCache stores lookup answers. GetProfile returns storage.ErrCacheMiss
// when it knows nothing and model.ErrCharacterNotFound for a remembered miss.
type ProfileCache interface {
	GetProfile(ctx context.Context, region, server, name string) (*model.CharacterProfile, error)
	SetProfile(ctx context.Context, region, server, name string, profile *model.CharacterProfile) error
	SetNotFound(ctx context.Context, region, server, name string) error
}

// Cached wraps a Client with a ProfileCache. Cache failures are logged and
// never fail the lookup.
type Cached struct {
	next   Client
	cache  ProfileCache
	region string
	logger *slog.Logger
}

// NewCached creates a caching Client
func NewCached(next Client, cache ProfileCache, region string, logger *slog.Logger) *Cached {
	return &Cached{
		next:   next,
		cache:  cache,
		region: region,
		logger: logger,
	}
}

var _ Client = (*Cached)(nil)

func (c *Cached) Lookup(ctx context.Context, server, name string) (*model.CharacterProfile, error) {
	profile, err := c.cache.GetProfile(ctx, c.region, server, name)
	switch {
	case err == nil:
		return profile, nil
	case errors.Is(err, model.ErrCharacterNotFound):
		return nil, err
	case !errors.Is(err, storage.ErrCacheMiss):
		c.logger.Warn("profile cache read failed",
			slog.String("server", server),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
	}

	profile, err = c.next.Lookup(ctx, server, name)
	switch {
	case err == nil:
		if cerr := c.cache.SetProfile(ctx, c.region, server, name, profile); cerr != nil {
			c.logger.Warn("profile cache write failed", slog.String("error", cerr.Error()))
		}
	case errors.Is(err, model.ErrCharacterNotFound):
		if cerr := c.cache.SetNotFound(ctx, c.region, server, name); cerr != nil {
			c.logger.Warn("profile cache write failed", slog.String("error", cerr.Error()))
		}
	}
	return profile, err
}
