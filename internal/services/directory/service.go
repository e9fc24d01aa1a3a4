// Package directory resolves free-text character names to stored characters,
// consulting the remote lookup service when the guild roster has no match.
package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/guildbot/internal/dependencies/clock"
	"github.com/mcoot/guildbot/internal/lookup"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

// maxRemoteMatches stops the priority scan; two matches is already ambiguous
const maxRemoteMatches = 2

// Outcome is the result class of a resolution
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeResolved
	OutcomeAmbiguous
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeAmbiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Resolution is what a lookup produced. Character is set only when Resolved;
// Candidates lists the matching servers only when Ambiguous.
type Resolution struct {
	Outcome    Outcome
	Name       string
	Character  *model.Character
	Candidates []string
}

// Err converts an unresolved outcome into the matching domain error
func (r *Resolution) Err() error {
	switch r.Outcome {
	case OutcomeResolved:
		return nil
	case OutcomeAmbiguous:
		return &model.AmbiguousCharacterError{Name: r.Name, Servers: r.Candidates}
	default:
		return model.ErrCharacterNotFound
	}
}

// RefreshReport summarizes a RefreshStale run
type RefreshReport struct {
	Refreshed int
	Missing   int
	Failed    int
}

// Service is the character directory
type Service struct {
	storage storage.Storage
	lookup  lookup.Client
	clock   clock.Clock
	logger  *slog.Logger
	servers []string
}

// New creates a new directory over the default priority server list
func New(storage storage.Storage, lookup lookup.Client, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		lookup:  lookup,
		clock:   clock,
		logger:  logger,
		servers: model.PriorityServers,
	}
}

// Resolve finds the character a member's display name refers to
func (s *Service) Resolve(ctx context.Context, displayName string) (*Resolution, error) {
	name := model.CleanCharacterName(displayName)
	if name == "" {
		return nil, model.ErrInvalidName
	}

	local, err := s.storage.FindGuildCharactersByName(ctx, name)
	if err != nil {
		return nil, err
	}
	switch len(local) {
	case 0:
	case 1:
		return &Resolution{Outcome: OutcomeResolved, Name: name, Character: local[0]}, nil
	default:
		servers := make([]string, 0, len(local))
		for _, c := range local {
			servers = append(servers, c.Server)
		}
		return &Resolution{Outcome: OutcomeAmbiguous, Name: name, Candidates: servers}, nil
	}

	var matches []*model.CharacterProfile
	for _, server := range s.servers {
		profile, err := s.lookup.Lookup(ctx, server, name)
		if err != nil {
			if !errors.Is(err, model.ErrCharacterNotFound) {
				s.logger.Warn("remote lookup failed",
					slog.String("server", server),
					slog.String("name", name),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		matches = append(matches, profile)
		if len(matches) >= maxRemoteMatches {
			break
		}
	}

	switch len(matches) {
	case 0:
		return &Resolution{Outcome: OutcomeNotFound, Name: name}, nil
	case 1:
		c, err := s.save(ctx, matches[0], false)
		if err != nil {
			return nil, err
		}
		return &Resolution{Outcome: OutcomeResolved, Name: name, Character: c}, nil
	default:
		servers := make([]string, 0, len(matches))
		for _, m := range matches {
			servers = append(servers, m.Server)
		}
		return &Resolution{Outcome: OutcomeAmbiguous, Name: name, Candidates: servers}, nil
	}
}

// ResolveOnServer looks a character up on one server. serverInput may be a
// Korean realm name.
func (s *Service) ResolveOnServer(ctx context.Context, name, serverInput string) (*Resolution, error) {
	name = model.CleanCharacterName(name)
	if name == "" {
		return nil, model.ErrInvalidName
	}
	server := model.NormalizeServer(serverInput)

	profile, err := s.lookup.Lookup(ctx, server, name)
	switch {
	case errors.Is(err, model.ErrCharacterNotFound):
		return &Resolution{Outcome: OutcomeNotFound, Name: name}, nil
	case errors.Is(err, model.ErrTransient):
		return nil, err
	case err != nil:
		return nil, model.Transient("lookup", err)
	}

	c, err := s.save(ctx, profile, false)
	if err != nil {
		return nil, err
	}
	return &Resolution{Outcome: OutcomeResolved, Name: name, Character: c}, nil
}

// RegisterGuildMember looks a character up and marks it as part of the guild
// roster, so later display-name resolution finds it locally.
func (s *Service) RegisterGuildMember(ctx context.Context, name, serverInput string) (*model.Character, error) {
	res, err := s.ResolveOnServer(ctx, name, serverInput)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	c := *res.Character
	c.IsGuildMember = true
	c.UpdatedAt = s.clock.Now()
	return s.storage.UpsertCharacter(ctx, &c)
}

// Get returns a stored character
func (s *Service) Get(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	return s.storage.GetCharacter(ctx, id)
}

// RefreshStale re-fetches guild characters last refreshed before now-olderThan.
// Characters the remote service no longer knows keep their data but have
// their refresh time bumped so they do not block the queue.
func (s *Service) RefreshStale(ctx context.Context, olderThan time.Duration, limit int) (RefreshReport, error) {
	var report RefreshReport
	now := s.clock.Now()

	stale, err := s.storage.ListStaleGuildCharacters(ctx, now.Add(-olderThan), limit)
	if err != nil {
		return report, err
	}

	for _, c := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		profile, err := s.lookup.Lookup(ctx, c.Server, c.Name)
		switch {
		case err == nil:
			if _, err := s.save(ctx, profile, true); err != nil {
				return report, err
			}
			report.Refreshed++
		case errors.Is(err, model.ErrCharacterNotFound):
			touched := *c
			touched.LastRefreshedAt = now
			touched.UpdatedAt = now
			if _, err := s.storage.UpsertCharacter(ctx, &touched); err != nil {
				return report, err
			}
			report.Missing++
		default:
			s.logger.Warn("character refresh failed",
				slog.String("name", c.Name),
				slog.String("server", c.Server),
				slog.String("error", err.Error()),
			)
			report.Failed++
		}
	}

	if len(stale) > 0 {
		s.logger.Info("refreshed guild characters",
			slog.Int("refreshed", report.Refreshed),
			slog.Int("missing", report.Missing),
			slog.Int("failed", report.Failed),
		)
	}
	return report, nil
}

// save upserts a remote profile. The stored guild flag is never cleared.
func (s *Service) save(ctx context.Context, profile *model.CharacterProfile, guild bool) (*model.Character, error) {
	now := s.clock.Now()
	c := profile.ToCharacter(now)
	c.IsGuildMember = guild
	c.CreatedAt = now
	c.UpdatedAt = now
	return s.storage.UpsertCharacter(ctx, c)
}
