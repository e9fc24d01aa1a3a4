// Package scheduler runs the bot's periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mcoot/guildbot/internal/services/auth"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/events"
	"github.com/mcoot/guildbot/internal/services/signup"
)

// Config holds job intervals
type Config struct {
	RefreshInterval  time.Duration
	StaleAfter       time.Duration
	RefreshBatch     int
	CompleteInterval time.Duration
	CleanupInterval  time.Duration
	JobTimeout       time.Duration
}

// DefaultConfig returns default job intervals
func DefaultConfig() Config {
	return Config{
		RefreshInterval:  6 * time.Hour,
		StaleAfter:       24 * time.Hour,
		RefreshBatch:     50,
		CompleteInterval: 5 * time.Minute,
		CleanupInterval:  15 * time.Minute,
		JobTimeout:       2 * time.Minute,
	}
}

// Scheduler owns the gocron scheduler and the job bodies
type Scheduler struct {
	sched     gocron.Scheduler
	directory *directory.Service
	events    *events.Service
	auth      *auth.Service
	announcer signup.Announcer
	cfg       Config
	logger    *slog.Logger
}

// New registers every job; nothing runs until Start
func New(cfg Config, directory *directory.Service, events *events.Service, auth *auth.Service, logger *slog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Scheduler{
		sched:     sched,
		directory: directory,
		events:    events,
		auth:      auth,
		cfg:       cfg,
		logger:    logger,
	}

	jobs := []struct {
		name     string
		interval time.Duration
		run      func(context.Context) error
	}{
		{"refresh-characters", cfg.RefreshInterval, s.RefreshCharacters},
		{"complete-events", cfg.CompleteInterval, s.CompleteEvents},
		{"clean-sessions", cfg.CleanupInterval, s.CleanSessions},
	}
	for _, j := range jobs {
		if j.interval <= 0 {
			continue
		}
		_, err := sched.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(s.task(j.name, j.run)),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("register %s: %w", j.name, err)
		}
	}
	return s, nil
}

// SetAnnouncer makes CompleteEvents re-render the announcements it closes
func (s *Scheduler) SetAnnouncer(a signup.Announcer) {
	s.announcer = a
}

// Start starts running jobs in the background
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.sched.Jobs())))
	s.sched.Start()
}

// Shutdown stops the scheduler and waits for running jobs
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// JobNames returns the names of the registered jobs
func (s *Scheduler) JobNames() []string {
	jobs := s.sched.Jobs()
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name()
	}
	return names
}

func (s *Scheduler) task(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.Error("scheduled job failed",
				slog.String("job", name),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Debug("scheduled job finished",
			slog.String("job", name),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// RefreshCharacters re-fetches guild characters not refreshed within StaleAfter
func (s *Scheduler) RefreshCharacters(ctx context.Context) error {
	_, err := s.directory.RefreshStale(ctx, s.cfg.StaleAfter, s.cfg.RefreshBatch)
	return err
}

// CompleteEvents closes instances that have ended
func (s *Scheduler) CompleteEvents(ctx context.Context) error {
	completed, err := s.events.CompletePast(ctx)
	if err != nil {
		return err
	}
	if s.announcer == nil {
		return nil
	}
	for _, e := range completed {
		if e.Announcement.IsZero() {
			continue
		}
		if err := s.announcer.RefreshAnnouncement(ctx, e.ID); err != nil {
			s.logger.Warn("failed to refresh completed announcement",
				slog.Int64("event_id", int64(e.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// CleanSessions drops expired admin API sessions
func (s *Scheduler) CleanSessions(context.Context) error {
	if n := s.auth.CleanExpiredSessions(); n > 0 {
		s.logger.Debug("cleaned admin sessions", slog.Int("removed", n))
	}
	return nil
}
