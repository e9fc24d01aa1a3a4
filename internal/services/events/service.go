// Package events manages recurring raid templates and their dated instances.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gosimple/slug"

	"github.com/mcoot/guildbot/internal/dependencies/clock"
	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

const (
	// DateLayout is the accepted instance date format
	DateLayout = "2006-01-02"

	// DefaultDurationMinutes applies to templates saved without a duration
	DefaultDurationMinutes = 180
)

// Service manages event templates and instances
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	loc     *time.Location
	logger  *slog.Logger
}

// New creates a new events service. Dates and start times are read in loc.
func New(storage storage.Storage, clock clock.Clock, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		storage: storage,
		clock:   clock,
		loc:     loc,
		logger:  logger,
	}
}

// Location returns the guild time zone
func (s *Service) Location() *time.Location {
	return s.loc
}

// SaveTemplate creates or replaces the template with the same name. The name
// is slugified; when empty it is derived from the title.
func (s *Service) SaveTemplate(ctx context.Context, t *model.EventTemplate) (*model.EventTemplate, error) {
	tmpl := *t
	name := tmpl.Name
	if name == "" {
		name = tmpl.Title
	}
	tmpl.Name = slug.Make(name)
	if tmpl.Name == "" {
		return nil, model.ErrInvalidName
	}
	if tmpl.Title == "" {
		tmpl.Title = name
	}
	if _, _, err := tmpl.StartClock(); err != nil {
		return nil, err
	}
	if tmpl.DurationMinutes <= 0 {
		tmpl.DurationMinutes = DefaultDurationMinutes
	}
	if tmpl.MaxParticipants <= 0 {
		tmpl.MaxParticipants = model.DefaultMaxParticipants
	}

	now := s.clock.Now()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	saved, err := s.storage.SaveEventTemplate(ctx, &tmpl)
	if err != nil {
		return nil, err
	}
	s.logger.Info("event template saved",
		slog.String("name", saved.Name),
		slog.String("weekday", saved.DayOfWeek.String()),
		slog.String("start", saved.StartTime),
	)
	return saved, nil
}

// ListTemplates returns every template, Monday first
func (s *Service) ListTemplates(ctx context.Context) ([]*model.EventTemplate, error) {
	return s.storage.ListEventTemplates(ctx)
}

// CreateInstance schedules a template on a date given as YYYY-MM-DD
func (s *Service) CreateInstance(ctx context.Context, templateName, date string) (*model.EventInstance, error) {
	tmpl, err := s.storage.GetEventTemplateByName(ctx, templateName)
	if err != nil {
		return nil, err
	}
	if !tmpl.Active {
		return nil, model.ErrTemplateInactive
	}

	day, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not YYYY-MM-DD", model.ErrInvalidDate, date)
	}
	hour, minute, err := tmpl.StartClock()
	if err != nil {
		return nil, err
	}
	startsAt := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, s.loc)

	if startsAt.Weekday() != tmpl.DayOfWeek {
		s.logger.Warn("instance date does not fall on the template weekday",
			slog.String("template", tmpl.Name),
			slog.String("date", date),
			slog.String("weekday", tmpl.DayOfWeek.String()),
		)
	}

	now := s.clock.Now()
	e, err := s.storage.CreateEventInstance(ctx, &model.EventInstance{
		TemplateID: tmpl.ID,
		StartsAt:   startsAt,
		Status:     model.EventStatusUpcoming,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("event instance created",
		slog.Int64("event_id", int64(e.ID)),
		slog.String("template", tmpl.Name),
		slog.String("starts_at", startsAt.Format(time.RFC3339)),
	)
	return e, nil
}

// Get returns an event instance
func (s *Service) Get(ctx context.Context, id model.EventID) (*model.EventInstance, error) {
	return s.storage.GetEventInstance(ctx, id)
}

// ListUpcoming returns upcoming instances, soonest first
func (s *Service) ListUpcoming(ctx context.Context) ([]*model.EventInstance, error) {
	return s.storage.ListEventInstances(ctx, model.EventStatusUpcoming)
}

// List returns instances with the given status, or all when status is empty
func (s *Service) List(ctx context.Context, status model.EventStatus) ([]*model.EventInstance, error) {
	return s.storage.ListEventInstances(ctx, status)
}

// SetAnnouncement records the message that announces an instance
func (s *Service) SetAnnouncement(ctx context.Context, id model.EventID, ref model.AnnouncementRef) error {
	return s.storage.SetEventAnnouncement(ctx, id, ref, s.clock.Now())
}

// Cancel closes an instance for sign-up
func (s *Service) Cancel(ctx context.Context, id model.EventID) error {
	e, err := s.storage.GetEventInstance(ctx, id)
	if err != nil {
		return err
	}
	if !e.IsOpen() {
		return model.ErrEventClosed
	}
	return s.storage.UpdateEventInstanceStatus(ctx, id, model.EventStatusCancelled, s.clock.Now())
}

// CompletePast marks upcoming instances that have ended as completed and
// returns them
func (s *Service) CompletePast(ctx context.Context) ([]*model.EventInstance, error) {
	upcoming, err := s.storage.ListEventInstances(ctx, model.EventStatusUpcoming)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var completed []*model.EventInstance
	for _, e := range upcoming {
		if e.EndsAt().After(now) {
			continue
		}
		if err := s.storage.UpdateEventInstanceStatus(ctx, e.ID, model.EventStatusCompleted, now); err != nil {
			return completed, err
		}
		e.Status = model.EventStatusCompleted
		completed = append(completed, e)
	}
	if len(completed) > 0 {
		s.logger.Info("completed past events", slog.Int("count", len(completed)))
	}
	return completed, nil
}
