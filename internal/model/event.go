package model

import (
	"fmt"
	"time"
)

// TemplateID identifies a recurring event template
type TemplateID int64

// EventID identifies a concrete event instance
type EventID int64

// DefaultMaxParticipants is the roster capacity used when a template sets none
const DefaultMaxParticipants = 20

// EventTemplate describes a recurring raid night
type EventTemplate struct {
	ID              TemplateID
	Name            string // unique key used by admins when creating instances
	Title           string
	Expansion       string
	Season          int
	Difficulty      string
	ContentName     string
	DayOfWeek       time.Weekday
	StartTime       string // "HH:MM" in the guild time zone
	DurationMinutes int
	MaxParticipants int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StartClock parses StartTime into hours and minutes
func (t *EventTemplate) StartClock() (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", t.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("template %q start time %q: %w", t.Name, t.StartTime, ErrInvalidDate)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// Capacity returns the maximum participants, falling back to the default
func (t *EventTemplate) Capacity() int {
	if t.MaxParticipants <= 0 {
		return DefaultMaxParticipants
	}
	return t.MaxParticipants
}

// EventStatus represents the lifecycle state of an event instance
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// AnnouncementRef points at the chat message that renders an event roster
type AnnouncementRef struct {
	ChannelID string
	MessageID string
}

// IsZero reports whether no announcement has been posted
func (a AnnouncementRef) IsZero() bool {
	return a.ChannelID == "" || a.MessageID == ""
}

// EventInstance is one concrete occurrence of a template.
// Only Status and Announcement change after creation.
type EventInstance struct {
	ID           EventID
	TemplateID   TemplateID
	Template     *EventTemplate // populated on reads
	StartsAt     time.Time
	Status       EventStatus
	Announcement AnnouncementRef
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsOpen reports whether members may still sign up
func (e *EventInstance) IsOpen() bool {
	return e.Status == EventStatusUpcoming
}

// EndsAt returns the scheduled end of the instance
func (e *EventInstance) EndsAt() time.Time {
	if e.Template == nil {
		return e.StartsAt
	}
	return e.StartsAt.Add(time.Duration(e.Template.DurationMinutes) * time.Minute)
}
