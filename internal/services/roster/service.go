// Package roster groups an event instance's participation rows for display.
package roster

import (
	"context"
	"sort"
	"strings"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

// Group is every row with one status, in roster order
type Group struct {
	Status model.Status
	Rows   []*model.Participation
}

// Roster is the display view of an event instance
type Roster struct {
	Event  *model.EventInstance
	Groups []Group
	// RoleCounts counts confirmed rows per detailed role
	RoleCounts   map[model.DetailedRole]int
	Confirmed    int
	Capacity     int
	OverCapacity bool
}

// Group returns the rows with status
func (r *Roster) Group(status model.Status) []*model.Participation {
	for _, g := range r.Groups {
		if g.Status == status {
			return g.Rows
		}
	}
	return nil
}

// Service builds rosters
type Service struct {
	storage storage.Storage
}

// New creates a new roster service
func New(storage storage.Storage) *Service {
	return &Service{storage: storage}
}

// Build returns the roster of an event instance
func (s *Service) Build(ctx context.Context, eventID model.EventID) (*Roster, error) {
	event, err := s.storage.GetEventInstance(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rows, err := s.storage.ListParticipations(ctx, eventID)
	if err != nil {
		return nil, err
	}

	capacity := model.DefaultMaxParticipants
	if event.Template != nil {
		capacity = event.Template.Capacity()
	}
	return Arrange(event, rows, capacity), nil
}

// Arrange groups rows by status, then role priority, then character name
func Arrange(event *model.EventInstance, rows []*model.Participation, capacity int) *Roster {
	r := &Roster{
		Event:      event,
		RoleCounts: make(map[model.DetailedRole]int, len(model.Roles)),
		Capacity:   capacity,
	}
	for _, role := range model.Roles {
		r.RoleCounts[role] = 0
	}

	byStatus := make(map[model.Status][]*model.Participation, len(model.Statuses))
	for _, row := range rows {
		byStatus[row.Status] = append(byStatus[row.Status], row)
		if row.Status == model.StatusConfirmed {
			r.RoleCounts[row.DetailedRole]++
			r.Confirmed++
		}
	}

	for _, status := range model.Statuses {
		group := byStatus[status]
		sort.SliceStable(group, func(i, j int) bool {
			pi, pj := group[i].DetailedRole.Priority(), group[j].DetailedRole.Priority()
			if pi != pj {
				return pi < pj
			}
			return strings.ToLower(group[i].Character.Name) < strings.ToLower(group[j].Character.Name)
		})
		r.Groups = append(r.Groups, Group{Status: status, Rows: group})
	}

	r.OverCapacity = r.Confirmed > r.Capacity
	return r
}
