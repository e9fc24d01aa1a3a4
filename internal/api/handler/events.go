package handler

import (
	"net/http"

	"github.com/mcoot/guildbot/internal/api/apierr"
	"github.com/mcoot/guildbot/internal/api/request"
	"github.com/mcoot/guildbot/internal/api/response"
	"github.com/mcoot/guildbot/internal/services/admin"
	"github.com/mcoot/guildbot/internal/services/events"
	"github.com/mcoot/guildbot/internal/services/roster"
)

// EventHandler serves event instances, their rosters, and their audit logs
type EventHandler struct {
	events *events.Service
	roster *roster.Service
	admin  *admin.Service
}

// NewEventHandler creates a new event handler
func NewEventHandler(events *events.Service, roster *roster.Service, admin *admin.Service) *EventHandler {
	return &EventHandler{
		events: events,
		roster: roster,
		admin:  admin,
	}
}

// List handles GET /api/v1/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	status, err := request.EventStatus(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	instances, err := h.events.List(r.Context(), status)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.List(instances, response.EventFromModel))
}

// Get handles GET /api/v1/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.EventID(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	e, err := h.events.Get(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.EventFromModel(e))
}

// Roster handles GET /api/v1/events/{id}/roster
func (h *EventHandler) Roster(w http.ResponseWriter, r *http.Request) {
	id, err := request.EventID(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	ro, err := h.roster.Build(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RosterFromModel(ro))
}

// Logs handles GET /api/v1/events/{id}/logs?limit=
func (h *EventHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, err := request.EventID(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	limit, err := request.Limit(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	entries, err := h.admin.Logs(r.Context(), id, limit)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.List(entries, response.LogEntryFromModel))
}
