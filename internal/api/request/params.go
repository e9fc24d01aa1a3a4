// Package request parses path and query parameters of the admin API.
package request

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/guildbot/internal/api/apierr"
	"github.com/mcoot/guildbot/internal/model"
)

// EventID reads the {id} path variable
func EventID(r *http.Request) (model.EventID, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.NewInvalidRequestError(fmt.Sprintf("invalid event id %q", raw))
	}
	return model.EventID(id), nil
}

// Limit reads the limit query parameter, returning 0 when absent
func Limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierr.NewInvalidRequestError(fmt.Sprintf("invalid limit %q", raw))
	}
	return n, nil
}

// EventStatus reads the status query parameter, defaulting to upcoming.
// "all" lists every instance.
func EventStatus(r *http.Request) (model.EventStatus, error) {
	switch raw := strings.ToLower(r.URL.Query().Get("status")); raw {
	case "":
		return model.EventStatusUpcoming, nil
	case "all":
		return "", nil
	case string(model.EventStatusUpcoming), string(model.EventStatusCompleted), string(model.EventStatusCancelled):
		return model.EventStatus(raw), nil
	default:
		return "", apierr.NewInvalidRequestError(fmt.Sprintf("invalid status %q", raw))
	}
}

// Required reads a query parameter that must be non-empty
func Required(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", apierr.NewInvalidRequestError(name + " is required")
	}
	return v, nil
}
