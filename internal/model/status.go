package model

import (
	"fmt"
	"strings"
)

// Status is a member's participation status for an event instance.
// The set of values is closed; use ParseStatus on any external input.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusTentative Status = "tentative"
	StatusDeclined  Status = "declined"
)

// Statuses lists every status in roster display order
var Statuses = []Status{StatusConfirmed, StatusTentative, StatusDeclined}

// ParseStatus validates a status string
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusConfirmed, StatusTentative, StatusDeclined:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusTentative, StatusDeclined:
		return true
	default:
		return false
	}
}

// AcceptsMemo reports whether the sign-up flow prompts for a memo
func (s Status) AcceptsMemo() bool {
	switch s {
	case StatusTentative, StatusDeclined:
		return true
	case StatusConfirmed:
		return false
	default:
		return false
	}
}

// Order returns the roster grouping order of the status
func (s Status) Order() int {
	switch s {
	case StatusConfirmed:
		return 0
	case StatusTentative:
		return 1
	case StatusDeclined:
		return 2
	default:
		return len(Statuses)
	}
}
