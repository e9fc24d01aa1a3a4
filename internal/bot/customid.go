package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mcoot/guildbot/internal/model"
)

// Custom id prefixes of announcement buttons and the modals they open.
// Ids are "<prefix>:<arg>:<event id>" or "<prefix>:<event id>".
const (
	prefixSignup    = "signup"
	prefixChange    = "change"
	prefixMemo      = "memo"
	prefixCharacter = "character"

	inputMemo   = "memo"
	inputName   = "name"
	inputServer = "server"
)

func signupButtonID(status model.Status, eventID model.EventID) string {
	return fmt.Sprintf("%s:%s:%d", prefixSignup, status, eventID)
}

func changeButtonID(eventID model.EventID) string {
	return fmt.Sprintf("%s:%d", prefixChange, eventID)
}

func memoModalID(status model.Status, eventID model.EventID) string {
	return fmt.Sprintf("%s:%s:%d", prefixMemo, status, eventID)
}

func characterModalID(eventID model.EventID) string {
	return fmt.Sprintf("%s:%d", prefixCharacter, eventID)
}

// customID is a parsed button or modal id
type customID struct {
	prefix  string
	status  model.Status
	eventID model.EventID
}

func parseCustomID(raw string) (customID, error) {
	parts := strings.Split(raw, ":")
	var id customID
	var eventPart string

	switch {
	case len(parts) == 3 && (parts[0] == prefixSignup || parts[0] == prefixMemo):
		status, err := model.ParseStatus(parts[1])
		if err != nil {
			return id, err
		}
		id.prefix, id.status, eventPart = parts[0], status, parts[2]
	case len(parts) == 2 && (parts[0] == prefixChange || parts[0] == prefixCharacter):
		id.prefix, eventPart = parts[0], parts[1]
	default:
		return id, fmt.Errorf("unknown custom id %q", raw)
	}

	n, err := strconv.ParseInt(eventPart, 10, 64)
	if err != nil || n <= 0 {
		return id, fmt.Errorf("custom id %q: bad event id", raw)
	}
	id.eventID = model.EventID(n)
	return id, nil
}
