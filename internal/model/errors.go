package model

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used across the application
var (
	// Character errors
	ErrCharacterNotFound = errors.New("character not found")
	ErrCharacterTaken    = errors.New("character is already signed up by another member")

	// Platform user errors
	ErrUserNotFound = errors.New("platform user not found")

	// Ownership errors
	ErrNoVerifiedCharacter = errors.New("no verified character")

	// Event errors
	ErrTemplateNotFound = errors.New("event template not found")
	ErrTemplateInactive = errors.New("event template is inactive")
	ErrEventNotFound    = errors.New("event instance not found")
	ErrEventClosed      = errors.New("event instance is not open for sign-up")

	// Participation errors
	ErrParticipationNotFound = errors.New("participation not found")

	// Validation errors
	ErrInvalidStatus = errors.New("invalid participation status")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidName   = errors.New("invalid name")

	// ErrTransient marks store or remote-service failures
	ErrTransient = errors.New("temporary failure")
)

// AmbiguousCharacterError is returned when a character name matches more than
// one server and the caller has to pick one.
type AmbiguousCharacterError struct {
	Name    string
	Servers []string
}

func (e *AmbiguousCharacterError) Error() string {
	return fmt.Sprintf("character %q exists on multiple servers: %s", e.Name, strings.Join(e.Servers, ", "))
}

// Transient wraps err so that errors.Is(err, ErrTransient) holds.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}
