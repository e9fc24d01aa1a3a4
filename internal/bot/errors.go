package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcoot/guildbot/internal/model"
)

const genericErrorMessage = "Something went wrong, please try again later."

// userMessage converts a service error into the ephemeral reply shown to the member
func userMessage(err error) string {
	var ambiguous *model.AmbiguousCharacterError
	switch {
	case errors.As(err, &ambiguous):
		return fmt.Sprintf("**%s** exists on several servers: %s. Use **Change character** to pick one.",
			ambiguous.Name, strings.Join(ambiguous.Servers, ", "))
	case errors.Is(err, model.ErrCharacterNotFound):
		return "Character not found. Make sure your server nickname is your character name, or use **Change character**."
	case errors.Is(err, model.ErrCharacterTaken):
		return "That character is already signed up by another member."
	case errors.Is(err, model.ErrEventNotFound):
		return "That raid does not exist."
	case errors.Is(err, model.ErrEventClosed):
		return "Sign-up for that raid is closed."
	case errors.Is(err, model.ErrTemplateNotFound):
		return "No raid template with that name."
	case errors.Is(err, model.ErrTemplateInactive):
		return "That raid template is inactive."
	case errors.Is(err, model.ErrParticipationNotFound):
		return "That character is not on the roster."
	case errors.Is(err, model.ErrNoVerifiedCharacter), errors.Is(err, model.ErrUserNotFound):
		return "You have no verified character yet. Sign up for a raid first."
	case errors.Is(err, model.ErrInvalidStatus):
		return "Unknown status."
	case errors.Is(err, model.ErrInvalidDate):
		return "Dates look like 2024-01-31."
	case errors.Is(err, model.ErrInvalidName):
		return "That name is not valid."
	case errors.Is(err, errNotAdmin):
		return "Only raid administrators can do that."
	default:
		return genericErrorMessage
	}
}

var errNotAdmin = errors.New("member is not an administrator")
