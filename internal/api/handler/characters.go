package handler

import (
	"net/http"

	"github.com/mcoot/guildbot/internal/api/apierr"
	"github.com/mcoot/guildbot/internal/api/request"
	"github.com/mcoot/guildbot/internal/api/response"
	"github.com/mcoot/guildbot/internal/services/directory"
)

// CharacterHandler exposes the character directory
type CharacterHandler struct {
	directory *directory.Service
}

// NewCharacterHandler creates a new character handler
func NewCharacterHandler(directory *directory.Service) *CharacterHandler {
	return &CharacterHandler{directory: directory}
}

// Resolve handles GET /api/v1/characters/resolve?name=&server=
// Every outcome, including not_found, is a 200 carrying the resolution.
func (h *CharacterHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	name, err := request.Required(r, "name")
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	var res *directory.Resolution
	if server := r.URL.Query().Get("server"); server != "" {
		res, err = h.directory.ResolveOnServer(r.Context(), name, server)
	} else {
		res, err = h.directory.Resolve(r.Context(), name)
	}
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.ResolutionFromModel(res))
}
