package handler

import (
	"net/http"

	"github.com/mcoot/guildbot/internal/api/apierr"
	"github.com/mcoot/guildbot/internal/api/response"
	"github.com/mcoot/guildbot/internal/services/stats"
)

// StatsHandler exposes guild statistics
type StatsHandler struct {
	stats *stats.Service
}

// NewStatsHandler creates a new statistics handler
func NewStatsHandler(stats *stats.Service) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Guild handles GET /api/v1/guild/stats
func (h *StatsHandler) Guild(w http.ResponseWriter, r *http.Request) {
	report, err := h.stats.Guild(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GuildStatsFromModel(report))
}
