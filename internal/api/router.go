package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/guildbot/internal/api/handler"
	"github.com/mcoot/guildbot/internal/api/middleware"
	"github.com/mcoot/guildbot/internal/services/admin"
	"github.com/mcoot/guildbot/internal/services/auth"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/events"
	"github.com/mcoot/guildbot/internal/services/roster"
	"github.com/mcoot/guildbot/internal/services/stats"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger           *slog.Logger
	AuthService      *auth.Service
	EventService     *events.Service
	RosterService    *roster.Service
	AdminService     *admin.Service
	DirectoryService *directory.Service
	StatsService     *stats.Service
	// Pinger is pinged by the health check; nil reports the in-memory store
	Pinger handler.Pinger
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	healthHandler := handler.NewHealthHandler(cfg.Pinger)
	eventHandler := handler.NewEventHandler(cfg.EventService, cfg.RosterService, cfg.AdminService)
	characterHandler := handler.NewCharacterHandler(cfg.DirectoryService)
	statsHandler := handler.NewStatsHandler(cfg.StatsService)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))

	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(cfg.AuthService, cfg.Logger))

	protected.HandleFunc("/events", eventHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/events/{id:[0-9]+}", eventHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/events/{id:[0-9]+}/roster", eventHandler.Roster).Methods(http.MethodGet)
	protected.HandleFunc("/events/{id:[0-9]+}/logs", eventHandler.Logs).Methods(http.MethodGet)
	protected.HandleFunc("/characters/resolve", characterHandler.Resolve).Methods(http.MethodGet)
	protected.HandleFunc("/guild/stats", statsHandler.Guild).Methods(http.MethodGet)

	return r
}
