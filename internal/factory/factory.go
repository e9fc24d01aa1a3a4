package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/guildbot/internal/api"
	"github.com/mcoot/guildbot/internal/api/handler"
	"github.com/mcoot/guildbot/internal/bot"
	"github.com/mcoot/guildbot/internal/config"
	"github.com/mcoot/guildbot/internal/dependencies/clock"
	"github.com/mcoot/guildbot/internal/dependencies/ids"
	"github.com/mcoot/guildbot/internal/lookup"
	"github.com/mcoot/guildbot/internal/scheduler"
	"github.com/mcoot/guildbot/internal/services/admin"
	"github.com/mcoot/guildbot/internal/services/audit"
	"github.com/mcoot/guildbot/internal/services/auth"
	"github.com/mcoot/guildbot/internal/services/directory"
	"github.com/mcoot/guildbot/internal/services/events"
	"github.com/mcoot/guildbot/internal/services/ledger"
	"github.com/mcoot/guildbot/internal/services/linker"
	"github.com/mcoot/guildbot/internal/services/placeholder"
	"github.com/mcoot/guildbot/internal/services/roster"
	"github.com/mcoot/guildbot/internal/services/signup"
	"github.com/mcoot/guildbot/internal/services/stats"
	"github.com/mcoot/guildbot/internal/storage"
	"github.com/mcoot/guildbot/internal/storage/memory"
	"github.com/mcoot/guildbot/internal/storage/relational"
	redisstorage "github.com/mcoot/guildbot/internal/storage/redis"
)

// ErrNotRelational is returned by Migrate when the store is in memory
var ErrNotRelational = errors.New("storage is not relational")

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	IDs    ids.Generator
	Lookup lookup.Client

	// Services
	DirectoryService   *directory.Service
	LinkerService      *linker.Service
	LedgerService      *ledger.Service
	PlaceholderService *placeholder.Service
	AuditService       *audit.Service
	SignupService      *signup.Service
	EventService       *events.Service
	RosterService      *roster.Service
	AdminService       *admin.Service
	AuthService        *auth.Service
	StatsService       *stats.Service

	// Adapters
	Bot       *bot.Bot
	Scheduler *scheduler.Scheduler

	logger  *slog.Logger
	pingers pingers
	closers []io.Closer
}

// dependencies are the parts New builds from config and tests replace
type dependencies struct {
	store    storage.Storage
	clock    clock.Clock
	ids      ids.Generator
	lookup   lookup.Client
	authCfg  auth.Config
	schedCfg scheduler.Config
	botCfg   bot.Config
	logger   *slog.Logger
	location *time.Location
	pingers  pingers
	closers  []io.Closer
}

// New creates a new application with all dependencies wired from cfg
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	deps := dependencies{
		clock:    clock.New(loc),
		ids:      ids.New(),
		location: loc,
		logger:   logger,
		authCfg: auth.Config{
			TokenHash:       cfg.AdminTokenHash,
			SessionDuration: auth.DefaultConfig().SessionDuration,
		},
		botCfg: bot.Config{
			Token:        cfg.DiscordToken,
			GuildID:      cfg.DiscordGuildID,
			AdminRoleIDs: cfg.AdminRoles(),
		},
	}
	deps.schedCfg = scheduler.DefaultConfig()
	deps.schedCfg.RefreshInterval = cfg.RefreshInterval
	deps.schedCfg.StaleAfter = cfg.RefreshStaleAfter
	deps.schedCfg.RefreshBatch = cfg.RefreshBatch

	switch cfg.StorageType {
	case config.StorageTypeMemory:
		deps.store = memory.New()
	case config.StorageTypePostgres, config.StorageTypeMySQL, config.StorageTypeSQLite:
		dbCfg := relational.DefaultConfig()
		dbCfg.Driver = cfg.StorageType
		dbCfg.DSN = cfg.DatabaseURL
		dbCfg.Location = loc
		db, err := relational.New(dbCfg, logger)
		if err != nil {
			return nil, err
		}
		deps.store = db
		deps.pingers = append(deps.pingers, db)
		deps.closers = append(deps.closers, db)
	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.StorageType)
	}

	var client lookup.Client = lookup.NewHTTPClient(lookup.Config{
		BaseURL: cfg.LookupBaseURL,
		Region:  cfg.LookupRegion,
		Timeout: cfg.LookupTimeout,
	})
	if cfg.RedisURL != "" {
		cacheCfg := redisstorage.DefaultConfig()
		cacheCfg.URL = cfg.RedisURL
		cacheCfg.ProfileTTL = cfg.LookupCacheTTL
		cache, err := redisstorage.New(cacheCfg)
		if err != nil {
			_ = closeAll(deps.closers)
			return nil, err
		}
		client = lookup.NewCached(client, cache, cfg.LookupRegion, logger)
		deps.pingers = append(deps.pingers, cache)
		deps.closers = append(deps.closers, cache)
	}
	deps.lookup = client

	app, err := newWithDependencies(deps)
	if err != nil {
		_ = closeAll(deps.closers)
		return nil, err
	}
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(deps dependencies) (*App, error) {
	logger := deps.logger
	store := deps.store

	directoryService := directory.New(store, deps.lookup, deps.clock, logger)
	linkerService := linker.New(store, deps.clock, logger)
	ledgerService := ledger.New(store, deps.clock, logger)
	placeholderService := placeholder.New(store, deps.ids, deps.clock, logger)
	auditService := audit.New(store, deps.clock, logger)
	eventService := events.New(store, deps.clock, deps.location, logger)
	signupService := signup.New(store, directoryService, linkerService, ledgerService, placeholderService, auditService, logger)
	rosterService := roster.New(store)
	adminService := admin.New(store, directoryService, ledgerService, placeholderService, auditService, logger)
	authService := auth.New(deps.clock, deps.authCfg)
	statsService := stats.New(store, logger)

	discord := bot.New(deps.botCfg, bot.Services{
		Signup:    signupService,
		Events:    eventService,
		Roster:    rosterService,
		Admin:     adminService,
		Directory: directoryService,
		Linker:    linkerService,
		Stats:     statsService,
	}, logger)

	sched, err := scheduler.New(deps.schedCfg, directoryService, eventService, authService, logger)
	if err != nil {
		return nil, err
	}
	sched.SetAnnouncer(discord)

	return &App{
		Storage:            store,
		Clock:              deps.clock,
		IDs:                deps.ids,
		Lookup:             deps.lookup,
		DirectoryService:   directoryService,
		LinkerService:      linkerService,
		LedgerService:      ledgerService,
		PlaceholderService: placeholderService,
		AuditService:       auditService,
		SignupService:      signupService,
		EventService:       eventService,
		RosterService:      rosterService,
		AdminService:       adminService,
		AuthService:        authService,
		StatsService:       statsService,
		Bot:                discord,
		Scheduler:          sched,
		logger:             logger,
		pingers:            deps.pingers,
		closers:            deps.closers,
	}, nil
}

// Router returns the admin HTTP API handler
func (a *App) Router() http.Handler {
	cfg := api.RouterConfig{
		Logger:           a.logger,
		AuthService:      a.AuthService,
		EventService:     a.EventService,
		RosterService:    a.RosterService,
		AdminService:     a.AdminService,
		DirectoryService: a.DirectoryService,
		StatsService:     a.StatsService,
	}
	if len(a.pingers) > 0 {
		cfg.Pinger = a.pingers
	}
	return api.NewRouter(cfg)
}

// Migrate creates or updates the relational schema
func (a *App) Migrate(ctx context.Context) error {
	db, ok := a.Storage.(*relational.Storage)
	if !ok {
		return ErrNotRelational
	}
	return db.Migrate(ctx)
}

// Close releases the database and cache connections
func (a *App) Close() error {
	return closeAll(a.closers)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pingers pings every backing service in order
type pingers []handler.Pinger

func (p pingers) Ping(ctx context.Context) error {
	for _, pinger := range p {
		if err := pinger.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
