package factory

import (
	"time"

	"github.com/mcoot/guildbot/internal/dependencies/mocks"
	"github.com/mcoot/guildbot/internal/scheduler"
	"github.com/mcoot/guildbot/internal/services/auth"
	"github.com/mcoot/guildbot/internal/storage/memory"
	"github.com/mcoot/guildbot/internal/testutil"
)

// TestAdminToken is the API bearer token accepted by a TestApp
const TestAdminToken = "test-admin-token"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockIDs    *mocks.MockIDs
	MockLookup *mocks.MockLookup
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()
	mockLookup := mocks.NewMockLookup()

	hash, err := auth.HashToken(TestAdminToken)
	if err != nil {
		panic(err)
	}
	authCfg := auth.DefaultConfig()
	authCfg.TokenHash = hash

	app, err := newWithDependencies(dependencies{
		store:    store,
		clock:    mockClock,
		ids:      mockIDs,
		lookup:   mockLookup,
		authCfg:  authCfg,
		schedCfg: scheduler.DefaultConfig(),
		logger:   testutil.NopLogger(),
		location: time.UTC,
	})
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockIDs:    mockIDs,
		MockLookup: mockLookup,
		Memory:     store,
	}
}
