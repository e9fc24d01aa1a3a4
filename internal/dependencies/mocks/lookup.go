package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/guildbot/internal/lookup"
	"github.com/mcoot/guildbot/internal/model"
)

// MockLookup is an in-memory lookup.Client. Unknown characters are reported
// as not found unless an error is registered for their server.
type MockLookup struct {
	mu       sync.Mutex
	profiles map[string]*model.CharacterProfile
	errors   map[string]error
	calls    []LookupCall
}

// LookupCall records one Lookup invocation
type LookupCall struct {
	Server string
	Name   string
}

var _ lookup.Client = (*MockLookup)(nil)

// NewMockLookup creates an empty MockLookup
func NewMockLookup() *MockLookup {
	return &MockLookup{
		profiles: make(map[string]*model.CharacterProfile),
		errors:   make(map[string]error),
	}
}

// AddProfile registers a profile under its own server and name
func (m *MockLookup) AddProfile(p *model.CharacterProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.Server+"/"+p.Name] = &cp
}

// FailServer makes every lookup on server return err
func (m *MockLookup) FailServer(server string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[server] = err
}

// Calls returns the lookups made so far, in order
func (m *MockLookup) Calls() []LookupCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LookupCall(nil), m.calls...)
}

func (m *MockLookup) Lookup(ctx context.Context, server, name string) (*model.CharacterProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, LookupCall{Server: server, Name: name})
	if err, ok := m.errors[server]; ok {
		return nil, err
	}
	p, ok := m.profiles[server+"/"+name]
	if !ok {
		return nil, model.ErrCharacterNotFound
	}
	cp := *p
	return &cp, nil
}
