package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Rows are stored by value so callers never share memory with the store.
type Storage struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data *state
}

type nameServerKey struct {
	name   string
	server string
}

type ownershipKey struct {
	userID      model.UserID
	characterID model.CharacterID
}

type participationKey struct {
	eventID model.EventID
	userID  model.UserID
}

type state struct {
	seq int64

	characters        map[model.CharacterID]model.Character
	characterIndex    map[nameServerKey]model.CharacterID
	users             map[model.UserID]model.PlatformUser
	platformIndex     map[string]model.UserID
	ownerships        map[ownershipKey]model.Ownership
	templates         map[model.TemplateID]model.EventTemplate
	templateIndex     map[string]model.TemplateID
	events            map[model.EventID]model.EventInstance
	participations    map[model.ParticipationID]model.Participation
	participationKeys map[participationKey]model.ParticipationID
	logs              []model.ParticipationLogEntry
}

func newState() *state {
	return &state{
		characters:        make(map[model.CharacterID]model.Character),
		characterIndex:    make(map[nameServerKey]model.CharacterID),
		users:             make(map[model.UserID]model.PlatformUser),
		platformIndex:     make(map[string]model.UserID),
		ownerships:        make(map[ownershipKey]model.Ownership),
		templates:         make(map[model.TemplateID]model.EventTemplate),
		templateIndex:     make(map[string]model.TemplateID),
		events:            make(map[model.EventID]model.EventInstance),
		participations:    make(map[model.ParticipationID]model.Participation),
		participationKeys: make(map[participationKey]model.ParticipationID),
	}
}

func (st *state) clone() *state {
	c := &state{
		seq:               st.seq,
		characters:        make(map[model.CharacterID]model.Character, len(st.characters)),
		characterIndex:    make(map[nameServerKey]model.CharacterID, len(st.characterIndex)),
		users:             make(map[model.UserID]model.PlatformUser, len(st.users)),
		platformIndex:     make(map[string]model.UserID, len(st.platformIndex)),
		ownerships:        make(map[ownershipKey]model.Ownership, len(st.ownerships)),
		templates:         make(map[model.TemplateID]model.EventTemplate, len(st.templates)),
		templateIndex:     make(map[string]model.TemplateID, len(st.templateIndex)),
		events:            make(map[model.EventID]model.EventInstance, len(st.events)),
		participations:    make(map[model.ParticipationID]model.Participation, len(st.participations)),
		participationKeys: make(map[participationKey]model.ParticipationID, len(st.participationKeys)),
		logs:              append([]model.ParticipationLogEntry(nil), st.logs...),
	}
	for k, v := range st.characters {
		c.characters[k] = v
	}
	for k, v := range st.characterIndex {
		c.characterIndex[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.platformIndex {
		c.platformIndex[k] = v
	}
	for k, v := range st.ownerships {
		c.ownerships[k] = v
	}
	for k, v := range st.templates {
		c.templates[k] = v
	}
	for k, v := range st.templateIndex {
		c.templateIndex[k] = v
	}
	for k, v := range st.events {
		c.events[k] = v
	}
	for k, v := range st.participations {
		c.participations[k] = v
	}
	for k, v := range st.participationKeys {
		c.participationKeys[k] = v
	}
	return c
}

func (st *state) nextID() int64 {
	st.seq++
	return st.seq
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{data: newState()}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Transactions

// WithTx serializes transactions and restores a snapshot when fn fails.
// Writes made outside a transaction while one is running are lost on rollback.
func (s *Storage) WithTx(ctx context.Context, fn func(tx storage.Storage) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(&txStorage{Storage: s}); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// txStorage is the view handed to WithTx callbacks; nested calls join the
// running transaction
type txStorage struct {
	*Storage
}

func (t *txStorage) WithTx(ctx context.Context, fn func(tx storage.Storage) error) error {
	return fn(t)
}

// Character operations

func (s *Storage) UpsertCharacter(ctx context.Context, c *model.Character) (*model.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *c
	key := nameServerKey{name: c.Name, server: c.Server}
	if id, ok := s.data.characterIndex[key]; ok {
		existing := s.data.characters[id]
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		row.IsGuildMember = existing.IsGuildMember || c.IsGuildMember
	} else {
		row.ID = model.CharacterID(s.data.nextID())
		s.data.characterIndex[key] = row.ID
	}
	s.data.characters[row.ID] = row
	return &row, nil
}

func (s *Storage) GetCharacter(ctx context.Context, id model.CharacterID) (*model.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data.characters[id]
	if !ok {
		return nil, model.ErrCharacterNotFound
	}
	return &c, nil
}

func (s *Storage) GetCharacterByNameServer(ctx context.Context, name, server string) (*model.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.data.characterIndex[nameServerKey{name: name, server: server}]
	if !ok {
		return nil, model.ErrCharacterNotFound
	}
	c := s.data.characters[id]
	return &c, nil
}

func (s *Storage) FindGuildCharactersByName(ctx context.Context, name string) ([]*model.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Character
	for _, c := range s.data.characters {
		if c.Name == name && c.IsGuildMember {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Storage) ListStaleGuildCharacters(ctx context.Context, refreshedBefore time.Time, limit int) ([]*model.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Character
	for _, c := range s.data.characters {
		if c.IsGuildMember && c.LastRefreshedAt.Before(refreshedBefore) {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastRefreshedAt.Equal(out[j].LastRefreshedAt) {
			return out[i].LastRefreshedAt.Before(out[j].LastRefreshedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) ListGuildCharacters(ctx context.Context) ([]*model.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Character
	for _, c := range s.data.characters {
		if c.IsGuildMember {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Server < out[j].Server
	})
	return out, nil
}

// Platform user operations

func (s *Storage) UpsertPlatformUser(ctx context.Context, u *model.PlatformUser) (*model.PlatformUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *u
	if id, ok := s.data.platformIndex[u.PlatformID]; ok {
		existing := s.data.users[id]
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		row.IsPlaceholder = existing.IsPlaceholder
	} else {
		row.ID = model.UserID(s.data.nextID())
		s.data.platformIndex[u.PlatformID] = row.ID
	}
	s.data.users[row.ID] = row
	return &row, nil
}

func (s *Storage) GetPlatformUser(ctx context.Context, id model.UserID) (*model.PlatformUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.data.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

func (s *Storage) GetPlatformUserByPlatformID(ctx context.Context, platformID string) (*model.PlatformUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.data.platformIndex[platformID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := s.data.users[id]
	return &u, nil
}

// Ownership operations

func (s *Storage) BindVerifiedOwnership(ctx context.Context, userID model.UserID, characterID model.CharacterID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, o := range s.data.ownerships {
		if k.userID == userID && o.Verified {
			o.Verified = false
			o.UpdatedAt = now
			s.data.ownerships[k] = o
		}
	}

	key := ownershipKey{userID: userID, characterID: characterID}
	o, ok := s.data.ownerships[key]
	if !ok {
		o = model.Ownership{UserID: userID, CharacterID: characterID, CreatedAt: now}
	}
	o.Verified = true
	o.UpdatedAt = now
	s.data.ownerships[key] = o
	return nil
}

func (s *Storage) GetVerifiedOwnership(ctx context.Context, userID model.UserID) (*model.Ownership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, o := range s.data.ownerships {
		if k.userID == userID && o.Verified {
			return &o, nil
		}
	}
	return nil, model.ErrNoVerifiedCharacter
}

func (s *Storage) ListOwnerships(ctx context.Context, userID model.UserID) ([]*model.Ownership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Ownership
	for k, o := range s.data.ownerships {
		if k.userID == userID {
			o := o
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CharacterID < out[j].CharacterID })
	return out, nil
}

// Event template operations

func (s *Storage) SaveEventTemplate(ctx context.Context, t *model.EventTemplate) (*model.EventTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *t
	if id, ok := s.data.templateIndex[t.Name]; ok {
		row.ID = id
		row.CreatedAt = s.data.templates[id].CreatedAt
	} else {
		row.ID = model.TemplateID(s.data.nextID())
		s.data.templateIndex[t.Name] = row.ID
	}
	s.data.templates[row.ID] = row
	return &row, nil
}

func (s *Storage) GetEventTemplate(ctx context.Context, id model.TemplateID) (*model.EventTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.data.templates[id]
	if !ok {
		return nil, model.ErrTemplateNotFound
	}
	return &t, nil
}

func (s *Storage) GetEventTemplateByName(ctx context.Context, name string) (*model.EventTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.data.templateIndex[name]
	if !ok {
		return nil, model.ErrTemplateNotFound
	}
	t := s.data.templates[id]
	return &t, nil
}

func (s *Storage) ListEventTemplates(ctx context.Context) ([]*model.EventTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.EventTemplate, 0, len(s.data.templates))
	for _, t := range s.data.templates {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return isoWeekday(out[i].DayOfWeek) < isoWeekday(out[j].DayOfWeek)
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// isoWeekday orders Monday first, matching the relational store
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// Event instance operations

func (s *Storage) CreateEventInstance(ctx context.Context, e *model.EventInstance) (*model.EventInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.templates[e.TemplateID]; !ok {
		return nil, model.ErrTemplateNotFound
	}
	row := *e
	row.Template = nil
	row.ID = model.EventID(s.data.nextID())
	s.data.events[row.ID] = row
	return s.withTemplate(row), nil
}

func (s *Storage) GetEventInstance(ctx context.Context, id model.EventID) (*model.EventInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	return s.withTemplate(e), nil
}

func (s *Storage) ListEventInstances(ctx context.Context, status model.EventStatus) ([]*model.EventInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.EventInstance
	for _, e := range s.data.events {
		if status == "" || e.Status == status {
			out = append(out, s.withTemplate(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Storage) UpdateEventInstanceStatus(ctx context.Context, id model.EventID, status model.EventStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.events[id]
	if !ok {
		return model.ErrEventNotFound
	}
	e.Status = status
	e.UpdatedAt = now
	s.data.events[id] = e
	return nil
}

func (s *Storage) SetEventAnnouncement(ctx context.Context, id model.EventID, ref model.AnnouncementRef, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.events[id]
	if !ok {
		return model.ErrEventNotFound
	}
	e.Announcement = ref
	e.UpdatedAt = now
	s.data.events[id] = e
	return nil
}

// withTemplate must be called with mu held
func (s *Storage) withTemplate(e model.EventInstance) *model.EventInstance {
	if t, ok := s.data.templates[e.TemplateID]; ok {
		e.Template = &t
	}
	return &e
}

// Participation operations

func (s *Storage) UpsertParticipation(ctx context.Context, p *model.Participation) (*model.Participation, *model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *p
	key := participationKey{eventID: p.EventID, userID: p.UserID}
	var previous *model.Participation
	if id, ok := s.data.participationKeys[key]; ok {
		prev := s.data.participations[id]
		previous = &prev
		row.ID = prev.ID
		row.CreatedAt = prev.CreatedAt
	} else {
		row.ID = model.ParticipationID(s.data.nextID())
		s.data.participationKeys[key] = row.ID
	}
	s.data.participations[row.ID] = row
	return previous, &row, nil
}

func (s *Storage) GetParticipation(ctx context.Context, eventID model.EventID, userID model.UserID) (*model.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.data.participationKeys[participationKey{eventID: eventID, userID: userID}]
	if !ok {
		return nil, model.ErrParticipationNotFound
	}
	p := s.data.participations[id]
	return &p, nil
}

func (s *Storage) ListParticipations(ctx context.Context, eventID model.EventID) ([]*model.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterParticipations(func(p model.Participation) bool { return p.EventID == eventID }), nil
}

func (s *Storage) ListParticipationsByCharacter(ctx context.Context, eventID model.EventID, characterID model.CharacterID) ([]*model.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterParticipations(func(p model.Participation) bool {
		return p.EventID == eventID && p.CharacterID == characterID
	}), nil
}

func (s *Storage) FindPlaceholderParticipation(ctx context.Context, eventID model.EventID, characterID model.CharacterID) (*model.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.filterParticipations(func(p model.Participation) bool {
		return p.EventID == eventID && p.CharacterID == characterID && s.data.users[p.UserID].IsPlaceholder
	})
	if len(rows) == 0 {
		return nil, model.ErrParticipationNotFound
	}
	return rows[0], nil
}

func (s *Storage) ClaimPlaceholderParticipation(ctx context.Context, claim storage.PlaceholderClaim) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data.participations[claim.ParticipationID]
	if !ok || p.UserID != claim.PlaceholderUserID || !s.data.users[p.UserID].IsPlaceholder {
		return false, nil
	}
	newKey := participationKey{eventID: p.EventID, userID: claim.RealUserID}
	if _, taken := s.data.participationKeys[newKey]; taken {
		return false, storage.ErrConflict
	}

	delete(s.data.participationKeys, participationKey{eventID: p.EventID, userID: p.UserID})
	s.data.participationKeys[newKey] = p.ID
	p.UserID = claim.RealUserID
	p.Status = claim.Status
	p.Memo = claim.Memo
	p.UpdatedAt = claim.Now
	s.data.participations[p.ID] = p
	return true, nil
}

func (s *Storage) UpdateParticipationStatus(ctx context.Context, id model.ParticipationID, status model.Status, memo string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.participations[id]
	if !ok {
		return model.ErrParticipationNotFound
	}
	p.Status = status
	p.Memo = memo
	p.UpdatedAt = now
	s.data.participations[id] = p
	return nil
}

func (s *Storage) UpdateParticipationMemo(ctx context.Context, id model.ParticipationID, memo string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.participations[id]
	if !ok {
		return model.ErrParticipationNotFound
	}
	p.Memo = memo
	p.UpdatedAt = now
	s.data.participations[id] = p
	return nil
}

func (s *Storage) DeleteParticipation(ctx context.Context, id model.ParticipationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.participations[id]
	if !ok {
		return nil
	}
	delete(s.data.participationKeys, participationKey{eventID: p.EventID, userID: p.UserID})
	delete(s.data.participations, id)
	return nil
}

// filterParticipations must be called with mu held
func (s *Storage) filterParticipations(keep func(model.Participation) bool) []*model.Participation {
	var out []*model.Participation
	for _, p := range s.data.participations {
		if keep(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Participation log operations

func (s *Storage) AppendParticipationLog(ctx context.Context, e *model.ParticipationLogEntry) (*model.ParticipationLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := *e
	row.ID = model.LogEntryID(s.data.nextID())
	s.data.logs = append(s.data.logs, row)
	return &row, nil
}

func (s *Storage) RecentParticipationLogs(ctx context.Context, eventID model.EventID, limit int) ([]*model.ParticipationLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.ParticipationLogEntry
	for _, e := range s.data.logs {
		if e.EventID == eventID {
			e := e
			out = append(out, &e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
