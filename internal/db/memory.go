package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/scalecode-solutions/naptrack/internal/models"
)

// Memory is an in-process Store. Writes through WithChild are serialized per
// child but are not rolled back when fn fails.
type Memory struct {
	mu          sync.RWMutex
	nextID      int64
	children    map[int64]models.Child
	caregivers  map[int64]map[string]models.Role
	sessions    map[int64]models.SleepSession
	cycles      map[int64][]models.SleepCycle
	schedules   map[int64]models.SleepSchedule
	transitions map[int64]models.Transition
	timezones   map[string]string

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex

	now func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		children:    make(map[int64]models.Child),
		caregivers:  make(map[int64]map[string]models.Role),
		sessions:    make(map[int64]models.SleepSession),
		cycles:      make(map[int64][]models.SleepCycle),
		schedules:   make(map[int64]models.SleepSchedule),
		transitions: make(map[int64]models.Transition),
		timezones:   make(map[string]string),
		locks:       make(map[int64]*sync.Mutex),
		now:         time.Now,
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) childLock(childID int64) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[childID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[childID] = l
	}
	return l
}

// WithChild serializes fn with every other WithChild call for the same child.
func (m *Memory) WithChild(ctx context.Context, childID int64, fn func(tx Store) error) error {
	if _, err := m.GetChild(ctx, childID); err != nil {
		return err
	}
	l := m.childLock(childID)
	l.Lock()
	defer l.Unlock()
	return fn(&lockedMemory{Memory: m, childID: childID})
}

// lockedMemory is handed to WithChild callbacks so nested calls for the
// already-held child do not deadlock.
type lockedMemory struct {
	*Memory
	childID int64
}

func (l *lockedMemory) WithChild(ctx context.Context, childID int64, fn func(tx Store) error) error {
	if childID == l.childID {
		return fn(l)
	}
	return l.Memory.WithChild(ctx, childID, fn)
}

func (m *Memory) CreateChild(_ context.Context, c *models.Child) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	c.CreatedAt = m.now()
	m.children[c.ID] = *c
	return nil
}

func (m *Memory) GetChild(_ context.Context, id int64) (*models.Child, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.children[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListChildren(_ context.Context, userID string) ([]models.Child, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Child
	for id, c := range m.children {
		if _, shared := m.caregivers[id][userID]; c.OwnerID == userID || shared {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetCaregiverRole(_ context.Context, childID int64, userID string) (models.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	role, ok := m.caregivers[childID][userID]
	if !ok {
		return "", ErrNotFound
	}
	return role, nil
}

func (m *Memory) PutCaregiver(_ context.Context, c models.Caregiver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.children[c.ChildID]; !ok {
		return ErrNotFound
	}
	if m.caregivers[c.ChildID] == nil {
		m.caregivers[c.ChildID] = make(map[string]models.Role)
	}
	m.caregivers[c.ChildID][c.UserID] = c.Role
	return nil
}

func (m *Memory) CreateSession(_ context.Context, s *models.SleepSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Active() {
		for _, other := range m.sessions {
			if other.ChildID == s.ChildID && other.Active() {
				return ErrConflict
			}
		}
	}
	s.ID = m.id()
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) UpdateSession(_ context.Context, s *models.SleepSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.sessions[s.ID]
	if !ok || old.ChildID != s.ChildID {
		return ErrNotFound
	}
	s.UpdatedAt = m.now()
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, childID, sessionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.ChildID != childID {
		return ErrNotFound
	}
	delete(m.sessions, sessionID)
	delete(m.cycles, sessionID)
	return nil
}

func (m *Memory) GetSession(_ context.Context, childID, sessionID int64) (*models.SleepSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.ChildID != childID {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) ActiveSession(_ context.Context, childID int64) (*models.SleepSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.ChildID == childID && s.Active() {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListSessions(_ context.Context, childID int64, from, to time.Time) ([]models.SleepSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.SleepSession
	for _, s := range m.sessions {
		if s.ChildID != childID || s.PutDownAt == nil {
			continue
		}
		if !s.PutDownAt.Before(from) && s.PutDownAt.Before(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PutDownAt.Equal(*out[j].PutDownAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PutDownAt.Before(*out[j].PutDownAt)
	})
	return out, nil
}

func (m *Memory) ListCycles(_ context.Context, sessionID int64) ([]models.SleepCycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.SleepCycle(nil), m.cycles[sessionID]...), nil
}

func (m *Memory) ReplaceCycles(_ context.Context, sessionID int64, cycles []models.SleepCycle) ([]models.SleepCycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]models.SleepCycle, len(cycles))
	for i, c := range cycles {
		c.SessionID = sessionID
		if c.ID == 0 {
			c.ID = m.id()
		}
		out[i] = c
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleNumber < out[j].CycleNumber })
	m.cycles[sessionID] = out
	return append([]models.SleepCycle(nil), out...), nil
}

func (m *Memory) GetSchedule(_ context.Context, childID int64) (*models.SleepSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schedules[childID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Config = cloneConfig(s.Config)
	return &s, nil
}

func (m *Memory) PutSchedule(_ context.Context, s *models.SleepSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.schedules[s.ChildID]; ok {
		s.ID = old.ID
	} else {
		s.ID = m.id()
	}
	s.UpdatedAt = m.now()
	stored := *s
	stored.Config = cloneConfig(s.Config)
	m.schedules[s.ChildID] = stored
	return nil
}

func (m *Memory) GetTransition(_ context.Context, childID int64) (*models.Transition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.Transition
	for _, t := range m.transitions {
		if t.ChildID != childID {
			continue
		}
		if latest == nil || t.StartedAt.After(latest.StartedAt) || (t.StartedAt.Equal(latest.StartedAt) && t.ID > latest.ID) {
			t := t
			latest = &t
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (m *Memory) SaveTransition(_ context.Context, t *models.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == 0 {
		t.ID = m.id()
	} else if _, ok := m.transitions[t.ID]; !ok {
		return ErrNotFound
	}
	m.transitions[t.ID] = *t
	return nil
}

func (m *Memory) GetUserTimezone(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tz, ok := m.timezones[userID]
	if !ok {
		return "", ErrNotFound
	}
	return tz, nil
}

func (m *Memory) SetUserTimezone(_ context.Context, userID, timezone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timezones[userID] = timezone
	return nil
}

func cloneConfig(c models.ScheduleConfig) models.ScheduleConfig {
	c.WakeWindows = append([]models.MinMax(nil), c.WakeWindows...)
	c.Naps = append([]models.NapConfig(nil), c.Naps...)
	return c
}

var _ Store = (*Memory)(nil)
