package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/imagechat/internal/chat"
)

var ErrNotFound = errors.New("client not found")

type client struct {
	id             string
	mu             sync.Mutex
	state          *chat.State
	version        uint64
	createdAt      time.Time
	lastActivityAt time.Time
}

// Manager owns the chat state of every connected browser, keyed by an opaque
// client id. Each client's state is mutated only under that client's lock.
type Manager struct {
	mu                sync.RWMutex
	clients           map[string]*client
	inactivityTimeout time.Duration
	onExpire          func(clientID string)
	onChange          func(Snapshot)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		clients:           make(map[string]*client),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(clientID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// SetChangeHook registers a callback invoked after every Update.
func (m *Manager) SetChangeHook(hook func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = hook
}

// Create registers a new client with a fresh user id and no session.
func (m *Manager) Create() Snapshot {
	now := time.Now().UTC()
	c := &client{
		id:             uuid.NewString(),
		state:          chat.NewState(),
		createdAt:      now,
		lastActivityAt: now,
	}

	m.mu.Lock()
	m.clients[c.id] = c
	m.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Resolve returns the client for id, creating a new one when id is empty or
// unknown. created reports whether a new client was made.
func (m *Manager) Resolve(id string) (snap Snapshot, created bool) {
	if id != "" {
		if s, err := m.Get(id); err == nil {
			return s, false
		}
	}
	return m.Create(), true
}

func (m *Manager) Get(id string) (Snapshot, error) {
	c, ok := m.lookup(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(), nil
}

// Update runs fn with exclusive access to the client's state and returns the
// resulting snapshot together with fn's error. The change hook fires even when
// fn fails, since failures also change what the user sees.
func (m *Manager) Update(id string, fn func(*chat.State) error) (Snapshot, error) {
	c, ok := m.lookup(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}

	c.mu.Lock()
	err := fn(c.state)
	c.version++
	c.lastActivityAt = time.Now().UTC()
	snap := c.snapshot()
	c.mu.Unlock()

	m.mu.RLock()
	hook := m.onChange
	m.mu.RUnlock()
	if hook != nil {
		hook(snap)
	}
	return snap, err
}

// Touch marks the client as active without changing its state.
func (m *Manager) Touch(id string) error {
	c, ok := m.lookup(id)
	if !ok {
		return ErrNotFound
	}
	c.mu.Lock()
	c.lastActivityAt = time.Now().UTC()
	c.mu.Unlock()
	return nil
}

// Remove forgets a client. The remote agent session is left in place.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return ErrNotFound
	}
	delete(m.clients, id)
	return nil
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) lookup(id string) (*client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	return c, ok
}

// expireInactive drops idle clients. A client waiting on the agent host is
// never idle.
func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []string

	m.mu.Lock()
	for id, c := range m.clients {
		// A held lock means an update is running, possibly a host call.
		if !c.mu.TryLock() {
			continue
		}
		idle := now.Sub(c.lastActivityAt) >= m.inactivityTimeout && c.state.Status != chat.StatusPending
		c.mu.Unlock()
		if idle {
			delete(m.clients, id)
			expired = append(expired, id)
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, id := range expired {
			hook(id)
		}
	}
}

// snapshot must be called with c.mu held.
func (c *client) snapshot() Snapshot {
	return Snapshot{
		ClientID:       c.id,
		Version:        c.version,
		State:          c.state.Clone(),
		CreatedAt:      c.createdAt,
		LastActivityAt: c.lastActivityAt,
	}
}
