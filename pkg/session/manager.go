package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/formwire/internal/logging"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a session.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the live sessions of this process and serializes the cycles of
// each one. Locks are per session and reference counted; there is no lock
// shared across sessions while a cycle runs.
type Manager struct {
	store  ports.SessionStore
	loader ports.DefinitionLoader

	mu    sync.Mutex            // guards locks and live, never held during a cycle
	locks map[string]*lockEntry // Map of active locks
	live  map[string]*Session

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking. With a locker configured the store
// is treated as shared: a live session older than the stored revision is
// rebuilt before use.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLoader enables rebuilding sessions that are only present in the store.
func WithLoader(loader ports.DefinitionLoader) Option {
	return func(m *Manager) {
		m.loader = loader
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		live:    make(map[string]*Session),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Login registers a new session and persists its initial state.
func (m *Manager) Login(ctx context.Context, s *Session) error {
	return m.WithLock(ctx, s.ID, func(ctx context.Context) error {
		m.mu.Lock()
		_, exists := m.live[s.ID]
		m.mu.Unlock()
		if exists {
			return fmt.Errorf("session %s already exists", s.ID)
		}

		s.lastUsed = m.now()
		if err := m.store.Save(ctx, s.ID, s.State()); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		m.mu.Lock()
		m.live[s.ID] = s
		m.mu.Unlock()
		m.logger.Debug("session opened", "session_id", s.ID, "form_id", s.Form().ID())
		return nil
	})
}

// WithSession runs fn on the session while holding its lock, so cycles of
// one session never overlap. When fn succeeds the new state is persisted
// under the next revision; when it fails, the session is expected to be back
// in its pre-call state and nothing is written. A failed save rolls the
// session back and returns a *domain.TransientError.
func (m *Manager) WithSession(ctx context.Context, sessionID string, fn func(context.Context, *Session) error) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, err := m.resolve(ctx, sessionID)
		if err != nil {
			return err
		}
		cp := s.Checkpoint()
		if err := fn(ctx, s); err != nil {
			return err
		}

		s.revision++
		m.touch(s)
		if err := m.store.Save(ctx, sessionID, s.State()); err != nil {
			// The caller drops the cycle's output, so the session must not
			// keep its effects either.
			s.revision--
			if rerr := s.Rollback(cp); rerr != nil {
				m.logger.Error("rollback after failed save", "session_id", sessionID, "err", rerr)
			}
			return &domain.TransientError{Collaborator: "session store", Err: err}
		}
		return nil
	})
}

// View runs fn on the session while holding its lock. Nothing is persisted,
// so fn must not modify the session.
func (m *Manager) View(ctx context.Context, sessionID string, fn func(*Session) error) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, err := m.resolve(ctx, sessionID)
		if err != nil {
			return err
		}
		return fn(s)
	})
}

// resolve returns the live session, rebuilding it from the store when this
// process does not hold it or, in clustered mode, holds an older revision.
func (m *Manager) resolve(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.live[sessionID]
	m.mu.Unlock()

	if ok && m.locker == nil {
		return s, nil
	}

	state, err := m.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		if ok {
			m.forget(sessionID)
		}
		return nil, err
	case err != nil:
		// Another replica may hold a newer revision, so the live copy is
		// not safe to use.
		return nil, &domain.TransientError{Collaborator: "session store", Err: err}
	case ok && state.Revision <= s.revision:
		return s, nil
	}

	if m.loader == nil {
		return nil, fmt.Errorf("%w: %s is not live and no definition loader is configured", domain.ErrSessionNotFound, sessionID)
	}
	def, err := m.loader.Load(state.FormID)
	if err != nil {
		return nil, fmt.Errorf("rehydrate session %s: %w", sessionID, err)
	}
	s, err = Rehydrate(def, state)
	if err != nil {
		return nil, fmt.Errorf("rehydrate session %s: %w", sessionID, err)
	}
	m.mu.Lock()
	m.live[sessionID] = s
	m.mu.Unlock()
	m.logger.Debug("session rehydrated", "session_id", sessionID, "revision", state.Revision)
	return s, nil
}

// touch updates the idle clock. It is read by Sweep without the session lock.
func (m *Manager) touch(s *Session) {
	m.mu.Lock()
	s.lastUsed = m.now()
	m.mu.Unlock()
}

func (m *Manager) forget(sessionID string) {
	m.mu.Lock()
	delete(m.live, sessionID)
	m.mu.Unlock()
}

// Logout discards the session tree and its persisted state.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.forget(sessionID)
		if err := m.store.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		m.logger.Debug("session closed", "session_id", sessionID)
		return nil
	})
}

// Sweep logs out every live session idle for longer than maxIdle and
// returns how many were removed. In clustered mode the stored state decides:
// a session another replica used recently is only dropped from memory.
func (m *Manager) Sweep(ctx context.Context, maxIdle time.Duration) (int, error) {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var expired []string
	for id, s := range m.live {
		if s.lastUsed.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	var errs []error
	removed := 0
	for _, id := range expired {
		err := m.WithLock(ctx, id, func(ctx context.Context) error {
			m.mu.Lock()
			s, ok := m.live[id]
			idle := ok && s.lastUsed.Before(cutoff)
			m.mu.Unlock()
			if !idle {
				return nil
			}
			m.forget(id)
			if m.locker != nil {
				state, err := m.store.Load(ctx, id)
				switch {
				case errors.Is(err, domain.ErrSessionNotFound):
					return nil
				case err != nil:
					return err
				case !state.UpdatedAt.Before(cutoff):
					m.logger.Debug("session active on another replica", "session_id", id)
					return nil
				}
			}
			removed++
			return m.store.Delete(ctx, id)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("expire %s: %w", id, err))
		}
	}
	if removed > 0 {
		m.logger.Info("expired idle sessions", "count", removed)
	}
	return removed, errors.Join(errs...)
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Live returns the number of sessions held in memory.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}
