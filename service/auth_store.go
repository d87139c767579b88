package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"go.uber.org/zap"
)

// AuthListener receives every change of the session state
type AuthListener func(event core.AuthEvent, session *core.Session)

// AuthStore is the process-wide view of the current client session. It is
// created once and injected wherever the session is read.
type AuthStore struct {
	backend   ports.IdentityBackend
	persister ports.SessionPersister
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	session   *core.Session
	loaded    bool
	closed    bool
	nextID    uint64
	listeners map[uint64]AuthListener

	changed   chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAuthStore creates a store; persister may be nil for a memory-only store
func NewAuthStore(backend ports.IdentityBackend, persister ports.SessionPersister, logger *zap.Logger) *AuthStore {
	return &AuthStore{
		backend:   backend,
		persister: persister,
		logger:    loggerOrNop(logger),
		now:       time.Now,
		listeners: make(map[uint64]AuthListener),
		changed:   make(chan struct{}, 1),
	}
}

// Load reads the persisted session and emits AuthEventInitialSession.
// Later calls return the current session without emitting anything.
func (s *AuthStore) Load(ctx context.Context) (*core.Session, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, core.ErrStoreClosed
	}
	if s.loaded {
		session := s.session
		s.mu.Unlock()
		return session, nil
	}
	s.mu.Unlock()

	var session *core.Session
	if s.persister != nil {
		loaded, err := s.persister.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		session = loaded
	}

	s.mu.Lock()
	if s.loaded {
		session = s.session
		s.mu.Unlock()
		return session, nil
	}
	s.loaded = true
	s.session = session
	listeners := s.snapshot()
	s.mu.Unlock()

	s.notify(listeners, core.AuthEventInitialSession, session)
	s.wake()
	return session, nil
}

// Session returns the current session, nil when signed out
func (s *AuthStore) Session() *core.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Subscribe registers fn for every later change. The returned function
// removes it and may be called more than once.
func (s *AuthStore) Subscribe(fn AuthListener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Publish records an auth state change, persists it and notifies subscribers
func (s *AuthStore) Publish(event core.AuthEvent, session *core.Session) error {
	if event == core.AuthEventSignedOut {
		session = nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return core.ErrStoreClosed
	}
	s.loaded = true
	s.session = session
	listeners := s.snapshot()
	s.mu.Unlock()

	var persistErr error
	if s.persister != nil {
		if session == nil {
			persistErr = s.persister.Clear()
		} else {
			persistErr = s.persister.Save(session)
		}
	}

	s.notify(listeners, event, session)
	s.wake()

	if persistErr != nil {
		return fmt.Errorf("failed to persist session: %w", persistErr)
	}
	return nil
}

// Refresh rotates the current session's tokens
func (s *AuthStore) Refresh(ctx context.Context) (*core.Session, error) {
	current := s.Session()
	if current == nil || current.RefreshToken == "" {
		return nil, core.ErrSessionNotFound
	}

	session, err := s.backend.RefreshSession(ctx, current.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	if err := s.Publish(core.AuthEventTokenRefreshed, session); err != nil {
		return session, err
	}
	return session, nil
}

// SignOut revokes the session at the backend and clears it locally. The
// local state is cleared even when the backend call fails.
func (s *AuthStore) SignOut(ctx context.Context) error {
	current := s.Session()
	if current == nil {
		return core.ErrSessionNotFound
	}

	var backendErr error
	if s.backend != nil {
		backendErr = s.backend.SignOut(ctx, current.AccessToken)
		if backendErr != nil {
			s.logger.Warn("backend sign-out failed", zap.Error(backendErr))
		}
	}

	if err := s.Publish(core.AuthEventSignedOut, nil); err != nil {
		return err
	}
	return backendErr
}

// StartAutoRefresh refreshes the session margin before it expires until the
// store is closed. Only the first call starts the refresher.
func (s *AuthStore) StartAutoRefresh(margin time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.refreshLoop(ctx, margin)
}

func (s *AuthStore) refreshLoop(ctx context.Context, margin time.Duration) {
	defer s.wg.Done()

	// Timers are not drained: Stop and Reset discard pending ticks since Go 1.23
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		if session := s.Session(); session != nil && session.RefreshToken != "" {
			timer.Reset(session.ExpiresAt.Add(-margin).Sub(s.now()))
		} else {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			return
		case <-s.changed:
		case <-timer.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("automatic session refresh failed", zap.Error(err))
				// Give up on this session until the next change
				timer.Stop()
				select {
				case <-ctx.Done():
					return
				case <-s.changed:
				}
			}
		}
	}
}

// Close stops the refresher and drops every subscriber. It is safe to call
// more than once; only the first call has an effect.
func (s *AuthStore) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.listeners = make(map[uint64]AuthListener)
		cancel := s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		s.wg.Wait()
	})
	return nil
}

// snapshot copies the listeners; callers hold mu
func (s *AuthStore) snapshot() []AuthListener {
	out := make([]AuthListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func (s *AuthStore) notify(listeners []AuthListener, event core.AuthEvent, session *core.Session) {
	for _, fn := range listeners {
		fn(event, session)
	}
}

func (s *AuthStore) wake() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
