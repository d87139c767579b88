package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type memoryPersister struct {
	mu      sync.Mutex
	session *core.Session
	saves   int
	clears  int
	err     error
}

func (p *memoryPersister) Load() (*core.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session, p.err
}

func (p *memoryPersister) Save(session *core.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = session
	p.saves++
	return nil
}

func (p *memoryPersister) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = nil
	p.clears++
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []core.AuthEvent
}

func (l *eventLog) listener(event core.AuthEvent, session *core.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) get() []core.AuthEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.AuthEvent(nil), l.events...)
}

func refreshableSession(id string, expiresIn time.Duration) *core.Session {
	return &core.Session{
		ID:           id,
		AccessToken:  "access-" + id,
		RefreshToken: "refresh-" + id,
		ExpiresAt:    time.Now().Add(expiresIn),
		User:         &core.User{ID: "user-1"},
	}
}

func TestAuthStoreLoadEmitsInitialSessionOnce(t *testing.T) {
	persister := &memoryPersister{session: refreshableSession("a", time.Hour)}
	store := NewAuthStore(&mockBackend{}, persister, nil)
	defer store.Close()

	log := &eventLog{}
	store.Subscribe(log.listener)

	session, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", session.ID)

	session, err = store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", session.ID)

	assert.Equal(t, []core.AuthEvent{core.AuthEventInitialSession}, log.get())
}

func TestAuthStoreLoadError(t *testing.T) {
	store := NewAuthStore(&mockBackend{}, &memoryPersister{err: errors.New("disk on fire")}, nil)
	defer store.Close()

	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestAuthStoreSubscribeUnsubscribe(t *testing.T) {
	persister := &memoryPersister{}
	store := NewAuthStore(&mockBackend{}, persister, nil)
	defer store.Close()

	first, second := &eventLog{}, &eventLog{}
	unsubscribe := store.Subscribe(first.listener)
	store.Subscribe(second.listener)

	require.NoError(t, store.Publish(core.AuthEventSignedIn, refreshableSession("a", time.Hour)))
	unsubscribe()
	unsubscribe()
	require.NoError(t, store.Publish(core.AuthEventSignedOut, refreshableSession("a", time.Hour)))

	assert.Equal(t, []core.AuthEvent{core.AuthEventSignedIn}, first.get())
	assert.Equal(t, []core.AuthEvent{core.AuthEventSignedIn, core.AuthEventSignedOut}, second.get())

	assert.Nil(t, store.Session())
	assert.Equal(t, 1, persister.saves)
	assert.Equal(t, 1, persister.clears)
}

func TestAuthStoreRefresh(t *testing.T) {
	backend := &mockBackend{}
	backend.On("RefreshSession", mock.Anything, "refresh-a").Return(refreshableSession("b", time.Hour), nil).Once()

	store := NewAuthStore(backend, nil, nil)
	defer store.Close()

	_, err := store.Refresh(context.Background())
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	require.NoError(t, store.Publish(core.AuthEventSignedIn, refreshableSession("a", time.Hour)))
	log := &eventLog{}
	store.Subscribe(log.listener)

	session, err := store.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", session.ID)
	assert.Equal(t, "b", store.Session().ID)
	assert.Equal(t, []core.AuthEvent{core.AuthEventTokenRefreshed}, log.get())
	backend.AssertExpectations(t)
}

func TestAuthStoreSignOutClearsLocallyOnBackendFailure(t *testing.T) {
	backend := &mockBackend{}
	backend.On("SignOut", mock.Anything, "access-a").Return(errors.New("network down")).Once()

	persister := &memoryPersister{}
	store := NewAuthStore(backend, persister, nil)
	defer store.Close()

	assert.ErrorIs(t, store.SignOut(context.Background()), core.ErrSessionNotFound)

	require.NoError(t, store.Publish(core.AuthEventSignedIn, refreshableSession("a", time.Hour)))
	err := store.SignOut(context.Background())
	assert.ErrorContains(t, err, "network down")
	assert.Nil(t, store.Session())
	assert.Nil(t, persister.session)
}

func TestAuthStoreCloseOnce(t *testing.T) {
	store := NewAuthStore(&mockBackend{}, nil, nil)
	log := &eventLog{}
	store.Subscribe(log.listener)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Publish(core.AuthEventSignedIn, refreshableSession("a", time.Hour)), core.ErrStoreClosed)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreClosed)

	unsubscribe := store.Subscribe(log.listener)
	unsubscribe()
	assert.Empty(t, log.get())
}

func TestAuthStoreAutoRefresh(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := &mockBackend{}
	backend.On("RefreshSession", mock.Anything, "refresh-a").Return(refreshableSession("b", time.Hour), nil).Once()

	store := NewAuthStore(backend, nil, nil)
	refreshed := make(chan *core.Session, 1)
	store.Subscribe(func(event core.AuthEvent, session *core.Session) {
		if event == core.AuthEventTokenRefreshed {
			refreshed <- session
		}
	})

	store.StartAutoRefresh(time.Minute)
	store.StartAutoRefresh(time.Minute)
	require.NoError(t, store.Publish(core.AuthEventSignedIn, refreshableSession("a", 30*time.Second)))

	select {
	case session := <-refreshed:
		assert.Equal(t, "b", session.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("session was not refreshed")
	}

	require.NoError(t, store.Close())
	backend.AssertExpectations(t)
}

func TestAuthStoreCloseStopsIdleRefresher(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewAuthStore(&mockBackend{}, nil, nil)
	store.StartAutoRefresh(time.Minute)
	require.NoError(t, store.Close())
	store.StartAutoRefresh(time.Minute)
}
