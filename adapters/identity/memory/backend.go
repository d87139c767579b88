// Package memory is an in-process identity backend used for local
// development and tests. It mirrors the error payloads of the hosted one.
package memory

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidCredentials = &core.BackendError{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	errEmailNotConfirmed  = &core.BackendError{Status: http.StatusBadRequest, Code: "email_not_confirmed", Message: "Email not confirmed"}
	errAlreadyRegistered  = &core.BackendError{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	errRefreshNotFound    = &core.BackendError{Status: http.StatusBadRequest, Code: "refresh_token_not_found", Message: "Invalid Refresh Token: Refresh Token Not Found"}
	errBadJWT             = &core.BackendError{Status: http.StatusUnauthorized, Code: "bad_jwt", Message: "invalid JWT"}
)

type account struct {
	user core.User
	hash []byte
}

type refreshEntry struct {
	email     string
	sessionID string
}

// Backend implements ports.IdentityBackend in memory
type Backend struct {
	mu       sync.Mutex
	accounts map[string]*account
	refresh  map[string]refreshEntry
	revoked  map[string]bool

	tokenizer           ports.Tokenizer
	requireConfirmation bool
	sessionTTL          time.Duration
	cost                int
	now                 func() time.Time
}

var _ ports.IdentityBackend = (*Backend)(nil)

// Option configures a Backend
type Option func(*Backend)

// WithConfirmation makes new identities unusable until ConfirmEmail is called
func WithConfirmation(required bool) Option {
	return func(b *Backend) { b.requireConfirmation = required }
}

// WithSessionTTL sets the access token lifetime
func WithSessionTTL(ttl time.Duration) Option {
	return func(b *Backend) { b.sessionTTL = ttl }
}

// WithBcryptCost sets the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(b *Backend) { b.cost = cost }
}

// NewBackend creates an empty backend minting access tokens with tokenizer
func NewBackend(tokenizer ports.Tokenizer, opts ...Option) *Backend {
	b := &Backend{
		accounts:   make(map[string]*account),
		refresh:    make(map[string]refreshEntry),
		revoked:    make(map[string]bool),
		tokenizer:  tokenizer,
		sessionTTL: time.Hour,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SignUp registers a new email/password identity
func (b *Backend) SignUp(ctx context.Context, email, password string, opts core.SignUpOptions) (*core.SignUpResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return nil, &core.BackendError{Status: http.StatusBadRequest, Code: "weak_password", Message: err.Error()}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.accounts[email]; exists {
		return nil, errAlreadyRegistered
	}

	now := b.now()
	acc := &account{
		user: core.User{
			ID:        uuid.NewString(),
			Email:     email,
			Metadata:  copyMetadata(opts.Data),
			CreatedAt: now,
		},
		hash: hash,
	}
	if name, ok := acc.user.Metadata[core.MetadataFullName].(string); ok {
		acc.user.FullName = name
	}
	if !b.requireConfirmation {
		acc.user.ConfirmedAt = &now
	}
	b.accounts[email] = acc

	user := acc.user
	if b.requireConfirmation {
		return &core.SignUpResult{User: &user}, nil
	}
	session, err := b.issue(acc)
	if err != nil {
		return nil, err
	}
	return &core.SignUpResult{User: &user, Session: session}, nil
}

// SignInWithPassword exchanges a credential for a session
func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*core.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[email]
	if !ok {
		return nil, errInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return nil, errInvalidCredentials
	}
	if acc.user.ConfirmedAt == nil {
		return nil, errEmailNotConfirmed
	}
	return b.issue(acc)
}

// RefreshSession rotates the tokens of a session
func (b *Backend) RefreshSession(ctx context.Context, refreshToken string) (*core.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.refresh[refreshToken]
	if !ok || b.revoked[entry.sessionID] {
		return nil, errRefreshNotFound
	}
	delete(b.refresh, refreshToken)

	acc, ok := b.accounts[entry.email]
	if !ok {
		return nil, errRefreshNotFound
	}
	return b.issueFor(acc, entry.sessionID)
}

// SignOut revokes the session owning accessToken
func (b *Backend) SignOut(ctx context.Context, accessToken string) error {
	session, err := b.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return errBadJWT
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.revoked[session.ID] = true
	for token, entry := range b.refresh {
		if entry.sessionID == session.ID {
			delete(b.refresh, token)
		}
	}
	return nil
}

// GetUser returns the identity behind accessToken
func (b *Backend) GetUser(ctx context.Context, accessToken string) (*core.User, error) {
	session, err := b.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, errBadJWT
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.revoked[session.ID] {
		return nil, errBadJWT
	}
	acc, ok := b.accounts[strings.ToLower(session.User.Email)]
	if !ok || acc.user.ID != session.Subject() {
		return nil, errBadJWT
	}
	user := acc.user
	return &user, nil
}

// ConfirmEmail marks the identity registered with email as confirmed
func (b *Backend) ConfirmEmail(email string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, ok := b.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return false
	}
	now := b.now()
	acc.user.ConfirmedAt = &now
	return true
}

// issue starts a new session for acc; callers hold mu
func (b *Backend) issue(acc *account) (*core.Session, error) {
	return b.issueFor(acc, uuid.NewString())
}

func (b *Backend) issueFor(acc *account, sessionID string) (*core.Session, error) {
	user := acc.user
	session := &core.Session{
		ID:           sessionID,
		RefreshToken: uuid.NewString(),
		TokenType:    "bearer",
		ExpiresAt:    b.now().Add(b.sessionTTL),
		User:         &user,
	}

	token, err := b.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, err
	}
	session.AccessToken = token
	b.refresh[session.RefreshToken] = refreshEntry{email: user.Email, sessionID: sessionID}
	return session, nil
}

func copyMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
