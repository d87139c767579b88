package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"go.uber.org/zap"
)

// AuthService handles email/password authentication against the identity
// backend and guards access tokens for the HTTP API
type AuthService struct {
	backend   ports.IdentityBackend
	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	metrics   *Metrics
	logger    *zap.Logger

	redirectTo string
	now        func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	backend ports.IdentityBackend,
	tokenizer ports.Tokenizer,
	store ports.Store,
	eventPub ports.EventPublisher,
	redirectTo string,
	metrics *Metrics,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		backend:    backend,
		tokenizer:  tokenizer,
		store:      store,
		eventPub:   publisherOrNop(eventPub),
		metrics:    metrics,
		logger:     loggerOrNop(logger),
		redirectTo: redirectTo,
		now:        time.Now,
	}
}

// SignUp registers a new identity. The result carries no session when the
// backend requires the email to be confirmed first.
func (s *AuthService) SignUp(ctx context.Context, req core.SignUpRequest) (res *core.SignUpResult, err error) {
	defer func() { s.metrics.authRequest("signup", err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	fullName := strings.TrimSpace(req.FullName)
	res, err = s.backend.SignUp(ctx, strings.TrimSpace(req.Email), req.Password, core.SignUpOptions{
		RedirectTo: s.redirectTo,
		Data:       map[string]any{core.MetadataFullName: fullName},
	})
	if err != nil {
		return nil, backendError(err)
	}

	if res.Session != nil {
		s.publish(ctx, core.AuthEventSignedIn, res.Session.Subject(), "password_signup")
	}
	return res, nil
}

// SignIn exchanges an email and password for a session
func (s *AuthService) SignIn(ctx context.Context, req core.SignInRequest) (session *core.Session, err error) {
	defer func() { s.metrics.authRequest("login", err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err = s.backend.SignInWithPassword(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return nil, backendError(err)
	}

	s.publish(ctx, core.AuthEventSignedIn, session.Subject(), "password")
	return session, nil
}

// Refresh rotates the tokens of a session
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (session *core.Session, err error) {
	defer func() { s.metrics.authRequest("refresh", err) }()

	if refreshToken == "" {
		return nil, core.ErrInvalidToken
	}

	session, err = s.backend.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, backendError(err)
	}

	s.publish(ctx, core.AuthEventTokenRefreshed, session.Subject(), "refresh_token")
	return session, nil
}

// SignOut ends the session owning accessToken and revokes the token locally
// until it expires
func (s *AuthService) SignOut(ctx context.Context, accessToken string) (err error) {
	defer func() { s.metrics.authRequest("logout", err) }()

	session, err := s.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := s.backend.SignOut(ctx, accessToken); err != nil {
		// The local revocation below still locks the token out of this API
		s.logger.Warn("backend sign-out failed", zap.String("user_id", session.Subject()), zap.Error(err))
	}

	if session.ID != "" {
		remaining := session.ExpiresAt.Sub(s.now())
		if remaining < time.Minute {
			remaining = time.Minute
		}
		if err := s.store.InvalidateToken(ctx, session.ID, remaining); err != nil {
			return fmt.Errorf("failed to invalidate token: %w", err)
		}
	}

	s.publish(ctx, core.AuthEventSignedOut, session.Subject(), "logout")
	return nil
}

// ValidateAccessToken verifies the token signature and expiry and checks
// that its session was not signed out
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, err
	}

	// Check if the token has expired
	if session.Expired(s.now()) {
		return nil, core.ErrTokenExpired
	}

	// Check if the session has been signed out
	if session.ID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

func (s *AuthService) publish(ctx context.Context, event core.AuthEvent, userID, method string) {
	if err := s.eventPub.PublishAuthEvent(ctx, event, userID, method); err != nil {
		s.logger.Warn("failed to publish auth event",
			zap.String("event", string(event)),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// backendError maps the classified backend failures onto the core sentinels
func backendError(err error) error {
	var sentinel error
	switch core.Classify(err) {
	case core.ClassInvalidCredentials:
		sentinel = core.ErrInvalidCredential
	case core.ClassEmailNotConfirmed:
		sentinel = core.ErrEmailNotConfirmed
	case core.ClassAlreadyRegistered:
		sentinel = core.ErrAlreadyRegistered
	default:
		return fmt.Errorf("identity backend: %w", err)
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return sentinel
}
