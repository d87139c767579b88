package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"go.uber.org/zap"
)

// WalletAuthConfig holds the parameters of the wallet login flow
type WalletAuthConfig struct {
	Domain     string // Synthetic email domain, as in 0xabc...@wallet.<Domain>
	Site       string // Site name shown in the challenge
	RedirectTo string // Confirmation email target for new identities
}

// WalletAuthenticator exchanges a wallet connection for a backend session
type WalletAuthenticator struct {
	backend   ports.IdentityBackend
	connector *WalletConnector
	store     *AuthStore
	eventPub  ports.EventPublisher
	metrics   *Metrics
	logger    *zap.Logger
	cfg       WalletAuthConfig

	now      func() time.Time
	nonce    func() (string, error)
	inFlight atomic.Bool
}

// WalletAuthOption configures optional collaborators
type WalletAuthOption func(*WalletAuthenticator)

// WithAuthStore publishes established sessions to store
func WithAuthStore(store *AuthStore) WalletAuthOption {
	return func(a *WalletAuthenticator) {
		a.store = store
	}
}

// WithEventPublisher announces sign-ins on the event bus
func WithEventPublisher(pub ports.EventPublisher) WalletAuthOption {
	return func(a *WalletAuthenticator) {
		a.eventPub = publisherOrNop(pub)
	}
}

// WithMetrics counts login outcomes
func WithMetrics(m *Metrics) WalletAuthOption {
	return func(a *WalletAuthenticator) {
		a.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) WalletAuthOption {
	return func(a *WalletAuthenticator) {
		a.logger = loggerOrNop(logger)
	}
}

// NewWalletAuthenticator creates the authenticator. connector may be nil when
// only Authenticate is used.
func NewWalletAuthenticator(
	backend ports.IdentityBackend,
	connector *WalletConnector,
	cfg WalletAuthConfig,
	opts ...WalletAuthOption,
) *WalletAuthenticator {
	a := &WalletAuthenticator{
		backend:   backend,
		connector: connector,
		eventPub:  nopPublisher{},
		logger:    zap.NewNop(),
		cfg:       cfg,
		now:       time.Now,
		nonce:     generateNonce,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login connects with the given wallet variant and authenticates the
// resulting connection. The connection is released before returning.
func (a *WalletAuthenticator) Login(ctx context.Context, kind ConnectionKind) (*core.Session, error) {
	if !a.begin() {
		return nil, errAttemptInFlight()
	}
	defer a.end()

	if a.connector == nil {
		err := core.NewAuthError(core.KindProviderUnavailable, "no wallet connector configured", nil)
		a.record(kind, err)
		return nil, err
	}

	conn, err := a.connector.Connect(ctx, kind)
	if err != nil {
		a.record(kind, err)
		return nil, err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			a.logger.Warn("failed to close wallet connection", zap.Error(err))
		}
	}()

	return a.authenticate(ctx, conn)
}

// Authenticate runs the login flow for an already established connection
func (a *WalletAuthenticator) Authenticate(ctx context.Context, conn *Connection) (*core.Session, error) {
	if !a.begin() {
		return nil, errAttemptInFlight()
	}
	defer a.end()

	return a.authenticate(ctx, conn)
}

func (a *WalletAuthenticator) authenticate(ctx context.Context, conn *Connection) (*core.Session, error) {
	session, err := a.run(ctx, conn)
	a.record(conn.Kind, err)
	if err != nil {
		a.logger.Info("wallet login failed",
			zap.String("variant", string(conn.Kind)),
			zap.String("address", conn.Address.String()),
			zap.String("kind", string(core.KindOf(err))),
			zap.Error(err))
		return nil, err
	}

	a.logger.Info("wallet login succeeded",
		zap.String("variant", string(conn.Kind)),
		zap.String("address", conn.Address.String()),
		zap.String("user_id", session.Subject()))

	if a.store != nil {
		if err := a.store.Publish(core.AuthEventSignedIn, session); err != nil {
			a.logger.Warn("failed to store wallet session", zap.Error(err))
		}
	}
	if err := a.eventPub.PublishAuthEvent(ctx, core.AuthEventSignedIn, session.Subject(), "wallet_"+string(conn.Kind)); err != nil {
		a.logger.Warn("failed to publish sign-in event", zap.Error(err))
	}
	return session, nil
}

func (a *WalletAuthenticator) run(ctx context.Context, conn *Connection) (*core.Session, error) {
	cred := core.DeriveCredential(conn.Address, a.cfg.Domain)

	// The signature only proves the user confirmed the login; it is neither
	// part of the credential nor verified.
	if err := a.confirm(ctx, conn); err != nil {
		return nil, err
	}

	session, err := a.backend.SignInWithPassword(ctx, cred.Email, cred.Password)
	if err == nil {
		return session, nil
	}

	if core.Classify(err) != core.ClassInvalidCredentials {
		return nil, core.NewAuthError(core.KindSignInError, "", err)
	}

	a.logger.Debug("registering wallet identity", zap.String("email", cred.Email))
	_, err = a.backend.SignUp(ctx, cred.Email, cred.Password, core.SignUpOptions{
		RedirectTo: a.cfg.RedirectTo,
		Data: map[string]any{
			core.MetadataFullName:      conn.Address.DisplayName(),
			core.MetadataWalletAddress: conn.Address.String(),
		},
	})
	if err != nil {
		if core.Classify(err) == core.ClassEmailNotConfirmed {
			return nil, confirmationPending(err)
		}
		return nil, core.NewAuthError(core.KindRegistrationError, "", err)
	}

	session, err = a.backend.SignInWithPassword(ctx, cred.Email, cred.Password)
	if err != nil {
		if core.Classify(err) == core.ClassEmailNotConfirmed {
			return nil, confirmationPending(err)
		}
		return nil, core.NewAuthError(core.KindPostRegistrationSignInError, "", err)
	}
	return session, nil
}

// confirm asks the signer to sign a fresh challenge
func (a *WalletAuthenticator) confirm(ctx context.Context, conn *Connection) error {
	nonce, err := a.nonce()
	if err != nil {
		return core.NewAuthError(core.KindSignatureError, "", err)
	}

	challenge := core.Challenge{
		Address:  conn.Address,
		Site:     a.cfg.Site,
		Nonce:    nonce,
		IssuedAt: a.now(),
	}
	if _, err := conn.Signer.SignMessage(ctx, challenge.Message()); err != nil {
		switch core.Classify(err) {
		case core.ClassUserRejected, core.ClassUserClosed:
			return core.NewAuthError(core.KindSignatureRejected, "the signature request was rejected", err)
		case core.ClassAlreadyPending:
			return core.NewAuthError(core.KindAlreadyPending, "a signature request is already pending, check your wallet", err)
		default:
			return core.NewAuthError(core.KindSignatureError, "", err)
		}
	}
	return nil
}

func (a *WalletAuthenticator) begin() bool {
	return a.inFlight.CompareAndSwap(false, true)
}

func (a *WalletAuthenticator) end() {
	a.inFlight.Store(false)
}

func (a *WalletAuthenticator) record(kind ConnectionKind, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = string(core.KindOf(err))
	}
	a.metrics.walletLogin(kind, outcome)
}

func errAttemptInFlight() error {
	return core.NewAuthError(core.KindAlreadyPending, "a wallet login is already in progress", nil)
}

func confirmationPending(err error) error {
	return core.NewAuthError(core.KindConfirmationPending,
		"the wallet account was created, confirm its email before signing in", err)
}

// generateNonce returns 16 random bytes, hex encoded
func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
