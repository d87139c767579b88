package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cyberauditpro/cyberaudit/adapters/identity/memory"
	"github.com/cyberauditpro/cyberaudit/adapters/tokenizer"
	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAddress  = core.WalletAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	testEmail    = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed@wallet.local"
	testPassword = "wallet_0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed_secure_auth"
)

var (
	errInvalidCredentials = &core.BackendError{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	errNotConfirmed       = &core.BackendError{Status: http.StatusBadRequest, Message: "Email not confirmed"}
)

func testAuthConfig() WalletAuthConfig {
	return WalletAuthConfig{Domain: "local", Site: "CyberAuditPro", RedirectTo: "https://cyberaudit.pro/"}
}

func testConnection(signer *fakeSigner) *Connection {
	signer.address = testAddress
	return &Connection{Kind: ConnectionLocal, Address: testAddress, Signer: signer}
}

func testSession() *core.Session {
	return &core.Session{
		ID:          "sess-1",
		AccessToken: "access",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        &core.User{ID: "user-1", Email: testEmail},
	}
}

func TestWalletLoginReturningIdentity(t *testing.T) {
	backend := &mockBackend{}
	backend.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(testSession(), nil).Once()

	signer := &fakeSigner{}
	auth := NewWalletAuthenticator(backend, nil, testAuthConfig())

	session, err := auth.Authenticate(context.Background(), testConnection(signer))
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.Subject())

	backend.AssertExpectations(t)
	backend.AssertNumberOfCalls(t, "SignInWithPassword", 1)
	backend.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	require.Len(t, signer.messages, 1)
	assert.Contains(t, signer.messages[0], "Sign in to CyberAuditPro")
	assert.Contains(t, signer.messages[0], "Wallet: "+testAddress.String())
	assert.Contains(t, signer.messages[0], "Nonce: ")
}

func TestWalletLoginNewIdentity(t *testing.T) {
	backend := &mockBackend{}
	backend.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(nil, errInvalidCredentials).Once()
	backend.On("SignUp", mock.Anything, testEmail, testPassword, mock.MatchedBy(func(opts core.SignUpOptions) bool {
		return opts.RedirectTo == "https://cyberaudit.pro/" &&
			opts.Data[core.MetadataFullName] == "Wallet 0x5aAe...eAed" &&
			opts.Data[core.MetadataWalletAddress] == testAddress.String()
	})).Return(&core.SignUpResult{User: &core.User{ID: "user-1"}}, nil).Once()
	backend.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(testSession(), nil).Once()

	auth := NewWalletAuthenticator(backend, nil, testAuthConfig())

	session, err := auth.Authenticate(context.Background(), testConnection(&fakeSigner{}))
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.Subject())

	backend.AssertExpectations(t)
	backend.AssertNumberOfCalls(t, "SignUp", 1)
	backend.AssertNumberOfCalls(t, "SignInWithPassword", 2)
}

func TestWalletLoginSignatureFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind core.ErrorKind
	}{
		{"rejected by code", core.UserRejected("message signature declined"), core.KindSignatureRejected},
		{"rejected by message", errors.New("MetaMask Tx Signature: User denied message signature."), core.KindSignatureRejected},
		{"prompt closed", context.Canceled, core.KindSignatureRejected},
		{"already pending", &core.ProviderError{Code: core.ProviderCodeAlreadyPending, Message: "pending"}, core.KindAlreadyPending},
		{"other", errors.New("device disconnected"), core.KindSignatureError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			auth := NewWalletAuthenticator(backend, nil, testAuthConfig())

			_, err := auth.Authenticate(context.Background(), testConnection(&fakeSigner{err: tt.err}))
			assert.Equal(t, tt.kind, core.KindOf(err))
			assert.Empty(t, backend.Calls)
		})
	}
}

func TestWalletLoginBackendFailures(t *testing.T) {
	dbErr := &core.BackendError{Status: http.StatusInternalServerError, Message: "Database error querying schema"}

	tests := []struct {
		name    string
		setup   func(b *mockBackend)
		kind    core.ErrorKind
		message string
	}{
		{
			name: "sign-in error surfaces verbatim",
			setup: func(b *mockBackend) {
				b.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(nil, dbErr).Once()
			},
			kind:    core.KindSignInError,
			message: "Database error querying schema",
		},
		{
			name: "unconfirmed identity fails sign-in verbatim",
			setup: func(b *mockBackend) {
				b.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(nil, errNotConfirmed).Once()
			},
			kind:    core.KindSignInError,
			message: "Email not confirmed",
		},
		{
			name: "sign-up needs confirmation",
			setup: func(b *mockBackend) {
				b.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(nil, errInvalidCredentials).Once()
				b.On("SignUp", mock.Anything, testEmail, testPassword, mock.Anything).Return(nil, errNotConfirmed).Once()
			},
			kind: core.KindConfirmationPending,
		},
		{
			name: "sign-up rejected",
			setup: func(b *mockBackend) {
				b.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(nil, errInvalidCredentials).Once()
				b.On("SignUp", mock.Anything, testEmail, testPassword, mock.Anything).Return(nil, errors.New("Signups not allowed for this instance")).Once()
			},
			kind:    core.KindRegistrationError,
			message: "Signups not allowed for this instance",
		},
		{
			name: "retry after sign-up needs confirmation",
			setup: func(b *mockBackend) {
				b.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(nil, errInvalidCredentials).Once()
				b.On("SignUp", mock.Anything, testEmail, testPassword, mock.Anything).Return(&core.SignUpResult{User: &core.User{ID: "u"}}, nil).Once()
				b.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(nil, errNotConfirmed).Once()
			},
			kind: core.KindConfirmationPending,
		},
		{
			name: "retry after sign-up fails",
			setup: func(b *mockBackend) {
				b.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(nil, errInvalidCredentials).Once()
				b.On("SignUp", mock.Anything, testEmail, testPassword, mock.Anything).Return(&core.SignUpResult{User: &core.User{ID: "u"}}, nil).Once()
				b.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(nil, dbErr).Once()
			},
			kind: core.KindPostRegistrationSignInError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{}
			tt.setup(backend)
			auth := NewWalletAuthenticator(backend, nil, testAuthConfig())

			session, err := auth.Authenticate(context.Background(), testConnection(&fakeSigner{}))
			require.Error(t, err)
			assert.Nil(t, session)
			assert.Equal(t, tt.kind, core.KindOf(err))
			if tt.message != "" {
				var authErr *core.AuthError
				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, tt.message, authErr.Message)
			}
			backend.AssertExpectations(t)
		})
	}
}

type blockingSigner struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSigner) Address() core.WalletAddress {
	return testAddress
}

func (b *blockingSigner) SignMessage(ctx context.Context, message string) (string, error) {
	close(b.entered)
	<-b.release
	return "", core.UserRejected("declined")
}

func TestWalletLoginSingleAttemptInFlight(t *testing.T) {
	auth := NewWalletAuthenticator(&mockBackend{}, nil, testAuthConfig())
	signer := &blockingSigner{entered: make(chan struct{}), release: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := auth.Authenticate(context.Background(), &Connection{Kind: ConnectionRelay, Address: testAddress, Signer: signer})
		done <- err
	}()
	<-signer.entered

	_, err := auth.Authenticate(context.Background(), testConnection(&fakeSigner{}))
	assert.Equal(t, core.KindAlreadyPending, core.KindOf(err))
	_, err = auth.Login(context.Background(), ConnectionLocal)
	assert.Equal(t, core.KindAlreadyPending, core.KindOf(err))

	close(signer.release)
	assert.Equal(t, core.KindSignatureRejected, core.KindOf(<-done))

	// The guard is released once the first attempt returns
	_, err = auth.Authenticate(context.Background(), testConnection(&fakeSigner{err: errors.New("boom")}))
	assert.Equal(t, core.KindSignatureError, core.KindOf(err))
}

func TestWalletLoginViaConnector(t *testing.T) {
	t.Run("injected provider absent", func(t *testing.T) {
		backend := &mockBackend{}
		injected := &fakeInjected{available: false}
		connector := NewWalletConnector(injected, nil, nil, ConnectorConfig{}, nil)
		auth := NewWalletAuthenticator(backend, connector, testAuthConfig())

		_, err := auth.Login(context.Background(), ConnectionLocal)
		assert.Equal(t, core.KindProviderUnavailable, core.KindOf(err))
		assert.Zero(t, injected.requests)
		assert.Empty(t, backend.Calls)
	})

	t.Run("relay returns no account", func(t *testing.T) {
		backend := &mockBackend{}
		relay := &fakeRelay{}
		connector := NewWalletConnector(nil, relay, &fakeConfigs{projectID: "p"}, ConnectorConfig{Chain: 1}, nil)
		auth := NewWalletAuthenticator(backend, connector, testAuthConfig())

		_, err := auth.Login(context.Background(), ConnectionRelay)
		assert.Equal(t, core.KindNoAccountReturned, core.KindOf(err))
		assert.Empty(t, relay.signed)
		assert.Equal(t, 1, relay.closed)
		assert.Empty(t, backend.Calls)
	})

	t.Run("local success releases the provider", func(t *testing.T) {
		backend := &mockBackend{}
		backend.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(testSession(), nil).Once()
		injected := &fakeInjected{available: true, accounts: []string{strings.ToLower(testAddress.String())}}
		connector := NewWalletConnector(injected, nil, nil, ConnectorConfig{}, nil)
		auth := NewWalletAuthenticator(backend, connector, testAuthConfig())

		session, err := auth.Login(context.Background(), ConnectionLocal)
		require.NoError(t, err)
		assert.Equal(t, "user-1", session.Subject())
		assert.Equal(t, []string{testAddress.String()}, injected.signed)
		assert.True(t, injected.closed)
	})
}

func TestWalletLoginPublishesSession(t *testing.T) {
	backend := &mockBackend{}
	backend.On("SignInWithPassword", mock.Anything, testEmail, testPassword).Return(testSession(), nil).Once()

	store := NewAuthStore(backend, nil, nil)
	defer store.Close()
	var events []core.AuthEvent
	unsubscribe := store.Subscribe(func(event core.AuthEvent, session *core.Session) {
		events = append(events, event)
	})
	defer unsubscribe()

	pub := &recordingPublisher{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	auth := NewWalletAuthenticator(backend, nil, testAuthConfig(),
		WithAuthStore(store), WithEventPublisher(pub), WithMetrics(metrics))

	_, err := auth.Authenticate(context.Background(), testConnection(&fakeSigner{}))
	require.NoError(t, err)
	_, err = auth.Authenticate(context.Background(), testConnection(&fakeSigner{err: core.UserRejected("no")}))
	require.Error(t, err)

	assert.Equal(t, []core.AuthEvent{core.AuthEventSignedIn}, events)
	assert.Equal(t, "user-1", store.Session().Subject())
	require.Len(t, pub.events, 1)
	assert.Equal(t, publishedEvent{event: core.AuthEventSignedIn, userID: "user-1", method: "wallet_local"}, pub.events[0])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.walletLogins.WithLabelValues("local", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.walletLogins.WithLabelValues("local", string(core.KindSignatureRejected))))
}

func TestWalletLoginAgainstMemoryBackend(t *testing.T) {
	tok := tokenizer.NewJWTTokenizer([]byte("test-secret"))
	backend := memory.NewBackend(tok, memory.WithConfirmation(true), memory.WithBcryptCost(bcrypt.MinCost))
	auth := NewWalletAuthenticator(backend, nil, testAuthConfig())

	_, err := auth.Authenticate(context.Background(), testConnection(&fakeSigner{}))
	require.Error(t, err)
	assert.True(t, core.IsConfirmationPending(err))

	// Retrying before confirmation is safe; the known identity now fails sign-in verbatim
	_, err = auth.Authenticate(context.Background(), testConnection(&fakeSigner{}))
	assert.Equal(t, core.KindSignInError, core.KindOf(err))
	assert.Equal(t, core.ClassEmailNotConfirmed, core.Classify(err))

	require.True(t, backend.ConfirmEmail(testEmail))

	session, err := auth.Authenticate(context.Background(), testConnection(&fakeSigner{}))
	require.NoError(t, err)
	assert.Equal(t, testEmail, session.User.Email)
	assert.Equal(t, "Wallet 0x5aAe...eAed", session.User.FullName)
	assert.Equal(t, testAddress.String(), session.User.WalletAddress())
}
