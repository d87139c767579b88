package service

import (
	"context"
	"sync"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/stretchr/testify/mock"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) SignUp(ctx context.Context, email, password string, opts core.SignUpOptions) (*core.SignUpResult, error) {
	args := m.Called(ctx, email, password, opts)
	res, _ := args.Get(0).(*core.SignUpResult)
	return res, args.Error(1)
}

func (m *mockBackend) SignInWithPassword(ctx context.Context, email, password string) (*core.Session, error) {
	args := m.Called(ctx, email, password)
	session, _ := args.Get(0).(*core.Session)
	return session, args.Error(1)
}

func (m *mockBackend) RefreshSession(ctx context.Context, refreshToken string) (*core.Session, error) {
	args := m.Called(ctx, refreshToken)
	session, _ := args.Get(0).(*core.Session)
	return session, args.Error(1)
}

func (m *mockBackend) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func (m *mockBackend) GetUser(ctx context.Context, accessToken string) (*core.User, error) {
	args := m.Called(ctx, accessToken)
	user, _ := args.Get(0).(*core.User)
	return user, args.Error(1)
}

type fakeSigner struct {
	address  core.WalletAddress
	err      error
	messages []string
}

func (f *fakeSigner) Address() core.WalletAddress {
	return f.address
}

func (f *fakeSigner) SignMessage(ctx context.Context, message string) (string, error) {
	f.messages = append(f.messages, message)
	if f.err != nil {
		return "", f.err
	}
	return "0xsignature", nil
}

type fakeInjected struct {
	available bool
	accounts  []string
	err       error
	signErr   error
	requests  int
	signed    []string
	closed    bool
}

func (f *fakeInjected) Available() bool {
	return f.available
}

func (f *fakeInjected) RequestAccounts(ctx context.Context) ([]string, error) {
	f.requests++
	return f.accounts, f.err
}

func (f *fakeInjected) Accounts(ctx context.Context) ([]string, error) {
	return f.accounts, nil
}

func (f *fakeInjected) PersonalSign(ctx context.Context, message, address string) (string, error) {
	f.signed = append(f.signed, address)
	if f.signErr != nil {
		return "", f.signErr
	}
	return "0xsig", nil
}

func (f *fakeInjected) Close() error {
	f.closed = true
	return nil
}

type fakeRelay struct {
	initErr    error
	connectErr error
	accounts   []string
	cfg        *core.ProviderConfig
	signed     []string
	closed     int
}

func (f *fakeRelay) Init(ctx context.Context, cfg core.ProviderConfig) error {
	f.cfg = &cfg
	return f.initErr
}

func (f *fakeRelay) Connect(ctx context.Context) error {
	return f.connectErr
}

func (f *fakeRelay) Accounts(ctx context.Context) ([]string, error) {
	return f.accounts, nil
}

func (f *fakeRelay) PersonalSign(ctx context.Context, message, address string) (string, error) {
	f.signed = append(f.signed, address)
	return "0xsig", nil
}

func (f *fakeRelay) Close() error {
	f.closed++
	return nil
}

type fakeConfigs struct {
	projectID string
	err       error
	names     []string
}

func (f *fakeConfigs) FetchConfig(ctx context.Context, name string, out any) error {
	f.names = append(f.names, name)
	if f.err != nil {
		return f.err
	}
	out.(*core.RelayRemoteConfig).ProjectID = f.projectID
	return nil
}

type publishedEvent struct {
	event  core.AuthEvent
	userID string
	method string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	leads  []*core.Lead
	err    error
}

func (r *recordingPublisher) PublishAuthEvent(ctx context.Context, event core.AuthEvent, userID string, method string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{event: event, userID: userID, method: method})
	return r.err
}

func (r *recordingPublisher) PublishLeadCreated(ctx context.Context, lead *core.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads = append(r.leads, lead)
	return r.err
}
