// Package relay reaches a remote wallet over a JSON-RPC relay endpoint.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrNotInitialized   = errors.New("relay session not initialized")
	ErrNotConnected     = errors.New("relay wallet not connected")
	ErrMissingProjectID = errors.New("relay project id is missing")
)

// DialFunc opens the JSON-RPC connection to the relay
type DialFunc func(ctx context.Context, rawurl string) (*rpc.Client, error)

// Option configures a Provider
type Option func(*Provider)

// WithDialer replaces rpc.DialContext, mostly for tests
func WithDialer(dial DialFunc) Option {
	return func(p *Provider) {
		p.dial = dial
	}
}

// Provider implements ports.RelayProvider
type Provider struct {
	relayURL string
	prompter ports.Prompter
	dial     DialFunc

	mu       sync.Mutex
	cfg      *core.ProviderConfig
	client   *rpc.Client
	accounts []string
}

var _ ports.RelayProvider = (*Provider)(nil)

// New creates a relay provider talking to relayURL
func New(relayURL string, prompter ports.Prompter, opts ...Option) *Provider {
	p := &Provider{
		relayURL: relayURL,
		prompter: prompter,
		dial:     rpc.DialContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init records the session parameters; nothing is dialed yet
func (p *Provider) Init(ctx context.Context, cfg core.ProviderConfig) error {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return ErrMissingProjectID
	}
	if p.relayURL == "" {
		return errors.New("relay url is not configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = &cfg
	p.accounts = nil
	return nil
}

// PairingURI is the link the user opens (or scans) on the wallet device
func (p *Provider) PairingURI() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg == nil {
		return ""
	}

	q := url.Values{}
	q.Set("projectId", p.cfg.ProjectID)
	q.Set("chains", strings.Join(p.cfg.CAIP2(), ","))
	if p.cfg.Metadata.Name != "" {
		q.Set("name", p.cfg.Metadata.Name)
	}
	if p.cfg.Metadata.URL != "" {
		q.Set("url", p.cfg.Metadata.URL)
	}
	return p.relayURL + "?" + q.Encode()
}

// Connect shows the pairing prompt, dials the relay and waits for the wallet
// to expose its accounts. The wallet must sit on one of the configured chains.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()
	if cfg == nil {
		return ErrNotInitialized
	}

	p.prompter.ShowPairing(p.PairingURI())

	client, err := p.dial(ctx, p.relayURL)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	var accts []string
	if err := client.CallContext(ctx, &accts, "eth_requestAccounts"); err != nil {
		client.Close()
		return err
	}

	var chain hexutil.Uint64
	if err := client.CallContext(ctx, &chain, "eth_chainId"); err != nil {
		client.Close()
		return err
	}
	if !cfg.AllowsChain(uint64(chain)) {
		client.Close()
		return fmt.Errorf("wallet is on unsupported chain %d", uint64(chain))
	}

	p.mu.Lock()
	if p.client != nil {
		p.client.Close()
	}
	p.client = client
	p.accounts = accts
	p.mu.Unlock()
	return nil
}

// Accounts returns the accounts reported on connect
func (p *Provider) Accounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil, ErrNotConnected
	}
	return append([]string(nil), p.accounts...), nil
}

// PersonalSign forwards a personal_sign request to the remote wallet
func (p *Provider) PersonalSign(ctx context.Context, message, address string) (string, error) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return "", ErrNotConnected
	}

	var sig hexutil.Bytes
	if err := client.CallContext(ctx, &sig, "personal_sign", hexutil.Encode([]byte(message)), address); err != nil {
		return "", err
	}
	return sig.String(), nil
}

// Close drops the relay connection
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
	p.accounts = nil
	return nil
}
