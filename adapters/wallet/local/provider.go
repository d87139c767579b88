// Package local exposes an encrypted keystore on this machine as an
// injected wallet provider.
package local

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Provider implements ports.InjectedProvider on top of a go-ethereum keystore
type Provider struct {
	ks       *keystore.KeyStore
	prompter ports.Prompter

	mu      sync.Mutex
	granted []accounts.Account
}

var _ ports.InjectedProvider = (*Provider)(nil)

// New opens the keystore in dir; an empty dir yields an unavailable provider
func New(dir string, prompter ports.Prompter) *Provider {
	if dir == "" {
		return &Provider{prompter: prompter}
	}
	return NewFromKeyStore(keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP), prompter)
}

// NewFromKeyStore wraps an already opened keystore
func NewFromKeyStore(ks *keystore.KeyStore, prompter ports.Prompter) *Provider {
	return &Provider{ks: ks, prompter: prompter}
}

// Available reports whether the keystore holds at least one account
func (p *Provider) Available() bool {
	return p != nil && p.ks != nil && len(p.ks.Accounts()) > 0
}

// RequestAccounts unlocks the first keystore account with a passphrase the
// user is prompted for
func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	if !p.Available() {
		return nil, errors.New("no keystore account available")
	}
	acct := p.ks.Accounts()[0]

	passphrase, err := p.prompter.Passphrase(ctx, acct.Address.Hex())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.ks.Unlock(acct, passphrase); err != nil {
		if errors.Is(err, keystore.ErrDecrypt) {
			return nil, &core.ProviderError{Code: core.ProviderCodeUnauthorized, Message: "account not unlocked: " + err.Error()}
		}
		return nil, err
	}

	p.mu.Lock()
	p.granted = []accounts.Account{acct}
	p.mu.Unlock()

	return []string{acct.Address.Hex()}, nil
}

// Accounts returns the accounts unlocked by RequestAccounts
func (p *Provider) Accounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.granted))
	for _, acct := range p.granted {
		out = append(out, acct.Address.Hex())
	}
	return out, nil
}

// PersonalSign asks the user to confirm, then signs message (EIP-191) with
// the key of address
func (p *Provider) PersonalSign(ctx context.Context, message, address string) (string, error) {
	acct, ok := p.account(address)
	if !ok {
		return "", &core.ProviderError{Code: core.ProviderCodeUnauthorized, Message: "account " + address + " not authorized"}
	}

	approved, err := p.prompter.Confirm(ctx, message)
	if err != nil {
		return "", err
	}
	if !approved {
		return "", core.UserRejected("message signature declined")
	}

	sig, err := p.ks.SignHash(acct, accounts.TextHash([]byte(message)))
	if err != nil {
		return "", err
	}
	sig[64] += 27 // legacy V expected by wallets and ecrecover
	return hexutil.Encode(sig), nil
}

// Close locks every unlocked account
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, acct := range p.granted {
		errs = append(errs, p.ks.Lock(acct.Address))
	}
	p.granted = nil
	return errors.Join(errs...)
}

func (p *Provider) account(address string) (accounts.Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !common.IsHexAddress(address) {
		return accounts.Account{}, false
	}
	want := common.HexToAddress(address)
	for _, acct := range p.granted {
		if acct.Address == want || strings.EqualFold(acct.Address.Hex(), address) {
			return acct, true
		}
	}
	return accounts.Account{}, false
}

// DefaultAccount returns the account RequestAccounts would unlock
func (p *Provider) DefaultAccount() (string, bool) {
	if !p.Available() {
		return "", false
	}
	return p.ks.Accounts()[0].Address.Hex(), true
}
