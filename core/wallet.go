package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WalletAddress is an EIP-55 checksummed Ethereum address
type WalletAddress string

// ParseWalletAddress validates a hex address and returns its checksummed form
func ParseWalletAddress(s string) (WalletAddress, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidAddress)
	}
	return WalletAddress(common.HexToAddress(s).Hex()), nil
}

func (a WalletAddress) String() string {
	return string(a)
}

// Lower returns the lower-cased address used as the credential key
func (a WalletAddress) Lower() string {
	return strings.ToLower(string(a))
}

// Short returns the address truncated to its first 6 and last 4 characters
func (a WalletAddress) Short() string {
	s := string(a)
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// DisplayName is the full name registered for wallet identities
func (a WalletAddress) DisplayName() string {
	return "Wallet " + a.Short()
}

// Credential is the synthetic email/password pair a wallet logs in with
type Credential struct {
	Email    string
	Password string
}

// DeriveCredential maps a wallet address to its backend credential.
// The result depends on the address only, never on a signature, so the same
// wallet always resolves to the same identity. The password is not secret.
func DeriveCredential(addr WalletAddress, domain string) Credential {
	key := addr.Lower()
	return Credential{
		Email:    fmt.Sprintf("%s@wallet.%s", key, domain),
		Password: fmt.Sprintf("wallet_%s_secure_auth", key),
	}
}

// Message renders the human-readable text the wallet is asked to sign
func (c Challenge) Message() string {
	return fmt.Sprintf("Sign in to %s\n\nWallet: %s\nNonce: %s\nIssued At: %s",
		c.Site, c.Address, c.Nonce, c.IssuedAt.UTC().Format(time.RFC3339))
}
