package ports

import (
	"context"

	"github.com/cyberauditpro/cyberaudit/core"
)

// Signer signs text messages on behalf of one wallet address
type Signer interface {
	Address() core.WalletAddress
	SignMessage(ctx context.Context, message string) (string, error)
}

// InjectedProvider is a wallet living next to the user agent
type InjectedProvider interface {
	// Available reports whether the wallet can be used at all
	Available() bool

	// RequestAccounts asks the user for account access
	RequestAccounts(ctx context.Context) ([]string, error)

	// Accounts returns the accounts access was granted to
	Accounts(ctx context.Context) ([]string, error)

	// PersonalSign signs message with the key of address (EIP-191)
	PersonalSign(ctx context.Context, message, address string) (string, error)
}

// RelayProvider is a wallet reached through a remote relay
type RelayProvider interface {
	// Init prepares a relay session for cfg
	Init(ctx context.Context, cfg core.ProviderConfig) error

	// Connect presents the pairing prompt and waits for the wallet
	Connect(ctx context.Context) error

	// Accounts returns the accounts exposed by the connected wallet
	Accounts(ctx context.Context) ([]string, error)

	// PersonalSign signs message with the key of address (EIP-191)
	PersonalSign(ctx context.Context, message, address string) (string, error)

	// Close ends the relay session
	Close() error
}

// Prompter interacts with the person operating the wallet
type Prompter interface {
	// Passphrase asks for the passphrase unlocking account
	Passphrase(ctx context.Context, account string) (string, error)

	// Confirm asks the user to approve a message signature
	Confirm(ctx context.Context, message string) (bool, error)

	// ShowPairing displays the relay pairing URI
	ShowPairing(uri string)
}
