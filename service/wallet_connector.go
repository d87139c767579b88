package service

import (
	"context"
	"io"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"go.uber.org/zap"
)

// ConnectionKind tells which wallet variant produced a Connection
type ConnectionKind string

const (
	ConnectionLocal ConnectionKind = "local"
	ConnectionRelay ConnectionKind = "relay"
)

// Connection is an authorized wallet: the address plus a signer bound to it.
// Both variants produce the same shape so the authenticator never branches
// on Kind.
type Connection struct {
	Kind    ConnectionKind
	Address core.WalletAddress
	Signer  ports.Signer

	closer io.Closer
}

// Close releases the underlying provider session
func (c *Connection) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// personalSigner is the part of an EIP-1193 provider a Signer needs
type personalSigner interface {
	PersonalSign(ctx context.Context, message, address string) (string, error)
}

// providerSigner binds a provider to one address
type providerSigner struct {
	provider personalSigner
	address  core.WalletAddress
}

func (s *providerSigner) Address() core.WalletAddress {
	return s.address
}

func (s *providerSigner) SignMessage(ctx context.Context, message string) (string, error) {
	return s.provider.PersonalSign(ctx, message, s.address.String())
}

// ConnectorConfig holds the relay session parameters that do not come from
// the remote configuration
type ConnectorConfig struct {
	RelayConfigName string
	Chain           uint64
	OptionalChains  []uint64
	Metadata        core.ProviderMetadata
}

// WalletConnector obtains an authorized Connection from one of the two
// wallet variants
type WalletConnector struct {
	injected ports.InjectedProvider
	relay    ports.RelayProvider
	configs  ports.ConfigBackend
	cfg      ConnectorConfig
	logger   *zap.Logger
}

// NewWalletConnector creates a connector; any provider may be nil, in which
// case that variant reports KindProviderUnavailable
func NewWalletConnector(
	injected ports.InjectedProvider,
	relay ports.RelayProvider,
	configs ports.ConfigBackend,
	cfg ConnectorConfig,
	logger *zap.Logger,
) *WalletConnector {
	return &WalletConnector{
		injected: injected,
		relay:    relay,
		configs:  configs,
		cfg:      cfg,
		logger:   loggerOrNop(logger),
	}
}

// Connect dispatches to the variant named by kind
func (c *WalletConnector) Connect(ctx context.Context, kind ConnectionKind) (*Connection, error) {
	switch kind {
	case ConnectionLocal:
		return c.ConnectLocal(ctx)
	case ConnectionRelay:
		return c.ConnectRelay(ctx)
	default:
		return nil, core.NewAuthError(core.KindProviderUnavailable, "unknown wallet variant "+string(kind), nil)
	}
}

// ConnectLocal asks the injected wallet for account access
func (c *WalletConnector) ConnectLocal(ctx context.Context) (*Connection, error) {
	if c.injected == nil || !c.injected.Available() {
		return nil, core.NewAuthError(core.KindProviderUnavailable, "no wallet provider detected", nil)
	}

	addrs, err := c.injected.RequestAccounts(ctx)
	if err != nil {
		return nil, connectError(err)
	}
	if len(addrs) == 0 {
		return nil, core.NewAuthError(core.KindNoAccountReturned, "the wallet returned no account", nil)
	}

	addr, err := core.ParseWalletAddress(addrs[0])
	if err != nil {
		return nil, core.NewAuthError(core.KindUnclassifiedError, "", err)
	}
	c.logger.Debug("local wallet connected", zap.String("address", addr.String()))

	conn := &Connection{
		Kind:    ConnectionLocal,
		Address: addr,
		Signer:  &providerSigner{provider: c.injected, address: addr},
	}
	if closer, ok := c.injected.(io.Closer); ok {
		conn.closer = closer
	}
	return conn, nil
}

// ConnectRelay fetches the relay configuration, pairs with the remote wallet
// and binds a signer to the first account it exposes
func (c *WalletConnector) ConnectRelay(ctx context.Context) (*Connection, error) {
	if c.relay == nil {
		return nil, core.NewAuthError(core.KindProviderUnavailable, "wallet relay is not configured", nil)
	}
	if c.configs == nil {
		return nil, core.NewAuthError(core.KindConfigurationError, "no configuration backend", nil)
	}

	var remote core.RelayRemoteConfig
	if err := c.configs.FetchConfig(ctx, c.cfg.RelayConfigName, &remote); err != nil {
		return nil, core.NewAuthError(core.KindConfigurationError, "could not load the wallet relay configuration", err)
	}
	if remote.ProjectID == "" {
		return nil, core.NewAuthError(core.KindConfigurationError, "the wallet relay configuration has no project id", nil)
	}

	pc := core.ProviderConfig{
		ProjectID:      remote.ProjectID,
		Chain:          c.cfg.Chain,
		OptionalChains: c.cfg.OptionalChains,
		Metadata:       c.cfg.Metadata,
	}
	if err := c.relay.Init(ctx, pc); err != nil {
		return nil, core.NewAuthError(core.KindConfigurationError, "could not initialise the wallet relay", err)
	}

	if err := c.relay.Connect(ctx); err != nil {
		c.closeRelay()
		return nil, connectError(err)
	}

	addrs, err := c.relay.Accounts(ctx)
	if err != nil {
		c.closeRelay()
		return nil, connectError(err)
	}
	if len(addrs) == 0 {
		c.closeRelay()
		return nil, core.NewAuthError(core.KindNoAccountReturned, "the wallet returned no account", nil)
	}

	addr, err := core.ParseWalletAddress(addrs[0])
	if err != nil {
		c.closeRelay()
		return nil, core.NewAuthError(core.KindUnclassifiedError, "", err)
	}
	c.logger.Debug("relay wallet connected",
		zap.String("address", addr.String()),
		zap.Strings("chains", pc.CAIP2()))

	return &Connection{
		Kind:    ConnectionRelay,
		Address: addr,
		Signer:  &providerSigner{provider: c.relay, address: addr},
		closer:  c.relay,
	}, nil
}

func (c *WalletConnector) closeRelay() {
	if err := c.relay.Close(); err != nil {
		c.logger.Warn("failed to close wallet relay", zap.Error(err))
	}
}

// connectError maps a failure while asking for account access
func connectError(err error) error {
	switch core.Classify(err) {
	case core.ClassUserRejected, core.ClassUserClosed:
		return core.NewAuthError(core.KindAccessDenied, "wallet access was denied", err)
	case core.ClassAlreadyPending:
		return core.NewAuthError(core.KindAlreadyPending, "a wallet request is already pending, check your wallet", err)
	default:
		return core.NewAuthError(core.KindUnclassifiedError, "", err)
	}
}
