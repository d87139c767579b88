package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relayConnectorConfig() ConnectorConfig {
	return ConnectorConfig{
		RelayConfigName: "get-walletconnect-config",
		Chain:           1,
		OptionalChains:  []uint64{137, 56, 42161},
		Metadata:        core.ProviderMetadata{Name: "CyberAuditPro", URL: "https://cyberaudit.pro"},
	}
}

func TestConnectLocal(t *testing.T) {
	tests := []struct {
		name     string
		injected *fakeInjected
		kind     core.ErrorKind
	}{
		{"declined", &fakeInjected{available: true, err: core.UserRejected("account access")}, core.KindAccessDenied},
		{"prompt closed", &fakeInjected{available: true, err: context.Canceled}, core.KindAccessDenied},
		{"pending", &fakeInjected{available: true, err: errors.New("Request of type 'wallet_requestPermissions' already pending")}, core.KindAlreadyPending},
		{"no account", &fakeInjected{available: true}, core.KindNoAccountReturned},
		{"garbage account", &fakeInjected{available: true, accounts: []string{"not-an-address"}}, core.KindUnclassifiedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWalletConnector(tt.injected, nil, nil, ConnectorConfig{}, nil)
			conn, err := c.ConnectLocal(context.Background())
			assert.Nil(t, conn)
			assert.Equal(t, tt.kind, core.KindOf(err))
		})
	}

	t.Run("success", func(t *testing.T) {
		injected := &fakeInjected{available: true, accounts: []string{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "0x0000000000000000000000000000000000000001"}}
		c := NewWalletConnector(injected, nil, nil, ConnectorConfig{}, nil)

		conn, err := c.Connect(context.Background(), ConnectionLocal)
		require.NoError(t, err)
		assert.Equal(t, ConnectionLocal, conn.Kind)
		assert.Equal(t, testAddress, conn.Address)
		assert.Equal(t, testAddress, conn.Signer.Address())

		_, err = conn.Signer.SignMessage(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, []string{testAddress.String()}, injected.signed)
	})
}

func TestConnectRelay(t *testing.T) {
	t.Run("configuration failures", func(t *testing.T) {
		for name, configs := range map[string]*fakeConfigs{
			"fetch fails":        {err: errors.New("function not found")},
			"missing project id": {},
		} {
			t.Run(name, func(t *testing.T) {
				relay := &fakeRelay{}
				c := NewWalletConnector(nil, relay, configs, relayConnectorConfig(), nil)
				_, err := c.ConnectRelay(context.Background())
				assert.Equal(t, core.KindConfigurationError, core.KindOf(err))
				assert.Nil(t, relay.cfg)
			})
		}

		c := NewWalletConnector(nil, &fakeRelay{}, nil, relayConnectorConfig(), nil)
		_, err := c.ConnectRelay(context.Background())
		assert.Equal(t, core.KindConfigurationError, core.KindOf(err))

		c = NewWalletConnector(nil, &fakeRelay{initErr: errors.New("bad project")}, &fakeConfigs{projectID: "p"}, relayConnectorConfig(), nil)
		_, err = c.ConnectRelay(context.Background())
		assert.Equal(t, core.KindConfigurationError, core.KindOf(err))
	})

	t.Run("no relay", func(t *testing.T) {
		c := NewWalletConnector(nil, nil, &fakeConfigs{projectID: "p"}, relayConnectorConfig(), nil)
		_, err := c.Connect(context.Background(), ConnectionRelay)
		assert.Equal(t, core.KindProviderUnavailable, core.KindOf(err))
	})

	t.Run("connect failures", func(t *testing.T) {
		tests := []struct {
			err  error
			kind core.ErrorKind
		}{
			{errors.New("Connection request reset. Please try again. User closed modal"), core.KindAccessDenied},
			{&core.ProviderError{Code: core.ProviderCodeAlreadyPending, Message: "pending"}, core.KindAlreadyPending},
			{errors.New("relay unreachable"), core.KindUnclassifiedError},
		}
		for _, tt := range tests {
			relay := &fakeRelay{connectErr: tt.err}
			c := NewWalletConnector(nil, relay, &fakeConfigs{projectID: "p"}, relayConnectorConfig(), nil)
			_, err := c.ConnectRelay(context.Background())
			assert.Equal(t, tt.kind, core.KindOf(err), tt.err.Error())
			assert.Equal(t, 1, relay.closed)
		}
	})

	t.Run("success", func(t *testing.T) {
		configs := &fakeConfigs{projectID: "proj-123"}
		relay := &fakeRelay{accounts: []string{testAddress.String()}}
		c := NewWalletConnector(nil, relay, configs, relayConnectorConfig(), nil)

		conn, err := c.ConnectRelay(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"get-walletconnect-config"}, configs.names)
		require.NotNil(t, relay.cfg)
		assert.Equal(t, "proj-123", relay.cfg.ProjectID)
		assert.Equal(t, uint64(1), relay.cfg.Chain)
		assert.Equal(t, []uint64{137, 56, 42161}, relay.cfg.OptionalChains)
		assert.Equal(t, "CyberAuditPro", relay.cfg.Metadata.Name)

		assert.Equal(t, ConnectionRelay, conn.Kind)
		assert.Equal(t, testAddress, conn.Address)

		require.NoError(t, conn.Close())
		assert.Equal(t, 1, relay.closed)
	})
}

func TestConnectUnknownVariant(t *testing.T) {
	c := NewWalletConnector(nil, nil, nil, ConnectorConfig{}, nil)
	_, err := c.Connect(context.Background(), ConnectionKind("ledger"))
	assert.Equal(t, core.KindProviderUnavailable, core.KindOf(err))
}
