package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyberauditpro/cyberaudit/adapters/sessionfile"
	"github.com/cyberauditpro/cyberaudit/adapters/wallet/local"
	"github.com/cyberauditpro/cyberaudit/adapters/wallet/relay"
	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"github.com/cyberauditpro/cyberaudit/service"
	"github.com/spf13/cobra"
)

var walletVia string

// walletCmd groups the wallet commands
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Sign in with an Ethereum wallet",
}

// walletLoginCmd runs the wallet login flow
var walletLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a keystore account (--via local) or a remote wallet (--via relay)",
	Long: `Connects to a wallet, asks it to sign a login challenge and exchanges the
wallet address for a session. A wallet seen for the first time is registered.

The session is stored in CYBERAUDIT_SESSION_FILE.`,
	Args: cobra.NoArgs,
	RunE: runWalletLogin,
}

// walletAddressCmd shows the keystore account used by --via local
var walletAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show the keystore account used for local wallet login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, ok := local.New(cfg.KeystoreDir, nil).DefaultAccount()
		if !ok {
			return fmt.Errorf("no account found in %s", cfg.KeystoreDir)
		}
		wallet, err := core.ParseWalletAddress(addr)
		if err != nil {
			return err
		}
		cred := core.DeriveCredential(wallet, cfg.WalletDomain)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", wallet, cred.Email)
		return nil
	},
}

func runWalletLogin(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tok, err := newTokenizer(cfg)
	if err != nil {
		return err
	}
	identity := newIdentityBackend(cfg, tok)

	store := service.NewAuthStore(identity, sessionfile.New(cfg.SessionFile), logger.Named("session"))
	defer store.Close()
	if _, err := store.Load(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	prompter := newTerminalPrompter(out)

	var relayProvider ports.RelayProvider
	if cfg.RelayURL != "" {
		relayProvider = relay.New(cfg.RelayURL, prompter)
	}

	connector := service.NewWalletConnector(
		local.New(cfg.KeystoreDir, prompter),
		relayProvider,
		newConfigBackend(cfg),
		service.ConnectorConfig{
			RelayConfigName: cfg.RelayConfigName,
			Chain:           cfg.RelayChain,
			OptionalChains:  cfg.RelayOptionalChains,
			Metadata: core.ProviderMetadata{
				Name:        cfg.SiteName,
				Description: cfg.SiteName + " wallet login",
				URL:         cfg.SiteURL,
			},
		},
		logger.Named("wallet"),
	)
	auth := service.NewWalletAuthenticator(identity, connector,
		service.WalletAuthConfig{
			Domain:     cfg.WalletDomain,
			Site:       cfg.SiteName,
			RedirectTo: cfg.RedirectURL,
		},
		service.WithAuthStore(store),
		service.WithLogger(logger.Named("wallet")),
	)

	session, err := auth.Login(ctx, service.ConnectionKind(walletVia))
	if err != nil {
		return explainLoginError(cmd, err)
	}

	fmt.Fprintln(out, signedInMessage(session))
	return nil
}

// signedInMessage describes session; the backend may omit the user
func signedInMessage(session *core.Session) string {
	if session.User == nil {
		return "Signed in, session expires " + session.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if session.User.FullName == "" {
		return "Signed in as " + session.User.Email
	}
	return fmt.Sprintf("Signed in as %s (%s)", session.User.Email, session.User.FullName)
}

func explainLoginError(cmd *cobra.Command, err error) error {
	if core.IsConfirmationPending(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "Account registered. Confirm the email sent to the wallet address, then run the login again.")
		return nil
	}

	switch core.KindOf(err) {
	case core.KindProviderUnavailable:
		return fmt.Errorf("no wallet available: %w", err)
	case core.KindAccessDenied:
		return fmt.Errorf("wallet access denied: %w", err)
	case core.KindSignatureRejected:
		return fmt.Errorf("login cancelled, the challenge was not signed: %w", err)
	case core.KindSignInError:
		if core.Classify(err) == core.ClassEmailNotConfirmed {
			return fmt.Errorf("confirm the email sent to the wallet address first: %w", err)
		}
		return err
	case core.KindAlreadyPending:
		return fmt.Errorf("finish the pending request in your wallet first: %w", err)
	default:
		return err
	}
}
