package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyberauditpro/cyberaudit/adapters/sessionfile"
	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/service"
	"github.com/spf13/cobra"
)

// refreshMargin is how long before expiry the watcher refreshes the session
const refreshMargin = time.Minute

// sessionCmd prints the stored session
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAuthStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		printSession(cmd.OutOrStdout(), store.Session())
		return nil
	},
}

var sessionRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAuthStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		session, err := store.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		printSession(cmd.OutOrStdout(), session)
		return nil
	},
}

var sessionWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the session fresh and print every auth state change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := openAuthStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		unsubscribe := store.Subscribe(func(event core.AuthEvent, session *core.Session) {
			fmt.Fprintf(out, "%s %s\n", time.Now().Format(time.RFC3339), event)
			printSession(out, session)
		})
		defer unsubscribe()

		store.StartAutoRefresh(refreshMargin)
		printSession(out, store.Session())

		<-ctx.Done()
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAuthStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		if store.Session() == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
			return nil
		}
		if err := store.SignOut(cmd.Context()); err != nil {
			return fmt.Errorf("local session removed, backend sign-out failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

func openAuthStore(ctx context.Context) (*service.AuthStore, error) {
	tok, err := newTokenizer(cfg)
	if err != nil {
		return nil, err
	}

	store := service.NewAuthStore(newIdentityBackend(cfg, tok), sessionfile.New(cfg.SessionFile), logger.Named("session"))
	if _, err := store.Load(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func printSession(out io.Writer, session *core.Session) {
	if session == nil {
		fmt.Fprintln(out, "Not signed in")
		return
	}

	if session.User != nil {
		fmt.Fprintf(out, "User:     %s (%s)\n", session.User.Email, session.User.ID)
		if addr := session.User.WalletAddress(); addr != "" {
			fmt.Fprintf(out, "Wallet:   %s\n", addr)
		}
	}
	state := "valid"
	if session.Expired(time.Now()) {
		state = "expired"
	}
	fmt.Fprintf(out, "Expires:  %s (%s)\n", session.ExpiresAt.Local().Format(time.RFC1123), state)
}
