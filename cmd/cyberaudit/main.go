package main

import (
	"fmt"
	"os"

	"github.com/cyberauditpro/cyberaudit/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cyberaudit",
	Short: "CyberAuditPro backend and wallet login client",
	Long: `cyberaudit runs the CyberAuditPro HTTP API (contact form, email/password
authentication, lead administration) and signs in with an Ethereum wallet
from the command line.

Configuration is read from the environment, see config.Config.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		// Initialize logger
		zc := zap.NewProductionConfig()
		if verbose || cfg.LogDebug {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (overrides CYBERAUDIT_HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)

	walletLoginCmd.Flags().StringVar(&walletVia, "via", "local", "wallet variant: local or relay")
	walletCmd.AddCommand(walletLoginCmd, walletAddressCmd)
	rootCmd.AddCommand(walletCmd)

	sessionCmd.AddCommand(sessionRefreshCmd, sessionWatchCmd)
	rootCmd.AddCommand(sessionCmd, logoutCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
