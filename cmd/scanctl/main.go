package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fekuna/omnipos-asset-scan-service/config"
	"github.com/fekuna/omnipos-asset-scan-service/internal/app"
	"github.com/fekuna/omnipos-asset-scan-service/internal/auth"
	"github.com/fekuna/omnipos-asset-scan-service/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose  bool
	driver   string
	dsn      string
	deviceID string
	token    string
	online   bool
	timeout  time.Duration

	scannedBy string

	zlog        *zap.Logger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "scanctl",
	Short: "Asset scan reconciliation from the command line",
	Long: `scanctl runs the asset scan pipeline against a local record store.

Scans are validated against the stored inventory (one organization, one
reporting period, no duplicates) before they are saved. Records captured
offline are completed later with "scanctl sync".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if application != nil {
			// left open by a previous failed command
			_ = application.Close()
		}

		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		zlog, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg := config.LoadEnv()
		if cmd.Flags().Changed("driver") || cfg.Store.Driver == "" {
			cfg.Store.Driver = driver
		}
		if cmd.Flags().Changed("store") || cfg.Store.DSN == "" {
			cfg.Store.DSN = dsn
		}
		if deviceID == "" {
			deviceID = cfg.Server.DeviceID
		}

		scannedBy = ""
		if token == "" {
			token = os.Getenv("SCANNER_TOKEN")
		}
		if token != "" {
			claims, err := auth.ValidateToken([]byte(cfg.Auth.SecretKey), token)
			if err != nil {
				return err
			}
			scannedBy = claims.UserID
		} else if cfg.Auth.Required {
			return fmt.Errorf("a scanner token is required (--token or SCANNER_TOKEN)")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		application, err = app.New(ctx, cfg, logger.Wrap(zlog))
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			_ = application.Close()
			application = nil
		}
		if zlog != nil {
			_ = zlog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "sqlite", "Store driver: sqlite, pgx or memory (or set STORE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dsn, "store", "asset-scan.db", "Store DSN (or set STORE_DSN)")
	rootCmd.PersistentFlags().StringVar(&deviceID, "device", "", "Device id sent with catalog lookups (or set DEVICE_ID)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Signed-in scanner token (or set SCANNER_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&online, "online", true, "Whether the catalog and ingestion services are reachable")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	addCommands(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
