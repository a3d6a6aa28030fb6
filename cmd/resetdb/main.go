package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"resetdb/internal/config"
	"resetdb/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	driverName string
	dsn        string
	manifest   string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "resetdb",
	Short: "Selectively erase application data",
	Long: `resetdb deletes every record from selected models of an application
database, ordering deletes so rows that reference user accounts go first,
and optionally keeping administrator accounts.

Models are read from a YAML manifest, or introspected from SQLite databases.`,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		if err := logging.Initialize(cfg.Logging.Options()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if verbose {
			logging.SetLevel(zapcore.DebugLevel)
		}
		logger = logging.Base()
		logger.Debug("configuration loaded",
			zap.String("config", configPath),
			zap.String("driver", cfg.Database.Driver),
			zap.String("manifest", cfg.Registry.Manifest))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// applyFlagOverrides lets explicit global flags win over file and environment.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("driver") {
		c.Database.Driver = driverName
	}
	if flags.Changed("dsn") {
		c.Database.DSN = dsn
	}
	if flags.Changed("manifest") {
		c.Registry.Manifest = manifest
	}
	if flags.Changed("timeout") {
		c.Database.Timeout = timeout.String()
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "resetdb.yaml", "Config file")
	rootCmd.PersistentFlags().StringVar(&driverName, "driver", "", "Database driver (sqlite3, sqlite, libsql, pgx, postgres, mysql, mongodb)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database DSN (or set DATABASE_URL env)")
	rootCmd.PersistentFlags().StringVar(&manifest, "manifest", "", "Model manifest (required unless the database is SQLite)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall timeout")

	addSelectionFlags(eraseCmd, &eraseSel)
	eraseCmd.Flags().BoolVar(&eraseForce, "force", false, "Skip the confirmation prompt")
	eraseCmd.Flags().BoolVar(&eraseDryRun, "dry-run", false, "Show what would be deleted without deleting")

	addSelectionFlags(planCmd, &planSel)

	// Add commands to root
	rootCmd.AddCommand(eraseCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(modelsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
