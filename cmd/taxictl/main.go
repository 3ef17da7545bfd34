// Command taxictl runs maintenance tasks against the taxi database: schema
// migrations, file backups, bulk passenger imports and report exports.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/taxi/db"
	"github.com/garnizeh/taxi/internal/config"
	"github.com/garnizeh/taxi/internal/db"
	"github.com/garnizeh/taxi/internal/logging"
)

// cli holds the root flags and the state built from them.
type cli struct {
	configPath string
	envPath    string
	dbPath     string

	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "taxictl",
		Short:         "Maintenance tool for the taxi request database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.closer != nil {
				return c.closer.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to config YAML file")
	root.PersistentFlags().StringVar(&c.envPath, "env", ".env", "Path to .env file")
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "Database file (overrides config)")

	root.AddCommand(
		newMigrateCmd(c),
		newBackupCmd(c),
		newRestoreCmd(c),
		newImportCmd(c),
		newExportCmd(c),
	)
	return root
}

func (c *cli) load(stderr io.Writer) error {
	if err := config.LoadDotEnv(c.envPath); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.dbPath != "" {
		cfg.DatabasePath = c.dbPath
	}
	c.cfg = cfg
	c.logger, c.closer = logging.NewWithWriter(stderr, cfg.Log)
	return nil
}

// open connects to the configured database and brings the schema up to date.
func (c *cli) open(ctx context.Context) (*db.DB, error) {
	d, err := db.New(ctx, c.cfg.DatabasePath, c.logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, db.RepairTextMigration()); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema and data migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date.\n", c.cfg.DatabasePath)
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "taxictl: %v\n", err)
		os.Exit(1)
	}
}
