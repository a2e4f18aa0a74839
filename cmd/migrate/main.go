package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/flexprice/billing/internal/config"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/migrations"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const migrationsDir = "postgres"

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version     VARCHAR(255) PRIMARY KEY,
    applied_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
)`

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded postgres schema migrations",
	Long: `Applies the SQL files embedded under migrations/postgres in name order.
Each file runs in its own transaction together with its schema_migrations row,
so a failed file leaves no partial schema behind.`,
	RunE: runUp,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Example: `  # apply everything pending
  migrate up

  # print the SQL that would run
  migrate up --dry-run`,
	RunE: runUp,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied and pending migrations",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Minute, "Timeout for the whole run")
	rootCmd.Flags().Bool("dry-run", false, "Print pending migration SQL without executing it")
	upCmd.Flags().Bool("dry-run", false, "Print pending migration SQL without executing it")
	rootCmd.AddCommand(upCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type migrator struct {
	db     *sqlx.DB
	logger *logger.Logger
}

func connect(cmd *cobra.Command) (*migrator, context.Context, context.CancelFunc, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	log.Infow("connecting to database", "host", cfg.Postgres.Host)
	db, err := sqlx.Connect("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)

	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		cancel()
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return &migrator{db: db, logger: log}, ctx, cancel, nil
}

func runUp(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	m, ctx, cancel, err := connect(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer m.db.Close()

	_, pending, err := m.versions(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.Info("database is up to date")
		return nil
	}

	for _, version := range pending {
		body, err := fs.ReadFile(migrations.Postgres, path.Join(migrationsDir, version))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", version, err)
		}

		if dryRun {
			fmt.Printf("-- %s\n%s\n", version, body)
			continue
		}

		m.logger.Infow("applying migration", "version", version)
		if err := m.apply(ctx, version, string(body)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", version, err)
		}
	}

	if dryRun {
		m.logger.Infow("dry run completed", "pending", len(pending))
		return nil
	}
	m.logger.Infow("migration completed successfully", "applied", len(pending))
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	m, ctx, cancel, err := connect(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer m.db.Close()

	applied, pending, err := m.versions(ctx)
	if err != nil {
		return err
	}
	for _, v := range applied {
		fmt.Printf("applied  %s\n", v)
	}
	for _, v := range pending {
		fmt.Printf("pending  %s\n", v)
	}
	return nil
}

// versions splits the embedded migrations into applied and pending, both in name order
func (m *migrator) versions(ctx context.Context) ([]string, []string, error) {
	var recorded []string
	if err := m.db.SelectContext(ctx, &recorded, `SELECT version FROM schema_migrations`); err != nil {
		return nil, nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}

	files, err := fs.ReadDir(migrations.Postgres, migrationsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	names := lo.FilterMap(files, func(f fs.DirEntry, _ int) (string, bool) {
		return f.Name(), !f.IsDir() && strings.HasSuffix(f.Name(), ".sql")
	})
	sort.Strings(names)

	isApplied := func(name string, _ int) bool { return lo.Contains(recorded, name) }
	return lo.Filter(names, isApplied), lo.Reject(names, isApplied), nil
}

// apply runs one migration and records its version in the same transaction
func (m *migrator) apply(ctx context.Context, version, body string) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return err
	}
	return tx.Commit()
}
