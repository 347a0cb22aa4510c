package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Migration is one schema change, applied inside its own transaction.
type Migration struct {
	Version int
	Name    string
	Up      func(ctx context.Context, tx *sql.Tx) error
}

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	Version   int
	Name      string
	AppliedAt time.Time
}

// Migrator applies migrations in version order and records them.
type Migrator struct {
	db         *sql.DB
	log        *zap.Logger
	migrations []Migration
}

// NewMigrator returns a Migrator for the given migrations. Order of the
// arguments does not matter; versions must be unique and positive.
func NewMigrator(db *sql.DB, log *zap.Logger, migrations ...Migration) *Migrator {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{db: db, log: log.Named("migrate"), migrations: sorted}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`)
	return err
}

func (m *Migrator) check() error {
	seen := make(map[int]string, len(m.migrations))
	for _, mig := range m.migrations {
		if mig.Version <= 0 {
			return fmt.Errorf("migration %q: version must be positive", mig.Name)
		}
		if prev, dup := seen[mig.Version]; dup {
			return fmt.Errorf("migration version %d used by %q and %q", mig.Version, prev, mig.Name)
		}
		if mig.Up == nil {
			return fmt.Errorf("migration %d %q has no Up", mig.Version, mig.Name)
		}
		seen[mig.Version] = mig.Name
	}
	return nil
}

// Up applies every pending migration and returns how many ran.
// Re-running is a no-op once everything is applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	if err := m.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	records, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	done := make(map[int]bool, len(records))
	for _, rec := range records {
		done[rec.Version] = true
	}

	applied := 0
	for _, mig := range m.migrations {
		if done[mig.Version] {
			continue
		}
		start := time.Now()
		if err := m.apply(ctx, mig); err != nil {
			return applied, fmt.Errorf("migration %d %s: %w", mig.Version, mig.Name, err)
		}
		m.log.Info("migration applied",
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name),
			zap.Duration("took", time.Since(start)),
		)
		applied++
	}
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := mig.Up(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		mig.Version, mig.Name, time.Now().UTC().Format(timeLayout),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Applied lists recorded migrations in version order.
func (m *Migrator) Applied(ctx context.Context) ([]MigrationRecord, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	rows, err := m.db.QueryContext(ctx, `SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	var out []MigrationRecord
	for rows.Next() {
		var (
			rec MigrationRecord
			at  string
		)
		if err := rows.Scan(&rec.Version, &rec.Name, &at); err != nil {
			return nil, err
		}
		if rec.AppliedAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("migration %d: bad applied_at %q: %w", rec.Version, at, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func execAll(stmts ...string) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}

// Migrations is the schema of the demo backend.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_items",
		Up: execAll(`
		CREATE TABLE items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`),
	},
	{
		Version: 2,
		Name:    "index_items_created_at",
		Up:      execAll(`CREATE INDEX idx_items_created_at ON items(created_at)`),
	},
}
