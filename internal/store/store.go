// Package store is the SQLite data layer of the demo backend.
//
// A Store is opened once by the application root and passed to whoever
// needs it; there is no package-level connection.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no item has the requested ID.
var ErrNotFound = errors.New("store: not found")

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

const maxNameLen = 100

// Item is one row of the items table.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ItemInput is the writable part of an Item.
type ItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// Validate trims Name and checks the field rules.
func (in *ItemInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return &ValidationError{Field: "name", Message: "is required"}
	case len([]rune(in.Name)) > maxNameLen:
		return &ValidationError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", maxNameLen)}
	case in.Quantity < 0:
		return &ValidationError{Field: "quantity", Message: "must not be negative"}
	}
	return nil
}

// Store wraps the SQLite connection pool.
type Store struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	log.Info("sqlite opened", zap.String("path", path))
	return &Store{db: db, log: log.Named("store"), now: time.Now}, nil
}

// Migrate applies the demo schema.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	return NewMigrator(s.db, s.log, Migrations...).Up(ctx)
}

// Migrator exposes the runner over this store's connection.
func (s *Store) Migrator() *Migrator {
	return NewMigrator(s.db, s.log, Migrations...)
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// timeLayout is fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const itemColumns = `id, name, description, quantity, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (Item, error) {
	var (
		it               Item
		created, updated string
	)
	if err := sc.Scan(&it.ID, &it.Name, &it.Description, &it.Quantity, &created, &updated); err != nil {
		return Item{}, err
	}
	var err error
	if it.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return Item{}, fmt.Errorf("item %s: bad created_at: %w", it.ID, err)
	}
	if it.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Item{}, fmt.Errorf("item %s: bad updated_at: %w", it.ID, err)
	}
	return it, nil
}

func (s *Store) stamp() (time.Time, string) {
	t := s.now().UTC()
	return t, t.Format(timeLayout)
}

// ListItems returns all items, oldest first.
func (s *Store) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetItem returns the item with id, or ErrNotFound.
func (s *Store) GetItem(ctx context.Context, id string) (Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("get item %s: %w", id, err)
	}
	return it, nil
}

// CreateItem validates in and inserts it under a fresh UUID.
func (s *Store) CreateItem(ctx context.Context, in ItemInput) (Item, error) {
	if err := in.Validate(); err != nil {
		return Item{}, err
	}
	t, ts := s.stamp()
	it := Item{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Quantity:    in.Quantity,
		CreatedAt:   t,
		UpdatedAt:   t,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		it.ID, it.Name, it.Description, it.Quantity, ts, ts,
	); err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}
	s.log.Debug("item created", zap.String("id", it.ID))
	return it, nil
}

// UpdateItem replaces the writable fields of item id and bumps UpdatedAt.
func (s *Store) UpdateItem(ctx context.Context, id string, in ItemInput) (Item, error) {
	if err := in.Validate(); err != nil {
		return Item{}, err
	}
	_, ts := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, quantity = ?, updated_at = ? WHERE id = ?`,
		in.Name, in.Description, in.Quantity, ts, id,
	)
	if err != nil {
		return Item{}, fmt.Errorf("update item %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Item{}, ErrNotFound
	}
	return s.GetItem(ctx, id)
}

// DeleteItem removes item id, or returns ErrNotFound.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountItems returns the number of stored items.
func (s *Store) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}
