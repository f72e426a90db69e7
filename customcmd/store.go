// Package customcmd stores user-authored name to reply commands and resolves
// them after built-in lookup misses.
package customcmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNameConflict means the name is taken by a built-in command or an
	// existing custom command.
	ErrNameConflict = errors.New("command name conflict")
	// ErrNotFound means no custom command exists under that name.
	ErrNotFound = errors.New("custom command not found")
)

// Info describes one stored command.
type Info struct {
	Name       string
	Body       string
	Creator    string
	CreatedAt  time.Time
	UsageCount int64
}

// Store is the Postgres-backed custom command table.
type Store struct {
	db *sql.DB
	// reserved reports whether a name belongs to a built-in command.
	reserved func(name string) bool
}

// NewStore returns a Store. reserved guards built-in collisions at creation.
func NewStore(db *sql.DB, reserved func(name string) bool) *Store {
	return &Store{db: db, reserved: reserved}
}

func norm(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "!"))
}

// Add creates a command. Built-ins always win: a name held by the registry
// fails with ErrNameConflict, as does an existing custom command.
func (s *Store) Add(ctx context.Context, name, body, creator string) error {
	name = norm(name)
	if s.reserved != nil && s.reserved(name) {
		return fmt.Errorf("%q is built in: %w", name, ErrNameConflict)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO custom_commands (name, body, creator, created_at, usage_count)
		 VALUES ($1, $2, $3, NOW(), 0)
		 ON CONFLICT (name) DO NOTHING`,
		name, body, strings.ToLower(creator))
	if err != nil {
		return fmt.Errorf("add custom command: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add custom command: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%q exists: %w", name, ErrNameConflict)
	}
	return nil
}

// Edit replaces the body of an existing command.
func (s *Store) Edit(ctx context.Context, name, body string) error {
	name = norm(name)
	res, err := s.db.ExecContext(ctx,
		`UPDATE custom_commands SET body=$2 WHERE name=$1`, name, body)
	if err != nil {
		return fmt.Errorf("edit custom command: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("edit custom command: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a command.
func (s *Store) Delete(ctx context.Context, name string) error {
	name = norm(name)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM custom_commands WHERE name=$1`, name)
	if err != nil {
		return fmt.Errorf("delete custom command: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete custom command: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a command's stored record.
func (s *Store) Get(ctx context.Context, name string) (*Info, error) {
	name = norm(name)
	var info Info
	err := s.db.QueryRowContext(ctx,
		`SELECT name, body, creator, created_at, usage_count
		 FROM custom_commands WHERE name=$1`, name).
		Scan(&info.Name, &info.Body, &info.Creator, &info.CreatedAt, &info.UsageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get custom command: %w", err)
	}
	return &info, nil
}

// Names lists all command names sorted ascending.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM custom_commands ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list custom commands: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan custom command: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Random returns a uniformly chosen command, or nil when the table is empty.
func (s *Store) Random(ctx context.Context) (*Info, error) {
	var info Info
	err := s.db.QueryRowContext(ctx,
		`SELECT name, body, creator, created_at, usage_count
		 FROM custom_commands ORDER BY RANDOM() LIMIT 1`).
		Scan(&info.Name, &info.Body, &info.Creator, &info.CreatedAt, &info.UsageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("random custom command: %w", err)
	}
	return &info, nil
}

// Resolve looks the name up for dispatch, bumping the usage counter on a hit.
// It satisfies the router's fallback contract.
func (s *Store) Resolve(ctx context.Context, name string) (string, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`UPDATE custom_commands SET usage_count = usage_count + 1
		 WHERE name=$1 RETURNING body`, norm(name)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve custom command: %w", err)
	}
	return body, true, nil
}
