package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies idempotent schema changes for all required tables and indices.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			username TEXT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS fishing_profiles (
			username TEXT PRIMARY KEY REFERENCES accounts(username),
			catches JSONB NOT NULL DEFAULT '{}',
			total_earnings BIGINT NOT NULL DEFAULT 0,
			last_cast_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS custom_commands (
			name TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			creator TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			usage_count BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS bans (
			target TEXT PRIMARY KEY,
			reason TEXT,
			issued_by TEXT NOT NULL,
			issued_at TIMESTAMPTZ DEFAULT NOW(),
			expires_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS mutes (
			target TEXT PRIMARY KEY,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_balance ON accounts(balance DESC, username ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_bans_expires ON bans(expires_at)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate step %d failed: %w", i, err)
		}
	}
	return nil
}
