// Package moderation holds ban and mute records and the pre-dispatch
// auto-moderation filter built on them.
package moderation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// BanRecord is one stored ban. ExpiresAt is nil for a permanent ban.
type BanRecord struct {
	Target    string
	Reason    string
	IssuedBy  string
	IssuedAt  time.Time
	ExpiresAt *time.Time
}

// Store is the Postgres-backed moderation record table.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store over db.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func norm(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}

// Ban upserts a ban record. Re-banning refreshes reason, issuer, and expiry.
func (s *Store) Ban(ctx context.Context, target, reason, issuedBy string, expiresAt *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bans (target, reason, issued_by, issued_at, expires_at)
		 VALUES ($1, $2, $3, NOW(), $4)
		 ON CONFLICT (target) DO UPDATE
		 SET reason=EXCLUDED.reason, issued_by=EXCLUDED.issued_by,
		     issued_at=NOW(), expires_at=EXCLUDED.expires_at`,
		norm(target), reason, strings.ToLower(issuedBy), expiresAt)
	if err != nil {
		return fmt.Errorf("ban %s: %w", target, err)
	}
	return nil
}

// Unban removes a ban record and reports whether one existed.
func (s *Store) Unban(ctx context.Context, target string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bans WHERE target=$1`, norm(target))
	if err != nil {
		return false, fmt.Errorf("unban %s: %w", target, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unban %s: %w", target, err)
	}
	return n > 0, nil
}

// IsBanned reports whether target has an active ban.
func (s *Store) IsBanned(ctx context.Context, target string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM bans
		   WHERE target=$1 AND (expires_at IS NULL OR expires_at > NOW())
		 )`, norm(target)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check ban %s: %w", target, err)
	}
	return exists, nil
}

// BanList returns active bans ordered by issue time, newest first.
func (s *Store) BanList(ctx context.Context, limit int) ([]BanRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target, reason, issued_by, issued_at, expires_at FROM bans
		 WHERE expires_at IS NULL OR expires_at > NOW()
		 ORDER BY issued_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	defer rows.Close()

	var out []BanRecord
	for rows.Next() {
		var r BanRecord
		if err := rows.Scan(&r.Target, &r.Reason, &r.IssuedBy, &r.IssuedAt, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Mute mutes target until the given time.
func (s *Store) Mute(ctx context.Context, target string, until time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mutes (target, expires_at) VALUES ($1, $2)
		 ON CONFLICT (target) DO UPDATE SET expires_at=EXCLUDED.expires_at`,
		norm(target), until)
	if err != nil {
		return fmt.Errorf("mute %s: %w", target, err)
	}
	return nil
}

// Unmute removes a mute and reports whether one existed.
func (s *Store) Unmute(ctx context.Context, target string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM mutes WHERE target=$1`, norm(target))
	if err != nil {
		return false, fmt.Errorf("unmute %s: %w", target, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unmute %s: %w", target, err)
	}
	return n > 0, nil
}

// IsMuted reports whether target has an unexpired mute. Expired rows are
// swept opportunistically.
func (s *Store) IsMuted(ctx context.Context, target string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM mutes WHERE target=$1 AND expires_at > NOW())`,
		norm(target)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check mute %s: %w", target, err)
	}
	if !exists {
		// Best effort; a leftover expired row is harmless.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM mutes WHERE target=$1 AND expires_at <= NOW()`, norm(target))
	}
	return exists, nil
}
