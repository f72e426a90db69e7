package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQL is the Postgres-backed Store. Per-key serialization comes from row
// locks: each mutation locks the affected account rows with SELECT ... FOR
// UPDATE inside one transaction, so same-key writes queue while disjoint keys
// proceed in parallel. Durability is the transaction commit.
type SQL struct {
	db *sql.DB
}

// NewSQL returns a Store backed by the given database.
func NewSQL(db *sql.DB) *SQL { return &SQL{db: db} }

func norm(username string) string { return strings.ToLower(strings.TrimSpace(username)) }

func (s *SQL) Ensure(ctx context.Context, username string, starting int64) (int64, bool, error) {
	username = norm(username)
	// Upsert that only inserts; an existing row is left alone. RETURNING is
	// skipped on conflict, so a second query fetches the balance either way.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (username, balance) VALUES ($1, $2)
		 ON CONFLICT (username) DO NOTHING`, username, starting)
	if err != nil {
		return 0, false, fmt.Errorf("ensure account: %w", err)
	}
	created := false
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		created = true
	}
	var balance int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE username=$1`, username).Scan(&balance); err != nil {
		return 0, false, fmt.Errorf("read balance: %w", err)
	}
	return balance, created, nil
}

func (s *SQL) Balance(ctx context.Context, username string) (int64, bool, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE username=$1`, norm(username)).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read balance: %w", err)
	}
	return balance, true, nil
}

func (s *SQL) SetBalance(ctx context.Context, username string, amount int64) error {
	if amount < 0 {
		return ErrInsufficientFunds
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (username, balance, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (username) DO UPDATE SET balance=EXCLUDED.balance, updated_at=NOW()`,
		norm(username), amount)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func (s *SQL) ApplyDelta(ctx context.Context, username string, delta int64) (int64, error) {
	username = norm(username)
	var newBalance int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var balance int64
		err := tx.QueryRowContext(ctx,
			`SELECT balance FROM accounts WHERE username=$1 FOR UPDATE`, username).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoAccount
		}
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		if balance+delta < 0 {
			return ErrInsufficientFunds
		}
		newBalance = balance + delta
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance=$2, updated_at=NOW() WHERE username=$1`,
			username, newBalance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (s *SQL) Transfer(ctx context.Context, from, to string, amount int64) error {
	from, to = norm(from), norm(to)
	if from == to || to == "" {
		return ErrInvalidTarget
	}
	if amount <= 0 {
		return ErrInvalidTarget
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Lock both rows in lexical order so two opposing transfers can
		// never deadlock.
		first, second := from, to
		if second < first {
			first, second = second, first
		}
		balances := map[string]int64{}
		for _, u := range []string{first, second} {
			var b int64
			err := tx.QueryRowContext(ctx,
				`SELECT balance FROM accounts WHERE username=$1 FOR UPDATE`, u).Scan(&b)
			if errors.Is(err, sql.ErrNoRows) {
				if u == from {
					return ErrNoAccount
				}
				return ErrInvalidTarget
			}
			if err != nil {
				return fmt.Errorf("lock account %s: %w", u, err)
			}
			balances[u] = b
		}
		if balances[from] < amount {
			return ErrInsufficientFunds
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance=balance-$2, updated_at=NOW() WHERE username=$1`,
			from, amount); err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance=balance+$2, updated_at=NOW() WHERE username=$1`,
			to, amount); err != nil {
			return fmt.Errorf("credit recipient: %w", err)
		}
		return nil
	})
}

func (s *SQL) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, balance FROM accounts ORDER BY balance DESC, username ASC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer rows.Close()
	out := make([]Entry, 0, n)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Username, &e.Balance); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQL) RecordCast(ctx context.Context, username, tier string, payout, cost int64, at time.Time) (int64, error) {
	username = norm(username)
	var newBalance int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var balance int64
		err := tx.QueryRowContext(ctx,
			`SELECT balance FROM accounts WHERE username=$1 FOR UPDATE`, username).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoAccount
		}
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}
		if balance < cost {
			return ErrInsufficientFunds
		}
		newBalance = balance - cost + payout
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance=$2, updated_at=NOW() WHERE username=$1`,
			username, newBalance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fishing_profiles (username, catches, total_earnings, last_cast_at)
			 VALUES ($1, jsonb_build_object($2::text, 1), $3, $4)
			 ON CONFLICT (username) DO UPDATE SET
			   catches = jsonb_set(fishing_profiles.catches, ARRAY[$2],
			     (COALESCE(fishing_profiles.catches->>$2, '0')::bigint + 1)::text::jsonb),
			   total_earnings = fishing_profiles.total_earnings + $3,
			   last_cast_at = $4`,
			username, tier, payout, at); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (s *SQL) Profile(ctx context.Context, username string) (*Profile, error) {
	var (
		raw      []byte
		earnings int64
		lastCast sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT catches, total_earnings, last_cast_at FROM fishing_profiles WHERE username=$1`,
		norm(username)).Scan(&raw, &earnings, &lastCast)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p := &Profile{Username: norm(username), Catches: map[string]int64{}, TotalEarnings: earnings}
	if lastCast.Valid {
		p.LastCastAt = lastCast.Time
	}
	if err := json.Unmarshal(raw, &p.Catches); err != nil {
		return nil, fmt.Errorf("decode catches: %w", err)
	}
	return p, nil
}

func (s *SQL) GlobalCatches(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT catches FROM fishing_profiles`)
	if err != nil {
		return nil, fmt.Errorf("global catches query: %w", err)
	}
	defer rows.Close()
	total := map[string]int64{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var counts map[string]int64
		if err := json.Unmarshal(raw, &counts); err != nil {
			return nil, fmt.Errorf("decode catches: %w", err)
		}
		for tier, n := range counts {
			total[tier] += n
		}
	}
	return total, rows.Err()
}

// withTx runs fn in a transaction, rolling back on error or panic. A canceled
// context aborts the transaction, so partial mutations never land.
func (s *SQL) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
