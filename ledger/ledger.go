// Package ledger is the durable store of BongBux account balances and fishing
// profiles, and the atomicity guarantees over their mutations. Every
// read-modify-write runs as a single unit: concurrent operations on the same
// account serialize, operations on disjoint accounts proceed in parallel, and
// a mutation is either fully committed or never took effect.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds means the account balance cannot cover the
	// requested debit. No mutation was applied.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidTarget means a transfer recipient does not resolve to an
	// account, or equals the sender.
	ErrInvalidTarget = errors.New("invalid transfer target")
	// ErrNoAccount means the acting user has no account yet.
	ErrNoAccount = errors.New("no account")
)

// Entry is one leaderboard row.
type Entry struct {
	Username string
	Balance  int64
}

// Profile is a user's fishing record. Catches is keyed by rarity tier name.
type Profile struct {
	Username      string
	Catches       map[string]int64
	TotalEarnings int64
	LastCastAt    time.Time
}

// Store is the ledger contract. Implementations must serialize writes per
// account key and flush durably before returning success.
type Store interface {
	// Ensure creates the account with the starting balance if absent and
	// reports whether it was created.
	Ensure(ctx context.Context, username string, starting int64) (balance int64, created bool, err error)
	// Balance returns the balance and whether the account exists.
	Balance(ctx context.Context, username string) (int64, bool, error)
	// SetBalance overwrites the balance, creating the account if needed.
	SetBalance(ctx context.Context, username string, amount int64) error
	// ApplyDelta adds delta (which may be negative) to the balance and
	// returns the new balance. Fails with ErrInsufficientFunds when the
	// result would be negative and with ErrNoAccount when the account does
	// not exist; either failure leaves the balance untouched.
	ApplyDelta(ctx context.Context, username string, delta int64) (int64, error)
	// Transfer debits from and credits to as one unit, or does neither.
	Transfer(ctx context.Context, from, to string, amount int64) error
	// Top returns up to n accounts ordered by balance descending, ties
	// broken by username ascending.
	Top(ctx context.Context, n int) ([]Entry, error)

	// RecordCast applies a fishing cast: debits cost, credits payout, and
	// bumps the profile's tier counter, earnings, and last-cast time, all
	// as one unit. Returns the new balance. Fails with ErrInsufficientFunds
	// when the balance cannot cover the cost.
	RecordCast(ctx context.Context, username, tier string, payout, cost int64, at time.Time) (int64, error)
	// Profile returns the fishing profile, or nil when the user never cast.
	Profile(ctx context.Context, username string) (*Profile, error)
	// GlobalCatches aggregates tier counters across all profiles.
	GlobalCatches(ctx context.Context) (map[string]int64, error)
}
