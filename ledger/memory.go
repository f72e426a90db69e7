package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and local development. A single
// mutex gives it the same observable atomicity as the Postgres store: every
// mutation is applied in full or not at all.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int64
	profiles map[string]*Profile
}

// NewMemory returns an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]int64),
		profiles: make(map[string]*Profile),
	}
}

func (m *Memory) Ensure(ctx context.Context, username string, starting int64) (int64, bool, error) {
	username = norm(username)
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[username]; ok {
		return b, false, nil
	}
	m.balances[username] = starting
	return starting, true, nil
}

func (m *Memory) Balance(ctx context.Context, username string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[norm(username)]
	return b, ok, nil
}

func (m *Memory) SetBalance(ctx context.Context, username string, amount int64) error {
	if amount < 0 {
		return ErrInsufficientFunds
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[norm(username)] = amount
	return nil
}

func (m *Memory) ApplyDelta(ctx context.Context, username string, delta int64) (int64, error) {
	username = norm(username)
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[username]
	if !ok {
		return 0, ErrNoAccount
	}
	if b+delta < 0 {
		return 0, ErrInsufficientFunds
	}
	m.balances[username] = b + delta
	return b + delta, nil
}

func (m *Memory) Transfer(ctx context.Context, from, to string, amount int64) error {
	from, to = norm(from), norm(to)
	if from == to || to == "" || amount <= 0 {
		return ErrInvalidTarget
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fromBal, ok := m.balances[from]
	if !ok {
		return ErrNoAccount
	}
	if _, ok := m.balances[to]; !ok {
		return ErrInvalidTarget
	}
	if fromBal < amount {
		return ErrInsufficientFunds
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

func (m *Memory) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 5
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.balances))
	for u, b := range m.balances {
		out = append(out, Entry{Username: u, Balance: b})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *Memory) RecordCast(ctx context.Context, username, tier string, payout, cost int64, at time.Time) (int64, error) {
	username = norm(username)
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[username]
	if !ok {
		return 0, ErrNoAccount
	}
	if b < cost {
		return 0, ErrInsufficientFunds
	}
	m.balances[username] = b - cost + payout
	p, ok := m.profiles[username]
	if !ok {
		p = &Profile{Username: username, Catches: map[string]int64{}}
		m.profiles[username] = p
	}
	p.Catches[tier]++
	p.TotalEarnings += payout
	p.LastCastAt = at
	return m.balances[username], nil
}

func (m *Memory) Profile(ctx context.Context, username string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[norm(username)]
	if !ok {
		return nil, nil
	}
	cp := &Profile{
		Username:      p.Username,
		Catches:       make(map[string]int64, len(p.Catches)),
		TotalEarnings: p.TotalEarnings,
		LastCastAt:    p.LastCastAt,
	}
	for k, v := range p.Catches {
		cp.Catches[k] = v
	}
	return cp, nil
}

func (m *Memory) GlobalCatches(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := map[string]int64{}
	for _, p := range m.profiles {
		for tier, n := range p.Catches {
			total[tier] += n
		}
	}
	return total, nil
}
