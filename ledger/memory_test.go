package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	balance, created, err := m.Ensure(ctx, "Alice", 5000)
	if err != nil || !created || balance != 5000 {
		t.Fatalf("first ensure: balance=%d created=%v err=%v", balance, created, err)
	}

	if _, err := m.ApplyDelta(ctx, "alice", -1000); err != nil {
		t.Fatal(err)
	}

	balance, created, err = m.Ensure(ctx, "ALICE", 5000)
	if err != nil || created || balance != 4000 {
		t.Fatalf("second ensure must not reset: balance=%d created=%v err=%v", balance, created, err)
	}
}

func TestApplyDeltaNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Ensure(ctx, "alice", 100)

	if _, err := m.ApplyDelta(ctx, "alice", -101); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	balance, _, _ := m.Balance(ctx, "alice")
	if balance != 100 {
		t.Fatalf("failed debit mutated balance: %d", balance)
	}

	if _, err := m.ApplyDelta(ctx, "nobody", 10); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("err = %v, want ErrNoAccount", err)
	}
}

func TestTransferConservation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Ensure(ctx, "alice", 1000)
	m.Ensure(ctx, "bob", 1000)

	if err := m.Transfer(ctx, "alice", "bob", 300); err != nil {
		t.Fatal(err)
	}
	a, _, _ := m.Balance(ctx, "alice")
	b, _, _ := m.Balance(ctx, "bob")
	if a != 700 || b != 1300 {
		t.Fatalf("balances = %d/%d, want 700/1300", a, b)
	}

	cases := []struct {
		name   string
		from   string
		to     string
		amount int64
		want   error
	}{
		{"insufficient", "alice", "bob", 10000, ErrInsufficientFunds},
		{"self", "alice", "alice", 10, ErrInvalidTarget},
		{"missing recipient", "alice", "ghost", 10, ErrInvalidTarget},
		{"missing sender", "ghost", "bob", 10, ErrNoAccount},
		{"non-positive", "alice", "bob", 0, ErrInvalidTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := m.Transfer(ctx, tc.from, tc.to, tc.amount); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	// Every failure above must leave the total untouched.
	a, _, _ = m.Balance(ctx, "alice")
	b, _, _ = m.Balance(ctx, "bob")
	if a+b != 2000 {
		t.Fatalf("total = %d, want 2000", a+b)
	}
}

func TestConcurrentOpposingTransfers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Ensure(ctx, "alice", 10000)
	m.Ensure(ctx, "bob", 10000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Transfer(ctx, "alice", "bob", 7)
		}()
		go func() {
			defer wg.Done()
			_ = m.Transfer(ctx, "bob", "alice", 3)
		}()
	}
	wg.Wait()

	a, _, _ := m.Balance(ctx, "alice")
	b, _, _ := m.Balance(ctx, "bob")
	if a+b != 20000 {
		t.Fatalf("total = %d, want 20000", a+b)
	}
	if a < 0 || b < 0 {
		t.Fatalf("negative balance: alice=%d bob=%d", a, b)
	}
}

func TestRecordCast(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Ensure(ctx, "alice", 100)

	at := time.Unix(5000, 0)
	balance, err := m.RecordCast(ctx, "alice", "Rare", 80, 5, at)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 175 {
		t.Fatalf("balance = %d, want 175", balance)
	}

	p, err := m.Profile(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Catches["Rare"] != 1 || p.TotalEarnings != 80 || !p.LastCastAt.Equal(at) {
		t.Fatalf("profile = %+v", p)
	}

	// A cast that cannot cover its cost mutates nothing.
	m.SetBalance(ctx, "alice", 3)
	if _, err := m.RecordCast(ctx, "alice", "Common", 10, 5, at); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	p, _ = m.Profile(ctx, "alice")
	if p.Catches["Common"] != 0 {
		t.Fatal("failed cast recorded a catch")
	}

	if _, err := m.RecordCast(ctx, "ghost", "Common", 10, 5, at); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("err = %v, want ErrNoAccount", err)
	}
}

func TestTopOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Ensure(ctx, "carol", 50)
	m.Ensure(ctx, "alice", 100)
	m.Ensure(ctx, "bob", 100)
	m.Ensure(ctx, "dave", 10)

	top, err := m.Top(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{{"alice", 100}, {"bob", 100}, {"carol", 50}}
	if len(top) != len(want) {
		t.Fatalf("len = %d, want %d", len(top), len(want))
	}
	for i := range want {
		if top[i] != want[i] {
			t.Fatalf("top[%d] = %+v, want %+v", i, top[i], want[i])
		}
	}
}

func TestGlobalCatches(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Ensure(ctx, "alice", 100)
	m.Ensure(ctx, "bob", 100)
	at := time.Now()
	m.RecordCast(ctx, "alice", "Common", 10, 5, at)
	m.RecordCast(ctx, "alice", "Rare", 100, 5, at)
	m.RecordCast(ctx, "bob", "Common", 12, 5, at)

	got, err := m.GlobalCatches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got["Common"] != 2 || got["Rare"] != 1 {
		t.Fatalf("global catches = %v", got)
	}
}
