package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/manedatmane/manestream-bot/ledger"
	"github.com/manedatmane/manestream-bot/testutil"
)

func cleanup(t *testing.T, db *sql.DB, users ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, u := range users {
			_, _ = db.Exec(`DELETE FROM accounts WHERE username=$1`, u)
			_, _ = db.Exec(`DELETE FROM fishing_profiles WHERE username=$1`, u)
		}
	})
}

func TestSQLTransferAtomicity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := ledger.NewSQL(db)
	ctx := context.Background()

	from := fmt.Sprintf("xfer_from_%d", time.Now().UnixNano())
	to := fmt.Sprintf("xfer_to_%d", time.Now().UnixNano())
	cleanup(t, db, from, to)

	if _, _, err := store.Ensure(ctx, from, 1000); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Ensure(ctx, to, 0); err != nil {
		t.Fatal(err)
	}

	if err := store.Transfer(ctx, from, to, 400); err != nil {
		t.Fatal(err)
	}
	fb, _, _ := store.Balance(ctx, from)
	tb, _, _ := store.Balance(ctx, to)
	if fb != 600 || tb != 400 {
		t.Fatalf("balances = %d/%d, want 600/400", fb, tb)
	}

	// Overdraw fails and leaves both rows untouched.
	if err := store.Transfer(ctx, from, to, 601); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	fb, _, _ = store.Balance(ctx, from)
	tb, _, _ = store.Balance(ctx, to)
	if fb+tb != 1000 {
		t.Fatalf("total = %d, want 1000", fb+tb)
	}
}

func TestSQLConcurrentOpposingTransfers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := ledger.NewSQL(db)
	ctx := context.Background()

	a := fmt.Sprintf("opp_a_%d", time.Now().UnixNano())
	b := fmt.Sprintf("opp_b_%d", time.Now().UnixNano())
	cleanup(t, db, a, b)

	store.Ensure(ctx, a, 5000)
	store.Ensure(ctx, b, 5000)

	// Opposing transfers on the same pair must serialize, not deadlock,
	// because both transactions lock the rows in lexical order.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Transfer(ctx, a, b, 11)
		}()
		go func() {
			defer wg.Done()
			_ = store.Transfer(ctx, b, a, 7)
		}()
	}
	wg.Wait()

	ab, _, _ := store.Balance(ctx, a)
	bb, _, _ := store.Balance(ctx, b)
	if ab+bb != 10000 {
		t.Fatalf("total = %d, want 10000", ab+bb)
	}
}

func TestSQLRecordCastCommitsBothOrNeither(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := ledger.NewSQL(db)
	ctx := context.Background()

	user := fmt.Sprintf("caster_%d", time.Now().UnixNano())
	cleanup(t, db, user)

	store.Ensure(ctx, user, 100)
	balance, err := store.RecordCast(ctx, user, "Epic", 300, 5, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if balance != 395 {
		t.Fatalf("balance = %d, want 395", balance)
	}
	p, err := store.Profile(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Catches["Epic"] != 1 || p.TotalEarnings != 300 {
		t.Fatalf("profile = %+v", p)
	}

	// A cast the balance cannot cover leaves no profile trace.
	if err := store.SetBalance(ctx, user, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := store.RecordCast(ctx, user, "Common", 10, 5, time.Now()); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	p, _ = store.Profile(ctx, user)
	if p.Catches["Common"] != 0 {
		t.Fatal("failed cast recorded a catch")
	}
}

func TestSQLEnsureDoesNotResetBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := ledger.NewSQL(db)
	ctx := context.Background()

	user := fmt.Sprintf("ensure_%d", time.Now().UnixNano())
	cleanup(t, db, user)

	if _, created, err := store.Ensure(ctx, user, 5000); err != nil || !created {
		t.Fatalf("created=%v err=%v", created, err)
	}
	if _, err := store.ApplyDelta(ctx, user, -4000); err != nil {
		t.Fatal(err)
	}
	balance, created, err := store.Ensure(ctx, user, 5000)
	if err != nil || created || balance != 1000 {
		t.Fatalf("balance=%d created=%v err=%v, want 1000/false/nil", balance, created, err)
	}
}
