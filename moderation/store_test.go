package moderation_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/manedatmane/manestream-bot/moderation"
	"github.com/manedatmane/manestream-bot/testutil"
)

func TestBanRoundTrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := moderation.NewStore(database)

	target := fmt.Sprintf("griefer%d", time.Now().UnixNano())
	t.Cleanup(func() {
		database.ExecContext(context.Background(), `DELETE FROM bans WHERE target=$1`, target)
	})

	banned, err := store.IsBanned(ctx, target)
	if err != nil || banned {
		t.Fatalf("fresh user banned=%v err=%v", banned, err)
	}

	if err := store.Ban(ctx, target, "spamming", "admin", nil); err != nil {
		t.Fatalf("ban: %v", err)
	}
	banned, err = store.IsBanned(ctx, "@"+target)
	if err != nil || !banned {
		t.Fatalf("after ban: banned=%v err=%v", banned, err)
	}

	// Re-banning refreshes the record instead of erroring.
	until := time.Now().Add(time.Hour)
	if err := store.Ban(ctx, target, "still spamming", "admin", &until); err != nil {
		t.Fatalf("re-ban: %v", err)
	}

	records, err := store.BanList(ctx, 100)
	if err != nil {
		t.Fatalf("banlist: %v", err)
	}
	found := false
	for _, r := range records {
		if r.Target == target {
			found = true
			if r.Reason != "still spamming" || r.IssuedBy != "admin" || r.ExpiresAt == nil {
				t.Fatalf("unexpected record: %+v", r)
			}
		}
	}
	if !found {
		t.Fatalf("banlist missing %q", target)
	}

	removed, err := store.Unban(ctx, target)
	if err != nil || !removed {
		t.Fatalf("unban: removed=%v err=%v", removed, err)
	}
	removed, err = store.Unban(ctx, target)
	if err != nil || removed {
		t.Fatalf("second unban: removed=%v err=%v", removed, err)
	}
	banned, err = store.IsBanned(ctx, target)
	if err != nil || banned {
		t.Fatalf("after unban: banned=%v err=%v", banned, err)
	}
}

func TestExpiredBanIsInactive(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := moderation.NewStore(database)

	target := fmt.Sprintf("oldban%d", time.Now().UnixNano())
	t.Cleanup(func() {
		database.ExecContext(context.Background(), `DELETE FROM bans WHERE target=$1`, target)
	})

	past := time.Now().Add(-time.Minute)
	if err := store.Ban(ctx, target, "timeout", "admin", &past); err != nil {
		t.Fatalf("ban: %v", err)
	}
	banned, err := store.IsBanned(ctx, target)
	if err != nil || banned {
		t.Fatalf("expired ban still active: banned=%v err=%v", banned, err)
	}

	records, err := store.BanList(ctx, 100)
	if err != nil {
		t.Fatalf("banlist: %v", err)
	}
	for _, r := range records {
		if r.Target == target {
			t.Fatalf("expired ban listed: %+v", r)
		}
	}
}

func TestMuteRoundTrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := moderation.NewStore(database)

	target := fmt.Sprintf("loudguy%d", time.Now().UnixNano())
	t.Cleanup(func() {
		database.ExecContext(context.Background(), `DELETE FROM mutes WHERE target=$1`, target)
	})

	muted, err := store.IsMuted(ctx, target)
	if err != nil || muted {
		t.Fatalf("fresh user muted=%v err=%v", muted, err)
	}

	if err := store.Mute(ctx, target, time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("mute: %v", err)
	}
	muted, err = store.IsMuted(ctx, "@"+target)
	if err != nil || !muted {
		t.Fatalf("after mute: muted=%v err=%v", muted, err)
	}

	// Re-muting extends the existing record.
	if err := store.Mute(ctx, target, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("re-mute: %v", err)
	}

	removed, err := store.Unmute(ctx, target)
	if err != nil || !removed {
		t.Fatalf("unmute: removed=%v err=%v", removed, err)
	}
	removed, err = store.Unmute(ctx, target)
	if err != nil || removed {
		t.Fatalf("second unmute: removed=%v err=%v", removed, err)
	}
}

func TestExpiredMuteIsInactiveAndSwept(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := moderation.NewStore(database)

	target := fmt.Sprintf("quietnow%d", time.Now().UnixNano())
	t.Cleanup(func() {
		database.ExecContext(context.Background(), `DELETE FROM mutes WHERE target=$1`, target)
	})

	if err := store.Mute(ctx, target, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("mute: %v", err)
	}
	muted, err := store.IsMuted(ctx, target)
	if err != nil || muted {
		t.Fatalf("expired mute still active: muted=%v err=%v", muted, err)
	}

	// The expired row is cleaned up by the check itself.
	var count int
	if err := database.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mutes WHERE target=$1`, target).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expired mute row not swept, count=%d", count)
	}
}
