package config

import (
	"math"
	"testing"
	"time"
)

func TestDefaultRarityTableIsValid(t *testing.T) {
	table := DefaultRarityTable()
	if err := ValidateRarityTable(table); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
	sum := 0.0
	for _, tier := range table {
		sum += tier.Weight
	}
	if math.Abs(sum-100) > 0.01 {
		t.Fatalf("weights sum to %v, want 100", sum)
	}
}

func TestValidateRarityTable(t *testing.T) {
	cases := []struct {
		name    string
		tiers   []RarityTier
		wantErr bool
	}{
		{"empty", nil, true},
		{"valid single", []RarityTier{{Name: "Only", Weight: 100, MinPayout: 1, MaxPayout: 10}}, false},
		{"sum off", []RarityTier{{Name: "A", Weight: 50, MinPayout: 1, MaxPayout: 2}}, true},
		{"within tolerance", []RarityTier{
			{Name: "A", Weight: 60.004, MinPayout: 1, MaxPayout: 2},
			{Name: "B", Weight: 40, MinPayout: 1, MaxPayout: 2},
		}, false},
		{"zero weight", []RarityTier{
			{Name: "A", Weight: 0, MinPayout: 1, MaxPayout: 2},
			{Name: "B", Weight: 100, MinPayout: 1, MaxPayout: 2},
		}, true},
		{"empty name", []RarityTier{{Name: "", Weight: 100, MinPayout: 1, MaxPayout: 2}}, true},
		{"inverted payouts", []RarityTier{{Name: "A", Weight: 100, MinPayout: 10, MaxPayout: 5}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRarityTable(tc.tiers)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseCooldownEnv(t *testing.T) {
	got, err := parseCooldownEnv([]string{
		"COOLDOWN_SLOTS=10s",
		"COOLDOWN_GAMBLE=1m",
		"FISH_COOLDOWN=45s",
		"PATH=/usr/bin",
		"COOLDOWN_=5s",
		"NOEQUALS",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]time.Duration{"slots": 10 * time.Second, "gamble": time.Minute}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for action, d := range want {
		if got[action] != d {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if _, err := parseCooldownEnv([]string{"COOLDOWN_SLOTS=soon"}); err == nil {
		t.Fatal("non-duration value accepted")
	}
	if _, err := parseCooldownEnv([]string{"COOLDOWN_SLOTS=-5s"}); err == nil {
		t.Fatal("negative duration accepted")
	}
}

func TestCooldownEnvReachesTunables(t *testing.T) {
	rt := NewRuntime(&Config{
		FishCooldown: 30 * time.Second,
		Cooldowns: map[string]time.Duration{
			"slots": 10 * time.Second,
			// FISH_COOLDOWN wins over a conflicting per-action entry.
			"fish": time.Hour,
		},
	})
	tun := rt.Tunables()
	if d, ok := tun.CooldownFor("slots"); !ok || d != 10*time.Second {
		t.Fatalf("slots cooldown = %v %v", d, ok)
	}
	if d, ok := tun.CooldownFor("fish"); !ok || d != 30*time.Second {
		t.Fatalf("fish cooldown = %v %v", d, ok)
	}
}

func TestIsAdmin(t *testing.T) {
	rt := NewRuntime(&Config{AdminUsers: []string{"alice", "bob"}})
	tun := rt.Tunables()
	if !tun.IsAdmin("alice") || !tun.IsAdmin("ALICE") {
		t.Fatal("admin lookup should be case-insensitive")
	}
	if tun.IsAdmin("carol") {
		t.Fatal("carol is not an admin")
	}
}

func TestApplyOverride(t *testing.T) {
	base := func() *Tunables {
		return &Tunables{
			StartingBongbux: 5000,
			FishCooldown:    30 * time.Second,
			CastCost:        5,
			GambleWinRate:   0.45,
			AutomodEnabled:  true,
			RarityTable:     DefaultRarityTable(),
			Cooldowns:       map[string]time.Duration{"fish": 30 * time.Second},
		}
	}

	t.Run("starting bongbux", func(t *testing.T) {
		tun := base()
		if err := applyOverride(tun, "STARTING_BONGBUX", "1000"); err != nil {
			t.Fatal(err)
		}
		if tun.StartingBongbux != 1000 {
			t.Fatalf("got %d", tun.StartingBongbux)
		}
		if err := applyOverride(tun, "STARTING_BONGBUX", "-1"); err == nil {
			t.Fatal("negative value accepted")
		}
		if err := applyOverride(tun, "STARTING_BONGBUX", "lots"); err == nil {
			t.Fatal("non-numeric value accepted")
		}
	})

	t.Run("fish cooldown", func(t *testing.T) {
		tun := base()
		if err := applyOverride(tun, "FISH_COOLDOWN", "45s"); err != nil {
			t.Fatal(err)
		}
		if tun.FishCooldown != 45*time.Second {
			t.Fatalf("got %v", tun.FishCooldown)
		}
		if err := applyOverride(tun, "FISH_COOLDOWN", "-5s"); err == nil {
			t.Fatal("negative duration accepted")
		}
	})

	t.Run("gamble win rate", func(t *testing.T) {
		tun := base()
		if err := applyOverride(tun, "GAMBLE_WIN_RATE", "0.5"); err != nil {
			t.Fatal(err)
		}
		if tun.GambleWinRate != 0.5 {
			t.Fatalf("got %v", tun.GambleWinRate)
		}
		if err := applyOverride(tun, "GAMBLE_WIN_RATE", "1.5"); err == nil {
			t.Fatal("rate above 1 accepted")
		}
	})

	t.Run("automod flag", func(t *testing.T) {
		tun := base()
		if err := applyOverride(tun, "AUTOMOD_ENABLED", "false"); err != nil {
			t.Fatal(err)
		}
		if tun.AutomodEnabled {
			t.Fatal("flag not applied")
		}
		if err := applyOverride(tun, "AUTOMOD_ENABLED", "nope"); err == nil {
			t.Fatal("non-boolean accepted")
		}
	})

	t.Run("admin users", func(t *testing.T) {
		tun := base()
		if err := applyOverride(tun, "ADMIN_USERS", "Alice, bob ,"); err != nil {
			t.Fatal(err)
		}
		if !tun.IsAdmin("alice") || !tun.IsAdmin("bob") {
			t.Fatal("admins not applied")
		}
		if len(tun.AdminUsers) != 2 {
			t.Fatalf("got %d admins", len(tun.AdminUsers))
		}
	})

	t.Run("rarity table", func(t *testing.T) {
		tun := base()
		good := `[{"name":"Only","weight":100,"min_payout":1,"max_payout":10}]`
		if err := applyOverride(tun, "RARITY_TABLE", good); err != nil {
			t.Fatal(err)
		}
		if len(tun.RarityTable) != 1 || tun.RarityTable[0].Name != "Only" {
			t.Fatalf("table not applied: %+v", tun.RarityTable)
		}
		bad := `[{"name":"Half","weight":50,"min_payout":1,"max_payout":10}]`
		if err := applyOverride(tun, "RARITY_TABLE", bad); err == nil {
			t.Fatal("invalid table accepted")
		}
		if err := applyOverride(tun, "RARITY_TABLE", "not json"); err == nil {
			t.Fatal("malformed JSON accepted")
		}
	})

	t.Run("per-action cooldown", func(t *testing.T) {
		tun := base()
		if err := applyOverride(tun, "COOLDOWN_SLOTS", "10s"); err != nil {
			t.Fatal(err)
		}
		if d, ok := tun.CooldownFor("slots"); !ok || d != 10*time.Second {
			t.Fatalf("got %v %v", d, ok)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		tun := base()
		if err := applyOverride(tun, "NO_SUCH_KEY", "1"); err == nil {
			t.Fatal("unknown key accepted")
		}
	})
}
