package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// RarityTier is one row of the fishing drop table. Weight is a percentage;
// the weights of a full table must sum to 100 within tolerance.
type RarityTier struct {
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	MinPayout int64   `json:"min_payout"`
	MaxPayout int64   `json:"max_payout"`
}

// DefaultRarityTable returns the stock drop table.
func DefaultRarityTable() []RarityTier {
	return []RarityTier{
		{Name: "Common", Weight: 60, MinPayout: 5, MaxPayout: 25},
		{Name: "Uncommon", Weight: 25, MinPayout: 25, MaxPayout: 75},
		{Name: "Rare", Weight: 12, MinPayout: 75, MaxPayout: 250},
		{Name: "Epic", Weight: 2.5, MinPayout: 250, MaxPayout: 750},
		{Name: "Legendary", Weight: 0.5, MinPayout: 750, MaxPayout: 2500},
	}
}

// ValidateRarityTable checks that weights sum to 100 within tolerance and
// every payout range is sane.
func ValidateRarityTable(tiers []RarityTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("rarity table is empty")
	}
	sum := 0.0
	for _, t := range tiers {
		if t.Name == "" {
			return fmt.Errorf("rarity tier with empty name")
		}
		if t.Weight <= 0 {
			return fmt.Errorf("rarity tier %s: weight must be positive", t.Name)
		}
		if t.MinPayout > t.MaxPayout {
			return fmt.Errorf("rarity tier %s: min payout %d exceeds max %d", t.Name, t.MinPayout, t.MaxPayout)
		}
		sum += t.Weight
	}
	if math.Abs(sum-100) > 0.01 {
		return fmt.Errorf("rarity weights sum to %v, want 100", sum)
	}
	return nil
}

// Tunables is an immutable snapshot of the gameplay configuration. Components
// fetch the current snapshot per operation and never see a half-updated one;
// reloads replace the whole snapshot atomically.
type Tunables struct {
	AdminUsers      map[string]struct{}
	StartingBongbux int64
	FishCooldown    time.Duration
	CastCost        int64
	GambleWinRate   float64
	AutomodEnabled  bool
	RarityTable     []RarityTier
	Cooldowns       map[string]time.Duration
}

// IsAdmin reports whether username is in the admin set (case-insensitive).
func (t *Tunables) IsAdmin(username string) bool {
	_, ok := t.AdminUsers[strings.ToLower(username)]
	return ok
}

// CooldownFor returns the per-action cooldown, if one is configured.
func (t *Tunables) CooldownFor(action string) (time.Duration, bool) {
	d, ok := t.Cooldowns[action]
	return d, ok
}

// Runtime owns the current Tunables snapshot. Construct once with NewRuntime,
// hand out read access via Tunables(), and update only through Reload.
type Runtime struct {
	cfg *Config
	cur atomic.Pointer[Tunables]
}

// NewRuntime builds the initial snapshot from the static config.
func NewRuntime(cfg *Config) *Runtime {
	r := &Runtime{cfg: cfg}
	r.cur.Store(r.fromConfig())
	return r
}

// Tunables returns the current snapshot. Callers must not mutate it.
func (r *Runtime) Tunables() *Tunables { return r.cur.Load() }

func (r *Runtime) fromConfig() *Tunables {
	admins := make(map[string]struct{}, len(r.cfg.AdminUsers))
	for _, u := range r.cfg.AdminUsers {
		if u != "" {
			admins[u] = struct{}{}
		}
	}
	cooldowns := make(map[string]time.Duration, len(r.cfg.Cooldowns)+1)
	for action, d := range r.cfg.Cooldowns {
		cooldowns[action] = d
	}
	// FISH_COOLDOWN is canonical for the fish action, as in Reload.
	cooldowns["fish"] = r.cfg.FishCooldown
	return &Tunables{
		AdminUsers:      admins,
		StartingBongbux: r.cfg.StartingBongbux,
		FishCooldown:    r.cfg.FishCooldown,
		CastCost:        5,
		GambleWinRate:   r.cfg.GambleWinRate,
		AutomodEnabled:  r.cfg.AutomodEnabled,
		RarityTable:     DefaultRarityTable(),
		Cooldowns:       cooldowns,
	}
}

// Reload rebuilds the snapshot from the static config plus any kv overrides
// and swaps it in. The previous snapshot stays valid for in-flight checks.
func (r *Runtime) Reload(ctx context.Context, db *sql.DB) error {
	next := r.fromConfig()

	rows, err := db.QueryContext(ctx, `SELECT key, value FROM kv WHERE key LIKE 'cfg:%'`)
	if err != nil {
		return fmt.Errorf("load config overrides: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan config override: %w", err)
		}
		if err := applyOverride(next, strings.TrimPrefix(key, "cfg:"), value); err != nil {
			slog.Warn("ignoring bad config override", slog.String("key", key), slog.Any("err", err))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate config overrides: %w", err)
	}

	if err := ValidateRarityTable(next.RarityTable); err != nil {
		return fmt.Errorf("invalid rarity table: %w", err)
	}
	next.Cooldowns["fish"] = next.FishCooldown

	r.cur.Store(next)
	slog.Info("tunables reloaded",
		slog.Int("admins", len(next.AdminUsers)),
		slog.Int64("starting_bongbux", next.StartingBongbux),
		slog.Duration("fish_cooldown", next.FishCooldown),
		slog.Float64("gamble_win_rate", next.GambleWinRate))
	return nil
}

// SetOverride persists a single override in kv. It takes effect on the next
// Reload, not immediately.
func (r *Runtime) SetOverride(ctx context.Context, db *sql.DB, key, value string) error {
	if _, err := applyOverrideProbe(r.fromConfig(), key, value); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
		"cfg:"+key, value)
	if err != nil {
		return fmt.Errorf("persist override: %w", err)
	}
	return nil
}

func applyOverrideProbe(t *Tunables, key, value string) (*Tunables, error) {
	if err := applyOverride(t, key, value); err != nil {
		return nil, err
	}
	return t, nil
}

func applyOverride(t *Tunables, key, value string) error {
	switch {
	case key == "STARTING_BONGBUX":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("want non-negative integer, got %q", value)
		}
		t.StartingBongbux = n
	case key == "FISH_COOLDOWN":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("want duration, got %q", value)
		}
		t.FishCooldown = d
	case key == "FISH_CAST_COST":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("want non-negative integer, got %q", value)
		}
		t.CastCost = n
	case key == "GAMBLE_WIN_RATE":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("want probability in [0,1], got %q", value)
		}
		t.GambleWinRate = f
	case key == "AUTOMOD_ENABLED":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("want boolean, got %q", value)
		}
		t.AutomodEnabled = b
	case key == "ADMIN_USERS":
		admins := make(map[string]struct{})
		for _, u := range strings.Split(value, ",") {
			u = strings.ToLower(strings.TrimSpace(u))
			if u != "" {
				admins[u] = struct{}{}
			}
		}
		t.AdminUsers = admins
	case key == "RARITY_TABLE":
		var tiers []RarityTier
		if err := json.Unmarshal([]byte(value), &tiers); err != nil {
			return fmt.Errorf("want JSON tier array: %w", err)
		}
		if err := ValidateRarityTable(tiers); err != nil {
			return err
		}
		t.RarityTable = tiers
	case strings.HasPrefix(key, "COOLDOWN_"):
		action := strings.ToLower(strings.TrimPrefix(key, "COOLDOWN_"))
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("want duration, got %q", value)
		}
		t.Cooldowns[action] = d
	default:
		return fmt.Errorf("unknown tunable %q", key)
	}
	return nil
}
