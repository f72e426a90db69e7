package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

type handlers struct {
	d Deps
}

// handleHealthz answers liveness probes by checking database connectivity.
func (h *handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.d.DB.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz answers readiness probes with per-dependency checks.
func (h *handlers) handleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.d.DB.PingContext(r.Context()) }},
		{"migrations", func() error {
			var n int
			err := h.d.DB.QueryRowContext(r.Context(),
				`SELECT COUNT(*) FROM accounts`).Scan(&n)
			return err
		}},
		{"chat", func() error {
			if h.d.ChatConnected != nil && !h.d.ChatConnected() {
				return errors.New("chat transport not connected")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// handleStatus returns a lightweight status summary.
func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var accounts, customs int64
	_ = h.d.DB.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM accounts`).Scan(&accounts)
	_ = h.d.DB.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM custom_commands`).Scan(&customs)

	commands := 0
	if h.d.Commands != nil {
		commands = h.d.Commands()
	}

	tun := h.d.Runtime.Tunables()
	out := map[string]any{
		"uptime_seconds":   int64(time.Since(h.d.Started).Seconds()),
		"commands":         commands,
		"accounts":         accounts,
		"custom_commands":  customs,
		"starting_bongbux": tun.StartingBongbux,
		"fish_cooldown":    tun.FishCooldown.String(),
		"gamble_win_rate":  tun.GambleWinRate,
		"automod_enabled":  tun.AutomodEnabled,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// safeKeys are the tunable overrides the config endpoint may read or write.
// Secrets are never exposed here.
var safeKeys = map[string]bool{
	"STARTING_BONGBUX": true,
	"FISH_COOLDOWN":    true,
	"FISH_CAST_COST":   true,
	"GAMBLE_WIN_RATE":  true,
	"AUTOMOD_ENABLED":  true,
	"ADMIN_USERS":      true,
	"RARITY_TABLE":     true,
}

// handleConfig handles GET and PUT for safe configuration keys. PUT persists
// the override through the tunables runtime so validation applies, then
// reloads the snapshot.
func (h *handlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out := map[string]string{}
		for k := range safeKeys {
			var v string
			err := h.d.DB.QueryRowContext(r.Context(),
				`SELECT value FROM kv WHERE key=$1`, "cfg:"+k).Scan(&v)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "failed to read config", http.StatusInternalServerError)
				return
			}
			if v != "" {
				out[k] = v
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodPut:
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		for k, v := range body {
			if !safeKeys[k] {
				continue
			}
			if err := h.d.Runtime.SetOverride(r.Context(), h.d.DB, k, v); err != nil {
				http.Error(w, "invalid value for "+k, http.StatusBadRequest)
				return
			}
		}
		if err := h.d.Runtime.Reload(r.Context(), h.d.DB); err != nil {
			http.Error(w, "failed to reload config", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
