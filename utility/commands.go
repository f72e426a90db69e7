// Package utility implements the housekeeping commands: help, command list,
// uptime, ping, last-seen, and the admin config reload.
package utility

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/manedatmane/manestream-bot/bot"
	"github.com/manedatmane/manestream-bot/config"
	"github.com/manedatmane/manestream-bot/customcmd"
	"github.com/manedatmane/manestream-bot/perms"
)

// Seen tracks when each user last sent a message. The chat ingress touches it
// on every inbound event.
type Seen struct {
	mu   sync.RWMutex
	last map[string]time.Time
}

// NewSeen returns an empty tracker.
func NewSeen() *Seen {
	return &Seen{last: make(map[string]time.Time)}
}

// Touch records activity for user at t.
func (s *Seen) Touch(user string, t time.Time) {
	user = strings.ToLower(user)
	s.mu.Lock()
	s.last[user] = t
	s.mu.Unlock()
}

// Last returns the last activity time for user.
func (s *Seen) Last(user string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.last[strings.ToLower(user)]
	return t, ok
}

// Count returns the number of distinct users seen since startup.
func (s *Seen) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.last)
}

// Deps are the collaborators of the utility set.
type Deps struct {
	Registry *bot.Registry
	Customs  *customcmd.Store
	Runtime  *config.Runtime
	DB       *sql.DB
	Seen     *Seen
	Started  time.Time
}

// Commands returns the utility command set.
func Commands(d Deps) *bot.Set {
	h := &handlers{d: d}
	return &bot.Set{
		Name: "utility",
		Commands: []bot.Command{
			{
				Name:        "help",
				Aliases:     []string{"h"},
				Description: "Show help for a command.",
				Usage:       "!help [command]",
				Handler:     h.help,
			},
			{
				Name:        "commands",
				Aliases:     []string{"cmds", "commandlist"},
				Description: "List available commands.",
				Usage:       "!commands",
				Handler:     h.commands,
			},
			{
				Name:        "uptime",
				Description: "Show how long the bot has been running.",
				Usage:       "!uptime",
				Handler:     h.uptime,
			},
			{
				Name:        "ping",
				Description: "Check that the bot is alive.",
				Usage:       "!ping",
				Handler:     h.ping,
			},
			{
				Name:        "last",
				Aliases:     []string{"lastseen", "seen"},
				Description: "Show when a user was last seen.",
				Usage:       "!last <username>",
				Handler:     h.last,
			},
			{
				Name:        "stats",
				Description: "Show bot statistics.",
				Usage:       "!stats",
				Handler:     h.stats,
			},
			{
				Name:        "random",
				Aliases:     []string{"rand"},
				Description: "Invoke a random custom command.",
				Usage:       "!random",
				Handler:     h.random,
			},
			{
				Name:        "about",
				Description: "About the bot.",
				Usage:       "!about",
				Handler:     h.about,
			},
			{
				Name:        "reloadconfig",
				Description: "Reload tunables from storage.",
				Usage:       "!reloadconfig",
				MinLevel:    perms.Admin,
				Hidden:      true,
				Handler:     h.reloadConfig,
			},
			{
				Name:        "setconfig",
				Description: "Persist a tunable override and reload.",
				Usage:       "!setconfig <key> <value>",
				MinLevel:    perms.Admin,
				Hidden:      true,
				Handler:     h.setConfig,
			},
		},
	}
}

type handlers struct {
	d Deps
}

func (h *handlers) help(ctx context.Context, inv *bot.Invocation) error {
	name := strings.ToLower(strings.TrimPrefix(inv.Arg(0), "!"))
	if name == "" {
		inv.Reply("Use !commands to list commands, !help <command> for details.")
		return nil
	}
	if cmd, ok := h.d.Registry.Lookup(name); ok && (!cmd.Hidden || inv.Level >= cmd.MinLevel) {
		inv.Reply(fmt.Sprintf("%s - %s", cmd.Usage, cmd.Description))
		return nil
	}
	if _, err := h.d.Customs.Get(ctx, name); err == nil {
		inv.Reply(fmt.Sprintf("!%s - Custom command", name))
		return nil
	}
	inv.Reply(fmt.Sprintf("Command !%s not found", name))
	return nil
}

func (h *handlers) commands(ctx context.Context, inv *bot.Invocation) error {
	visible := h.d.Registry.List(inv.Level, false)
	names := make([]string, len(visible))
	for i, c := range visible {
		names[i] = "!" + c.Name
	}
	reply := fmt.Sprintf("Commands (%d): %s", len(names), strings.Join(names, " "))

	customs, err := h.d.Customs.Names(ctx)
	if err == nil && len(customs) > 0 {
		reply += fmt.Sprintf(" | %d custom commands (!cmdinfo <name>)", len(customs))
	}
	inv.Reply(reply)
	return nil
}

func (h *handlers) uptime(ctx context.Context, inv *bot.Invocation) error {
	up := time.Since(h.d.Started).Round(time.Second)
	inv.Reply(fmt.Sprintf("Uptime: %s", formatDuration(up)))
	return nil
}

func (h *handlers) ping(ctx context.Context, inv *bot.Invocation) error {
	inv.Reply("Pong!")
	return nil
}

func (h *handlers) last(ctx context.Context, inv *bot.Invocation) error {
	target := strings.ToLower(strings.TrimPrefix(inv.Arg(0), "@"))
	if target == "" {
		return bot.Usagef("!last <username>")
	}
	t, ok := h.d.Seen.Last(target)
	if !ok {
		inv.Reply(fmt.Sprintf("%s has never been seen", target))
		return nil
	}
	ago := time.Since(t).Round(time.Second)
	inv.Reply(fmt.Sprintf("%s was last seen %s ago", target, formatDuration(ago)))
	return nil
}

func (h *handlers) stats(ctx context.Context, inv *bot.Invocation) error {
	builtins := len(h.d.Registry.List(perms.Admin, true))
	customs := 0
	if names, err := h.d.Customs.Names(ctx); err == nil {
		customs = len(names)
	}
	up := time.Since(h.d.Started).Round(time.Second)
	inv.Reply(fmt.Sprintf("Stats: %d commands, %d custom commands, %d users seen, up %s",
		builtins, customs, h.d.Seen.Count(), formatDuration(up)))
	return nil
}

func (h *handlers) random(ctx context.Context, inv *bot.Invocation) error {
	info, err := h.d.Customs.Random(ctx)
	if err != nil {
		return fmt.Errorf("random custom command: %w", err)
	}
	if info == nil {
		inv.Reply("No custom commands available!")
		return nil
	}
	inv.Reply(fmt.Sprintf("[!%s] %s", info.Name, info.Body))
	return nil
}

func (h *handlers) about(ctx context.Context, inv *bot.Invocation) error {
	inv.Reply("Manestream Bot | Fishing, BongBux, Gambling, Custom Commands | Use !help for more info")
	return nil
}

func (h *handlers) reloadConfig(ctx context.Context, inv *bot.Invocation) error {
	if err := h.d.Runtime.Reload(ctx, h.d.DB); err != nil {
		return fmt.Errorf("reload tunables: %w", err)
	}
	inv.Reply("Config reloaded")
	return nil
}

func (h *handlers) setConfig(ctx context.Context, inv *bot.Invocation) error {
	key, value := strings.ToUpper(inv.Arg(0)), inv.Arg(1)
	if key == "" || value == "" {
		return bot.Usagef("!setconfig <key> <value>")
	}
	if err := h.d.Runtime.SetOverride(ctx, h.d.DB, key, value); err != nil {
		inv.Reply(fmt.Sprintf("Rejected: %v", err))
		return nil
	}
	if err := h.d.Runtime.Reload(ctx, h.d.DB); err != nil {
		return fmt.Errorf("reload tunables: %w", err)
	}
	inv.Reply(fmt.Sprintf("Set %s=%s", key, value))
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
}
