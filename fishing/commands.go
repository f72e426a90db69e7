package fishing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/manedatmane/manestream-bot/bot"
	"github.com/manedatmane/manestream-bot/config"
	"github.com/manedatmane/manestream-bot/ledger"
	"github.com/manedatmane/manestream-bot/telemetry"
)

// Commands returns the fishing command set. The fish cooldown is enforced by
// the router through the "fish" cooldown tunable.
func Commands(store ledger.Store, rt *config.Runtime, picker *Picker) *bot.Set {
	h := &handlers{store: store, rt: rt, picker: picker}
	return &bot.Set{
		Name: "fishing",
		Commands: []bot.Command{
			{
				Name:        "fish",
				Aliases:     []string{"cast"},
				Description: "Cast your line and try to catch something.",
				Usage:       "!fish",
				Handler:     h.fish,
			},
			{
				Name:        "fishstats",
				Aliases:     []string{"fs", "fstats"},
				Description: "View fishing statistics.",
				Usage:       "!fishstats [username|global]",
				Handler:     h.fishstats,
			},
		},
	}
}

type handlers struct {
	store  ledger.Store
	rt     *config.Runtime
	picker *Picker
}

func (h *handlers) fish(ctx context.Context, inv *bot.Invocation) error {
	tun := h.rt.Tunables()

	balance, _, err := h.store.Ensure(ctx, inv.User, tun.StartingBongbux)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	if balance < tun.CastCost {
		inv.Reply(fmt.Sprintf("You need at least %d BongBux to fish! You have %d.", tun.CastCost, balance))
		return nil
	}

	// Cost is known affordable, so the draw happens exactly once per
	// accepted cast. RecordCast still rejects if a concurrent debit won.
	tier := h.picker.Pick(tun.RarityTable)
	payout := h.picker.Payout(tier)

	newBalance, err := h.store.RecordCast(ctx, inv.User, tier.Name, payout, tun.CastCost, time.Now())
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		inv.Reply(fmt.Sprintf("You need at least %d BongBux to fish!", tun.CastCost))
		return nil
	}
	if err != nil {
		return fmt.Errorf("record cast: %w", err)
	}
	telemetry.FishingCasts.Inc()

	line := fmt.Sprintf("%s caught a %s fish! [+%d BongBux] Balance: %d",
		inv.Display, strings.ToLower(tier.Name), payout, newBalance)
	switch tier.Name {
	case "Legendary", "Epic":
		inv.Reply("*** " + line + " ***")
	case "Rare":
		inv.Reply("** " + line + " **")
	default:
		inv.Reply(line)
	}
	return nil
}

func (h *handlers) fishstats(ctx context.Context, inv *bot.Invocation) error {
	arg := strings.ToLower(strings.TrimSpace(inv.Args))

	if arg == "global" {
		catches, err := h.store.GlobalCatches(ctx)
		if err != nil {
			return fmt.Errorf("global catches: %w", err)
		}
		if len(catches) == 0 {
			inv.Reply("No fish have been caught yet!")
			return nil
		}
		var total int64
		for _, n := range catches {
			total += n
		}
		inv.Reply(fmt.Sprintf("Global Fish Stats (%d total): %s", total, topCatches(catches, 5)))
		return nil
	}

	target := inv.User
	if arg != "" {
		target = strings.TrimPrefix(arg, "@")
	}

	profile, err := h.store.Profile(ctx, target)
	if err != nil {
		return fmt.Errorf("fishing profile: %w", err)
	}
	if profile == nil {
		inv.Reply(fmt.Sprintf("%s hasn't caught any fish yet!", target))
		return nil
	}

	var total int64
	for _, n := range profile.Catches {
		total += n
	}
	inv.Reply(fmt.Sprintf("%s's stats: %d fish caught, %d BongBux earned | Top: %s",
		target, total, profile.TotalEarnings, topCatches(profile.Catches, 3)))
	return nil
}

// topCatches formats the n most-caught tiers as "Name: count" pairs.
func topCatches(catches map[string]int64, n int) string {
	type entry struct {
		name  string
		count int64
	}
	entries := make([]entry, 0, len(catches))
	for name, count := range catches {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s: %d", e.name, e.count)
	}
	return strings.Join(parts, ", ")
}
