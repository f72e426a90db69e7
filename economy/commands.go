// Package economy implements the BongBux account commands on top of the
// ledger store.
package economy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manedatmane/manestream-bot/bot"
	"github.com/manedatmane/manestream-bot/config"
	"github.com/manedatmane/manestream-bot/ledger"
	"github.com/manedatmane/manestream-bot/perms"
	"github.com/manedatmane/manestream-bot/telemetry"
)

// Commands returns the economy command set.
func Commands(store ledger.Store, rt *config.Runtime) *bot.Set {
	h := &handlers{store: store, rt: rt}
	return &bot.Set{
		Name: "economy",
		Commands: []bot.Command{
			{
				Name:        "bongbux",
				Aliases:     []string{"balance", "bal", "bb"},
				Description: "Check your BongBux balance.",
				Usage:       "!bongbux",
				Handler:     h.bongbux,
			},
			{
				Name:        "give",
				Aliases:     []string{"transfer", "pay"},
				Description: "Give BongBux to another user.",
				Usage:       "!give <username> <amount>",
				Handler:     h.give,
			},
			{
				Name:        "checkbux",
				Aliases:     []string{"checkbal", "cb"},
				Description: "Check another user's balance.",
				Usage:       "!checkbux <username>",
				Handler:     h.checkbux,
			},
			{
				Name:        "leaderboard",
				Aliases:     []string{"lb", "top", "rich"},
				Description: "Show the richest users.",
				Usage:       "!leaderboard",
				Handler:     h.leaderboard,
			},
			{
				Name:        "setbux",
				Description: "Set a user's balance.",
				Usage:       "!setbux <username> <amount>",
				MinLevel:    perms.Admin,
				Hidden:      true,
				Handler:     h.setbux,
			},
		},
	}
}

type handlers struct {
	store ledger.Store
	rt    *config.Runtime
}

func (h *handlers) bongbux(ctx context.Context, inv *bot.Invocation) error {
	starting := h.rt.Tunables().StartingBongbux
	balance, created, err := h.store.Ensure(ctx, inv.User, starting)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}
	if created {
		inv.Reply(fmt.Sprintf("Welcome! You've been given %d BongBux to start!", starting))
		return nil
	}
	inv.Reply(fmt.Sprintf("%s has %d BongBux", inv.Display, balance))
	return nil
}

func (h *handlers) give(ctx context.Context, inv *bot.Invocation) error {
	target := strings.ToLower(strings.TrimPrefix(inv.Arg(0), "@"))
	amountArg := inv.Arg(1)
	if target == "" || amountArg == "" {
		return bot.Usagef("!give <username> <amount>")
	}
	amount, err := strconv.ParseInt(amountArg, 10, 64)
	if err != nil {
		inv.Reply("Amount must be a number!")
		return nil
	}
	if amount <= 0 {
		inv.Reply("Amount must be positive!")
		return nil
	}
	if target == inv.User {
		inv.Reply("You can't give BongBux to yourself!")
		return nil
	}

	err = h.store.Transfer(ctx, inv.User, target, amount)
	switch {
	case errors.Is(err, ledger.ErrInvalidTarget):
		inv.Reply(fmt.Sprintf("%s doesn't have an account yet!", target))
		return nil
	case err != nil:
		return err
	}
	telemetry.LedgerTransfers.Inc()
	inv.Reply(fmt.Sprintf("%s gave %d BongBux to %s", inv.Display, amount, target))
	return nil
}

func (h *handlers) checkbux(ctx context.Context, inv *bot.Invocation) error {
	target := strings.ToLower(strings.TrimPrefix(inv.Arg(0), "@"))
	if target == "" {
		return bot.Usagef("!checkbux <username>")
	}
	balance, exists, err := h.store.Balance(ctx, target)
	if err != nil {
		return fmt.Errorf("check balance: %w", err)
	}
	if !exists {
		inv.Reply(fmt.Sprintf("%s doesn't have an account yet!", target))
		return nil
	}
	inv.Reply(fmt.Sprintf("%s has %d BongBux", target, balance))
	return nil
}

func (h *handlers) leaderboard(ctx context.Context, inv *bot.Invocation) error {
	entries, err := h.store.Top(ctx, 5)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	if len(entries) == 0 {
		inv.Reply("No one has BongBux yet!")
		return nil
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%d. %s (%d)", i+1, e.Username, e.Balance)
	}
	inv.Reply("Richest: " + strings.Join(parts, " | "))
	return nil
}

func (h *handlers) setbux(ctx context.Context, inv *bot.Invocation) error {
	target := strings.ToLower(strings.TrimPrefix(inv.Arg(0), "@"))
	amountArg := inv.Arg(1)
	if target == "" || amountArg == "" {
		return bot.Usagef("!setbux <username> <amount>")
	}
	amount, err := strconv.ParseInt(amountArg, 10, 64)
	if err != nil || amount < 0 {
		inv.Reply("Amount must be a non-negative number!")
		return nil
	}
	if err := h.store.SetBalance(ctx, target, amount); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	inv.Reply(fmt.Sprintf("Set %s's balance to %d BongBux", target, amount))
	return nil
}
