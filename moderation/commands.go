package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/manedatmane/manestream-bot/bot"
	"github.com/manedatmane/manestream-bot/perms"
)

// Commands returns the moderation command set. Everything here is admin-only
// and hidden from the public command list.
func Commands(store *Store) *bot.Set {
	h := &handlers{store: store}
	admin := func(c bot.Command) bot.Command {
		c.MinLevel = perms.Admin
		c.Hidden = true
		return c
	}
	return &bot.Set{
		Name: "moderation",
		Commands: []bot.Command{
			admin(bot.Command{
				Name:        "ban",
				Description: "Ban a user from the chat.",
				Usage:       "!ban <username> [reason]",
				Handler:     h.ban,
			}),
			admin(bot.Command{
				Name:        "unban",
				Description: "Unban a user.",
				Usage:       "!unban <username>",
				Handler:     h.unban,
			}),
			admin(bot.Command{
				Name:        "banlist",
				Description: "Show banned users.",
				Usage:       "!banlist",
				Handler:     h.banlist,
			}),
			admin(bot.Command{
				Name:        "mute",
				Description: "Mute a user for a number of minutes.",
				Usage:       "!mute <username> [duration_minutes]",
				Handler:     h.mute,
			}),
			admin(bot.Command{
				Name:        "unmute",
				Description: "Unmute a user.",
				Usage:       "!unmute <username>",
				Handler:     h.unmute,
			}),
		},
	}
}

type handlers struct {
	store *Store
}

func (h *handlers) ban(ctx context.Context, inv *bot.Invocation) error {
	target := norm(inv.Arg(0))
	if target == "" {
		return bot.Usagef("!ban <username> [reason]")
	}
	reason := "No reason given"
	if i := strings.IndexByte(strings.TrimSpace(inv.Args), ' '); i >= 0 {
		reason = strings.TrimSpace(strings.TrimSpace(inv.Args)[i+1:])
	}
	if err := h.store.Ban(ctx, target, reason, inv.User, nil); err != nil {
		return err
	}
	inv.Reply(fmt.Sprintf("Banned %s: %s", target, reason))
	return nil
}

func (h *handlers) unban(ctx context.Context, inv *bot.Invocation) error {
	target := norm(inv.Arg(0))
	if target == "" {
		return bot.Usagef("!unban <username>")
	}
	removed, err := h.store.Unban(ctx, target)
	if err != nil {
		return err
	}
	if !removed {
		inv.Reply(fmt.Sprintf("%s is not banned", target))
		return nil
	}
	inv.Reply(fmt.Sprintf("Unbanned %s", target))
	return nil
}

func (h *handlers) banlist(ctx context.Context, inv *bot.Invocation) error {
	records, err := h.store.BanList(ctx, 20)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		inv.Reply("No users are banned")
		return nil
	}
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Target
	}
	inv.Reply(fmt.Sprintf("Banned (%d): %s", len(records), strings.Join(names, ", ")))
	return nil
}

func (h *handlers) mute(ctx context.Context, inv *bot.Invocation) error {
	target := norm(inv.Arg(0))
	if target == "" {
		return bot.Usagef("!mute <username> [duration_minutes]")
	}
	minutes := 10
	if arg := inv.Arg(1); arg != "" {
		if n, err := strconv.Atoi(arg); err == nil && n > 0 {
			minutes = n
		}
	}
	until := time.Now().Add(time.Duration(minutes) * time.Minute)
	if err := h.store.Mute(ctx, target, until); err != nil {
		return err
	}
	inv.Reply(fmt.Sprintf("Muted %s for %d minutes", target, minutes))
	return nil
}

func (h *handlers) unmute(ctx context.Context, inv *bot.Invocation) error {
	target := norm(inv.Arg(0))
	if target == "" {
		return bot.Usagef("!unmute <username>")
	}
	removed, err := h.store.Unmute(ctx, target)
	if err != nil {
		return err
	}
	if !removed {
		inv.Reply(fmt.Sprintf("%s is not muted", target))
		return nil
	}
	inv.Reply(fmt.Sprintf("Unmuted %s", target))
	return nil
}
