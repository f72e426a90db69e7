package customcmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manedatmane/manestream-bot/bot"
	"github.com/manedatmane/manestream-bot/perms"
)

const (
	maxNameLen = 32
	maxBodyLen = 1500
)

// Commands returns the custom command management set.
func Commands(store *Store) *bot.Set {
	h := &handlers{store: store}
	return &bot.Set{
		Name: "customcmd",
		Commands: []bot.Command{
			{
				Name:        "addcmd",
				Aliases:     []string{"newcmd", "createcmd"},
				Description: "Create a custom command.",
				Usage:       "!addcmd <name> <response>",
				Handler:     h.add,
			},
			{
				Name:        "delcmd",
				Aliases:     []string{"removecmd", "rmcmd"},
				Description: "Delete a custom command.",
				Usage:       "!delcmd <name>",
				MinLevel:    perms.Admin,
				Handler:     h.del,
			},
			{
				Name:        "editcmd",
				Description: "Edit an existing custom command.",
				Usage:       "!editcmd <name> <new_response>",
				MinLevel:    perms.Admin,
				Handler:     h.edit,
			},
			{
				Name:        "cmdinfo",
				Description: "Show info about a custom command.",
				Usage:       "!cmdinfo <name>",
				Handler:     h.info,
			},
		},
	}
}

type handlers struct {
	store *Store
}

// splitNameBody separates the command name from the response text.
func splitNameBody(args string) (name, body string) {
	args = strings.TrimSpace(args)
	if i := strings.IndexByte(args, ' '); i >= 0 {
		return args[:i], strings.TrimSpace(args[i+1:])
	}
	return args, ""
}

func (h *handlers) add(ctx context.Context, inv *bot.Invocation) error {
	name, body := splitNameBody(inv.Args)
	if name == "" || body == "" {
		return bot.Usagef("!addcmd <name> <response>")
	}
	name = norm(name)
	if len(name) > maxNameLen {
		inv.Reply(fmt.Sprintf("Command name too long (max %d characters)", maxNameLen))
		return nil
	}
	if len(body) > maxBodyLen {
		inv.Reply(fmt.Sprintf("Response too long (max %d characters)", maxBodyLen))
		return nil
	}

	err := h.store.Add(ctx, name, body, inv.User)
	if errors.Is(err, ErrNameConflict) {
		inv.Reply(fmt.Sprintf("!%s already exists or is a built-in command", name))
		return nil
	}
	if err != nil {
		return err
	}
	inv.Reply(fmt.Sprintf("Command !%s added", name))
	return nil
}

func (h *handlers) del(ctx context.Context, inv *bot.Invocation) error {
	name := norm(inv.Arg(0))
	if name == "" {
		return bot.Usagef("!delcmd <name>")
	}
	err := h.store.Delete(ctx, name)
	if errors.Is(err, ErrNotFound) {
		inv.Reply(fmt.Sprintf("Command !%s not found", name))
		return nil
	}
	if err != nil {
		return err
	}
	inv.Reply(fmt.Sprintf("Command !%s removed", name))
	return nil
}

func (h *handlers) edit(ctx context.Context, inv *bot.Invocation) error {
	name, body := splitNameBody(inv.Args)
	if name == "" || body == "" {
		return bot.Usagef("!editcmd <name> <new_response>")
	}
	name = norm(name)
	if len(body) > maxBodyLen {
		inv.Reply(fmt.Sprintf("Response too long (max %d characters)", maxBodyLen))
		return nil
	}
	err := h.store.Edit(ctx, name, body)
	if errors.Is(err, ErrNotFound) {
		inv.Reply(fmt.Sprintf("Command !%s not found", name))
		return nil
	}
	if err != nil {
		return err
	}
	inv.Reply(fmt.Sprintf("Command !%s updated", name))
	return nil
}

func (h *handlers) info(ctx context.Context, inv *bot.Invocation) error {
	name := norm(inv.Arg(0))
	if name == "" {
		return bot.Usagef("!cmdinfo <name>")
	}
	info, err := h.store.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		inv.Reply(fmt.Sprintf("!%s not found", name))
		return nil
	}
	if err != nil {
		return err
	}
	body := bot.Truncate(info.Body, 100)
	inv.Reply(fmt.Sprintf("!%s by %s, used %d times: %s",
		info.Name, info.Creator, info.UsageCount, body))
	return nil
}
