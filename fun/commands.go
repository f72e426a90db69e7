// Package fun implements the zero-stakes toy commands: choose, rate, and the
// magic conch shell.
package fun

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/manedatmane/manestream-bot/bot"
)

var conchReplies = []string{
	"Maybe someday.",
	"what?",
	"I don't think so.",
	"No.",
	"Yes.",
	"It is certain.",
	"You buggin",
	"Hell yeah.",
	"Yeah just do it stop askin",
}

// Commands returns the fun command set. A nil rng gets a crypto-seeded one.
func Commands(rng *mrand.Rand) *bot.Set {
	if rng == nil {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
		} else {
			rng = mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
		}
	}
	h := &handlers{rng: rng}
	return &bot.Set{
		Name: "fun",
		Commands: []bot.Command{
			{
				Name:        "choose",
				Aliases:     []string{"pick"},
				Description: "Choose between options.",
				Usage:       "!choose option1 or option2",
				Handler:     h.choose,
			},
			{
				Name:        "rate",
				Description: "Rate something out of 10.",
				Usage:       "!rate <thing>",
				Handler:     h.rate,
			},
			{
				Name:        "mcs",
				Aliases:     []string{"conch", "8ball"},
				Description: "Ask the Magic Conch Shell.",
				Usage:       "!mcs <question>",
				Handler:     h.conch,
			},
		},
	}
}

type handlers struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

func (h *handlers) intn(n int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Intn(n)
}

// splitOptions breaks the argument string into choices. " or " separators win
// over commas, commas over plain whitespace.
func splitOptions(args string) []string {
	var raw []string
	switch {
	case strings.Contains(strings.ToLower(args), " or "):
		lower := strings.ToLower(args)
		start := 0
		for {
			i := strings.Index(lower[start:], " or ")
			if i < 0 {
				raw = append(raw, args[start:])
				break
			}
			raw = append(raw, args[start:start+i])
			start += i + 4
		}
	case strings.Contains(args, ","):
		raw = strings.Split(args, ",")
	default:
		raw = strings.Fields(args)
	}
	out := raw[:0]
	for _, o := range raw {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (h *handlers) choose(ctx context.Context, inv *bot.Invocation) error {
	args := strings.TrimSpace(inv.Args)
	if args == "" {
		return bot.Usagef("!choose option1 or option2")
	}
	options := splitOptions(args)
	if len(options) < 2 {
		inv.Reply("Give me at least 2 options!")
		return nil
	}
	inv.Reply(fmt.Sprintf("I choose: %s", options[h.intn(len(options))]))
	return nil
}

func (h *handlers) rate(ctx context.Context, inv *bot.Invocation) error {
	thing := strings.TrimSpace(inv.Args)
	if thing == "" {
		return bot.Usagef("!rate <thing>")
	}
	inv.Reply(fmt.Sprintf("I rate %s a %d/10", thing, h.intn(11)))
	return nil
}

func (h *handlers) conch(ctx context.Context, inv *bot.Invocation) error {
	inv.Reply(conchReplies[h.intn(len(conchReplies))])
	return nil
}
