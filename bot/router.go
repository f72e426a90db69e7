package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/manedatmane/manestream-bot/config"
	"github.com/manedatmane/manestream-bot/cooldown"
	"github.com/manedatmane/manestream-bot/ledger"
	"github.com/manedatmane/manestream-bot/perms"
	"github.com/manedatmane/manestream-bot/telemetry"
)

// Message is an inbound chat event as delivered by the transport.
type Message struct {
	User      string
	Display   string
	Channel   string
	Text      string
	Timestamp time.Time
	// RemoteIP is set when the transport exposes the sender's address;
	// empty otherwise.
	RemoteIP string
}

// Sender publishes replies back to the transport.
type Sender interface {
	Send(channel, text string)
}

// Verdict is the auto-moderation decision for a message.
type Verdict int

const (
	VerdictAllow Verdict = iota
	// VerdictDrop discards the message entirely: no reply, no dispatch.
	VerdictDrop
	// VerdictMute dispatches the message but suppresses its replies.
	VerdictMute
)

// Filter screens messages before any parsing happens.
type Filter interface {
	Check(ctx context.Context, msg Message) Verdict
}

// Fallback resolves names that miss the built-in registry, e.g. user-authored
// custom commands. Built-ins always win collisions because the registry is
// consulted first.
type Fallback interface {
	Resolve(ctx context.Context, name string) (body string, ok bool, err error)
}

// Invocation is the context handed to a command handler.
type Invocation struct {
	User    string
	Display string
	Channel string
	Command string
	Args    string
	Level   perms.Level

	send  func(string)
	muted bool
}

// Reply publishes text to the invoking channel, unless the sender is muted.
func (inv *Invocation) Reply(text string) {
	if inv.muted {
		return
	}
	inv.send(text)
}

// ReplyMention is Reply prefixed with the invoking user's display name.
func (inv *Invocation) ReplyMention(text string) {
	inv.Reply("@" + inv.Display + ": " + text)
}

// Arg returns the n-th whitespace-separated argument, or "".
func (inv *Invocation) Arg(n int) string {
	fields := strings.Fields(inv.Args)
	if n >= len(fields) {
		return ""
	}
	return fields[n]
}

// Outcome classifies the result of dispatching one message.
type Outcome int

const (
	OutcomeNotCommand Outcome = iota
	OutcomeDropped
	OutcomeNoMatch
	OutcomeHandled
	OutcomeDenied
	OutcomeCooldown
	OutcomeUsage
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotCommand:
		return "not_command"
	case OutcomeDropped:
		return "dropped"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeHandled:
		return "handled"
	case OutcomeDenied:
		return "denied"
	case OutcomeCooldown:
		return "cooldown"
	case OutcomeUsage:
		return "usage"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

const internalErrorReply = "Something went wrong, try again later."

// Router wires the registry to the transport: it filters, parses, checks
// permission and cooldown, invokes the handler, and emits the reply.
type Router struct {
	Registry  *Registry
	Resolver  *perms.Resolver
	Cooldowns *cooldown.Manager
	Runtime   *config.Runtime
	Sender    Sender
	Filter    Filter
	Fallback  Fallback
	Prefix    byte
	MaxLen    int
}

// Dispatch processes one inbound message. It is safe to call concurrently;
// the transport runs one goroutine per message so a slow handler never blocks
// other events.
func (rt *Router) Dispatch(ctx context.Context, msg Message) Outcome {
	muted := false
	if rt.Filter != nil {
		switch rt.Filter.Check(ctx, msg) {
		case VerdictDrop:
			return OutcomeDropped
		case VerdictMute:
			muted = true
		}
	}

	text := strings.TrimSpace(msg.Text)
	if len(text) < 2 || text[0] != rt.Prefix {
		return OutcomeNotCommand
	}

	name, args := text[1:], ""
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name, args = name[:i], strings.TrimSpace(name[i+1:])
	}
	name = strings.ToLower(name)

	inv := &Invocation{
		User:    strings.ToLower(msg.User),
		Display: msg.Display,
		Channel: msg.Channel,
		Command: name,
		Args:    args,
		muted:   muted,
		send: func(reply string) {
			rt.Sender.Send(msg.Channel, rt.clip(reply))
		},
	}
	inv.Level = rt.Resolver.LevelOf(inv.User)

	cmd, ok := rt.Registry.Lookup(name)
	if !ok {
		return rt.dispatchFallback(ctx, inv)
	}

	if inv.Level < cmd.MinLevel {
		inv.Reply(perms.DenialReply)
		telemetry.CommandsDenied.Inc()
		return OutcomeDenied
	}

	if d := rt.cooldownFor(cmd); d > 0 {
		if ok, remaining := rt.Cooldowns.TryConsume(inv.User, cmd.Name, d); !ok {
			inv.Reply(fmt.Sprintf("Command on cooldown. Wait %ds.", int(remaining.Seconds())+1))
			telemetry.CommandsThrottled.Inc()
			return OutcomeCooldown
		}
	}

	start := time.Now()
	err := cmd.Handler(ctx, inv)
	telemetry.HandlerDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return rt.replyError(inv, cmd, err)
	}
	telemetry.CommandsHandled.Inc()
	slog.Debug("command handled",
		slog.String("command", cmd.Name),
		slog.String("user", inv.User),
		slog.String("component", "router"))
	return OutcomeHandled
}

// dispatchFallback consults the custom-command table after a built-in miss.
// A miss there too is the explicit no-match outcome: intentionally silent and
// never logged as a failure.
func (rt *Router) dispatchFallback(ctx context.Context, inv *Invocation) Outcome {
	if rt.Fallback == nil {
		return OutcomeNoMatch
	}
	body, ok, err := rt.Fallback.Resolve(ctx, inv.Command)
	if err != nil {
		slog.Error("custom command resolve failed",
			slog.String("command", inv.Command), slog.Any("err", err))
		return OutcomeError
	}
	if !ok {
		return OutcomeNoMatch
	}
	inv.Reply(body)
	telemetry.CommandsHandled.Inc()
	return OutcomeHandled
}

func (rt *Router) replyError(inv *Invocation, cmd *Command, err error) Outcome {
	var usage *UsageError
	switch {
	case errors.As(err, &usage):
		inv.Reply("Usage: " + usage.Usage)
		return OutcomeUsage
	case errors.Is(err, ledger.ErrInsufficientFunds):
		inv.Reply("You don't have enough BongBux for that.")
		return OutcomeHandled
	case errors.Is(err, ledger.ErrNoAccount):
		inv.Reply("You don't have an account! Use !bongbux first.")
		return OutcomeHandled
	case errors.Is(err, ledger.ErrInvalidTarget):
		inv.Reply("That's not a valid target.")
		return OutcomeHandled
	default:
		// Storage and transport failures are reported, never leaked.
		slog.Error("command failed",
			slog.String("command", cmd.Name),
			slog.String("user", inv.User),
			slog.Any("err", err))
		telemetry.CommandsFailed.Inc()
		inv.Reply(internalErrorReply)
		return OutcomeError
	}
}

func (rt *Router) cooldownFor(cmd *Command) time.Duration {
	if d, ok := rt.Runtime.Tunables().CooldownFor(cmd.Name); ok {
		return d
	}
	return cmd.Cooldown
}

func (rt *Router) clip(text string) string {
	if rt.MaxLen > 0 {
		return Truncate(text, rt.MaxLen)
	}
	return text
}

// Truncate shortens s to at most max bytes, cutting on a rune boundary and
// appending "..." when anything was removed.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
