package moderation

import (
	"context"
	"log/slog"
	"net"
	"regexp"

	"github.com/manedatmane/manestream-bot/bot"
	"github.com/manedatmane/manestream-bot/config"
	"github.com/manedatmane/manestream-bot/telemetry"
)

// gibberishName matches the throwaway account pattern: six letters followed
// by four or five digits, e.g. cipey52636 or licane7793.
var gibberishName = regexp.MustCompile(`^[a-z]{6}\d{4,5}$`)

// AutoMod screens every message before parsing. Banned senders, gibberish
// identities, and banned network ranges are dropped silently; muted senders
// are dispatched with their replies suppressed.
type AutoMod struct {
	store *Store
	rt    *config.Runtime
	nets  []*net.IPNet
}

// NewAutoMod builds the filter. Unparseable CIDR ranges are logged and
// skipped rather than failing startup.
func NewAutoMod(store *Store, rt *config.Runtime, cidrs []string) *AutoMod {
	am := &AutoMod{store: store, rt: rt}
	for _, c := range cidrs {
		if c == "" {
			continue
		}
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			slog.Warn("skipping bad banned CIDR", slog.String("cidr", c), slog.Any("err", err))
			continue
		}
		am.nets = append(am.nets, n)
	}
	return am
}

// Check implements the router's pre-dispatch filter.
func (am *AutoMod) Check(ctx context.Context, msg bot.Message) bot.Verdict {
	if !am.rt.Tunables().AutomodEnabled {
		return bot.VerdictAllow
	}

	banned, err := am.store.IsBanned(ctx, msg.User)
	if err != nil {
		// A storage failure must not gate chat; log and let it through.
		slog.Error("ban check failed", slog.String("user", msg.User), slog.Any("err", err))
	} else if banned {
		telemetry.MessagesDropped.Inc()
		return bot.VerdictDrop
	}

	if gibberishName.MatchString(msg.User) {
		slog.Info("dropping gibberish identity", slog.String("user", msg.User))
		if err := am.store.Ban(ctx, msg.User, "gibberish username pattern", "automod", nil); err != nil {
			slog.Error("auto-ban failed", slog.String("user", msg.User), slog.Any("err", err))
		}
		telemetry.MessagesDropped.Inc()
		return bot.VerdictDrop
	}

	if am.ipBanned(msg.RemoteIP) {
		telemetry.MessagesDropped.Inc()
		return bot.VerdictDrop
	}

	muted, err := am.store.IsMuted(ctx, msg.User)
	if err != nil {
		slog.Error("mute check failed", slog.String("user", msg.User), slog.Any("err", err))
		return bot.VerdictAllow
	}
	if muted {
		return bot.VerdictMute
	}
	return bot.VerdictAllow
}

func (am *AutoMod) ipBanned(remote string) bool {
	if remote == "" || len(am.nets) == 0 {
		return false
	}
	ip := net.ParseIP(remote)
	if ip == nil {
		return false
	}
	for _, n := range am.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
