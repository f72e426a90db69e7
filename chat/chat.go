// Package chat adapts the Twitch IRC transport to the router: inbound private
// messages become dispatches, outbound replies go through Say. Reconnects and
// backoff are the IRC client's concern.
package chat

import (
	"context"
	"log/slog"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/manedatmane/manestream-bot/bot"
	"github.com/manedatmane/manestream-bot/telemetry"
	"github.com/manedatmane/manestream-bot/utility"
)

// Ingress connects the bot account to a channel and feeds the router.
type Ingress struct {
	client  *twitch.Client
	channel string
	router  *bot.Router
	seen    *utility.Seen
}

// NewIngress builds the transport. The returned Ingress satisfies the
// router's Sender; wire it in before calling Run.
func NewIngress(username, oauth, channel string, router *bot.Router, seen *utility.Seen) *Ingress {
	in := &Ingress{
		client:  twitch.NewClient(username, oauth),
		channel: channel,
		router:  router,
		seen:    seen,
	}

	in.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		telemetry.MessagesReceived.Inc()
		in.seen.Touch(msg.User.Name, time.Now())

		// One goroutine per message: a slow handler never stalls the
		// read loop or other commands.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			in.router.Dispatch(ctx, bot.Message{
				User:      msg.User.Name,
				Display:   msg.User.DisplayName,
				Channel:   msg.Channel,
				Text:      msg.Message,
				Timestamp: msg.Time,
			})
		}()
	})

	return in
}

// Send publishes text to the channel. It satisfies the router's Sender.
func (in *Ingress) Send(channel, text string) {
	if channel == "" {
		channel = in.channel
	}
	in.client.Say(channel, text)
}

// Run joins the channel and blocks until ctx is canceled or the connection
// fails terminally.
func (in *Ingress) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := in.client.Disconnect(); err != nil {
			slog.Warn("twitch disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	in.client.Join(in.channel)
	err := in.client.Connect()
	select {
	case <-done:
		// Shutdown path; the connect error is the expected disconnect.
		return nil
	default:
	}
	return err
}
