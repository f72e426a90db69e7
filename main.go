// Command manestream-bot is the chat bot entrypoint. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Assembles the command registry, the auto-moderation filter, and the
//     Twitch IRC ingress.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /config,
//     and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/manedatmane/manestream-bot/bot"
	"github.com/manedatmane/manestream-bot/chat"
	"github.com/manedatmane/manestream-bot/config"
	"github.com/manedatmane/manestream-bot/cooldown"
	"github.com/manedatmane/manestream-bot/customcmd"
	"github.com/manedatmane/manestream-bot/db"
	"github.com/manedatmane/manestream-bot/economy"
	"github.com/manedatmane/manestream-bot/fishing"
	"github.com/manedatmane/manestream-bot/fun"
	"github.com/manedatmane/manestream-bot/gambling"
	"github.com/manedatmane/manestream-bot/ledger"
	"github.com/manedatmane/manestream-bot/lookup"
	"github.com/manedatmane/manestream-bot/moderation"
	"github.com/manedatmane/manestream-bot/perms"
	"github.com/manedatmane/manestream-bot/server"
	"github.com/manedatmane/manestream-bot/telemetry"
	"github.com/manedatmane/manestream-bot/utility"
)

func main() {
	// Load .env if present (local dev convenience; production uses real env).
	_ = godotenv.Load()

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("manestream-bot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := config.NewRuntime(cfg)
	if err := rt.Reload(ctx, database); err != nil {
		slog.Error("failed to load tunables", slog.Any("err", err))
		os.Exit(1)
	}

	started := time.Now()
	store := ledger.NewSQL(database)
	registry := bot.NewRegistry()
	customs := customcmd.NewStore(database, registry.Reserved)
	modStore := moderation.NewStore(database)
	seen := utility.NewSeen()

	router := &bot.Router{
		Registry:  registry,
		Resolver:  perms.NewResolver(rt),
		Cooldowns: cooldown.NewManager(nil),
		Runtime:   rt,
		Filter:    moderation.NewAutoMod(modStore, rt, cfg.BannedIPRanges),
		Fallback:  customs,
		Prefix:    cfg.CommandPrefix[0],
		MaxLen:    cfg.MaxMessageLength,
	}

	sets := []*bot.Set{
		economy.Commands(store, rt),
		fishing.Commands(store, rt, fishing.NewPicker(nil)),
		gambling.Commands(store, rt, gambling.NewSource(nil)),
		fun.Commands(nil),
		customcmd.Commands(customs),
		moderation.Commands(modStore),
		lookup.Commands(lookup.NewClient(cfg.GiphyAPIKey, cfg.TenorAPIKey, cfg.OMDBAPIKey)),
		utility.Commands(utility.Deps{
			Registry: registry,
			Customs:  customs,
			Runtime:  rt,
			DB:       database,
			Seen:     seen,
			Started:  started,
		}),
	}
	for _, set := range sets {
		if err := registry.Register(ctx, set); err != nil {
			slog.Error("failed to register command set",
				slog.String("set", set.Name), slog.Any("err", err))
			os.Exit(1)
		}
	}
	slog.Info("command sets registered", slog.Int("sets", len(sets)))

	chatReady := cfg.ValidateChatReady() == nil
	if chatReady {
		ingress := chat.NewIngress(cfg.BotUsername, cfg.ChatOAuth, cfg.ChatChannel, router, seen)
		router.Sender = ingress
		go func() {
			if err := ingress.Run(ctx); err != nil {
				slog.Error("chat ingress exited", slog.Any("err", err))
				stop()
			}
		}()
	} else {
		slog.Warn("chat creds not set; running without the IRC transport")
		router.Sender = logSender{}
	}

	go func() {
		deps := server.Deps{
			DB:            database,
			Runtime:       rt,
			Commands:      func() int { return len(registry.List(perms.Admin, true)) },
			ChatConnected: func() bool { return chatReady },
			Started:       started,
		}
		if err := server.Start(ctx, deps, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

// logSender stands in for the IRC transport when chat creds are absent, so
// the HTTP surface and registry still come up for local work.
type logSender struct{}

func (logSender) Send(channel, text string) {
	slog.Info("reply", slog.String("channel", channel), slog.String("text", text))
}

func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))
}
