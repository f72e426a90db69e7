// Package telemetry provides Prometheus metrics, correlation-id aware logging
// helpers, and OpenTelemetry tracing setup.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesReceived  prometheus.Counter
	MessagesDropped   prometheus.Counter
	CommandsHandled   prometheus.Counter
	CommandsDenied    prometheus.Counter
	CommandsThrottled prometheus.Counter
	CommandsFailed    prometheus.Counter
	LedgerTransfers   prometheus.Counter
	FishingCasts      prometheus.Counter

	// Histograms (seconds)
	HandlerDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_messages_received_total", Help: "Chat messages received from the transport"})
		MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_messages_dropped_total", Help: "Messages dropped by auto-moderation"})
		CommandsHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_commands_handled_total", Help: "Commands dispatched and handled"})
		CommandsDenied = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_commands_denied_total", Help: "Commands rejected for insufficient permission"})
		CommandsThrottled = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_commands_throttled_total", Help: "Commands rejected by an active cooldown"})
		CommandsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_commands_failed_total", Help: "Commands that failed with an internal error"})
		LedgerTransfers = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_ledger_transfers_total", Help: "Successful BongBux transfers"})
		FishingCasts = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_fishing_casts_total", Help: "Successful fishing casts"})
		HandlerDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_handler_duration_seconds", Help: "Command handler duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
