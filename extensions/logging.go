// Package extensions provides optional add-ons for statefold owners:
// state-transition logging over slog and alternative persistence
// codecs for the debug restorability check.
package extensions

import (
	"context"
	"log/slog"

	statefold "github.com/statefold/statefold-go"
)

// LogStates attaches a logging subscription to cfg: every state
// transition (including the initial state) is logged at Debug level
// through logHandler. Cancel the returned subscription to stop, or let
// it wind down with the owner's scope.
//
//	// Human-readable text output
//	extensions.LogStates(cfg, slog.NewTextHandler(os.Stdout, nil))
//
//	// Structured JSON logging
//	extensions.LogStates(cfg, slog.NewJSONHandler(os.Stdout, nil))
//
//	// Silent (for testing)
//	extensions.LogStates(cfg, extensions.NewSilentHandler())
func LogStates[S any](cfg *statefold.Config[S], logHandler slog.Handler) *statefold.Subscription {
	logger := slog.New(logHandler)
	owner := cfg.ID()
	return statefold.OnEach(cfg, func(ctx context.Context, s S) {
		logger.LogAttrs(ctx, slog.LevelDebug, "state changed",
			slog.String("owner", owner),
			slog.Any("state", s),
		)
	})
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}
