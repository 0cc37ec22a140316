// Package notify delivers best-effort notifications to the poll coordinator.
//
// The poll engine calls the Notifier each time a voter confirms a non-empty
// selection. The call is fire-and-forget from the engine's point of view: a
// delivery failure is logged and swallowed, and must never roll back or fail
// the confirmation that triggered it. Nothing in this package replies to the
// voter — it is a one-way hook.
package notify

import (
	"context"
	"log/slog"

	"github.com/sakif/datepoll/internal/model"
)

// Notifier is the hook the poll engine fires on every confirmed finalize.
// Implementations must be safe for concurrent use; the engine calls them
// from whatever request goroutine happened to finalize.
type Notifier interface {
	SelectionConfirmed(ctx context.Context, user model.User, dates []model.Date) error
}

// LogNotifier writes confirmations to the structured log and nothing else.
// It is the default when no webhook is configured — the coordinator can
// follow confirmations by tailing the server log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SelectionConfirmed logs the confirmation. It never fails.
func (n *LogNotifier) SelectionConfirmed(_ context.Context, user model.User, dates []model.Date) error {
	n.logger.Info("selection confirmed",
		slog.String("userId", user.ID),
		slog.String("username", user.Username),
		slog.Int("dates", len(dates)),
	)
	return nil
}
