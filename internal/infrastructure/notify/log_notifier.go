// Package notify holds delivery backends for refresh notifications.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/papillon/aggregator/internal/core/ports"
)

// LogNotifier emits notifications to the structured log. It stands in for a
// push backend in deployments that have none configured; the refresh
// pipeline stays exercised either way.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, notification ports.Notification) error {
	n.log.Info().
		Str("id", notification.ID).
		Str("title", notification.Title).
		Str("subtitle", notification.Subtitle).
		Str("body", notification.Body).
		Msg("notification")
	return nil
}
