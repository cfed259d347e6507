package service

import (
	"context"
	"log/slog"

	"calendar_bot/internal/domain"
	"calendar_bot/internal/telemetry"
)

// deliver sends req and records the outcome in stats. It never fails: a missing
// destination skips the message and a send error is logged.
func deliver(ctx context.Context, notifier Notifier, logger *slog.Logger, poller string, req *domain.NotificationRequest, stats *domain.CycleStats) {
	if req.Destination == "" {
		logger.Warn("notification skipped, no destination channel configured",
			"item_id", req.ItemID,
			"error", domain.ErrConfigInvalid,
		)
		stats.Skipped++
		telemetry.Notifications.WithLabelValues(poller, telemetry.ResultSkipped).Inc()
		return
	}

	if err := notifier.Notify(ctx, req); err != nil {
		logger.Error("notification failed",
			"item_id", req.ItemID,
			"destination", req.Destination,
			"error", err,
		)
		stats.Errors++
		telemetry.Notifications.WithLabelValues(poller, telemetry.ResultError).Inc()
		return
	}

	stats.Notified++
	telemetry.Notifications.WithLabelValues(poller, telemetry.ResultOK).Inc()
}
