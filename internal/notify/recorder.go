package notify

import (
	"context"
	"log/slog"

	"calendar_bot/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, req *domain.NotificationRequest) error
}

type DeliveryLog interface {
	Record(ctx context.Context, rec *domain.DeliveryRecord) error
}

// Recorder writes every delivery attempt of one poller to the delivery log. The log is
// audit only; a failing log never fails the delivery.
type Recorder struct {
	next   Notifier
	log    DeliveryLog
	poller string
	logger *slog.Logger
}

func NewRecorder(next Notifier, log DeliveryLog, poller string, logger *slog.Logger) *Recorder {
	return &Recorder{
		next:   next,
		log:    log,
		poller: poller,
		logger: logger.With("poller", poller),
	}
}

func (r *Recorder) Notify(ctx context.Context, req *domain.NotificationRequest) error {
	sendErr := r.next.Notify(ctx, req)

	rec := &domain.DeliveryRecord{
		Poller:      r.poller,
		Destination: req.Destination,
		ItemID:      req.ItemID,
		Status:      domain.DeliveryStatusSent,
	}
	if sendErr != nil {
		msg := sendErr.Error()
		rec.Status = domain.DeliveryStatusFailed
		rec.Error = &msg
	}

	// The delivery already happened; record it even if the caller gave up meanwhile.
	if err := r.log.Record(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Warn("failed to record delivery", "item_id", req.ItemID, "error", err)
	}

	return sendErr
}
