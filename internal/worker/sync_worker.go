package worker

import (
	"context"
	"fmt"
	"log/slog"

	"khidma/internal/amqp"
	"khidma/internal/services"
)

// startupBatches bounds how many batches the startup check drains.
const startupBatches = 5

// Mirror is the part of the sync processor the worker drives.
type Mirror interface {
	ProcessBatch(ctx context.Context) (int, error)
}

// SyncWorker mirrors recorded collections to Google Sheets in response to
// events, and catches up on anything the events missed.
type SyncWorker struct {
	mirror Mirror
}

func NewSyncWorker(mirror Mirror) *SyncWorker {
	return &SyncWorker{mirror: mirror}
}

var _ Mirror = (*services.SyncProcessor)(nil)

// HandleEvent processes one event from AMQP. A returned error requeues the
// delivery.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev amqp.Event) error {
	switch ev.Kind {
	case amqp.RoutingCollectionRecorded:
		slog.InfoContext(ctx, "Processing collection event",
			"collection_id", ev.Collection.CollectionID,
			"month", ev.Collection.Month,
			"amount_cents", ev.Collection.AmountCents)
		if _, err := w.mirror.ProcessBatch(ctx); err != nil {
			return fmt.Errorf("mirror collections: %w", err)
		}
	case amqp.RoutingSettlementSaved:
		slog.InfoContext(ctx, "Settlement saved",
			"area_id", ev.Settlement.AreaID,
			"month", ev.Settlement.Month,
			"rows", ev.Settlement.Rows,
			"fixed_cents", ev.Settlement.FixedCents,
			"extras_cents", ev.Settlement.ExtrasCents)
	default:
		slog.WarnContext(ctx, "Ignoring unknown event", "kind", ev.Kind)
	}
	return nil
}

// StartupSyncCheck drains pending collections at worker startup. This
// recovers from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	total := 0
	for i := 0; i < startupBatches; i++ {
		n, err := w.mirror.ProcessBatch(ctx)
		if err != nil {
			return fmt.Errorf("startup sync: %w", err)
		}
		total += n
		if n == 0 {
			break
		}
	}
	if total == 0 {
		slog.InfoContext(ctx, "No pending collections found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", total)
	return nil
}
