package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"chipdash/internal/amqp"
	"chipdash/internal/sheets"
	"chipdash/internal/storage"
)

// SyncWorker mirrors sale rows from SQLite into the backup exporter.
// Events arrive over AMQP; a periodic drain of unsynced rows backs the
// queue up in case messages are lost.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	exporter  sheets.SaleExporter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, exporter sheets.SaleExporter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single sale event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.SaleEvent) error {
	slog.InfoContext(ctx, "Processing sale event",
		"action", ev.Action,
		"id", ev.ID)

	switch ev.Action {
	case amqp.ActionDelete:
		if err := w.exporter.RemoveSale(ctx, ev.ID); err != nil {
			return fmt.Errorf("remove sale from backup: %w", err)
		}
		return nil
	case amqp.ActionSync:
		return w.exportSale(ctx, ev.ID)
	default:
		// Unknown actions are dropped, not requeued.
		slog.WarnContext(ctx, "Ignoring sale event with unknown action",
			"action", ev.Action, "id", ev.ID)
		return nil
	}
}

func (w *SyncWorker) exportSale(ctx context.Context, id int64) error {
	sale, err := w.storage.GetSale(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			// Deleted between the event and now; nothing to export.
			slog.WarnContext(ctx, "Sale gone before export, skipping", "id", id)
			return nil
		}
		return fmt.Errorf("get sale from storage: %w", err)
	}

	if err := w.exporter.ExportSale(ctx, sale); err != nil {
		if merr := w.storage.MarkSyncError(ctx, id); merr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", merr)
		}
		return fmt.Errorf("export sale: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Exported sale", "id", id)
	return nil
}

// ProcessPending exports rows that never got a successful export.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending sales: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending sales", "count", len(pending))

	for _, sale := range pending {
		if err := w.exportSale(ctx, sale.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending sale",
				"id", sale.ID, "error", err)
			continue
		}
	}

	return nil
}

// Run drives the worker until ctx is cancelled: one goroutine consumes
// AMQP events, another drains pending rows on the given interval after
// an initial startup drain.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeSaleEvents(ctx, func(ev *amqp.SaleEvent) error {
			return w.HandleEvent(ctx, ev)
		})
	})

	g.Go(func() error {
		// Startup drain recovers from missed messages or downtime.
		if err := w.ProcessPending(ctx); err != nil {
			slog.ErrorContext(ctx, "Startup pending drain failed", "error", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPending(ctx); err != nil {
					slog.ErrorContext(ctx, "Pending drain failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}
