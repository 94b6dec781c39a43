package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/sheets"
	"gastos/internal/storage"
)

// Outbox is the slice of storage the worker needs.
type Outbox interface {
	GetActivity(ctx context.Context, id string) (storage.ActivityRecord, error)
	PendingActivities(ctx context.Context, limit int) ([]storage.ActivityRecord, error)
	MarkActivitySynced(ctx context.Context, id, ref string) error
	MarkActivityError(ctx context.Context, id string) error
}

// ActivityWorker mirrors journal records from the SQLite outbox to a sheet.
type ActivityWorker struct {
	outbox    Outbox
	sheets    sheets.ActivityWriter
	batchSize int
}

func NewActivityWorker(outbox Outbox, writer sheets.ActivityWriter, batchSize int) *ActivityWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ActivityWorker{
		outbox:    outbox,
		sheets:    writer,
		batchSize: batchSize,
	}
}

// HandleMessage processes one queue message. Unknown ids are acknowledged
// and dropped; sheet failures are returned so the message is requeued.
func (w *ActivityWorker) HandleMessage(ctx context.Context, msg *amqp.ActivityMessage) error {
	slog.InfoContext(ctx, "Processing activity message",
		"component", "worker",
		"activity_id", msg.ID,
		"activity_kind", msg.Kind)

	rec, err := w.outbox.GetActivity(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Activity not found in outbox, dropping message", "component", "worker", "activity_id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get activity from storage: %w", err)
	}
	if rec.SyncStatus == storage.SyncSynced {
		slog.DebugContext(ctx, "Activity already synced", "component", "worker", "activity_id", msg.ID, "sheets_ref", rec.SheetsRef)
		return nil
	}

	return w.sync(ctx, rec.Activity)
}

// ProcessPending is the backup sweep for rows whose message was lost.
func (w *ActivityWorker) ProcessPending(ctx context.Context) (synced, failed int, err error) {
	return w.processBatch(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger batch once when the worker starts.
func (w *ActivityWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"component", "worker",
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *ActivityWorker) processBatch(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.outbox.PendingActivities(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending activities: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending activities", "component", "worker", "count", len(pending))

	for _, rec := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.sync(ctx, rec.Activity); err != nil {
			slog.ErrorContext(ctx, "Failed to sync activity", "component", "worker", "activity_id", rec.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *ActivityWorker) sync(ctx context.Context, a core.Activity) error {
	ref, err := w.sheets.Append(ctx, a)
	if err != nil {
		if markErr := w.outbox.MarkActivityError(ctx, a.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "component", "worker", "activity_id", a.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	// The row is in the sheet; a failed mark only means a possible
	// duplicate append on the next sweep.
	if err := w.outbox.MarkActivitySynced(ctx, a.ID, ref); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "component", "worker", "activity_id", a.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced activity",
		"component", "worker",
		"activity_id", a.ID,
		"activity_kind", string(a.Kind),
		"sheets_ref", ref)
	return nil
}
