// Package journal records accepted writes in the local outbox and announces
// them on the queue for the sheet-mirroring worker.
package journal

import (
	"context"
	"fmt"

	"gastos/internal/core"
	"gastos/internal/log"
)

// Store is the outbox table.
type Store interface {
	InsertActivity(ctx context.Context, a core.Activity) error
}

// Publisher announces new outbox rows.
type Publisher interface {
	PublishActivity(ctx context.Context, id, kind string) error
}

// Outbox writes the row first so a lost message only delays the sheet
// mirror until the worker's next sweep.
type Outbox struct {
	store     Store
	publisher Publisher
	logger    *log.Logger
}

// NewOutbox creates a journal. publisher may be nil, in which case rows
// are picked up by the worker's sweep alone.
func NewOutbox(store Store, publisher Publisher, logger *log.Logger) *Outbox {
	if logger == nil {
		logger = log.Discard()
	}
	return &Outbox{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentJournal),
	}
}

func (o *Outbox) Record(ctx context.Context, a core.Activity) error {
	if err := o.store.InsertActivity(ctx, a); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	fields := log.NewFields().WithActivity(a.ID, string(a.Kind)).WithSession("", a.UserID)
	if o.publisher == nil {
		o.logger.DebugContext(ctx, "Activity queued for sweep", fields.ToSlice()...)
		return nil
	}
	if err := o.publisher.PublishActivity(ctx, a.ID, string(a.Kind)); err != nil {
		o.logger.WarnContext(ctx, "Publish failed, activity left pending", fields.WithError(err).ToSlice()...)
		return nil
	}
	o.logger.InfoContext(ctx, "Activity recorded", fields.ToSlice()...)
	return nil
}
