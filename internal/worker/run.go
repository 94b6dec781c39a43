package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gastos/internal/amqp"

	"golang.org/x/sync/errgroup"
)

// Consumer delivers queue messages to a handler until ctx ends.
type Consumer interface {
	ConsumeActivity(ctx context.Context, handler func(context.Context, *amqp.ActivityMessage) error) error
}

// Run consumes messages and sweeps pending rows every interval until ctx
// ends. A nil consumer runs the sweep alone.
func (w *ActivityWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeActivity(gctx, w.HandleMessage)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if _, _, err := w.ProcessPending(gctx); err != nil && gctx.Err() == nil {
					slog.ErrorContext(gctx, "Periodic sync failed", "component", "worker", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
