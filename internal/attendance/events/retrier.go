package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/medflow/medflow-attendance/pkg/logger"
)

const retryBatchSize = 100

// OutboxRetrier republishes queued notifications on an interval
type OutboxRetrier struct {
	outbox    *Outbox
	publisher Publisher
	interval  time.Duration
	logger    *logger.Logger
	cancel    context.CancelFunc
}

// NewOutboxRetrier creates a new outbox retrier
func NewOutboxRetrier(outbox *Outbox, publisher Publisher, interval time.Duration, log *logger.Logger) *OutboxRetrier {
	return &OutboxRetrier{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		logger:    log,
	}
}

// Start starts the retrier in a background goroutine
func (r *OutboxRetrier) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	go func() {
		r.logger.Info().Dur("interval", r.interval).Msg("outbox retrier started")

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info().Msg("outbox retrier stopped")
				return
			case <-ticker.C:
				if _, err := r.Flush(ctx); err != nil {
					r.logger.Error().Err(err).Msg("outbox flush failed")
				}
			}
		}
	}()
}

// Stop stops the retrier goroutine
func (r *OutboxRetrier) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Flush publishes queued entries in order and returns how many were
// delivered. It stops at the first failure so ordering is preserved.
func (r *OutboxRetrier) Flush(ctx context.Context) (int, error) {
	entries, err := r.outbox.List(retryBatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, entry := range entries {
		if err := r.publisher.Publish(ctx, entry.EventType, json.RawMessage(entry.Data)); err != nil {
			if markErr := r.outbox.MarkFailed(entry, err); markErr != nil {
				r.logger.Error().Err(markErr).Str("outbox_id", entry.ID).Msg("failed to record outbox attempt")
			}
			r.logger.Warn().
				Err(err).
				Str("outbox_id", entry.ID).
				Str("event_type", entry.EventType).
				Int("attempts", entry.Attempts+1).
				Msg("outbox redelivery failed")
			break
		}
		if err := r.outbox.Delete(entry.ID); err != nil {
			return delivered, err
		}
		delivered++
	}

	if delivered > 0 {
		r.logger.Info().Int("delivered", delivered).Msg("outbox notifications delivered")
	}
	return delivered, nil
}
