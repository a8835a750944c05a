package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	kafkax "github.com/rushinski/rdk-webstore-sub003/internal/kafka"
)

// Relay drains pending outbox rows into Kafka. Delivery is at-least-once:
// a crash between publish and MarkSent republishes the row, and consumers
// dedup on event_id.
type Relay struct {
	DB       *pgxpool.Pool
	Producer *kafkax.Producer
	Log      *zap.Logger
	Interval time.Duration
	Batch    int
}

func (r *Relay) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Second
	}
	batch := r.Batch
	if batch <= 0 {
		batch = 100
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		recs, err := FetchPending(ctx, r.DB, batch)
		if err != nil {
			r.Log.Warn("outbox fetch failed", zap.Error(err))
			continue
		}
		for _, rec := range recs {
			if err := r.Producer.Publish(ctx, rec.Topic, []byte(rec.Key), rec.Payload); err != nil {
				r.Log.Warn("outbox publish failed",
					zap.String("event_id", rec.EventID),
					zap.String("topic", rec.Topic),
					zap.Error(err))
				break // broker trouble, retry the whole batch next tick
			}
			if err := MarkSent(ctx, r.DB, rec.ID); err != nil {
				r.Log.Warn("outbox mark sent failed", zap.Int64("id", rec.ID), zap.Error(err))
				break
			}
		}
	}
}
