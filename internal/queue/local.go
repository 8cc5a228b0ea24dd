package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

var _ Enqueuer = (*LocalQueue)(nil)

var ErrQueueClosed = errors.New("queue closed")

// LocalQueue runs ingestion in-process on a bounded goroutine pool. Runs outlive the
// request that enqueued them and stop when the queue is closed.
type LocalQueue struct {
	pool     *ants.Pool
	ingestor ingestion_engine.Ingestor
	log      logger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewLocalQueue(ing ingestion_engine.Ingestor, size int, log logger.Logger) (*LocalQueue, error) {
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalQueue{pool: pool, ingestor: ing, log: log.Named("local-queue"), ctx: ctx, cancel: cancel}, nil
}

// Enqueue hands the document to the pool. It blocks while every worker is busy.
func (q *LocalQueue) Enqueue(_ context.Context, documentID string) error {
	if documentID == "" {
		return errors.New("empty document id")
	}
	if q.ctx.Err() != nil {
		return ErrQueueClosed
	}

	err := q.pool.Submit(func() {
		if err := runIngest(q.ctx, q.ingestor, q.log, documentID); err != nil {
			q.log.Error("ingest run failed", logger.String("document_id", documentID), logger.Error(err))
		}
	})
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrQueueClosed
	}
	return err
}

// Close cancels in-flight runs and waits up to timeout for them to record their outcome.
func (q *LocalQueue) Close(timeout time.Duration) error {
	q.cancel()
	return q.pool.ReleaseTimeout(timeout)
}
