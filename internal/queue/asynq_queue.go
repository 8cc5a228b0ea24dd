package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

var _ Enqueuer = (*AsynqQueue)(nil)

// AsynqQueue publishes ingest tasks to Redis.
type AsynqQueue struct {
	client  *asynq.Client
	timeout time.Duration
	log     logger.Logger
}

func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

func NewAsynqQueue(cfg *config.Config, log logger.Logger) *AsynqQueue {
	return &AsynqQueue{
		client:  asynq.NewClient(RedisOpt(cfg)),
		timeout: taskTimeout(cfg),
		log:     log,
	}
}

// Enqueue publishes a document:ingest task. Queue-level retries are off: a failed run
// is resubmitted by the user, never replayed by the queue.
func (q *AsynqQueue) Enqueue(ctx context.Context, documentID string) error {
	task, err := NewIngestTask(documentID, asynq.MaxRetry(0), asynq.Timeout(q.timeout))
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue ingest task for %s: %w", documentID, err)
	}

	q.log.Debug("ingest task enqueued",
		logger.String("document_id", documentID),
		logger.String("task_id", info.ID),
		logger.String("queue", info.Queue),
	)
	return nil
}

func (q *AsynqQueue) Close() error {
	return q.client.Close()
}

// taskTimeout bounds a whole run: every stage budget plus slack.
func taskTimeout(cfg *config.Config) time.Duration {
	p := cfg.Pipeline
	d := p.FetchTimeout + p.ExtractTimeout + p.PersistTimeout + 30*time.Minute
	if d <= 30*time.Minute {
		return time.Hour
	}
	return d
}
