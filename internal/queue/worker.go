package queue

import (
	"context"
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

// Worker consumes document:ingest tasks and runs the pipeline for each.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	ingestor ingestion_engine.Ingestor
	log      logger.Logger
}

func NewWorker(cfg *config.Config, ing ingestion_engine.Ingestor, log logger.Logger) *Worker {
	log = log.Named("worker")
	server := asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Logger:      asynqLogger{log: log},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("ingest task failed", logger.String("payload", string(task.Payload())), logger.Error(err))
		}),
	})

	w := &Worker{server: server, mux: asynq.NewServeMux(), ingestor: ing, log: log}
	w.mux.HandleFunc(TaskTypeDocumentIngest, w.HandleIngest)
	return w
}

// HandleIngest runs one pipeline. Every error is wrapped in SkipRetry: the document is
// already marked failed and a rerun goes through reprocess.
func (w *Worker) HandleIngest(ctx context.Context, t *asynq.Task) error {
	p, err := decodeIngestPayload(t.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	w.log.Info("ingest task received", logger.String("document_id", p.DocumentID))
	if err := runIngest(ctx, w.ingestor, w.log, p.DocumentID); err != nil {
		return fmt.Errorf("ingest %s: %v: %w", p.DocumentID, err, asynq.SkipRetry)
	}
	return nil
}

// Run starts processing and blocks until ctx is done, then drains in-flight tasks.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	w.log.Info("worker started")
	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("worker stopped")
	return nil
}

// asynqLogger routes asynq's internal logging through our logger.
type asynqLogger struct {
	log logger.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) {
	l.log.Error(fmt.Sprint(args...))
	_ = l.log.Sync()
	os.Exit(1)
}
