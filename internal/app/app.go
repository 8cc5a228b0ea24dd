package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/contexta-ingest/internal/api/handlers"
	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	db "github.com/markdave123-py/contexta-ingest/internal/core/database"
	"github.com/markdave123-py/contexta-ingest/internal/core/extraction"
	"github.com/markdave123-py/contexta-ingest/internal/core/fetcher"
	"github.com/markdave123-py/contexta-ingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-ingest/internal/core/llm"
	objectclient "github.com/markdave123-py/contexta-ingest/internal/core/object-client"
	"github.com/markdave123-py/contexta-ingest/internal/core/statuscache"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/queue"
	"github.com/markdave123-py/contexta-ingest/internal/services"
)

const maxPageBytes = 20 << 20

// App holds every long-lived dependency of the api and worker processes.
type App struct {
	Config    *config.Config
	Log       logger.Logger
	DBClient  *db.DatabaseClient
	Objects   core.ObjectClient
	Providers *llm.Providers
	Redis     *redis.Client
	Ingestor  *ingestion_engine.DocumentIngestor
	Documents *services.DocumentService
	Server    *Server

	asynqQueue *queue.AsynqQueue
	localQueue *queue.LocalQueue
}

func NewApp(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *App, err error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.DBClient, err = db.NewDatabaseClient(appCtx, cfg, log.Named("db"))
	if err != nil {
		return nil, err
	}

	a.Objects, err = objectclient.NewObjectClient(appCtx, cfg, log.Named("blob"))
	if err != nil {
		return nil, err
	}
	log.Info("object client ready", logger.String("backend", cfg.BlobBackend))

	a.Providers, err = llm.NewProviders(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("model providers ready", logger.String("provider", cfg.AIProvider))

	a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err = a.Redis.Ping(appCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	cache := statuscache.NewRedisStatusCache(a.Redis, cfg.StatusCacheTTL)

	a.Ingestor = ingestion_engine.NewDocumentIngestor(ingestion_engine.Dependencies{
		DB:          a.DBClient,
		Objects:     a.Objects,
		Pages:       fetcher.NewHTTPFetcher(cfg.Pipeline.FetchTimeout, maxPageBytes),
		Extractor:   extraction.NewExtractor(log.Named("extraction")),
		LLM:         a.Providers.LLM,
		Embedder:    a.Providers.Embedder,
		StatusCache: cache,
	}, IngestConfigFrom(cfg), log.Named("ingest"))

	var q queue.Enqueuer
	switch cfg.QueueBackend {
	case "local":
		a.localQueue, err = queue.NewLocalQueue(a.Ingestor, cfg.WorkerConcurrency, log)
		if err != nil {
			return nil, err
		}
		q = a.localQueue
	default:
		a.asynqQueue = queue.NewAsynqQueue(cfg, log.Named("queue"))
		q = a.asynqQueue
	}

	a.Documents = services.NewDocumentService(a.DBClient, a.Objects, a.Ingestor.Tracker(), q, cache, log.Named("documents"))
	docHandler := handlers.NewDocumentHandler(a.Documents, log.Named("http"))
	a.Server = NewServer(cfg, NewRouter(cfg, docHandler, log.Named("http")), log)

	return a, nil
}

// NewWorker builds the asynq consumer that runs the pipeline.
func (a *App) NewWorker() *queue.Worker {
	return queue.NewWorker(a.Config, a.Ingestor, a.Log)
}

// IngestConfigFrom maps environment settings onto the pipeline configuration.
func IngestConfigFrom(cfg *config.Config) ingestion_engine.IngestConfig {
	p := cfg.Pipeline
	return ingestion_engine.IngestConfig{
		HardMaxChars:   p.HardMaxChars,
		SoftMaxChars:   p.SoftMaxChars,
		MinChunkChars:  p.MinChunkChars,
		EmbedBatchSize: p.EmbedBatchSize,
		EmbedDim:       cfg.EmbedDim,
		FetchTimeout:   p.FetchTimeout,
		ExtractTimeout: p.ExtractTimeout,
		EnrichTimeout:  p.EnrichTimeout,
		EmbedTimeout:   p.EmbedTimeout,
		PersistTimeout: p.PersistTimeout,
		EnrichRetry:    ingestion_engine.RetryPolicy{Attempts: p.EnrichAttempts, Backoff: p.RetryBackoff},
		EmbedRetry:     ingestion_engine.RetryPolicy{Attempts: p.EmbedAttempts, Backoff: p.RetryBackoff},
	}
}

func (a *App) Close() {
	var errs []error
	if a.localQueue != nil {
		errs = append(errs, a.localQueue.Close(time.Minute))
	}
	if a.asynqQueue != nil {
		errs = append(errs, a.asynqQueue.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Providers != nil {
		errs = append(errs, a.Providers.Close())
	}
	if a.DBClient != nil {
		errs = append(errs, a.DBClient.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.Log.Warn("error while closing resources", logger.Error(err))
	}
}
