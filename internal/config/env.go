package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	SslCertPath string
	JWTSecret   string

	// blob storage: "s3" or "minio"
	BlobBackend    string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	BucketName     string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	// models: "openai" or "gemini"
	AIProvider    string
	AIAPIKey      string
	OpenAIBaseURL string
	EmbedModel    string
	EmbedDim      int
	GenModel      string

	// queue: "asynq" or "local"
	QueueBackend      string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	WorkerConcurrency int
	StatusCacheTTL    time.Duration

	Pipeline PipelineConfig

	LogLevel    string
	LogEncoding string
	LogFile     string
}

// PipelineConfig holds the ingestion thresholds, timeouts and retry knobs.
type PipelineConfig struct {
	HardMaxChars   int
	SoftMaxChars   int
	MinChunkChars  int
	EmbedBatchSize int

	FetchTimeout   time.Duration
	ExtractTimeout time.Duration
	EnrichTimeout  time.Duration
	EmbedTimeout   time.Duration
	PersistTimeout time.Duration

	EnrichAttempts int
	EmbedAttempts  int
	RetryBackoff   time.Duration
}

// LoadConfig loads the environment variables (and .env when present) and returns the config.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		BlobBackend:    strings.ToLower(getEnv("BLOB_BACKEND", "s3")),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", "contexta-docs"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		AIProvider:    strings.ToLower(getEnv("AI_PROVIDER", "openai")),
		AIAPIKey:      getEnv("AI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		EmbedModel:    getEnv("EMBED_MODEL", "text-embedding-3-small"),
		EmbedDim:      getEnvInt("EMBED_DIM", 1536),
		GenModel:      getEnv("GEN_MODEL", "gpt-4o-mini"),

		QueueBackend:      strings.ToLower(getEnv("QUEUE_BACKEND", "asynq")),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		StatusCacheTTL:    getEnvDuration("STATUS_CACHE_TTL", 24*time.Hour),

		Pipeline: PipelineConfig{
			HardMaxChars:   getEnvInt("CHUNK_HARD_MAX_CHARS", 3000),
			SoftMaxChars:   getEnvInt("CHUNK_SOFT_MAX_CHARS", 2400),
			MinChunkChars:  getEnvInt("CHUNK_MIN_CHARS", 500),
			EmbedBatchSize: getEnvInt("EMBED_BATCH_SIZE", 10),

			FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 2*time.Minute),
			ExtractTimeout: getEnvDuration("EXTRACT_TIMEOUT", 5*time.Minute),
			EnrichTimeout:  getEnvDuration("ENRICH_TIMEOUT", 90*time.Second),
			EmbedTimeout:   getEnvDuration("EMBED_TIMEOUT", 60*time.Second),
			PersistTimeout: getEnvDuration("PERSIST_TIMEOUT", 2*time.Minute),

			EnrichAttempts: getEnvInt("ENRICH_ATTEMPTS", 2),
			EmbedAttempts:  getEnvInt("EMBED_ATTEMPTS", 3),
			RetryBackoff:   getEnvDuration("RETRY_BACKOFF", 500*time.Millisecond),
		},

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogEncoding: getEnv("LOG_ENCODING", "json"),
		LogFile:     getEnv("LOG_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL not set")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET not set")
	}
	switch c.BlobBackend {
	case "s3", "minio":
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	switch c.AIProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider)
	}
	switch c.QueueBackend {
	case "asynq", "local":
	default:
		return fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend)
	}
	p := c.Pipeline
	if p.MinChunkChars <= 0 || p.SoftMaxChars < p.MinChunkChars || p.HardMaxChars < p.SoftMaxChars {
		return fmt.Errorf("chunk thresholds must satisfy 0 < min <= soft <= hard (got %d/%d/%d)",
			p.MinChunkChars, p.SoftMaxChars, p.HardMaxChars)
	}
	if p.EmbedBatchSize <= 0 {
		return errors.New("EMBED_BATCH_SIZE must be positive")
	}
	if c.WorkerConcurrency <= 0 {
		return errors.New("WORKER_CONCURRENCY must be positive")
	}
	return nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %s=%q not an int, using default %d\n", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARN: %s=%q not a duration, using default %s\n", key, v, def)
		return def
	}
	return d
}
