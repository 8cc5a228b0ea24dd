package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var _ core.DbClient = (*DatabaseClient)(nil)

type DatabaseClient struct {
	db  *sql.DB
	log logger.Logger
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config, log logger.Logger) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, errors.New("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
	}

	dsn, err := buildDSN(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	applied, err := EnsureBootstrapped(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	log.Info("database ready", logger.Bool("schema_applied", applied))

	return &DatabaseClient{db: db, log: log}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	detail, err := encodeJSON(doc.StatusDetail, "{}")
	if err != nil {
		return fmt.Errorf("encode status detail: %w", err)
	}
	const q = `
		INSERT INTO documents
			(id, project_id, user_id, source_type, location, file_name, content_type, status, status_detail, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()), COALESCE($11, now()))
	`
	_, err = c.db.ExecContext(ctx, q,
		doc.ID, doc.ProjectID, doc.UserID, string(doc.SourceType), doc.Location, doc.FileName, doc.ContentType,
		string(doc.Status), detail, nullTime(doc.CreatedAt), nullTime(doc.UpdatedAt))
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	const q = `
		SELECT id, project_id, user_id, source_type, location, file_name, content_type, status, status_detail, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var (
		d                  models.Document
		sourceType, status string
		detail             []byte
	)
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.ProjectID, &d.UserID, &sourceType, &d.Location, &d.FileName, &d.ContentType,
		&status, &detail, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.SourceType = models.SourceType(sourceType)
	d.Status = models.IngestionStatus(status)
	if d.StatusDetail, err = decodeDetail(detail); err != nil {
		return nil, fmt.Errorf("decode status detail of %s: %w", id, err)
	}
	return &d, nil
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, from, to models.IngestionStatus, detail models.StatusDetail) error {
	raw, err := encodeJSON(detail, "{}")
	if err != nil {
		return fmt.Errorf("encode status detail: %w", err)
	}
	const q = `
		UPDATE documents
		SET status = $2, status_detail = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`
	res, err := c.db.ExecContext(ctx, q, id, string(to), raw, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s is no longer %s", core.ErrStatusChanged, id, from)
	}
	return nil
}

// ReplaceDocumentChunks swaps the document's chunk set inside a single transaction,
// so readers see either the previous generation or the new one.
func (c *DatabaseClient) ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete previous chunks: %w", err)
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, chunk_index, content, original_content, content_types, page_number, char_count, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if ch.DocumentID != documentID {
			return fmt.Errorf("chunk %d belongs to document %s, not %s", ch.ChunkIndex, ch.DocumentID, documentID)
		}
		original, err := encodeJSON(ch.Original, "{}")
		if err != nil {
			return fmt.Errorf("encode original content of chunk %d: %w", ch.ChunkIndex, err)
		}
		types, err := encodeJSON(ch.ContentTypes, "[]")
		if err != nil {
			return fmt.Errorf("encode content types of chunk %d: %w", ch.ChunkIndex, err)
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.ChunkIndex, ch.Content, original, types,
			ch.PageNumber, ch.CharCount, pgvector.NewVector(ch.Embedding), nullTime(ch.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", ch.ChunkIndex, err)
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) CountDocumentChunks(ctx context.Context, documentID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM document_chunks WHERE document_id = $1`, documentID).Scan(&n)
	return n, err
}
