package objectclient

import (
	"context"
	"fmt"
	"path"
	"strings"

	cfg "github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

// NewObjectClient picks the blob backend named by BLOB_BACKEND.
func NewObjectClient(ctx context.Context, cfg *cfg.Config, log logger.Logger) (core.ObjectClient, error) {
	switch cfg.BlobBackend {
	case "s3":
		c, err := NewS3Client(ctx, cfg, log.Named("s3"))
		if err != nil {
			return nil, err
		}
		return c, nil
	case "minio":
		c, err := NewMinioClient(ctx, cfg, log.Named("minio"))
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

// DocumentKey is the blob key layout for uploaded documents:
// projects/{projectID}/documents/{documentID}{ext}
func DocumentKey(projectID, documentID, fileName string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	return path.Join("projects", projectID, "documents", documentID+ext)
}
