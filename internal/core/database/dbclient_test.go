package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN("postgres://u:p@host:5432/db", "")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@host:5432/db", dsn)

	dsn, err = buildDSN("postgres://u:p@host:5432/db?application_name=ingest", "/certs/ca.pem")
	require.NoError(t, err)
	assert.Contains(t, dsn, "sslmode=verify-ca")
	assert.Contains(t, dsn, "sslrootcert=%2Fcerts%2Fca.pem")
	assert.Contains(t, dsn, "application_name=ingest")
}

func TestEncodeJSON_NilCollections(t *testing.T) {
	var detail models.StatusDetail
	s, err := encodeJSON(detail, "{}")
	require.NoError(t, err)
	assert.Equal(t, "{}", s)

	var types []models.ContentType
	s, err = encodeJSON(types, "[]")
	require.NoError(t, err)
	assert.Equal(t, "[]", s)

	s, err = encodeJSON([]models.ContentType{models.ContentText, models.ContentTable}, "[]")
	require.NoError(t, err)
	assert.JSONEq(t, `["text","table"]`, s)
}

func TestDecodeDetail(t *testing.T) {
	d, err := decodeDetail(nil)
	require.NoError(t, err)
	assert.Empty(t, d)

	d, err = decodeDetail([]byte(`{"chunks_total": 3, "error": "boom"}`))
	require.NoError(t, err)
	assert.Equal(t, float64(3), d["chunks_total"])
	assert.Equal(t, "boom", d["error"])

	_, err = decodeDetail([]byte(`not json`))
	require.Error(t, err)
}

func TestNullTime(t *testing.T) {
	assert.Nil(t, nullTime(time.Time{}))
	now := time.Now()
	assert.Equal(t, now, nullTime(now))
}

func TestBootstrapScriptEmbedded(t *testing.T) {
	b, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	require.NoError(t, err)
	sql := string(b)
	assert.Contains(t, sql, "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, sql, "vector(1536)")
	assert.Contains(t, sql, "ON DELETE CASCADE")
	assert.Contains(t, sql, "contexta_meta")
}
