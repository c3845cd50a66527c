package postgres

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS detection_history (
  seq          BIGSERIAL PRIMARY KEY,
  id           VARCHAR(64)  NOT NULL UNIQUE,
  session_id   VARCHAR(64)  NOT NULL,
  file_name    VARCHAR(512) NOT NULL,
  prediction   VARCHAR(16)  NOT NULL,
  confidence   DOUBLE PRECISION NOT NULL,
  display_time VARCHAR(32)  NOT NULL,
  preview_url  TEXT         NOT NULL DEFAULT '',
  provider     VARCHAR(64)  NOT NULL,
  request_id   VARCHAR(128) NOT NULL DEFAULT '',
  media_type   VARCHAR(128) NOT NULL DEFAULT '',
  size_bytes   BIGINT       NOT NULL DEFAULT 0,
  result_json  JSONB        NOT NULL,
  created_at   TIMESTAMPTZ  NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_history_session ON detection_history (session_id, seq)`,
	`CREATE TABLE IF NOT EXISTS detection_failures (
  id         VARCHAR(64)  PRIMARY KEY,
  session_id VARCHAR(64)  NOT NULL,
  file_name  VARCHAR(512) NOT NULL,
  provider   VARCHAR(64)  NOT NULL,
  phase      VARCHAR(16)  NOT NULL,
  message    TEXT         NOT NULL,
  created_at TIMESTAMPTZ  NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_failures_session ON detection_failures (session_id, created_at)`,
}

// EnsureSchema creates tables and indexes when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
