package mysql

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS detection_history (
  seq         BIGINT AUTO_INCREMENT PRIMARY KEY,
  id          VARCHAR(64)  NOT NULL UNIQUE,
  session_id  VARCHAR(64)  NOT NULL,
  file_name   VARCHAR(512) NOT NULL,
  prediction  VARCHAR(16)  NOT NULL,
  confidence  DOUBLE       NOT NULL,
  display_time VARCHAR(32) NOT NULL,
  preview_url TEXT,
  provider    VARCHAR(64)  NOT NULL,
  request_id  VARCHAR(128) NOT NULL DEFAULT '',
  media_type  VARCHAR(128) NOT NULL DEFAULT '',
  size_bytes  BIGINT       NOT NULL DEFAULT 0,
  result_json JSON         NOT NULL,
  created_at  DATETIME(6)  NOT NULL,
  INDEX idx_history_session (session_id, seq)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS detection_failures (
  id         VARCHAR(64)  NOT NULL PRIMARY KEY,
  session_id VARCHAR(64)  NOT NULL,
  file_name  VARCHAR(512) NOT NULL,
  provider   VARCHAR(64)  NOT NULL,
  phase      VARCHAR(16)  NOT NULL,
  message    TEXT         NOT NULL,
  created_at DATETIME(6)  NOT NULL,
  INDEX idx_failures_session (session_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
