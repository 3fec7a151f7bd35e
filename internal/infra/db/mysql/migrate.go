package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS practices (
		id         CHAR(36) PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		owner_id   VARCHAR(128) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS practice_members (
		id          CHAR(36) PRIMARY KEY,
		practice_id CHAR(36) NOT NULL,
		user_id     VARCHAR(128) NOT NULL,
		role        VARCHAR(16) NOT NULL,
		created_at  DATETIME(6) NOT NULL,
		UNIQUE KEY uq_practice_members_user (user_id),
		KEY idx_practice_members_practice (practice_id)
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id           CHAR(36) PRIMARY KEY,
		practice_id  CHAR(36) NOT NULL,
		storage_ref  VARCHAR(512) NOT NULL,
		filename     VARCHAR(512) NOT NULL,
		content_type VARCHAR(128) NOT NULL,
		size_bytes   BIGINT NOT NULL DEFAULT 0,
		status       VARCHAR(16) NOT NULL,
		uploaded_by  VARCHAR(128) NOT NULL,
		created_at   DATETIME(6) NOT NULL,
		updated_at   DATETIME(6) NOT NULL,
		KEY idx_documents_practice_created (practice_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id            CHAR(36) PRIMARY KEY,
		document_id   CHAR(36) NOT NULL,
		practice_id   CHAR(36) NOT NULL,
		status        VARCHAR(16) NOT NULL,
		report_json   JSON NULL,
		error_message TEXT NULL,
		created_by    VARCHAR(128) NOT NULL,
		created_at    DATETIME(6) NOT NULL,
		updated_at    DATETIME(6) NOT NULL,
		KEY idx_analyses_document_created (document_id, created_at),
		KEY idx_analyses_document_status (document_id, status)
	)`,
}

// Migrate applies the schema at startup. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
