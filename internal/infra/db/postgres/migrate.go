package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS practices (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		owner_id   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS practice_members (
		id          UUID PRIMARY KEY,
		practice_id UUID NOT NULL,
		user_id     TEXT NOT NULL UNIQUE,
		role        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_practice_members_practice ON practice_members (practice_id)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id           UUID PRIMARY KEY,
		practice_id  UUID NOT NULL,
		storage_ref  TEXT NOT NULL,
		filename     TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size_bytes   BIGINT NOT NULL DEFAULT 0,
		status       TEXT NOT NULL,
		uploaded_by  TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_practice_created ON documents (practice_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id            UUID PRIMARY KEY,
		document_id   UUID NOT NULL,
		practice_id   UUID NOT NULL,
		status        TEXT NOT NULL,
		report_json   JSONB NULL,
		error_message TEXT NULL,
		created_by    TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_document_created ON analyses (document_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_document_status ON analyses (document_id, status)`,
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
