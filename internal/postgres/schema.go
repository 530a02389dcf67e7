package postgres

import (
	"context"
	"fmt"
	"io"
	"strings"

	ierr "github.com/facturo/facturo/internal/errors"
)

// schemaStatements bootstraps the tables the repositories read and write.
// The statements are portable between postgres and sqlite so local runs and
// repository tests share one definition.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sequences (
		id               VARCHAR(50) PRIMARY KEY,
		tenant_id        VARCHAR(50) NOT NULL,
		document_type_id VARCHAR(50) NOT NULL,
		prefix           VARCHAR(32) NOT NULL DEFAULT '',
		suffix           VARCHAR(32) NOT NULL DEFAULT '',
		padding_length   INTEGER NOT NULL CHECK (padding_length >= 1),
		start_number     BIGINT NOT NULL CHECK (start_number >= 1),
		max_number       BIGINT NOT NULL,
		current_number   BIGINT NOT NULL,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		status           VARCHAR(20) NOT NULL DEFAULT 'published',
		created_at       TIMESTAMP NOT NULL,
		updated_at       TIMESTAMP NOT NULL,
		created_by       VARCHAR(50),
		updated_by       VARCHAR(50),
		CHECK (max_number >= start_number),
		CHECK (current_number >= start_number - 1 AND current_number <= max_number)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sequences_one_active
		ON sequences (tenant_id, document_type_id) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS idx_sequences_tenant_type
		ON sequences (tenant_id, document_type_id)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id                 VARCHAR(50) PRIMARY KEY,
		tenant_id          VARCHAR(50) NOT NULL,
		kind               VARCHAR(20) NOT NULL,
		document_type_id   VARCHAR(50) NOT NULL,
		customer_id        VARCHAR(50) NOT NULL DEFAULT '',
		document_status    VARCHAR(20) NOT NULL,
		total              NUMERIC(20,4) NOT NULL,
		total_paid         NUMERIC(20,4) NOT NULL DEFAULT 0,
		balance_due        NUMERIC(20,4) NOT NULL,
		fiscal_sequence_id VARCHAR(50),
		fiscal_number      VARCHAR(100),
		issue_date         TIMESTAMP NOT NULL,
		due_date           TIMESTAMP,
		expiry_date        TIMESTAMP,
		paid_at            TIMESTAMP,
		notes              TEXT NOT NULL DEFAULT '',
		status             VARCHAR(20) NOT NULL DEFAULT 'published',
		created_at         TIMESTAMP NOT NULL,
		updated_at         TIMESTAMP NOT NULL,
		created_by         VARCHAR(50),
		updated_by         VARCHAR(50)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_fiscal_number
		ON documents (tenant_id, fiscal_sequence_id, fiscal_number)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_tenant_kind
		ON documents (tenant_id, kind, document_status)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id           VARCHAR(50) PRIMARY KEY,
		tenant_id    VARCHAR(50) NOT NULL,
		document_id  VARCHAR(50) NOT NULL REFERENCES documents (id),
		amount       NUMERIC(20,4) NOT NULL CHECK (amount > 0),
		payment_date TIMESTAMP NOT NULL,
		method       VARCHAR(20) NOT NULL,
		account_id   VARCHAR(50),
		notes        TEXT NOT NULL DEFAULT '',
		status       VARCHAR(20) NOT NULL DEFAULT 'published',
		created_at   TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL,
		created_by   VARCHAR(50),
		updated_by   VARCHAR(50)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_document
		ON payments (tenant_id, document_id)`,
}

// EnsureSchema creates missing tables and indexes. It never alters existing
// ones; schema changes beyond bootstrap are handled outside the service.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to bootstrap database schema").
				Mark(ierr.ErrDatabase)
		}
	}
	db.logger.Debugw("database schema ensured", "statements", len(schemaStatements))
	return nil
}

// WriteSchema writes the bootstrap statements to w without executing them
func WriteSchema(w io.Writer) error {
	for _, stmt := range schemaStatements {
		if _, err := fmt.Fprintf(w, "%s;\n\n", strings.TrimSpace(stmt)); err != nil {
			return err
		}
	}
	return nil
}
