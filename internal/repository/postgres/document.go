package postgres

import (
	"context"
	"strings"

	"github.com/facturo/facturo/internal/domain/document"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/postgres"
	"github.com/facturo/facturo/internal/types"
)

const documentColumns = `id, tenant_id, kind, document_type_id, customer_id, document_status,
	total, total_paid, balance_due, fiscal_sequence_id, fiscal_number,
	issue_date, due_date, expiry_date, paid_at, notes,
	status, created_at, updated_at, created_by, updated_by`

type documentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewDocumentRepository(db *postgres.DB, logger *logger.Logger) document.Repository {
	return &documentRepository{db: db, logger: logger}
}

func (r *documentRepository) Create(ctx context.Context, doc *document.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES (
			:id, :tenant_id, :kind, :document_type_id, :customer_id, :document_status,
			:total, :total_paid, :balance_due, :fiscal_sequence_id, :fiscal_number,
			:issue_date, :due_date, :expiry_date, :paid_at, :notes,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating document",
		"document_id", doc.ID,
		"kind", doc.Kind,
		"tenant_id", doc.TenantID,
	)

	if _, err := execNamed(ctx, r.db, query, doc); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Fiscal number is already attached to another document").
				WithReportableDetails(map[string]any{
					"fiscal_sequence_id": doc.FiscalSequenceID,
					"fiscal_number":      doc.FiscalNumber,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create document").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id string) (*document.Document, error) {
	query := `
		SELECT ` + documentColumns + ` FROM documents
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	args := tenantArgs(ctx)
	args["id"] = id

	var doc document.Document
	if err := getNamed(ctx, r.db, &doc, query, args); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Document %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get document").
			Mark(ierr.ErrDatabase)
	}
	return &doc, nil
}

func (r *documentRepository) filterQuery(ctx context.Context, selectClause string, filter *types.DocumentFilter) (string, namedArgs) {
	args := tenantArgs(ctx)
	where := []string{"tenant_id = :tenant_id", "status = :status"}

	if filter != nil {
		if filter.Kind != "" {
			where = append(where, "kind = :kind")
			args["kind"] = filter.Kind
		}
		if filter.DocumentTypeID != "" {
			where = append(where, "document_type_id = :document_type_id")
			args["document_type_id"] = filter.DocumentTypeID
		}
		if filter.CustomerID != "" {
			where = append(where, "customer_id = :customer_id")
			args["customer_id"] = filter.CustomerID
		}
		if len(filter.DocumentStatuses) > 0 {
			where = append(where, "document_status IN ("+inClause(args, "document_status", filter.DocumentStatuses)+")")
		}
	}

	return selectClause + " FROM documents WHERE " + strings.Join(where, " AND "), args
}

func (r *documentRepository) List(ctx context.Context, filter *types.DocumentFilter) ([]*document.Document, error) {
	if filter == nil {
		filter = types.NewDocumentFilter()
	}
	query, args := r.filterQuery(ctx, "SELECT "+documentColumns, filter)
	query = paginate(query, args, filter.QueryFilter, "issue_date", "created_at", "id")

	var docs []*document.Document
	if err := selectNamed(ctx, r.db, &docs, query, args); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list documents").
			Mark(ierr.ErrDatabase)
	}
	return docs, nil
}

func (r *documentRepository) Count(ctx context.Context, filter *types.DocumentFilter) (int, error) {
	query, args := r.filterQuery(ctx, "SELECT COUNT(*)", filter)

	var count int
	if err := getNamed(ctx, r.db, &count, query, args); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count documents").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *documentRepository) UpdateStatus(ctx context.Context, doc *document.Document) error {
	query := `
		UPDATE documents
		SET document_status = :document_status,
			paid_at = :paid_at,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	return r.update(ctx, query, doc)
}

func (r *documentRepository) UpdateBalances(ctx context.Context, doc *document.Document) error {
	query := `
		UPDATE documents
		SET total_paid = :total_paid,
			balance_due = :balance_due,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	return r.update(ctx, query, doc)
}

func (r *documentRepository) update(ctx context.Context, query string, doc *document.Document) error {
	affected, err := execNamed(ctx, r.db, query, doc)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update document").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("document not found").
			WithHintf("Document %s not found", doc.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
