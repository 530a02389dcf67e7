package postgres

import (
	"context"
	"time"

	"github.com/facturo/facturo/internal/domain/payment"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/postgres"
	"github.com/facturo/facturo/internal/types"
)

const paymentColumns = `id, tenant_id, document_id, amount, payment_date, method, account_id, notes,
	status, created_at, updated_at, created_by, updated_by`

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (
			:id, :tenant_id, :document_id, :amount, :payment_date, :method, :account_id, :notes,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating payment",
		"payment_id", p.ID,
		"document_id", p.DocumentID,
		"tenant_id", p.TenantID,
	)

	if _, err := execNamed(ctx, r.db, query, p); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	args := tenantArgs(ctx)
	args["id"] = id

	var p payment.Payment
	if err := getNamed(ctx, r.db, &p, query, args); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Payment %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	query := `
		UPDATE payments
		SET amount = :amount,
			payment_date = :payment_date,
			method = :method,
			account_id = :account_id,
			notes = :notes,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	affected, err := execNamed(ctx, r.db, query, p)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update payment").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("payment not found").
			WithHintf("Payment %s not found", p.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// Delete archives the row; archived payments drop out of the ledger
func (r *paymentRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE payments
		SET status = :deleted,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	args := tenantArgs(ctx)
	args["id"] = id
	args["deleted"] = types.StatusDeleted
	args["updated_at"] = time.Now().UTC()
	args["updated_by"] = types.GetUserID(ctx)

	affected, err := execNamed(ctx, r.db, query, map[string]interface{}(args))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete payment").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("payment not found").
			WithHintf("Payment %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *paymentRepository) ListByDocument(ctx context.Context, documentID string) ([]*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE document_id = :document_id
		AND tenant_id = :tenant_id
		AND status = :status
		ORDER BY payment_date ASC, created_at ASC, id ASC`

	args := tenantArgs(ctx)
	args["document_id"] = documentID

	var payments []*payment.Payment
	if err := selectNamed(ctx, r.db, &payments, query, args); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	args := tenantArgs(ctx)
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE tenant_id = :tenant_id
		AND status = :status`

	queryFilter := types.NewDefaultQueryFilter()
	if filter != nil {
		if filter.DocumentID != "" {
			query += " AND document_id = :document_id"
			args["document_id"] = filter.DocumentID
		}
		if filter.QueryFilter != nil {
			queryFilter = filter.QueryFilter
		}
	}
	query = paginate(query, args, queryFilter, "payment_date", "created_at", "id")

	var payments []*payment.Payment
	if err := selectNamed(ctx, r.db, &payments, query, args); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}
