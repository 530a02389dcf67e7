package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/facturo/facturo/internal/domain/sequence"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/postgres"
	"github.com/facturo/facturo/internal/types"
)

const sequenceColumns = `id, tenant_id, document_type_id, prefix, suffix, padding_length,
	start_number, max_number, current_number, is_active,
	status, created_at, updated_at, created_by, updated_by`

type sequenceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSequenceRepository(db *postgres.DB, logger *logger.Logger) sequence.Repository {
	return &sequenceRepository{db: db, logger: logger}
}

func (r *sequenceRepository) Create(ctx context.Context, seq *sequence.Sequence) error {
	query := `
		INSERT INTO sequences (` + sequenceColumns + `)
		VALUES (
			:id, :tenant_id, :document_type_id, :prefix, :suffix, :padding_length,
			:start_number, :max_number, :current_number, :is_active,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating sequence",
		"sequence_id", seq.ID,
		"tenant_id", seq.TenantID,
		"document_type_id", seq.DocumentTypeID,
	)

	if _, err := execNamed(ctx, r.db, query, seq); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An active sequence already exists for this document type").
				WithReportableDetails(map[string]any{
					"document_type_id": seq.DocumentTypeID,
				}).
				Mark(ierr.ErrDuplicateActiveSequence)
		}
		return ierr.WithError(err).
			WithHint("Failed to create sequence").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *sequenceRepository) Get(ctx context.Context, id string) (*sequence.Sequence, error) {
	query := `
		SELECT ` + sequenceColumns + ` FROM sequences
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	args := tenantArgs(ctx)
	args["id"] = id

	var seq sequence.Sequence
	if err := getNamed(ctx, r.db, &seq, query, args); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Sequence %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get sequence").
			Mark(ierr.ErrDatabase)
	}
	return &seq, nil
}

func (r *sequenceRepository) ListActive(ctx context.Context, documentTypeID string) ([]*sequence.Sequence, error) {
	query := `
		SELECT ` + sequenceColumns + ` FROM sequences
		WHERE tenant_id = :tenant_id
		AND document_type_id = :document_type_id
		AND is_active = :is_active
		AND status = :status
		ORDER BY created_at DESC, id DESC`

	args := tenantArgs(ctx)
	args["document_type_id"] = documentTypeID
	args["is_active"] = true

	var seqs []*sequence.Sequence
	if err := selectNamed(ctx, r.db, &seqs, query, args); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list active sequences").
			Mark(ierr.ErrDatabase)
	}
	return seqs, nil
}

func (r *sequenceRepository) filterQuery(ctx context.Context, selectClause string, filter *types.SequenceFilter) (string, namedArgs) {
	args := tenantArgs(ctx)
	where := []string{"tenant_id = :tenant_id", "status = :status"}

	if filter != nil {
		if filter.DocumentTypeID != "" {
			where = append(where, "document_type_id = :document_type_id")
			args["document_type_id"] = filter.DocumentTypeID
		}
		if filter.IsActive != nil {
			where = append(where, "is_active = :is_active")
			args["is_active"] = *filter.IsActive
		}
	}

	return selectClause + " FROM sequences WHERE " + strings.Join(where, " AND "), args
}

func (r *sequenceRepository) List(ctx context.Context, filter *types.SequenceFilter) ([]*sequence.Sequence, error) {
	if filter == nil {
		filter = types.NewSequenceFilter()
	}
	query, args := r.filterQuery(ctx, "SELECT "+sequenceColumns, filter)
	query = paginate(query, args, filter.QueryFilter, "created_at", "id")

	var seqs []*sequence.Sequence
	if err := selectNamed(ctx, r.db, &seqs, query, args); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list sequences").
			Mark(ierr.ErrDatabase)
	}
	return seqs, nil
}

func (r *sequenceRepository) Count(ctx context.Context, filter *types.SequenceFilter) (int, error) {
	query, args := r.filterQuery(ctx, "SELECT COUNT(*)", filter)

	var count int
	if err := getNamed(ctx, r.db, &count, query, args); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count sequences").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

// CompareAndSetCurrent is the only write path for allocations. The
// current_number predicate makes concurrent writers race on the row: exactly
// one of them sees an affected row. The max_number predicate turns a range
// lowered after the caller's read into a lost update instead of a
// constraint violation.
func (r *sequenceRepository) CompareAndSetCurrent(ctx context.Context, id string, expected, next int64) (bool, error) {
	query := `
		UPDATE sequences
		SET current_number = :next,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND current_number = :expected
		AND :next <= max_number
		AND is_active = :is_active
		AND status = :status`

	args := tenantArgs(ctx)
	args["id"] = id
	args["expected"] = expected
	args["next"] = next
	args["is_active"] = true
	args["updated_at"] = time.Now().UTC()
	args["updated_by"] = types.GetUserID(ctx)

	affected, err := execNamed(ctx, r.db, query, map[string]interface{}(args))
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to advance sequence").
			WithReportableDetails(map[string]any{"sequence_id": id}).
			Mark(ierr.ErrDatabase)
	}
	return affected == 1, nil
}

func (r *sequenceRepository) ResetCurrent(ctx context.Context, id string) error {
	query := `
		UPDATE sequences
		SET current_number = start_number - 1,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	args := tenantArgs(ctx)
	args["id"] = id
	args["updated_at"] = time.Now().UTC()
	args["updated_by"] = types.GetUserID(ctx)

	affected, err := execNamed(ctx, r.db, query, map[string]interface{}(args))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to reset sequence").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("sequence not found").
			WithHintf("Sequence %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *sequenceRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `
		UPDATE sequences
		SET is_active = :is_active,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status`

	args := tenantArgs(ctx)
	args["id"] = id
	args["is_active"] = active
	args["updated_at"] = time.Now().UTC()
	args["updated_by"] = types.GetUserID(ctx)

	affected, err := execNamed(ctx, r.db, query, map[string]interface{}(args))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Another sequence is already active for this document type").
				WithReportableDetails(map[string]any{"sequence_id": id}).
				Mark(ierr.ErrDuplicateActiveSequence)
		}
		return ierr.WithError(err).
			WithHint("Failed to update sequence").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		return ierr.NewError("sequence not found").
			WithHintf("Sequence %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// Update leaves current_number alone and refuses a max below it, so a
// concurrent allocation can never be pushed out of range
func (r *sequenceRepository) Update(ctx context.Context, seq *sequence.Sequence) error {
	query := `
		UPDATE sequences
		SET prefix = :prefix,
			suffix = :suffix,
			padding_length = :padding_length,
			max_number = :max_number,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
		AND tenant_id = :tenant_id
		AND status = :status
		AND current_number <= :max_number`

	affected, err := execNamed(ctx, r.db, query, seq)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update sequence").
			Mark(ierr.ErrDatabase)
	}
	if affected == 0 {
		current, err := r.Get(ctx, seq.ID)
		if err != nil {
			return err
		}
		return ierr.NewError("max number below current number").
			WithHintf("Max number must be at least %d", current.CurrentNumber).
			WithReportableDetails(map[string]any{
				"current_number": current.CurrentNumber,
				"max_number":     seq.MaxNumber,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
