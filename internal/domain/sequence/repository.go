package sequence

import (
	"context"

	"github.com/facturo/facturo/internal/types"
)

// Repository persists sequences. Implementations scope every call to the
// tenant in ctx.
type Repository interface {
	// Create fails with ErrDuplicateActiveSequence when an active sequence
	// already exists for the document type
	Create(ctx context.Context, seq *Sequence) error
	Get(ctx context.Context, id string) (*Sequence, error)
	// ListActive returns the active sequences of a document type, most
	// recently created first
	ListActive(ctx context.Context, documentTypeID string) ([]*Sequence, error)
	List(ctx context.Context, filter *types.SequenceFilter) ([]*Sequence, error)
	Count(ctx context.Context, filter *types.SequenceFilter) (int, error)

	// CompareAndSetCurrent moves current_number from expected to next on an
	// active sequence. It returns false when the row no longer holds expected.
	CompareAndSetCurrent(ctx context.Context, id string, expected, next int64) (bool, error)
	// ResetCurrent sets current_number back to start_number - 1
	ResetCurrent(ctx context.Context, id string) error
	// SetActive fails with ErrDuplicateActiveSequence when activating would
	// leave two active sequences for the document type
	SetActive(ctx context.Context, id string, active bool) error
	// Update writes formatting and range fields only, never current_number
	Update(ctx context.Context, seq *Sequence) error
}
