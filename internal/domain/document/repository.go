package document

import (
	"context"

	"github.com/facturo/facturo/internal/types"
)

// Repository defines the interface for document persistence
type Repository interface {
	// Create fails with ErrAlreadyExists when the fiscal number is already
	// attached to another document of the sequence
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, filter *types.DocumentFilter) ([]*Document, error)
	Count(ctx context.Context, filter *types.DocumentFilter) (int, error)
	// UpdateStatus writes document_status and paid_at
	UpdateStatus(ctx context.Context, doc *Document) error
	// UpdateBalances writes the cached total_paid and balance_due columns
	UpdateBalances(ctx context.Context, doc *Document) error
}
