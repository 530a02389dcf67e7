package payment

import (
	"context"

	"github.com/facturo/facturo/internal/types"
)

// Repository defines the interface for payment persistence
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	Update(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id string) error
	// ListByDocument returns the live ledger of a document ordered by
	// payment date then creation
	ListByDocument(ctx context.Context, documentID string) ([]*Payment, error)
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
}
