package postgres

import "context"

// IClient defines the interface for postgres client operations
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// NewClient exposes db to services through IClient
func NewClient(db *DB) IClient {
	return db
}
