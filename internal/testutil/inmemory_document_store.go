package testutil

import (
	"context"
	"sync"

	"github.com/facturo/facturo/internal/domain/document"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
	"github.com/samber/lo"
)

var _ document.Repository = (*InMemoryDocumentStore)(nil)

// InMemoryDocumentStore implements document.Repository
type InMemoryDocumentStore struct {
	*InMemoryStore[*document.Document]
	mu sync.Mutex
	// CreateErr, when set, is returned by Create without storing anything
	CreateErr error
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		InMemoryStore: NewInMemoryStore[*document.Document](),
	}
}

func copyDocument(doc *document.Document) *document.Document {
	cp := *doc
	return &cp
}

func documentFilterFn(ctx context.Context, doc *document.Document, filter interface{}) bool {
	if !CheckTenantFilter(ctx, doc.TenantID) || doc.Status != types.StatusPublished {
		return false
	}
	f, ok := filter.(*types.DocumentFilter)
	if !ok || f == nil {
		return true
	}
	if f.Kind != "" && doc.Kind != f.Kind {
		return false
	}
	if f.DocumentTypeID != "" && doc.DocumentTypeID != f.DocumentTypeID {
		return false
	}
	if f.CustomerID != "" && doc.CustomerID != f.CustomerID {
		return false
	}
	if len(f.DocumentStatuses) > 0 && !lo.Contains(f.DocumentStatuses, doc.DocumentStatus) {
		return false
	}
	return true
}

func documentSortFn(a, b *document.Document) bool {
	if !a.IssueDate.Equal(b.IssueDate) {
		return a.IssueDate.After(b.IssueDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s *InMemoryDocumentStore) Create(ctx context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return s.CreateErr
	}

	if doc.HasFiscalNumber() {
		taken, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, other *document.Document, _ interface{}) bool {
			return other.TenantID == doc.TenantID &&
				other.HasFiscalNumber() &&
				lo.FromPtr(other.FiscalSequenceID) == lo.FromPtr(doc.FiscalSequenceID) &&
				*other.FiscalNumber == *doc.FiscalNumber
		}, nil)
		if len(taken) > 0 {
			return ierr.NewError("fiscal number already used").
				WithHintf("Fiscal number %s is already attached to another document", *doc.FiscalNumber).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return s.InMemoryStore.Create(ctx, doc.ID, copyDocument(doc))
}

func (s *InMemoryDocumentStore) Get(ctx context.Context, id string) (*document.Document, error) {
	doc, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !documentFilterFn(ctx, doc, nil) {
		return nil, ierr.NewError("document not found").
			WithHintf("Document %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyDocument(doc), nil
}

func (s *InMemoryDocumentStore) List(ctx context.Context, filter *types.DocumentFilter) ([]*document.Document, error) {
	docs, err := s.InMemoryStore.List(ctx, filter, documentFilterFn, documentSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(docs, func(doc *document.Document, _ int) *document.Document { return copyDocument(doc) }), nil
}

func (s *InMemoryDocumentStore) Count(ctx context.Context, filter *types.DocumentFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, documentFilterFn)
}

func (s *InMemoryDocumentStore) UpdateStatus(ctx context.Context, in *document.Document) error {
	return s.mutate(ctx, in.ID, func(doc *document.Document) {
		doc.DocumentStatus = in.DocumentStatus
		doc.PaidAt = in.PaidAt
		doc.UpdatedAt = in.UpdatedAt
		doc.UpdatedBy = in.UpdatedBy
	})
}

func (s *InMemoryDocumentStore) UpdateBalances(ctx context.Context, in *document.Document) error {
	return s.mutate(ctx, in.ID, func(doc *document.Document) {
		doc.TotalPaid = in.TotalPaid
		doc.BalanceDue = in.BalanceDue
		doc.UpdatedAt = in.UpdatedAt
		doc.UpdatedBy = in.UpdatedBy
	})
}

func (s *InMemoryDocumentStore) mutate(ctx context.Context, id string, fn func(doc *document.Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !documentFilterFn(ctx, stored, nil) {
		return ierr.NewError("document not found").
			WithHintf("Document %s not found", id).
			Mark(ierr.ErrNotFound)
	}

	doc := copyDocument(stored)
	fn(doc)
	return s.InMemoryStore.Update(ctx, id, doc)
}

// Clear removes all documents and any injected failure
func (s *InMemoryDocumentStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InMemoryStore.Clear()
	s.CreateErr = nil
}
