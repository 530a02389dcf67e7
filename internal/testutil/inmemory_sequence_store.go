package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/facturo/facturo/internal/domain/sequence"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
	"github.com/samber/lo"
)

var _ sequence.Repository = (*InMemorySequenceStore)(nil)

// InMemorySequenceStore implements sequence.Repository. Sequences are copied
// in and out so callers never share the stored counter.
type InMemorySequenceStore struct {
	*InMemoryStore[*sequence.Sequence]
	// mu serializes compound read-modify-write operations
	mu sync.Mutex
}

func NewInMemorySequenceStore() *InMemorySequenceStore {
	return &InMemorySequenceStore{
		InMemoryStore: NewInMemoryStore[*sequence.Sequence](),
	}
}

func copySequence(seq *sequence.Sequence) *sequence.Sequence {
	cp := *seq
	return &cp
}

func sequenceFilterFn(ctx context.Context, seq *sequence.Sequence, filter interface{}) bool {
	if !CheckTenantFilter(ctx, seq.TenantID) || seq.Status != types.StatusPublished {
		return false
	}
	f, ok := filter.(*types.SequenceFilter)
	if !ok || f == nil {
		return true
	}
	if f.DocumentTypeID != "" && seq.DocumentTypeID != f.DocumentTypeID {
		return false
	}
	if f.IsActive != nil && seq.IsActive != *f.IsActive {
		return false
	}
	return true
}

// newestFirst matches the ordering of the postgres repository
func newestFirst(a, b *sequence.Sequence) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s *InMemorySequenceStore) Create(ctx context.Context, seq *sequence.Sequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq.IsActive && s.hasOtherActive(ctx, seq.TenantID, seq.DocumentTypeID, seq.ID) {
		return duplicateActiveErr(seq.ID)
	}
	return s.InMemoryStore.Create(ctx, seq.ID, copySequence(seq))
}

func (s *InMemorySequenceStore) Get(ctx context.Context, id string) (*sequence.Sequence, error) {
	seq, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !sequenceFilterFn(ctx, seq, nil) {
		return nil, ierr.NewError("sequence not found").
			WithHintf("Sequence %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copySequence(seq), nil
}

func (s *InMemorySequenceStore) ListActive(ctx context.Context, documentTypeID string) ([]*sequence.Sequence, error) {
	filter := &types.SequenceFilter{
		QueryFilter:    types.NewNoLimitQueryFilter(),
		DocumentTypeID: documentTypeID,
		IsActive:       lo.ToPtr(true),
	}
	seqs, err := s.InMemoryStore.List(ctx, filter, sequenceFilterFn, newestFirst)
	if err != nil {
		return nil, err
	}
	return lo.Map(seqs, func(seq *sequence.Sequence, _ int) *sequence.Sequence { return copySequence(seq) }), nil
}

func (s *InMemorySequenceStore) List(ctx context.Context, filter *types.SequenceFilter) ([]*sequence.Sequence, error) {
	seqs, err := s.InMemoryStore.List(ctx, filter, sequenceFilterFn, newestFirst)
	if err != nil {
		return nil, err
	}
	return lo.Map(seqs, func(seq *sequence.Sequence, _ int) *sequence.Sequence { return copySequence(seq) }), nil
}

func (s *InMemorySequenceStore) Count(ctx context.Context, filter *types.SequenceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, sequenceFilterFn)
}

func (s *InMemorySequenceStore) CompareAndSetCurrent(ctx context.Context, id string, expected, next int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return false, nil
	}
	if !seq.IsActive || seq.CurrentNumber != expected || next > seq.MaxNumber {
		return false, nil
	}

	updated := copySequence(seq)
	updated.CurrentNumber = next
	updated.UpdatedAt = time.Now().UTC()
	return true, s.InMemoryStore.Update(ctx, id, updated)
}

func (s *InMemorySequenceStore) ResetCurrent(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(seq *sequence.Sequence) error {
		seq.CurrentNumber = seq.StartNumber - 1
		return nil
	})
}

func (s *InMemorySequenceStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.mutate(ctx, id, func(seq *sequence.Sequence) error {
		if active && !seq.IsActive && s.hasOtherActive(ctx, seq.TenantID, seq.DocumentTypeID, seq.ID) {
			return duplicateActiveErr(seq.ID)
		}
		seq.IsActive = active
		return nil
	})
}

func (s *InMemorySequenceStore) Update(ctx context.Context, in *sequence.Sequence) error {
	return s.mutate(ctx, in.ID, func(seq *sequence.Sequence) error {
		if in.MaxNumber < seq.CurrentNumber {
			return ierr.NewError("max number below current number").
				WithHintf("Max number must be at least %d", seq.CurrentNumber).
				Mark(ierr.ErrValidation)
		}
		seq.Prefix = in.Prefix
		seq.Suffix = in.Suffix
		seq.PaddingLength = in.PaddingLength
		seq.MaxNumber = in.MaxNumber
		return nil
	})
}

// mutate applies fn to a copy of the stored sequence and writes it back
func (s *InMemorySequenceStore) mutate(ctx context.Context, id string, fn func(seq *sequence.Sequence) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !sequenceFilterFn(ctx, stored, nil) {
		return ierr.NewError("sequence not found").
			WithHintf("Sequence %s not found", id).
			Mark(ierr.ErrNotFound)
	}

	seq := copySequence(stored)
	if err := fn(seq); err != nil {
		return err
	}
	seq.UpdatedAt = time.Now().UTC()
	seq.UpdatedBy = types.GetUserID(ctx)
	return s.InMemoryStore.Update(ctx, id, seq)
}

// hasOtherActive must be called with mu held
func (s *InMemorySequenceStore) hasOtherActive(ctx context.Context, tenantID, documentTypeID, exceptID string) bool {
	active, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, seq *sequence.Sequence, _ interface{}) bool {
		return seq.TenantID == tenantID &&
			seq.DocumentTypeID == documentTypeID &&
			seq.IsActive &&
			seq.ID != exceptID
	}, nil)
	return len(active) > 0
}

func duplicateActiveErr(id string) error {
	return ierr.NewError("duplicate active sequence").
		WithHint("Another sequence is already active for this document type").
		WithReportableDetails(map[string]any{"sequence_id": id}).
		Mark(ierr.ErrDuplicateActiveSequence)
}
