package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/facturo/facturo/internal/api/dto"
	"github.com/facturo/facturo/internal/domain/sequence"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/testutil"
	"github.com/facturo/facturo/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/suite"
)

type SequenceServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	service SequenceService
}

func TestSequenceService(t *testing.T) {
	suite.Run(t, new(SequenceServiceSuite))
}

func (s *SequenceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewSequenceService(s.params)
}

func (s *SequenceServiceSuite) createSequence(documentTypeID string, start, max int64) *dto.SequenceResponse {
	resp, err := s.service.CreateSequence(s.GetContext(), dto.CreateSequenceRequest{
		DocumentTypeID: documentTypeID,
		Prefix:         "INV-",
		PaddingLength:  4,
		StartNumber:    start,
		MaxNumber:      max,
	})
	s.Require().NoError(err)
	return resp
}

func (s *SequenceServiceSuite) TestCreateSequence() {
	resp, err := s.service.CreateSequence(s.GetContext(), dto.CreateSequenceRequest{
		DocumentTypeID: "invoice",
		Prefix:         "FAC-",
		Suffix:         "-A",
		PaddingLength:  4,
		MaxNumber:      9999,
	})
	s.NoError(err)
	s.NotEmpty(resp.ID)
	s.Equal(int64(1), resp.StartNumber)
	s.Equal(int64(0), resp.CurrentNumber)
	s.True(resp.IsActive)
	s.Equal(int64(9999), resp.Remaining)
	s.Equal(types.DefaultTenantID, resp.TenantID)
	s.Len(s.GetPublisher().EventsNamed(types.EventSequenceCreated), 1)
}

func (s *SequenceServiceSuite) TestCreateSequence_Invalid() {
	tests := []struct {
		name string
		req  dto.CreateSequenceRequest
	}{
		{
			name: "missing document type",
			req:  dto.CreateSequenceRequest{PaddingLength: 4, MaxNumber: 10},
		},
		{
			name: "zero padding",
			req:  dto.CreateSequenceRequest{DocumentTypeID: "invoice", MaxNumber: 10},
		},
		{
			name: "max below start",
			req:  dto.CreateSequenceRequest{DocumentTypeID: "invoice", PaddingLength: 4, StartNumber: 10, MaxNumber: 5},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.CreateSequence(s.GetContext(), tt.req)
			s.Error(err)
			s.True(ierr.IsValidation(err))
		})
	}
}

func (s *SequenceServiceSuite) TestCreateSequence_DuplicateActive() {
	s.createSequence("invoice", 1, 100)

	_, err := s.service.CreateSequence(s.GetContext(), dto.CreateSequenceRequest{
		DocumentTypeID: "invoice",
		PaddingLength:  6,
		MaxNumber:      100,
	})
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrDuplicateActiveSequence))

	// another document type is unaffected
	s.createSequence("credit_note", 1, 100)
}

func (s *SequenceServiceSuite) TestAllocateNext_SequentialIsGapFree() {
	seq := s.createSequence("invoice", 1, 5)

	var numbers []int64
	var formatted []string
	for range 5 {
		alloc, err := s.service.AllocateNext(s.GetContext(), "invoice")
		s.Require().NoError(err)
		s.Equal(seq.ID, alloc.SequenceID)
		numbers = append(numbers, alloc.Number)
		formatted = append(formatted, alloc.FormattedNumber)
	}

	s.Equal([]int64{1, 2, 3, 4, 5}, numbers)
	s.Equal([]string{"INV-0001", "INV-0002", "INV-0003", "INV-0004", "INV-0005"}, formatted)
	s.Len(s.GetPublisher().EventsNamed(types.EventNumberAllocated), 5)
}

func (s *SequenceServiceSuite) TestAllocateNext_ExhaustedDoesNotMutate() {
	seq := s.createSequence("invoice", 1, 3)
	for range 3 {
		_, err := s.service.AllocateNext(s.GetContext(), "invoice")
		s.Require().NoError(err)
	}

	_, err := s.service.AllocateNext(s.GetContext(), "invoice")
	s.Error(err)
	s.True(ierr.IsSequenceExhausted(err))

	got, err := s.service.GetSequence(s.GetContext(), seq.ID)
	s.NoError(err)
	s.Equal(int64(3), got.CurrentNumber)
	s.True(got.Exhausted)
	s.Equal(int64(0), got.Remaining)
}

func (s *SequenceServiceSuite) TestAllocateNext_NoActiveSequence() {
	_, err := s.service.AllocateNext(s.GetContext(), "invoice")
	s.True(ierr.IsNoActiveSequence(err))

	seq := s.createSequence("invoice", 1, 10)
	_, err = s.service.Deactivate(s.GetContext(), seq.ID)
	s.NoError(err)

	_, err = s.service.AllocateNext(s.GetContext(), "invoice")
	s.True(ierr.IsNoActiveSequence(err))

	_, err = s.service.AllocateNext(s.GetContext(), "")
	s.True(ierr.IsValidation(err))
}

func (s *SequenceServiceSuite) TestAllocateNext_TenantIsolation() {
	s.createSequence("invoice", 1, 10)

	otherTenant := types.SetTenantID(s.GetContext(), "tenant_other")
	_, err := s.service.AllocateNext(otherTenant, "invoice")
	s.True(ierr.IsNoActiveSequence(err))
}

func (s *SequenceServiceSuite) TestAllocateNext_ConcurrentNumbersAreDistinct() {
	cfg := *s.GetConfig()
	cfg.Sequence.MaxAllocationAttempts = 20
	params := s.params
	params.Config = &cfg
	service := NewSequenceService(params)

	seq := s.createSequence("invoice", 1, 1000)

	const workers = 50
	var (
		mu        sync.Mutex
		numbers   []int64
		conflicts int
		wg        conc.WaitGroup
	)
	for range workers {
		wg.Go(func() {
			alloc, err := service.AllocateNext(s.GetContext(), "invoice")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.True(ierr.IsConcurrentAllocationConflict(err), "unexpected error: %v", err)
				conflicts++
				return
			}
			numbers = append(numbers, alloc.Number)
		})
	}
	wg.Wait()

	s.Equal(workers, len(numbers)+conflicts)
	s.NotEmpty(numbers)
	s.Len(lo.Uniq(numbers), len(numbers))

	// successful allocations advance the counter one by one
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, n := range numbers {
		s.Equal(int64(i+1), n)
	}

	got, err := service.GetSequence(s.GetContext(), seq.ID)
	s.NoError(err)
	s.Equal(int64(len(numbers)), got.CurrentNumber)
}

// contendedSequenceRepo loses every compare-and-set
type contendedSequenceRepo struct {
	sequence.Repository
	casCalls atomic.Int32
}

func (r *contendedSequenceRepo) CompareAndSetCurrent(_ context.Context, _ string, _, _ int64) (bool, error) {
	r.casCalls.Add(1)
	return false, nil
}

func (s *SequenceServiceSuite) TestAllocateNext_ConflictAfterBoundedRetries() {
	seq := s.createSequence("invoice", 1, 10)

	repo := &contendedSequenceRepo{Repository: s.GetStores().SequenceRepo}
	params := s.params
	params.SequenceRepo = repo
	service := NewSequenceService(params)

	_, err := service.AllocateNext(s.GetContext(), "invoice")
	s.Error(err)
	s.True(ierr.IsConcurrentAllocationConflict(err))
	s.Equal(int32(s.GetConfig().Sequence.MaxAllocationAttempts), repo.casCalls.Load())

	got, err := service.GetSequence(s.GetContext(), seq.ID)
	s.NoError(err)
	s.Equal(int64(0), got.CurrentNumber)
	s.Empty(s.GetPublisher().EventsNamed(types.EventNumberAllocated))
}

// shrinkingSequenceRepo lowers max_number to the stored counter right before
// the first compare-and-set, as an administrator editing the range would
type shrinkingSequenceRepo struct {
	sequence.Repository
	shrunk bool
}

func (r *shrinkingSequenceRepo) CompareAndSetCurrent(ctx context.Context, id string, expected, next int64) (bool, error) {
	if !r.shrunk {
		r.shrunk = true
		seq, err := r.Repository.Get(ctx, id)
		if err != nil {
			return false, err
		}
		seq.MaxNumber = seq.CurrentNumber
		if err := r.Repository.Update(ctx, seq); err != nil {
			return false, err
		}
	}
	return r.Repository.CompareAndSetCurrent(ctx, id, expected, next)
}

func (s *SequenceServiceSuite) TestAllocateNext_MaxLoweredDuringAllocation() {
	seq := s.createSequence("invoice", 1, 10)
	_, err := s.service.AllocateNext(s.GetContext(), "invoice")
	s.Require().NoError(err)

	params := s.params
	params.SequenceRepo = &shrinkingSequenceRepo{Repository: s.GetStores().SequenceRepo}
	service := NewSequenceService(params)

	_, err = service.AllocateNext(s.GetContext(), "invoice")
	s.True(ierr.IsSequenceExhausted(err), "unexpected error: %v", err)

	got, err := s.service.GetSequence(s.GetContext(), seq.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), got.CurrentNumber)
	s.Equal(int64(1), got.MaxNumber)
	s.True(got.Exhausted)
}

// multiActiveSequenceRepo reports a stale extra candidate after the real ones
type multiActiveSequenceRepo struct {
	sequence.Repository
	stale *sequence.Sequence
}

func (r *multiActiveSequenceRepo) ListActive(ctx context.Context, documentTypeID string) ([]*sequence.Sequence, error) {
	seqs, err := r.Repository.ListActive(ctx, documentTypeID)
	if err != nil {
		return nil, err
	}
	return append(seqs, r.stale), nil
}

func (s *SequenceServiceSuite) TestAllocateNext_MultipleActiveUsesMostRecent() {
	older := s.createSequence("invoice", 1, 10)
	_, err := s.service.Deactivate(s.GetContext(), older.ID)
	s.Require().NoError(err)
	newer := s.createSequence("invoice", 500, 600)

	stale := *older.Sequence
	stale.IsActive = true
	params := s.params
	params.SequenceRepo = &multiActiveSequenceRepo{Repository: s.GetStores().SequenceRepo, stale: &stale}
	service := NewSequenceService(params)

	alloc, err := service.AllocateNext(s.GetContext(), "invoice")
	s.NoError(err)
	s.Equal(newer.ID, alloc.SequenceID)
	s.Equal(int64(500), alloc.Number)
}

func (s *SequenceServiceSuite) TestPreviewNext_IsIdempotent() {
	seq := s.createSequence("invoice", 1, 10)

	first, err := s.service.PreviewNext(s.GetContext(), seq.ID)
	s.NoError(err)
	second, err := s.service.PreviewNext(s.GetContext(), seq.ID)
	s.NoError(err)
	s.Equal(first, second)
	s.Equal("INV-0001", first.FormattedNumber)

	alloc, err := s.service.AllocateNext(s.GetContext(), "invoice")
	s.NoError(err)
	s.Equal(first.FormattedNumber, alloc.FormattedNumber)

	third, err := s.service.PreviewNext(s.GetContext(), seq.ID)
	s.NoError(err)
	s.Equal("INV-0002", third.FormattedNumber)
}

func (s *SequenceServiceSuite) TestPreviewNext_Exhausted() {
	seq := s.createSequence("invoice", 1, 1)
	_, err := s.service.AllocateNext(s.GetContext(), "invoice")
	s.Require().NoError(err)

	_, err = s.service.PreviewNext(s.GetContext(), seq.ID)
	s.True(ierr.IsSequenceExhausted(err))
}

func (s *SequenceServiceSuite) TestReset() {
	seq := s.createSequence("invoice", 1, 10)
	for range 3 {
		_, err := s.service.AllocateNext(s.GetContext(), "invoice")
		s.Require().NoError(err)
	}

	resp, err := s.service.Reset(s.GetContext(), seq.ID)
	s.NoError(err)
	s.Equal(int64(0), resp.CurrentNumber)

	// numbers issued before the reset come out again
	alloc, err := s.service.AllocateNext(s.GetContext(), "invoice")
	s.NoError(err)
	s.Equal(int64(1), alloc.Number)

	events := s.GetPublisher().EventsNamed(types.EventSequenceReset)
	s.Require().Len(events, 1)
	s.Equal(int64(3), events[0].Payload["previous_current_number"])
}

func (s *SequenceServiceSuite) TestAllocateNext_StartsAtStartNumber() {
	s.createSequence("invoice", 100, 200)

	alloc, err := s.service.AllocateNext(s.GetContext(), "invoice")
	s.NoError(err)
	s.Equal(int64(100), alloc.Number)
	s.Equal("INV-0100", alloc.FormattedNumber)
}

func (s *SequenceServiceSuite) TestActivate_GuardedBySingleActive() {
	first := s.createSequence("invoice", 1, 10)
	_, err := s.service.Deactivate(s.GetContext(), first.ID)
	s.NoError(err)
	second := s.createSequence("invoice", 1, 10)

	_, err = s.service.Activate(s.GetContext(), first.ID)
	s.True(ierr.Is(err, ierr.ErrDuplicateActiveSequence))

	_, err = s.service.Deactivate(s.GetContext(), second.ID)
	s.NoError(err)
	resp, err := s.service.Activate(s.GetContext(), first.ID)
	s.NoError(err)
	s.True(resp.IsActive)

	s.Len(s.GetPublisher().EventsNamed(types.EventSequenceActivated), 1)
	s.Len(s.GetPublisher().EventsNamed(types.EventSequenceDeactivated), 2)
}

func (s *SequenceServiceSuite) TestUpdateSequence() {
	seq := s.createSequence("invoice", 1, 10)
	for range 5 {
		_, err := s.service.AllocateNext(s.GetContext(), "invoice")
		s.Require().NoError(err)
	}

	resp, err := s.service.UpdateSequence(s.GetContext(), seq.ID, dto.UpdateSequenceRequest{
		Prefix:    lo.ToPtr("F-"),
		MaxNumber: lo.ToPtr(int64(20)),
	})
	s.NoError(err)
	s.Equal("F-", resp.Prefix)
	s.Equal(int64(20), resp.MaxNumber)
	s.Equal(int64(5), resp.CurrentNumber)

	preview, err := s.service.PreviewNext(s.GetContext(), seq.ID)
	s.NoError(err)
	s.Equal("F-0006", preview.FormattedNumber)

	_, err = s.service.UpdateSequence(s.GetContext(), seq.ID, dto.UpdateSequenceRequest{
		MaxNumber: lo.ToPtr(int64(4)),
	})
	s.True(ierr.IsValidation(err))
}

func (s *SequenceServiceSuite) TestListSequences() {
	first := s.createSequence("invoice", 1, 10)
	_, err := s.service.Deactivate(s.GetContext(), first.ID)
	s.NoError(err)
	s.createSequence("invoice", 1, 10)
	s.createSequence("quote", 1, 10)

	all, err := s.service.ListSequences(s.GetContext(), nil)
	s.NoError(err)
	s.Len(all.Items, 3)
	s.Equal(3, all.Pagination.Total)

	filter := types.NewSequenceFilter()
	filter.DocumentTypeID = "invoice"
	filter.IsActive = lo.ToPtr(true)
	active, err := s.service.ListSequences(s.GetContext(), filter)
	s.NoError(err)
	s.Len(active.Items, 1)
	s.True(active.Items[0].IsActive)
}

func (s *SequenceServiceSuite) TestGetSequence_NotFound() {
	_, err := s.service.GetSequence(s.GetContext(), "seq_missing")
	s.True(ierr.IsNotFound(err))
}
