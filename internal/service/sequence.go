package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/facturo/facturo/internal/api/dto"
	"github.com/facturo/facturo/internal/domain/sequence"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/postgres"
	"github.com/facturo/facturo/internal/publisher"
	"github.com/facturo/facturo/internal/types"
	"github.com/samber/lo"
)

const entityTypeSequence = "sequence"

// SequenceService issues fiscal numbers and administers numbering sequences
type SequenceService interface {
	CreateSequence(ctx context.Context, req dto.CreateSequenceRequest) (*dto.SequenceResponse, error)
	GetSequence(ctx context.Context, id string) (*dto.SequenceResponse, error)
	ListSequences(ctx context.Context, filter *types.SequenceFilter) (*dto.ListSequencesResponse, error)
	UpdateSequence(ctx context.Context, id string, req dto.UpdateSequenceRequest) (*dto.SequenceResponse, error)

	// PreviewNext formats the number the next allocation would issue without
	// reserving it
	PreviewNext(ctx context.Context, id string) (*dto.AllocationResponse, error)
	// Reset moves the counter back to start_number - 1. Numbers issued before
	// the reset may be issued again.
	Reset(ctx context.Context, id string) (*dto.SequenceResponse, error)
	Deactivate(ctx context.Context, id string) (*dto.SequenceResponse, error)
	Activate(ctx context.Context, id string) (*dto.SequenceResponse, error)

	// AllocateNext reserves the next number of the active sequence of a
	// document type. The reservation commits on its own, outside any
	// transaction carried by ctx, so a failed caller leaves a gap.
	AllocateNext(ctx context.Context, documentTypeID string) (*sequence.Allocation, error)
}

type sequenceService struct {
	ServiceParams
}

func NewSequenceService(params ServiceParams) SequenceService {
	return &sequenceService{ServiceParams: params}
}

func (s *sequenceService) CreateSequence(ctx context.Context, req dto.CreateSequenceRequest) (*dto.SequenceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	seq := req.ToSequence(ctx)
	if err := s.SequenceRepo.Create(ctx, seq); err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created sequence",
		"sequence_id", seq.ID,
		"document_type_id", seq.DocumentTypeID,
	)
	s.publishSequenceEvent(ctx, types.EventSequenceCreated, seq, nil)
	return dto.NewSequenceResponse(seq), nil
}

func (s *sequenceService) GetSequence(ctx context.Context, id string) (*dto.SequenceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("sequence_id is required").
			WithHint("Sequence ID is required").
			Mark(ierr.ErrValidation)
	}

	seq, err := s.SequenceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSequenceResponse(seq), nil
}

func (s *sequenceService) ListSequences(ctx context.Context, filter *types.SequenceFilter) (*dto.ListSequencesResponse, error) {
	if filter == nil {
		filter = types.NewSequenceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.QueryFilter.Validate(); err != nil {
		return nil, err
	}

	seqs, err := s.SequenceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.SequenceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListSequencesResponse{
		Items:      lo.Map(seqs, func(seq *sequence.Sequence, _ int) *dto.SequenceResponse { return dto.NewSequenceResponse(seq) }),
		Pagination: types.NewPaginationResponse(total, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *sequenceService) UpdateSequence(ctx context.Context, id string, req dto.UpdateSequenceRequest) (*dto.SequenceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	seq, err := s.SequenceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(seq)
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	seq.UpdatedAt = time.Now().UTC()
	seq.UpdatedBy = types.GetUserID(ctx)

	// the repository re-checks max_number against the stored counter, which
	// may have moved since the read above
	if err := s.SequenceRepo.Update(ctx, seq); err != nil {
		return nil, err
	}

	updated, err := s.SequenceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishSequenceEvent(ctx, types.EventSequenceUpdated, updated, nil)
	return dto.NewSequenceResponse(updated), nil
}

func (s *sequenceService) PreviewNext(ctx context.Context, id string) (*dto.AllocationResponse, error) {
	seq, err := s.SequenceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if seq.IsExhausted() {
		return nil, seq.ErrExhausted()
	}

	next := seq.NextCandidate()
	return &dto.AllocationResponse{
		SequenceID:      seq.ID,
		Number:          next,
		FormattedNumber: seq.Format(next),
	}, nil
}

func (s *sequenceService) Reset(ctx context.Context, id string) (*dto.SequenceResponse, error) {
	before, err := s.SequenceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.SequenceRepo.ResetCurrent(ctx, id); err != nil {
		return nil, err
	}

	seq, err := s.SequenceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Warnw("sequence reset, previously issued numbers may be issued again",
		"sequence_id", seq.ID,
		"previous_current_number", before.CurrentNumber,
		"current_number", seq.CurrentNumber,
	)
	s.publishSequenceEvent(ctx, types.EventSequenceReset, seq, map[string]any{
		"previous_current_number": before.CurrentNumber,
	})
	return dto.NewSequenceResponse(seq), nil
}

func (s *sequenceService) Deactivate(ctx context.Context, id string) (*dto.SequenceResponse, error) {
	return s.setActive(ctx, id, false)
}

func (s *sequenceService) Activate(ctx context.Context, id string) (*dto.SequenceResponse, error) {
	return s.setActive(ctx, id, true)
}

func (s *sequenceService) setActive(ctx context.Context, id string, active bool) (*dto.SequenceResponse, error) {
	if err := s.SequenceRepo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	seq, err := s.SequenceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	eventName := types.EventSequenceDeactivated
	if active {
		eventName = types.EventSequenceActivated
	}
	s.publishSequenceEvent(ctx, eventName, seq, nil)
	return dto.NewSequenceResponse(seq), nil
}

func (s *sequenceService) AllocateNext(ctx context.Context, documentTypeID string) (*sequence.Allocation, error) {
	if documentTypeID == "" {
		return nil, ierr.NewError("document_type_id is required").
			WithHint("Document type is required to allocate a number").
			Mark(ierr.ErrValidation)
	}

	ctx = postgres.WithoutTx(ctx)
	cfg := s.Config.Sequence

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.RetryInitialInterval
	expBackoff.MaxInterval = cfg.RetryMaxInterval
	retries := uint64(max(cfg.MaxAllocationAttempts, 1) - 1)
	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, retries), ctx)

	attempt := 0
	alloc, err := backoff.RetryWithData(func() (*sequence.Allocation, error) {
		attempt++
		return s.tryAllocate(ctx, documentTypeID, attempt)
	}, policy)
	if err != nil {
		if ierr.IsConcurrentAllocationConflict(err) {
			s.Logger.WithContext(ctx).Warnw("allocation retries exhausted",
				"document_type_id", documentTypeID,
				"attempts", attempt,
			)
		}
		return nil, err
	}

	s.publishEvent(ctx, publisher.NewEvent(ctx, types.EventNumberAllocated, entityTypeSequence, alloc.SequenceID, map[string]any{
		"document_type_id": documentTypeID,
		"number":           alloc.Number,
		"formatted_number": alloc.FormattedNumber,
	}))
	return alloc, nil
}

// tryAllocate runs one read then compare-and-set round. Errors that a retry
// cannot fix are wrapped as permanent.
func (s *sequenceService) tryAllocate(ctx context.Context, documentTypeID string, attempt int) (*sequence.Allocation, error) {
	candidates, err := s.SequenceRepo.ListActive(ctx, documentTypeID)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if len(candidates) == 0 {
		return nil, backoff.Permanent(ierr.NewError("no active sequence").
			WithHintf("Create or activate a sequence for document type %s", documentTypeID).
			WithReportableDetails(map[string]any{"document_type_id": documentTypeID}).
			Mark(ierr.ErrNoActiveSequence))
	}
	if len(candidates) > 1 {
		s.Logger.WithContext(ctx).Warnw("multiple active sequences for document type, using the most recent",
			"document_type_id", documentTypeID,
			"sequence_ids", lo.Map(candidates, func(seq *sequence.Sequence, _ int) string { return seq.ID }),
		)
	}

	seq := candidates[0]
	if seq.IsExhausted() {
		return nil, backoff.Permanent(seq.ErrExhausted())
	}

	next := seq.NextCandidate()
	ok, err := s.SequenceRepo.CompareAndSetCurrent(ctx, seq.ID, seq.CurrentNumber, next)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if !ok {
		s.Logger.WithContext(ctx).Debugw("lost allocation race",
			"sequence_id", seq.ID,
			"expected_current_number", seq.CurrentNumber,
			"attempt", attempt,
		)
		return nil, ierr.NewError("concurrent allocation conflict").
			WithHint("The sequence is busy, please retry").
			WithReportableDetails(map[string]any{
				"sequence_id": seq.ID,
				"attempts":    attempt,
			}).
			Mark(ierr.ErrConcurrentAllocationConflict)
	}

	return &sequence.Allocation{
		SequenceID:      seq.ID,
		Number:          next,
		FormattedNumber: seq.Format(next),
	}, nil
}

func (s *sequenceService) publishSequenceEvent(ctx context.Context, name types.FiscalEventName, seq *sequence.Sequence, extra map[string]any) {
	payload := map[string]any{
		"document_type_id": seq.DocumentTypeID,
		"current_number":   seq.CurrentNumber,
		"max_number":       seq.MaxNumber,
		"is_active":        seq.IsActive,
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.publishEvent(ctx, publisher.NewEvent(ctx, name, entityTypeSequence, seq.ID, payload))
}
