package dto

import (
	"context"

	"github.com/facturo/facturo/internal/domain/sequence"
	"github.com/facturo/facturo/internal/types"
	"github.com/facturo/facturo/internal/validator"
)

// CreateSequenceRequest configures a new numbering sequence
type CreateSequenceRequest struct {
	DocumentTypeID string `json:"document_type_id" validate:"required"`
	Prefix         string `json:"prefix" validate:"max=32"`
	Suffix         string `json:"suffix" validate:"max=32"`
	PaddingLength  int    `json:"padding_length" validate:"required,min=1,max=20"`
	// StartNumber defaults to 1
	StartNumber int64 `json:"start_number" validate:"omitempty,min=1"`
	MaxNumber   int64 `json:"max_number" validate:"required,min=1"`
}

func (r *CreateSequenceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.ToSequence(context.Background()).Validate()
}

func (r *CreateSequenceRequest) ToSequence(ctx context.Context) *sequence.Sequence {
	start := r.StartNumber
	if start == 0 {
		start = 1
	}
	seq := sequence.New(r.DocumentTypeID, r.Prefix, r.Suffix, r.PaddingLength, start, r.MaxNumber)
	seq.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SEQUENCE)
	seq.BaseModel = types.GetDefaultBaseModel(ctx)
	return seq
}

// UpdateSequenceRequest changes formatting and range fields only
type UpdateSequenceRequest struct {
	Prefix        *string `json:"prefix,omitempty" validate:"omitempty,max=32"`
	Suffix        *string `json:"suffix,omitempty" validate:"omitempty,max=32"`
	PaddingLength *int    `json:"padding_length,omitempty" validate:"omitempty,min=1,max=20"`
	MaxNumber     *int64  `json:"max_number,omitempty" validate:"omitempty,min=1"`
}

func (r *UpdateSequenceRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// Apply copies the set fields onto seq
func (r *UpdateSequenceRequest) Apply(seq *sequence.Sequence) {
	if r.Prefix != nil {
		seq.Prefix = *r.Prefix
	}
	if r.Suffix != nil {
		seq.Suffix = *r.Suffix
	}
	if r.PaddingLength != nil {
		seq.PaddingLength = *r.PaddingLength
	}
	if r.MaxNumber != nil {
		seq.MaxNumber = *r.MaxNumber
	}
}

type SequenceResponse struct {
	*sequence.Sequence
	Remaining int64 `json:"remaining"`
	Exhausted bool  `json:"exhausted"`
}

func NewSequenceResponse(seq *sequence.Sequence) *SequenceResponse {
	return &SequenceResponse{
		Sequence:  seq,
		Remaining: seq.Remaining(),
		Exhausted: seq.IsExhausted(),
	}
}

type ListSequencesResponse struct {
	Items      []*SequenceResponse      `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}

// AllocateNumberRequest asks for the next number of the active sequence of
// a document type
type AllocateNumberRequest struct {
	DocumentTypeID string `json:"document_type_id" validate:"required"`
}

func (r *AllocateNumberRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// AllocationResponse carries an issued number, or a preview of the next one
type AllocationResponse struct {
	SequenceID      string `json:"sequence_id"`
	Number          int64  `json:"number"`
	FormattedNumber string `json:"formatted_number"`
}

func NewAllocationResponse(a *sequence.Allocation) *AllocationResponse {
	return &AllocationResponse{
		SequenceID:      a.SequenceID,
		Number:          a.Number,
		FormattedNumber: a.FormattedNumber,
	}
}
