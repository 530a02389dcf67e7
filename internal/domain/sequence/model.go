package sequence

import (
	"fmt"

	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
)

// Sequence is one numbering stream for a (tenant, document type) pair
type Sequence struct {
	ID             string `db:"id" json:"id"`
	DocumentTypeID string `db:"document_type_id" json:"document_type_id"`
	Prefix         string `db:"prefix" json:"prefix"`
	Suffix         string `db:"suffix" json:"suffix"`
	PaddingLength  int    `db:"padding_length" json:"padding_length"`
	StartNumber    int64  `db:"start_number" json:"start_number"`
	MaxNumber      int64  `db:"max_number" json:"max_number"`
	// CurrentNumber is the last issued number, start_number - 1 when nothing
	// has been issued yet
	CurrentNumber int64 `db:"current_number" json:"current_number"`
	IsActive      bool  `db:"is_active" json:"is_active"`

	types.BaseModel
}

// Allocation is the result of a successful allocation
type Allocation struct {
	SequenceID      string `json:"sequence_id"`
	Number          int64  `json:"number"`
	FormattedNumber string `json:"formatted_number"`
}

// New returns an active sequence that has issued nothing
func New(documentTypeID, prefix, suffix string, paddingLength int, startNumber, maxNumber int64) *Sequence {
	return &Sequence{
		DocumentTypeID: documentTypeID,
		Prefix:         prefix,
		Suffix:         suffix,
		PaddingLength:  paddingLength,
		StartNumber:    startNumber,
		MaxNumber:      maxNumber,
		CurrentNumber:  startNumber - 1,
		IsActive:       true,
	}
}

func (s *Sequence) Validate() error {
	if s.DocumentTypeID == "" {
		return ierr.NewError("document type is required").
			WithHint("A sequence must belong to a document type").
			Mark(ierr.ErrValidation)
	}
	if s.PaddingLength < 1 {
		return ierr.NewError("invalid padding length").
			WithHint("Padding length must be at least 1").
			WithReportableDetails(map[string]any{"padding_length": s.PaddingLength}).
			Mark(ierr.ErrValidation)
	}
	if s.StartNumber < 1 {
		return ierr.NewError("invalid start number").
			WithHint("Start number must be at least 1").
			WithReportableDetails(map[string]any{"start_number": s.StartNumber}).
			Mark(ierr.ErrValidation)
	}
	if s.MaxNumber < s.StartNumber {
		return ierr.NewError("invalid max number").
			WithHint("Max number must not be lower than the start number").
			WithReportableDetails(map[string]any{
				"start_number": s.StartNumber,
				"max_number":   s.MaxNumber,
			}).
			Mark(ierr.ErrValidation)
	}
	if s.CurrentNumber < s.StartNumber-1 || s.CurrentNumber > s.MaxNumber {
		return ierr.NewError("current number out of range").
			WithHintf("Current number must be between %d and %d", s.StartNumber-1, s.MaxNumber).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// NextCandidate is the number the next allocation would issue. A current
// number below the start of the range is treated as nothing issued.
func (s *Sequence) NextCandidate() int64 {
	return max(s.CurrentNumber+1, s.StartNumber)
}

// IsExhausted reports whether the next candidate falls outside the range
func (s *Sequence) IsExhausted() bool {
	return s.NextCandidate() > s.MaxNumber
}

// Remaining is how many numbers can still be issued
func (s *Sequence) Remaining() int64 {
	if s.IsExhausted() {
		return 0
	}
	return s.MaxNumber - s.NextCandidate() + 1
}

// Format renders n as prefix, zero padded digits and suffix. Numbers wider
// than the padding are never truncated.
func (s *Sequence) Format(n int64) string {
	return fmt.Sprintf("%s%0*d%s", s.Prefix, s.PaddingLength, n, s.Suffix)
}

// ErrExhausted builds the error returned when nothing is left to issue
func (s *Sequence) ErrExhausted() error {
	return ierr.NewError("sequence exhausted").
		WithHint("Raise the max number or create a new sequence").
		WithReportableDetails(map[string]any{
			"sequence_id":    s.ID,
			"current_number": s.CurrentNumber,
			"max_number":     s.MaxNumber,
		}).
		Mark(ierr.ErrSequenceExhausted)
}
