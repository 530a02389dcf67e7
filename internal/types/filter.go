package types

import (
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/samber/lo"
)

const (
	FILTER_DEFAULT_LIMIT = 50
	FILTER_MAX_LIMIT     = 1000

	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// QueryFilter represents a generic query filter with optional fields
type QueryFilter struct {
	Limit  *int    `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset *int    `json:"offset,omitempty" form:"offset" validate:"omitempty,min=0"`
	Order  *string `json:"order,omitempty" form:"order" validate:"omitempty,oneof=asc desc"`
}

// NewDefaultQueryFilter defines default values for query filters
func NewDefaultQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  lo.ToPtr(FILTER_DEFAULT_LIMIT),
		Offset: lo.ToPtr(0),
		Order:  lo.ToPtr(OrderDesc),
	}
}

// NewNoLimitQueryFilter returns a filter with no pagination limits
func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  nil,
		Offset: lo.ToPtr(0),
		Order:  lo.ToPtr(OrderDesc),
	}
}

// IsUnlimited returns true if this is an unlimited query
func (f *QueryFilter) IsUnlimited() bool {
	return f == nil || f.Limit == nil
}

// GetLimit returns the limit value, 0 for unlimited queries
func (f *QueryFilter) GetLimit() int {
	if f.IsUnlimited() {
		return 0
	}
	return *f.Limit
}

// GetOffset returns the offset value or default if not set
func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

// GetOrder returns the order value or default if not set
func (f *QueryFilter) GetOrder() string {
	if f == nil || f.Order == nil {
		return OrderDesc
	}
	return *f.Order
}

func (f *QueryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit < 1 || *f.Limit > FILTER_MAX_LIMIT) {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 1 and %d", FILTER_MAX_LIMIT).
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must not be negative").
			Mark(ierr.ErrValidation)
	}
	if f.Order != nil && *f.Order != OrderAsc && *f.Order != OrderDesc {
		return ierr.NewError("invalid order").
			WithHint("Order must be asc or desc").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SequenceFilter filters numbering sequences of the tenant in context
type SequenceFilter struct {
	*QueryFilter
	DocumentTypeID string `json:"document_type_id,omitempty" form:"document_type_id"`
	IsActive       *bool  `json:"is_active,omitempty" form:"is_active"`
}

func NewSequenceFilter() *SequenceFilter {
	return &SequenceFilter{QueryFilter: NewDefaultQueryFilter()}
}

// DocumentFilter filters invoices and quotes of the tenant in context
type DocumentFilter struct {
	*QueryFilter
	Kind             DocumentKind     `json:"kind,omitempty" form:"kind"`
	DocumentTypeID   string           `json:"document_type_id,omitempty" form:"document_type_id"`
	DocumentStatuses []DocumentStatus `json:"document_status,omitempty" form:"document_status"`
	CustomerID       string           `json:"customer_id,omitempty" form:"customer_id"`
}

func NewDocumentFilter() *DocumentFilter {
	return &DocumentFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *DocumentFilter) Validate() error {
	if f == nil {
		return nil
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.Kind != "" {
		if err := f.Kind.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PaymentFilter filters payments of the tenant in context
type PaymentFilter struct {
	*QueryFilter
	DocumentID string `json:"document_id,omitempty" form:"document_id"`
}
