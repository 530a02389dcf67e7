package dto

import (
	"context"
	"time"

	"github.com/facturo/facturo/internal/domain/document"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
	"github.com/facturo/facturo/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateDocumentRequest creates an invoice or a quote. Invoices receive a
// fiscal number from the active sequence of their document type.
type CreateDocumentRequest struct {
	Kind           types.DocumentKind `json:"kind" validate:"required"`
	DocumentTypeID string             `json:"document_type_id" validate:"required"`
	CustomerID     string             `json:"customer_id"`
	Total          decimal.Decimal    `json:"total"`
	// IssueDate defaults to now
	IssueDate  *time.Time `json:"issue_date,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Notes      string     `json:"notes" validate:"max=4000"`

	InitialPayment *RecordPaymentRequest `json:"initial_payment,omitempty"`
	// AutoMarkPaid moves an invoice to paid when the initial payment covers
	// the total
	AutoMarkPaid bool `json:"auto_mark_paid"`
}

func (r *CreateDocumentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.Kind.Validate(); err != nil {
		return err
	}
	if r.Total.IsNegative() {
		return ierr.NewError("invalid total").
			WithHint("Document total must not be negative").
			Mark(ierr.ErrValidation)
	}
	if r.InitialPayment != nil {
		if err := r.InitialPayment.Validate(); err != nil {
			return err
		}
	}
	if r.AutoMarkPaid && r.Kind != types.DocumentKindInvoice {
		return ierr.NewError("auto mark paid is invoice only").
			WithHint("Quotes cannot be marked paid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToDocument builds a draft without a fiscal number
func (r *CreateDocumentRequest) ToDocument(ctx context.Context) *document.Document {
	issueDate := time.Now().UTC()
	if r.IssueDate != nil {
		issueDate = r.IssueDate.UTC()
	}
	return &document.Document{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DOCUMENT),
		Kind:           r.Kind,
		DocumentTypeID: r.DocumentTypeID,
		CustomerID:     r.CustomerID,
		DocumentStatus: types.DocumentStatusDraft,
		Total:          r.Total,
		TotalPaid:      decimal.Zero,
		BalanceDue:     r.Total,
		IssueDate:      issueDate,
		DueDate:        r.DueDate,
		ExpiryDate:     r.ExpiryDate,
		Notes:          r.Notes,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

type DocumentResponse struct {
	*document.Document
	Summary *document.Summary `json:"summary,omitempty"`
}

func NewDocumentResponse(doc *document.Document) *DocumentResponse {
	return &DocumentResponse{Document: doc}
}

type ListDocumentsResponse struct {
	Items      []*DocumentResponse      `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}

// StatusChangeRequest asks for a move to another document status
type StatusChangeRequest struct {
	Status types.DocumentStatus `json:"status" validate:"required"`
}

func (r *StatusChangeRequest) Validate() error {
	return validator.ValidateRequest(r)
}
