package dto

import (
	"context"
	"time"

	"github.com/facturo/facturo/internal/domain/document"
	"github.com/facturo/facturo/internal/domain/payment"
	"github.com/facturo/facturo/internal/types"
	"github.com/facturo/facturo/internal/validator"
	"github.com/shopspring/decimal"
)

// RecordPaymentRequest adds a payment to a document's ledger
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	// PaymentDate defaults to now
	PaymentDate *time.Time          `json:"payment_date,omitempty"`
	Method      types.PaymentMethod `json:"method" validate:"required"`
	AccountID   *string             `json:"account_id,omitempty"`
	Notes       string              `json:"notes" validate:"max=1000"`
}

func (r *RecordPaymentRequest) Validate() error {
	if err := payment.ValidateAmount(r.Amount); err != nil {
		return err
	}
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Method.Validate()
}

func (r *RecordPaymentRequest) ToPayment(ctx context.Context, documentID string) *payment.Payment {
	paymentDate := time.Now().UTC()
	if r.PaymentDate != nil {
		paymentDate = r.PaymentDate.UTC()
	}
	return &payment.Payment{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		DocumentID:  documentID,
		Amount:      r.Amount,
		PaymentDate: paymentDate,
		Method:      r.Method,
		AccountID:   r.AccountID,
		Notes:       r.Notes,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
}

// UpdatePaymentRequest edits a recorded payment. Unset fields are kept.
type UpdatePaymentRequest struct {
	Amount      *decimal.Decimal     `json:"amount,omitempty"`
	PaymentDate *time.Time           `json:"payment_date,omitempty"`
	Method      *types.PaymentMethod `json:"method,omitempty"`
	AccountID   *string              `json:"account_id,omitempty"`
	Notes       *string              `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (r *UpdatePaymentRequest) Validate() error {
	if r.Amount != nil {
		if err := payment.ValidateAmount(*r.Amount); err != nil {
			return err
		}
	}
	if r.Method != nil {
		if err := r.Method.Validate(); err != nil {
			return err
		}
	}
	return validator.ValidateRequest(r)
}

func (r *UpdatePaymentRequest) Apply(p *payment.Payment) {
	if r.Amount != nil {
		p.Amount = *r.Amount
	}
	if r.PaymentDate != nil {
		p.PaymentDate = r.PaymentDate.UTC()
	}
	if r.Method != nil {
		p.Method = *r.Method
	}
	if r.AccountID != nil {
		p.AccountID = r.AccountID
	}
	if r.Notes != nil {
		p.Notes = *r.Notes
	}
}

type PaymentResponse struct {
	*payment.Payment
}

func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{Payment: p}
}

// PaymentMutationResponse is returned by every ledger change. The summary
// tells the caller whether the document can now be marked paid.
type PaymentMutationResponse struct {
	Payment *PaymentResponse `json:"payment,omitempty"`
	Summary document.Summary `json:"summary"`
}

type ListPaymentsResponse struct {
	Items   []*PaymentResponse `json:"items"`
	Summary document.Summary   `json:"summary"`
}
