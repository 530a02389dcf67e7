package payment

import (
	"time"

	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
	"github.com/shopspring/decimal"
)

// Payment is one entry of a document's payment ledger. The set of payments
// of a document is the only source of its paid amount.
type Payment struct {
	// Unique identifier for this payment
	ID string `db:"id" json:"id"`
	// The document_id is the invoice or quote this payment settles
	DocumentID string `db:"document_id" json:"document_id"`
	// The amount is always strictly positive
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// The payment_date is when the money was received, not when it was recorded
	PaymentDate time.Time `db:"payment_date" json:"payment_date"`
	// The method describes how the payment was received (cash, bank_transfer, card, ...)
	Method types.PaymentMethod `db:"method" json:"method"`
	// The account_id optionally names the receiving account
	AccountID *string `db:"account_id" json:"account_id,omitempty"`
	Notes     string  `db:"notes" json:"notes"`

	types.BaseModel
}

// ValidateAmount rejects zero and negative amounts
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ierr.NewError("invalid payment amount").
			WithHint("Payment amount must be greater than 0").
			WithReportableDetails(map[string]any{
				"amount": amount.String(),
			}).
			Mark(ierr.ErrInvalidPaymentAmount)
	}
	return nil
}

// Validate validates the payment
func (p *Payment) Validate() error {
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	if p.DocumentID == "" {
		return ierr.NewError("document id is required").
			WithHint("A payment must reference a document").
			Mark(ierr.ErrValidation)
	}
	if p.PaymentDate.IsZero() {
		return ierr.NewError("payment date is required").
			WithHint("Payment date is required").
			Mark(ierr.ErrValidation)
	}
	if err := p.Method.Validate(); err != nil {
		return err
	}
	return nil
}

// TotalPaid sums the ledger
func TotalPaid(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
