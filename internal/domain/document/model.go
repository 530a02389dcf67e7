package document

import (
	"time"

	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
	"github.com/shopspring/decimal"
)

// Document is an invoice or a quote
type Document struct {
	ID             string               `db:"id" json:"id"`
	Kind           types.DocumentKind   `db:"kind" json:"kind"`
	DocumentTypeID string               `db:"document_type_id" json:"document_type_id"`
	CustomerID     string               `db:"customer_id" json:"customer_id"`
	DocumentStatus types.DocumentStatus `db:"document_status" json:"document_status"`
	Total          decimal.Decimal      `db:"total" json:"total"`

	// TotalPaid and BalanceDue cache the last reconciliation of the payment
	// ledger. They are rewritten on every payment mutation and never edited
	// directly.
	TotalPaid  decimal.Decimal `db:"total_paid" json:"total_paid"`
	BalanceDue decimal.Decimal `db:"balance_due" json:"balance_due"`

	FiscalSequenceID *string `db:"fiscal_sequence_id" json:"fiscal_sequence_id,omitempty"`
	FiscalNumber     *string `db:"fiscal_number" json:"fiscal_number,omitempty"`

	IssueDate  time.Time  `db:"issue_date" json:"issue_date"`
	DueDate    *time.Time `db:"due_date" json:"due_date,omitempty"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	PaidAt     *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	Notes      string     `db:"notes" json:"notes"`

	types.BaseModel
}

func (d *Document) Validate() error {
	if err := d.Kind.Validate(); err != nil {
		return err
	}
	if d.DocumentTypeID == "" {
		return ierr.NewError("document type is required").
			WithHint("Document type is required").
			Mark(ierr.ErrValidation)
	}
	if d.Total.IsNegative() {
		return ierr.NewError("invalid document total").
			WithHint("Document total must not be negative").
			WithReportableDetails(map[string]any{"total": d.Total.String()}).
			Mark(ierr.ErrValidation)
	}
	if err := d.DocumentStatus.ValidateFor(d.Kind); err != nil {
		return err
	}
	if d.Kind == types.DocumentKindQuote && d.DueDate != nil {
		return ierr.NewError("quotes have no due date").
			WithHint("Use expiry_date for quotes").
			Mark(ierr.ErrValidation)
	}
	if d.Kind == types.DocumentKindInvoice && d.ExpiryDate != nil {
		return ierr.NewError("invoices have no expiry date").
			WithHint("Use due_date for invoices").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// HasFiscalNumber reports whether a number has been issued to the document
func (d *Document) HasFiscalNumber() bool {
	return d.FiscalNumber != nil && *d.FiscalNumber != ""
}

// AssignFiscalNumber attaches an issued number. A document keeps the first
// number it receives.
func (d *Document) AssignFiscalNumber(sequenceID, formatted string) error {
	if d.HasFiscalNumber() {
		return ierr.NewError("fiscal number already assigned").
			WithHint("A fiscal number cannot be changed once issued").
			WithReportableDetails(map[string]any{
				"document_id":   d.ID,
				"fiscal_number": *d.FiscalNumber,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	d.FiscalSequenceID = &sequenceID
	d.FiscalNumber = &formatted
	return nil
}

// ExpireIfDue moves a quote past its expiry date into expired. It reports
// whether the status changed.
func (d *Document) ExpireIfDue(now time.Time) bool {
	if d.Kind != types.DocumentKindQuote || d.ExpiryDate == nil {
		return false
	}
	if !now.After(*d.ExpiryDate) {
		return false
	}
	if !CanTransition(d.Kind, d.DocumentStatus, types.DocumentStatusExpired) {
		return false
	}
	d.DocumentStatus = types.DocumentStatusExpired
	d.UpdatedAt = now
	return true
}

// ApplySummary copies a reconciliation result into the cached columns
func (d *Document) ApplySummary(s Summary) {
	d.TotalPaid = s.TotalPaid
	d.BalanceDue = s.BalanceDue
}
