package document

import (
	"github.com/facturo/facturo/internal/domain/payment"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
	"github.com/shopspring/decimal"
)

// Summary is the reconciliation of a document against its payment ledger
type Summary struct {
	DocumentID      string               `json:"document_id"`
	Total           decimal.Decimal      `json:"total"`
	TotalPaid       decimal.Decimal      `json:"total_paid"`
	BalanceDue      decimal.Decimal      `json:"balance_due"`
	PaymentCount    int                  `json:"payment_count"`
	DocumentStatus  types.DocumentStatus `json:"document_status"`
	SuggestedStatus types.DocumentStatus `json:"suggested_status"`
	// PaidEligible is set when the ledger covers the total of an invoice that
	// is not paid yet. Moving it to paid stays the caller's decision.
	PaidEligible bool `json:"paid_eligible"`
}

// IsOverpaid reports a negative balance
func (s Summary) IsOverpaid() bool {
	return s.BalanceDue.IsNegative()
}

// Reconcile derives the paid amount, balance and suggested status of doc
// from payments. The balance is not clamped so overpayment stays visible.
func Reconcile(doc *Document, payments []*payment.Payment) Summary {
	totalPaid := payment.TotalPaid(payments)
	balance := doc.Total.Sub(totalPaid)

	summary := Summary{
		DocumentID:      doc.ID,
		Total:           doc.Total,
		TotalPaid:       totalPaid,
		BalanceDue:      balance,
		PaymentCount:    len(payments),
		DocumentStatus:  doc.DocumentStatus,
		SuggestedStatus: doc.DocumentStatus,
	}

	if doc.Kind != types.DocumentKindInvoice || balance.IsPositive() {
		return summary
	}

	summary.SuggestedStatus = types.DocumentStatusPaid
	summary.PaidEligible = doc.DocumentStatus != types.DocumentStatusPaid &&
		CanTransition(doc.Kind, doc.DocumentStatus, types.DocumentStatusPaid)
	return summary
}

// CheckPaidGate rejects a move to paid while a balance is outstanding
func CheckPaidGate(s Summary) error {
	if s.BalanceDue.IsPositive() {
		return ierr.NewError("outstanding balance").
			WithHint("The document cannot be marked paid while a balance is due").
			WithReportableDetails(map[string]any{
				"document_id": s.DocumentID,
				"total":       s.Total.String(),
				"total_paid":  s.TotalPaid.String(),
				"balance_due": s.BalanceDue.String(),
			}).
			Mark(ierr.ErrOutstandingBalance)
	}
	return nil
}
