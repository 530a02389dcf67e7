package document

import (
	"testing"
	"time"

	"github.com/facturo/facturo/internal/domain/payment"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvoice(total int64, status types.DocumentStatus) *Document {
	return &Document{
		ID:             "doc_1",
		Kind:           types.DocumentKindInvoice,
		DocumentTypeID: "invoice",
		DocumentStatus: status,
		Total:          decimal.NewFromInt(total),
		IssueDate:      time.Now(),
	}
}

func payments(amounts ...int64) []*payment.Payment {
	return lo.Map(amounts, func(a int64, _ int) *payment.Payment {
		return &payment.Payment{Amount: decimal.NewFromInt(a)}
	})
}

func TestReconcile(t *testing.T) {
	doc := newInvoice(1000, types.DocumentStatusSent)

	summary := Reconcile(doc, payments(300, 200))
	assert.True(t, decimal.NewFromInt(500).Equal(summary.TotalPaid))
	assert.True(t, decimal.NewFromInt(500).Equal(summary.BalanceDue))
	assert.Equal(t, types.DocumentStatusSent, summary.SuggestedStatus)
	assert.False(t, summary.PaidEligible)
	assert.Equal(t, 2, summary.PaymentCount)

	summary = Reconcile(doc, payments(300, 200, 500))
	assert.True(t, summary.BalanceDue.IsZero())
	assert.Equal(t, types.DocumentStatusPaid, summary.SuggestedStatus)
	assert.True(t, summary.PaidEligible)
}

func TestReconcileOverpaymentIsNotClamped(t *testing.T) {
	summary := Reconcile(newInvoice(100, types.DocumentStatusSent), payments(150))
	assert.True(t, decimal.NewFromInt(-50).Equal(summary.BalanceDue))
	assert.True(t, summary.IsOverpaid())
	assert.True(t, summary.PaidEligible)
}

func TestReconcileNeverDowngrades(t *testing.T) {
	summary := Reconcile(newInvoice(100, types.DocumentStatusOverdue), payments(10))
	assert.Equal(t, types.DocumentStatusOverdue, summary.SuggestedStatus)

	paid := Reconcile(newInvoice(100, types.DocumentStatusPaid), payments(100))
	assert.False(t, paid.PaidEligible)
}

func TestReconcileQuoteHasNoPaidSuggestion(t *testing.T) {
	quote := newInvoice(100, types.DocumentStatusSent)
	quote.Kind = types.DocumentKindQuote
	summary := Reconcile(quote, payments(100))
	assert.Equal(t, types.DocumentStatusSent, summary.SuggestedStatus)
	assert.False(t, summary.PaidEligible)
}

func TestCheckPaidGate(t *testing.T) {
	doc := newInvoice(1000, types.DocumentStatusSent)

	err := CheckPaidGate(Reconcile(doc, payments(300, 200)))
	assert.True(t, ierr.IsOutstandingBalance(err))

	assert.NoError(t, CheckPaidGate(Reconcile(doc, payments(300, 200, 500))))
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name  string
		kind  types.DocumentKind
		from  types.DocumentStatus
		to    types.DocumentStatus
		valid bool
	}{
		{"invoice draft to sent", types.DocumentKindInvoice, types.DocumentStatusDraft, types.DocumentStatusSent, true},
		{"invoice sent to overdue", types.DocumentKindInvoice, types.DocumentStatusSent, types.DocumentStatusOverdue, true},
		{"invoice overdue to paid", types.DocumentKindInvoice, types.DocumentStatusOverdue, types.DocumentStatusPaid, true},
		{"invoice same status", types.DocumentKindInvoice, types.DocumentStatusSent, types.DocumentStatusSent, true},
		{"invoice paid is terminal", types.DocumentKindInvoice, types.DocumentStatusPaid, types.DocumentStatusSent, false},
		{"invoice overdue back to draft", types.DocumentKindInvoice, types.DocumentStatusOverdue, types.DocumentStatusDraft, false},
		{"quote sent to accepted", types.DocumentKindQuote, types.DocumentStatusSent, types.DocumentStatusAccepted, true},
		{"quote accepted to rejected", types.DocumentKindQuote, types.DocumentStatusAccepted, types.DocumentStatusRejected, true},
		{"quote rejected is terminal", types.DocumentKindQuote, types.DocumentStatusRejected, types.DocumentStatusAccepted, false},
		{"quote has no paid", types.DocumentKindQuote, types.DocumentStatusSent, types.DocumentStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.kind, tt.from, tt.to)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}

	err := ValidateTransition(types.DocumentKindInvoice, types.DocumentStatusPaid, types.DocumentStatusSent)
	assert.True(t, ierr.IsInvalidStatusTransition(err))
}

func TestExpireIfDue(t *testing.T) {
	now := time.Now()
	expiry := now.Add(-time.Hour)

	quote := &Document{
		Kind:           types.DocumentKindQuote,
		DocumentStatus: types.DocumentStatusSent,
		ExpiryDate:     &expiry,
	}
	assert.True(t, quote.ExpireIfDue(now))
	assert.Equal(t, types.DocumentStatusExpired, quote.DocumentStatus)
	assert.False(t, quote.ExpireIfDue(now))

	rejected := &Document{
		Kind:           types.DocumentKindQuote,
		DocumentStatus: types.DocumentStatusRejected,
		ExpiryDate:     &expiry,
	}
	assert.False(t, rejected.ExpireIfDue(now))

	future := now.Add(time.Hour)
	pending := &Document{
		Kind:           types.DocumentKindQuote,
		DocumentStatus: types.DocumentStatusDraft,
		ExpiryDate:     &future,
	}
	assert.False(t, pending.ExpireIfDue(now))
}

func TestAssignFiscalNumberIsImmutable(t *testing.T) {
	doc := newInvoice(10, types.DocumentStatusDraft)
	require.NoError(t, doc.AssignFiscalNumber("seq_1", "FAC-0001"))

	err := doc.AssignFiscalNumber("seq_1", "FAC-0002")
	assert.True(t, ierr.IsInvalidOperation(err))
	assert.Equal(t, "FAC-0001", *doc.FiscalNumber)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, newInvoice(0, types.DocumentStatusDraft).Validate())

	negative := newInvoice(-1, types.DocumentStatusDraft)
	assert.True(t, ierr.IsValidation(negative.Validate()))

	wrongStatus := newInvoice(10, types.DocumentStatusAccepted)
	assert.True(t, ierr.IsValidation(wrongStatus.Validate()))
}
