package service

import (
	"context"
	"testing"
	"time"

	"github.com/facturo/facturo/internal/api/dto"
	"github.com/facturo/facturo/internal/domain/document"
	"github.com/facturo/facturo/internal/domain/payment"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/testutil"
	"github.com/facturo/facturo/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ReconciliationServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  ReconciliationService
	testData struct {
		invoice *document.Document
		quote   *document.Document
	}
}

func TestReconciliationService(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceSuite))
}

func (s *ReconciliationServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewReconciliationService(newTestServiceParams(&s.BaseServiceTestSuite))
	s.setupTestData()
}

func (s *ReconciliationServiceSuite) setupTestData() {
	s.testData.invoice = &document.Document{
		ID:               "doc_invoice",
		Kind:             types.DocumentKindInvoice,
		DocumentTypeID:   "invoice",
		DocumentStatus:   types.DocumentStatusSent,
		Total:            decimal.NewFromInt(1000),
		TotalPaid:        decimal.Zero,
		BalanceDue:       decimal.NewFromInt(1000),
		FiscalSequenceID: lo.ToPtr("seq_1"),
		FiscalNumber:     lo.ToPtr("INV-0001"),
		IssueDate:        s.GetNow(),
		BaseModel:        types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().DocumentRepo.Create(s.GetContext(), s.testData.invoice))

	s.testData.quote = &document.Document{
		ID:             "doc_quote",
		Kind:           types.DocumentKindQuote,
		DocumentTypeID: "quote",
		DocumentStatus: types.DocumentStatusSent,
		Total:          decimal.NewFromInt(400),
		TotalPaid:      decimal.Zero,
		BalanceDue:     decimal.NewFromInt(400),
		IssueDate:      s.GetNow(),
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().DocumentRepo.Create(s.GetContext(), s.testData.quote))
}

func (s *ReconciliationServiceSuite) pay(documentID string, amount int64, at time.Time) *dto.PaymentMutationResponse {
	resp, err := s.service.RecordPayment(s.GetContext(), documentID, dto.RecordPaymentRequest{
		Amount:      decimal.NewFromInt(amount),
		PaymentDate: &at,
		Method:      types.PaymentMethodBankTransfer,
	})
	s.Require().NoError(err)
	return resp
}

func (s *ReconciliationServiceSuite) TestRecompute() {
	s.pay(s.testData.invoice.ID, 300, s.GetNow())
	s.pay(s.testData.invoice.ID, 200, s.GetNow().Add(time.Hour))

	summary, err := s.service.Recompute(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.True(summary.TotalPaid.Equal(decimal.NewFromInt(500)))
	s.True(summary.BalanceDue.Equal(decimal.NewFromInt(500)))
	s.Equal(2, summary.PaymentCount)
	s.Equal(types.DocumentStatusSent, summary.SuggestedStatus)
	s.False(summary.PaidEligible)

	doc, err := s.GetStores().DocumentRepo.Get(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.True(doc.TotalPaid.Equal(decimal.NewFromInt(500)))
	s.True(doc.BalanceDue.Equal(decimal.NewFromInt(500)))
}

func (s *ReconciliationServiceSuite) TestPaidGate() {
	s.pay(s.testData.invoice.ID, 300, s.GetNow())
	s.pay(s.testData.invoice.ID, 200, s.GetNow())

	_, err := s.service.RequestStatusChange(s.GetContext(), s.testData.invoice.ID, dto.StatusChangeRequest{
		Status: types.DocumentStatusPaid,
	})
	s.Error(err)
	s.True(ierr.IsOutstandingBalance(err))

	doc, err := s.GetStores().DocumentRepo.Get(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Equal(types.DocumentStatusSent, doc.DocumentStatus)

	last := s.pay(s.testData.invoice.ID, 500, s.GetNow())
	s.True(last.Summary.BalanceDue.IsZero())
	s.True(last.Summary.PaidEligible)
	s.Equal(types.DocumentStatusPaid, last.Summary.SuggestedStatus)

	// the engine offers paid but never applies it on its own
	doc, err = s.GetStores().DocumentRepo.Get(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Equal(types.DocumentStatusSent, doc.DocumentStatus)

	resp, err := s.service.RequestStatusChange(s.GetContext(), s.testData.invoice.ID, dto.StatusChangeRequest{
		Status: types.DocumentStatusPaid,
	})
	s.NoError(err)
	s.Equal(types.DocumentStatusPaid, resp.DocumentStatus)
	s.NotNil(resp.PaidAt)
	s.False(resp.Summary.PaidEligible)

	events := s.GetPublisher().EventsNamed(types.EventDocumentStatusChanged)
	s.Require().Len(events, 1)
	s.Equal(types.DocumentStatusSent, events[0].Payload["from"])
	s.Equal(types.DocumentStatusPaid, events[0].Payload["to"])
}

func (s *ReconciliationServiceSuite) TestRequestStatusChange_Transitions() {
	tests := []struct {
		name    string
		docID   string
		status  types.DocumentStatus
		wantErr func(error) bool
	}{
		{
			name:   "invoice sent to overdue",
			docID:  "doc_invoice",
			status: types.DocumentStatusOverdue,
		},
		{
			name:    "invoice back to draft",
			docID:   "doc_invoice",
			status:  types.DocumentStatusDraft,
			wantErr: ierr.IsInvalidStatusTransition,
		},
		{
			name:    "quote cannot be paid",
			docID:   "doc_quote",
			status:  types.DocumentStatusPaid,
			wantErr: ierr.IsValidation,
		},
		{
			name:   "same status is a no-op",
			docID:  "doc_quote",
			status: types.DocumentStatusSent,
		},
		{
			name:   "quote accepted",
			docID:  "doc_quote",
			status: types.DocumentStatusAccepted,
		},
		{
			name:    "unknown document",
			docID:   "doc_missing",
			status:  types.DocumentStatusSent,
			wantErr: ierr.IsNotFound,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, err := s.service.RequestStatusChange(s.GetContext(), tt.docID, dto.StatusChangeRequest{Status: tt.status})
			if tt.wantErr != nil {
				s.Error(err)
				s.True(tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			s.NoError(err)
			s.Equal(tt.status, resp.DocumentStatus)
		})
	}
}

func (s *ReconciliationServiceSuite) TestRequestStatusChange_NoOpPublishesNothing() {
	_, err := s.service.RequestStatusChange(s.GetContext(), s.testData.invoice.ID, dto.StatusChangeRequest{
		Status: types.DocumentStatusSent,
	})
	s.NoError(err)
	s.Empty(s.GetPublisher().EventsNamed(types.EventDocumentStatusChanged))
}

func (s *ReconciliationServiceSuite) TestRecordPayment_InvalidAmount() {
	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := s.service.RecordPayment(s.GetContext(), s.testData.invoice.ID, dto.RecordPaymentRequest{
			Amount: amount,
			Method: types.PaymentMethodCash,
		})
		s.Error(err)
		s.True(ierr.Is(err, ierr.ErrInvalidPaymentAmount))
	}

	list, err := s.service.ListPayments(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Empty(list.Items)
}

func (s *ReconciliationServiceSuite) TestRecordPayment_UnknownDocument() {
	_, err := s.service.RecordPayment(s.GetContext(), "doc_missing", dto.RecordPaymentRequest{
		Amount: decimal.NewFromInt(10),
		Method: types.PaymentMethodCash,
	})
	s.True(ierr.IsNotFound(err))
}

func (s *ReconciliationServiceSuite) TestOverpaymentIsNotClamped() {
	resp := s.pay(s.testData.invoice.ID, 1200, s.GetNow())
	s.True(resp.Summary.BalanceDue.Equal(decimal.NewFromInt(-200)))
	s.True(resp.Summary.IsOverpaid())
	s.True(resp.Summary.PaidEligible)
}

func (s *ReconciliationServiceSuite) TestEditPayment() {
	first := s.pay(s.testData.invoice.ID, 300, s.GetNow())
	s.pay(s.testData.invoice.ID, 200, s.GetNow())

	resp, err := s.service.EditPayment(s.GetContext(), first.Payment.ID, dto.UpdatePaymentRequest{
		Amount: lo.ToPtr(decimal.NewFromInt(800)),
		Notes:  lo.ToPtr("corrected"),
	})
	s.NoError(err)
	s.True(resp.Payment.Amount.Equal(decimal.NewFromInt(800)))
	s.Equal("corrected", resp.Payment.Notes)
	s.True(resp.Summary.TotalPaid.Equal(decimal.NewFromInt(1000)))
	s.True(resp.Summary.BalanceDue.IsZero())
	s.True(resp.Summary.PaidEligible)

	_, err = s.service.EditPayment(s.GetContext(), first.Payment.ID, dto.UpdatePaymentRequest{
		Amount: lo.ToPtr(decimal.Zero),
	})
	s.True(ierr.Is(err, ierr.ErrInvalidPaymentAmount))

	s.Len(s.GetPublisher().EventsNamed(types.EventPaymentUpdated), 1)
}

func (s *ReconciliationServiceSuite) TestDeletePayment() {
	first := s.pay(s.testData.invoice.ID, 300, s.GetNow())
	s.pay(s.testData.invoice.ID, 700, s.GetNow())

	resp, err := s.service.DeletePayment(s.GetContext(), first.Payment.ID)
	s.NoError(err)
	s.Nil(resp.Payment)
	s.True(resp.Summary.TotalPaid.Equal(decimal.NewFromInt(700)))
	s.True(resp.Summary.BalanceDue.Equal(decimal.NewFromInt(300)))
	s.Equal(1, resp.Summary.PaymentCount)

	_, err = s.service.DeletePayment(s.GetContext(), first.Payment.ID)
	s.True(ierr.IsNotFound(err))

	doc, err := s.GetStores().DocumentRepo.Get(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.True(doc.BalanceDue.Equal(decimal.NewFromInt(300)))
}

func (s *ReconciliationServiceSuite) TestListPayments_LedgerOrder() {
	later := s.pay(s.testData.invoice.ID, 100, s.GetNow().Add(48*time.Hour))
	earlier := s.pay(s.testData.invoice.ID, 200, s.GetNow())

	list, err := s.service.ListPayments(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Require().Len(list.Items, 2)
	s.Equal(earlier.Payment.ID, list.Items[0].ID)
	s.Equal(later.Payment.ID, list.Items[1].ID)
	s.True(list.Summary.TotalPaid.Equal(decimal.NewFromInt(300)))
}

func (s *ReconciliationServiceSuite) TestGetSummary_InvalidatedByMutations() {
	summary, err := s.service.GetSummary(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.True(summary.TotalPaid.IsZero())

	s.pay(s.testData.invoice.ID, 250, s.GetNow())

	summary, err = s.service.GetSummary(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.True(summary.TotalPaid.Equal(decimal.NewFromInt(250)))
	s.True(summary.BalanceDue.Equal(decimal.NewFromInt(750)))
}

// interleavedPaymentRepo runs a ledger mutation right after the first ledger
// read, so the reader holds a summary that is stale before it is cached
type interleavedPaymentRepo struct {
	payment.Repository
	mutate func()
}

func (r *interleavedPaymentRepo) ListByDocument(ctx context.Context, documentID string) ([]*payment.Payment, error) {
	payments, err := r.Repository.ListByDocument(ctx, documentID)
	if r.mutate != nil {
		mutate := r.mutate
		r.mutate = nil
		mutate()
	}
	return payments, err
}

func (s *ReconciliationServiceSuite) TestGetSummary_ConcurrentMutationDoesNotLeaveStaleEntry() {
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	params.PaymentRepo = &interleavedPaymentRepo{
		Repository: s.GetStores().PaymentRepo,
		mutate:     func() { s.pay(s.testData.invoice.ID, 250, s.GetNow()) },
	}
	reader := NewReconciliationService(params)

	stale, err := reader.GetSummary(s.GetContext(), s.testData.invoice.ID)
	s.Require().NoError(err)
	s.True(stale.TotalPaid.IsZero())

	_, found := s.GetCache().Get(s.GetContext(), summaryCacheKey(s.GetContext(), s.testData.invoice.ID))
	s.False(found)

	summary, err := s.service.GetSummary(s.GetContext(), s.testData.invoice.ID)
	s.Require().NoError(err)
	s.True(summary.TotalPaid.Equal(decimal.NewFromInt(250)))
	s.True(summary.BalanceDue.Equal(decimal.NewFromInt(750)))
}

func (s *ReconciliationServiceSuite) TestQuotePaymentsNeverSuggestPaid() {
	resp := s.pay(s.testData.quote.ID, 400, s.GetNow())
	s.True(resp.Summary.BalanceDue.IsZero())
	s.False(resp.Summary.PaidEligible)
	s.Equal(types.DocumentStatusSent, resp.Summary.SuggestedStatus)
}
