package service

import (
	"context"
	"time"

	"github.com/facturo/facturo/internal/api/dto"
	"github.com/facturo/facturo/internal/cache"
	"github.com/facturo/facturo/internal/domain/document"
	"github.com/facturo/facturo/internal/domain/payment"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/publisher"
	"github.com/facturo/facturo/internal/types"
	"github.com/samber/lo"
)

const (
	entityTypeDocument = "document"
	entityTypePayment  = "payment"
)

// ReconciliationService keeps a document's paid amount and balance in line
// with its payment ledger and gates the move to paid
type ReconciliationService interface {
	// GetSummary is the read path for list and detail views
	GetSummary(ctx context.Context, documentID string) (*document.Summary, error)
	// Recompute rebuilds the summary from the ledger and rewrites the cached
	// balance columns of the document
	Recompute(ctx context.Context, documentID string) (*document.Summary, error)
	RequestStatusChange(ctx context.Context, documentID string, req dto.StatusChangeRequest) (*dto.DocumentResponse, error)

	RecordPayment(ctx context.Context, documentID string, req dto.RecordPaymentRequest) (*dto.PaymentMutationResponse, error)
	EditPayment(ctx context.Context, paymentID string, req dto.UpdatePaymentRequest) (*dto.PaymentMutationResponse, error)
	DeletePayment(ctx context.Context, paymentID string) (*dto.PaymentMutationResponse, error)
	ListPayments(ctx context.Context, documentID string) (*dto.ListPaymentsResponse, error)
}

type reconciliationService struct {
	ServiceParams
}

func NewReconciliationService(params ServiceParams) ReconciliationService {
	return &reconciliationService{ServiceParams: params}
}

func (s *reconciliationService) GetSummary(ctx context.Context, documentID string) (*document.Summary, error) {
	key := summaryCacheKey(ctx, documentID)
	if cached, found := s.Cache.Get(ctx, key); found {
		if summary, ok := cached.(document.Summary); ok {
			return &summary, nil
		}
	}

	doc, err := s.DocumentRepo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	payments, err := s.PaymentRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	summary := document.Reconcile(doc, payments)
	s.Cache.Set(ctx, key, summary, 0)

	// a mutation that committed after the reads above may have invalidated
	// the key before the Set landed. Every mutation moves updated_at, so a
	// changed stamp means the entry just written is already stale.
	current, err := s.DocumentRepo.Get(ctx, documentID)
	if err != nil || !current.UpdatedAt.Equal(doc.UpdatedAt) {
		s.Cache.Delete(ctx, key)
	}
	return &summary, nil
}

func (s *reconciliationService) Recompute(ctx context.Context, documentID string) (*document.Summary, error) {
	var summary document.Summary
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		doc, err := s.DocumentRepo.Get(txCtx, documentID)
		if err != nil {
			return err
		}
		summary, err = syncDocumentBalances(txCtx, s.ServiceParams, doc)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, documentID)
	return &summary, nil
}

func (s *reconciliationService) RequestStatusChange(ctx context.Context, documentID string, req dto.StatusChangeRequest) (*dto.DocumentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		doc     *document.Document
		summary document.Summary
		from    types.DocumentStatus
		changed bool
	)

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		doc, err = s.DocumentRepo.Get(txCtx, documentID)
		if err != nil {
			return err
		}

		if err := document.ValidateTransition(doc.Kind, doc.DocumentStatus, req.Status); err != nil {
			return err
		}

		payments, err := s.PaymentRepo.ListByDocument(txCtx, documentID)
		if err != nil {
			return err
		}
		summary = document.Reconcile(doc, payments)

		if doc.DocumentStatus == req.Status {
			return nil
		}

		now := time.Now().UTC()
		if req.Status == types.DocumentStatusPaid {
			if err := document.CheckPaidGate(summary); err != nil {
				return err
			}
			doc.PaidAt = &now
		}

		from = doc.DocumentStatus
		doc.DocumentStatus = req.Status
		doc.UpdatedAt = now
		doc.UpdatedBy = types.GetUserID(ctx)
		if err := s.DocumentRepo.UpdateStatus(txCtx, doc); err != nil {
			return err
		}

		changed = true
		summary.DocumentStatus = doc.DocumentStatus
		summary.PaidEligible = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.invalidateSummary(ctx, documentID)
		s.Logger.WithContext(ctx).Infow("document status changed",
			"document_id", documentID,
			"from", from,
			"to", doc.DocumentStatus,
		)
		s.publishEvent(ctx, publisher.NewEvent(ctx, types.EventDocumentStatusChanged, entityTypeDocument, documentID, map[string]any{
			"from":        from,
			"to":          doc.DocumentStatus,
			"balance_due": summary.BalanceDue.String(),
		}))
	}

	resp := dto.NewDocumentResponse(doc)
	resp.Summary = &summary
	return resp, nil
}

func (s *reconciliationService) RecordPayment(ctx context.Context, documentID string, req dto.RecordPaymentRequest) (*dto.PaymentMutationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		p       *payment.Payment
		summary document.Summary
	)

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		doc, err := s.DocumentRepo.Get(txCtx, documentID)
		if err != nil {
			return err
		}

		p = req.ToPayment(txCtx, doc.ID)
		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.PaymentRepo.Create(txCtx, p); err != nil {
			return err
		}

		summary, err = syncDocumentBalances(txCtx, s.ServiceParams, doc)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterPaymentMutation(ctx, types.EventPaymentRecorded, p, summary)
	return &dto.PaymentMutationResponse{
		Payment: dto.NewPaymentResponse(p),
		Summary: summary,
	}, nil
}

func (s *reconciliationService) EditPayment(ctx context.Context, paymentID string, req dto.UpdatePaymentRequest) (*dto.PaymentMutationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		p       *payment.Payment
		summary document.Summary
	)

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		p, err = s.PaymentRepo.Get(txCtx, paymentID)
		if err != nil {
			return err
		}

		req.Apply(p)
		if err := p.Validate(); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		p.UpdatedBy = types.GetUserID(ctx)
		if err := s.PaymentRepo.Update(txCtx, p); err != nil {
			return err
		}

		doc, err := s.DocumentRepo.Get(txCtx, p.DocumentID)
		if err != nil {
			return err
		}
		summary, err = syncDocumentBalances(txCtx, s.ServiceParams, doc)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterPaymentMutation(ctx, types.EventPaymentUpdated, p, summary)
	return &dto.PaymentMutationResponse{
		Payment: dto.NewPaymentResponse(p),
		Summary: summary,
	}, nil
}

func (s *reconciliationService) DeletePayment(ctx context.Context, paymentID string) (*dto.PaymentMutationResponse, error) {
	if paymentID == "" {
		return nil, ierr.NewError("payment_id is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation)
	}

	var (
		p       *payment.Payment
		summary document.Summary
	)

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		p, err = s.PaymentRepo.Get(txCtx, paymentID)
		if err != nil {
			return err
		}
		if err := s.PaymentRepo.Delete(txCtx, paymentID); err != nil {
			return err
		}

		doc, err := s.DocumentRepo.Get(txCtx, p.DocumentID)
		if err != nil {
			return err
		}
		summary, err = syncDocumentBalances(txCtx, s.ServiceParams, doc)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterPaymentMutation(ctx, types.EventPaymentDeleted, p, summary)
	return &dto.PaymentMutationResponse{Summary: summary}, nil
}

func (s *reconciliationService) ListPayments(ctx context.Context, documentID string) (*dto.ListPaymentsResponse, error) {
	doc, err := s.DocumentRepo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	payments, err := s.PaymentRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return &dto.ListPaymentsResponse{
		Items:   lo.Map(payments, func(p *payment.Payment, _ int) *dto.PaymentResponse { return dto.NewPaymentResponse(p) }),
		Summary: document.Reconcile(doc, payments),
	}, nil
}

func (s *reconciliationService) afterPaymentMutation(ctx context.Context, name types.FiscalEventName, p *payment.Payment, summary document.Summary) {
	s.invalidateSummary(ctx, p.DocumentID)

	s.Logger.WithContext(ctx).Infow("payment ledger changed",
		"event_name", name,
		"payment_id", p.ID,
		"document_id", p.DocumentID,
		"balance_due", summary.BalanceDue.String(),
		"paid_eligible", summary.PaidEligible,
	)
	if summary.IsOverpaid() {
		s.Logger.WithContext(ctx).Warnw("document overpaid",
			"document_id", p.DocumentID,
			"balance_due", summary.BalanceDue.String(),
		)
	}

	s.publishEvent(ctx, publisher.NewEvent(ctx, name, entityTypePayment, p.ID, map[string]any{
		"document_id":   p.DocumentID,
		"amount":        p.Amount.String(),
		"method":        p.Method,
		"total_paid":    summary.TotalPaid.String(),
		"balance_due":   summary.BalanceDue.String(),
		"paid_eligible": summary.PaidEligible,
	}))
}

func (s *reconciliationService) invalidateSummary(ctx context.Context, documentID string) {
	s.Cache.Delete(ctx, summaryCacheKey(ctx, documentID))
}

func summaryCacheKey(ctx context.Context, documentID string) string {
	return cache.GenerateKey(cache.PrefixReconciliationState, types.GetTenantID(ctx), documentID)
}

// syncDocumentBalances reconciles doc against its live ledger and writes the
// cached balance columns. It must run in the transaction that changed the
// ledger.
func syncDocumentBalances(ctx context.Context, params ServiceParams, doc *document.Document) (document.Summary, error) {
	payments, err := params.PaymentRepo.ListByDocument(ctx, doc.ID)
	if err != nil {
		return document.Summary{}, err
	}

	summary := document.Reconcile(doc, payments)
	doc.ApplySummary(summary)
	doc.UpdatedAt = time.Now().UTC()
	doc.UpdatedBy = types.GetUserID(ctx)
	if err := params.DocumentRepo.UpdateBalances(ctx, doc); err != nil {
		return document.Summary{}, err
	}
	return summary, nil
}
