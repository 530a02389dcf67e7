package service

import (
	"context"
	"time"

	"github.com/facturo/facturo/internal/api/dto"
	"github.com/facturo/facturo/internal/domain/document"
	"github.com/facturo/facturo/internal/domain/payment"
	"github.com/facturo/facturo/internal/domain/sequence"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/publisher"
	"github.com/facturo/facturo/internal/types"
	"github.com/samber/lo"
)

// DocumentService creates invoices and quotes and serves them to list and
// detail views
type DocumentService interface {
	CreateDocument(ctx context.Context, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	GetDocument(ctx context.Context, id string) (*dto.DocumentResponse, error)
	ListDocuments(ctx context.Context, filter *types.DocumentFilter) (*dto.ListDocumentsResponse, error)
}

type documentService struct {
	ServiceParams
}

func NewDocumentService(params ServiceParams) DocumentService {
	return &documentService{ServiceParams: params}
}

func (s *documentService) CreateDocument(ctx context.Context, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc := req.ToDocument(ctx)
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	// the number is reserved before anything is written; without it the
	// document is not saved at all
	var alloc *sequence.Allocation
	if doc.Kind.RequiresFiscalNumber() {
		var err error
		alloc, err = NewSequenceService(s.ServiceParams).AllocateNext(ctx, doc.DocumentTypeID)
		if err != nil {
			return nil, err
		}
		if err := doc.AssignFiscalNumber(alloc.SequenceID, alloc.FormattedNumber); err != nil {
			return nil, err
		}
	}

	var (
		initial *payment.Payment
		summary document.Summary
	)

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.DocumentRepo.Create(txCtx, doc); err != nil {
			return err
		}

		if req.InitialPayment == nil {
			summary = document.Reconcile(doc, nil)
			return nil
		}

		initial = req.InitialPayment.ToPayment(txCtx, doc.ID)
		if err := initial.Validate(); err != nil {
			return err
		}
		if err := s.PaymentRepo.Create(txCtx, initial); err != nil {
			return err
		}

		var err error
		summary, err = syncDocumentBalances(txCtx, s.ServiceParams, doc)
		return err
	})
	if err != nil {
		if alloc != nil {
			s.reportGap(ctx, doc, alloc, err)
		}
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created document",
		"document_id", doc.ID,
		"kind", doc.Kind,
		"fiscal_number", lo.FromPtr(doc.FiscalNumber),
	)
	s.publishEvent(ctx, publisher.NewEvent(ctx, types.EventDocumentCreated, entityTypeDocument, doc.ID, map[string]any{
		"kind":             doc.Kind,
		"document_type_id": doc.DocumentTypeID,
		"fiscal_number":    lo.FromPtr(doc.FiscalNumber),
		"total":            doc.Total.String(),
	}))
	if initial != nil {
		s.publishEvent(ctx, publisher.NewEvent(ctx, types.EventPaymentRecorded, entityTypePayment, initial.ID, map[string]any{
			"document_id":   doc.ID,
			"amount":        initial.Amount.String(),
			"method":        initial.Method,
			"total_paid":    summary.TotalPaid.String(),
			"balance_due":   summary.BalanceDue.String(),
			"paid_eligible": summary.PaidEligible,
		}))
	}

	// marking paid is this workflow's policy; the engine only checks the gate
	if req.AutoMarkPaid && summary.PaidEligible {
		resp, err := NewReconciliationService(s.ServiceParams).RequestStatusChange(ctx, doc.ID, dto.StatusChangeRequest{
			Status: types.DocumentStatusPaid,
		})
		if err != nil {
			// the document and its payment are already saved
			s.Logger.WithContext(ctx).Warnw("failed to auto mark document paid",
				"document_id", doc.ID,
				"error", err,
			)
		} else {
			return resp, nil
		}
	}

	resp := dto.NewDocumentResponse(doc)
	resp.Summary = &summary
	return resp, nil
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*dto.DocumentResponse, error) {
	if id == "" {
		return nil, ierr.NewError("document_id is required").
			WithHint("Document ID is required").
			Mark(ierr.ErrValidation)
	}

	doc, err := s.DocumentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.expireIfDue(ctx, doc, time.Now().UTC()); err != nil {
		return nil, err
	}

	summary, err := NewReconciliationService(s.ServiceParams).GetSummary(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := dto.NewDocumentResponse(doc)
	resp.Summary = summary
	return resp, nil
}

func (s *documentService) ListDocuments(ctx context.Context, filter *types.DocumentFilter) (*dto.ListDocumentsResponse, error) {
	if filter == nil {
		filter = types.NewDocumentFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	docs, err := s.DocumentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.DocumentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, doc := range docs {
		if err := s.expireIfDue(ctx, doc, now); err != nil {
			return nil, err
		}
	}

	return &dto.ListDocumentsResponse{
		Items:      lo.Map(docs, func(doc *document.Document, _ int) *dto.DocumentResponse { return dto.NewDocumentResponse(doc) }),
		Pagination: types.NewPaginationResponse(total, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

// expireIfDue persists the lazy move of an overdue quote to expired
func (s *documentService) expireIfDue(ctx context.Context, doc *document.Document, now time.Time) error {
	from := doc.DocumentStatus
	if !doc.ExpireIfDue(now) {
		return nil
	}

	doc.UpdatedBy = types.GetUserID(ctx)
	if err := s.DocumentRepo.UpdateStatus(ctx, doc); err != nil {
		return err
	}

	s.Cache.Delete(ctx, summaryCacheKey(ctx, doc.ID))
	s.publishEvent(ctx, publisher.NewEvent(ctx, types.EventDocumentStatusChanged, entityTypeDocument, doc.ID, map[string]any{
		"from":   from,
		"to":     doc.DocumentStatus,
		"reason": "expired",
	}))
	return nil
}

// reportGap records a fiscal number that was reserved but never attached to
// a saved document. The number stays consumed.
func (s *documentService) reportGap(ctx context.Context, doc *document.Document, alloc *sequence.Allocation, cause error) {
	s.Logger.WithContext(ctx).Warnw("fiscal number consumed without a document",
		"sequence_id", alloc.SequenceID,
		"number", alloc.Number,
		"formatted_number", alloc.FormattedNumber,
		"document_id", doc.ID,
		"error", cause,
	)
	s.publishEvent(ctx, publisher.NewEvent(ctx, types.EventFiscalNumberGap, entityTypeSequence, alloc.SequenceID, map[string]any{
		"number":           alloc.Number,
		"formatted_number": alloc.FormattedNumber,
		"document_id":      doc.ID,
		"document_type_id": doc.DocumentTypeID,
		"reason":           cause.Error(),
	}))
}
