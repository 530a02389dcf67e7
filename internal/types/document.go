package types

import (
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/samber/lo"
)

// DocumentKind decides which status graph a document follows
type DocumentKind string

const (
	DocumentKindInvoice DocumentKind = "invoice"
	DocumentKindQuote   DocumentKind = "quote"
)

func (k DocumentKind) String() string {
	return string(k)
}

func (k DocumentKind) Validate() error {
	allowed := []DocumentKind{
		DocumentKindInvoice,
		DocumentKindQuote,
	}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid document kind").
			WithHintf("Document kind must be one of %v", allowed).
			WithReportableDetails(map[string]any{
				"kind": k,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RequiresFiscalNumber reports whether documents of this kind must be issued
// a number from an active sequence before they are persisted
func (k DocumentKind) RequiresFiscalNumber() bool {
	return k == DocumentKindInvoice
}

// DocumentStatus is the legal status of an invoice or quote
type DocumentStatus string

const (
	DocumentStatusDraft   DocumentStatus = "draft"
	DocumentStatusSent    DocumentStatus = "sent"
	DocumentStatusPaid    DocumentStatus = "paid"
	DocumentStatusOverdue DocumentStatus = "overdue"

	// quote only
	DocumentStatusAccepted DocumentStatus = "accepted"
	DocumentStatusRejected DocumentStatus = "rejected"
	DocumentStatusExpired  DocumentStatus = "expired"
)

func (s DocumentStatus) String() string {
	return string(s)
}

// StatusesFor returns the statuses a document of the given kind may hold
func StatusesFor(kind DocumentKind) []DocumentStatus {
	switch kind {
	case DocumentKindInvoice:
		return []DocumentStatus{
			DocumentStatusDraft,
			DocumentStatusSent,
			DocumentStatusPaid,
			DocumentStatusOverdue,
		}
	case DocumentKindQuote:
		return []DocumentStatus{
			DocumentStatusDraft,
			DocumentStatusSent,
			DocumentStatusAccepted,
			DocumentStatusRejected,
			DocumentStatusExpired,
		}
	}
	return nil
}

// ValidateFor checks that the status belongs to the given document kind
func (s DocumentStatus) ValidateFor(kind DocumentKind) error {
	allowed := StatusesFor(kind)
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid document status").
			WithHintf("Status for a %s must be one of %v", kind, allowed).
			WithReportableDetails(map[string]any{
				"kind":   kind,
				"status": s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
