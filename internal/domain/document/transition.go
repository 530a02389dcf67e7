package document

import (
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/types"
	"github.com/samber/lo"
)

var invoiceTransitions = map[types.DocumentStatus][]types.DocumentStatus{
	types.DocumentStatusDraft:   {types.DocumentStatusSent, types.DocumentStatusPaid},
	types.DocumentStatusSent:    {types.DocumentStatusPaid, types.DocumentStatusOverdue},
	types.DocumentStatusOverdue: {types.DocumentStatusPaid},
	types.DocumentStatusPaid:    {},
}

var quoteTransitions = map[types.DocumentStatus][]types.DocumentStatus{
	types.DocumentStatusDraft:    {types.DocumentStatusSent, types.DocumentStatusExpired},
	types.DocumentStatusSent:     {types.DocumentStatusAccepted, types.DocumentStatusRejected, types.DocumentStatusExpired},
	types.DocumentStatusAccepted: {types.DocumentStatusRejected, types.DocumentStatusExpired},
	types.DocumentStatusRejected: {},
	types.DocumentStatusExpired:  {},
}

func transitionsFor(kind types.DocumentKind) map[types.DocumentStatus][]types.DocumentStatus {
	if kind == types.DocumentKindQuote {
		return quoteTransitions
	}
	return invoiceTransitions
}

// CanTransition reports whether the graph of kind has an edge from -> to
func CanTransition(kind types.DocumentKind, from, to types.DocumentStatus) bool {
	allowed, ok := transitionsFor(kind)[from]
	if !ok {
		return false
	}
	return lo.Contains(allowed, to)
}

// IsTerminal reports whether no edge leaves status
func IsTerminal(kind types.DocumentKind, status types.DocumentStatus) bool {
	return len(transitionsFor(kind)[status]) == 0
}

// ValidateTransition checks the edge only. The balance gate on paid is
// applied by the reconciliation service.
func ValidateTransition(kind types.DocumentKind, from, to types.DocumentStatus) error {
	if err := to.ValidateFor(kind); err != nil {
		return err
	}
	if from == to || CanTransition(kind, from, to) {
		return nil
	}
	return ierr.NewError("invalid status transition").
		WithHintf("A %s cannot move from %s to %s", kind, from, to).
		WithReportableDetails(map[string]any{
			"kind":           kind,
			"current_status": from,
			"new_status":     to,
			"allowed":        transitionsFor(kind)[from],
		}).
		Mark(ierr.ErrInvalidStatusTransition)
}
