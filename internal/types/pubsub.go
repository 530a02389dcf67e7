package types

// FiscalEventName identifies an audit event emitted by the numbering and
// reconciliation services
type FiscalEventName string

const (
	EventSequenceCreated     FiscalEventName = "sequence.created"
	EventSequenceUpdated     FiscalEventName = "sequence.updated"
	EventSequenceActivated   FiscalEventName = "sequence.activated"
	EventSequenceDeactivated FiscalEventName = "sequence.deactivated"
	EventSequenceReset       FiscalEventName = "sequence.reset"
	EventNumberAllocated     FiscalEventName = "sequence.number_allocated"
	EventFiscalNumberGap     FiscalEventName = "fiscal_number.gap"

	EventPaymentRecorded FiscalEventName = "payment.recorded"
	EventPaymentUpdated  FiscalEventName = "payment.updated"
	EventPaymentDeleted  FiscalEventName = "payment.deleted"

	EventDocumentCreated       FiscalEventName = "document.created"
	EventDocumentStatusChanged FiscalEventName = "document.status_changed"
)

func (n FiscalEventName) String() string {
	return string(n)
}
