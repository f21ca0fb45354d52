package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventOutcome classifies how an inbound provider webhook delivery was handled.
type EventOutcome string

const (
	EventOutcomeProcessed EventOutcome = "PROCESSED"
	EventOutcomeDuplicate EventOutcome = "DUPLICATE"
	EventOutcomeRejected  EventOutcome = "REJECTED"
	EventOutcomeIgnored   EventOutcome = "IGNORED"
	EventOutcomeError     EventOutcome = "ERROR"
)

// ProviderEvent records a single webhook delivery from the payment provider.
// Every delivery is logged, including rejected and duplicate ones, so the
// ledger can be reconciled against the provider's event stream.
type ProviderEvent struct {
	ID             uuid.UUID    `json:"id"`
	TxRef          string       `json:"tx_ref"`
	EventType      string       `json:"event_type"`
	Status         string       `json:"status"` // Provider-asserted outcome, verbatim
	SignatureValid bool         `json:"signature_valid"`
	Outcome        EventOutcome `json:"outcome"`
	Payload        []byte       `json:"-"` // Raw request body
	CreatedAt      time.Time    `json:"created_at"`
}
