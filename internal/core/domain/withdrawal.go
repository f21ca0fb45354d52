package domain

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus represents the lifecycle state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "PENDING"
	WithdrawalStatusCompleted WithdrawalStatus = "COMPLETED"
	WithdrawalStatusFailed    WithdrawalStatus = "FAILED"
)

// WithdrawalRequest represents a recipient's request to pay out wallet funds.
// The requested amount is reserved (debited from the wallet) at creation time
// and restored if an admin rejects the request.
type WithdrawalRequest struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	Amount      int64            `json:"amount"` // In smallest currency unit
	Status      WithdrawalStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the request was already approved or rejected.
func (w *WithdrawalRequest) IsTerminal() bool {
	return w.Status == WithdrawalStatusCompleted || w.Status == WithdrawalStatusFailed
}
