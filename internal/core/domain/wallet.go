package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a recipient's settled, withdrawable funds.
// Balance only increases via confirmed-donation settlement and only decreases
// via withdrawal reservation; it never goes negative.
type Wallet struct {
	ID            uuid.UUID `json:"id"`
	RecipientID   uuid.UUID `json:"recipient_id"`
	Balance       int64     `json:"balance"`        // In smallest currency unit
	TotalReceived int64     `json:"total_received"` // Lifetime gross donations, monotone
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewWallet creates a zero-balance wallet for a recipient.
func NewWallet(recipientID uuid.UUID) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		ID:          uuid.New(),
		RecipientID: recipientID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
