package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DonationStatus represents the lifecycle state of a donation.
type DonationStatus string

const (
	DonationStatusPending    DonationStatus = "PENDING"
	DonationStatusSuccessful DonationStatus = "SUCCESSFUL"
	DonationStatusFailed     DonationStatus = "FAILED"
)

// Defaults applied when the donor leaves identity fields empty.
const (
	DefaultDonorName  = "Anonymous"
	DefaultDonorEmail = "anonymous@example.com"
)

// Donation represents a single pledge tied to one provider transaction reference.
// A donation is created PENDING and transitions exactly once to a terminal state.
type Donation struct {
	ID          uuid.UUID      `json:"id"`
	TxRef       string         `json:"tx_ref"`
	DonorName   string         `json:"donor_name"`
	DonorEmail  string         `json:"donor_email"`
	Amount      int64          `json:"amount"` // In smallest currency unit
	Message     *string        `json:"message,omitempty"`
	RecipientID *uuid.UUID     `json:"recipient_id,omitempty"` // Absent for anonymous/legacy donations
	Status      DonationStatus `json:"status"`
	CheckoutURL *string        `json:"checkout_url,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	SettledAt   *time.Time     `json:"settled_at,omitempty"`
}

// IsTerminal returns true if the donation reached a final state.
// Terminal donations never revert and must not be settled again.
func (d *Donation) IsTerminal() bool {
	return d.Status == DonationStatusSuccessful || d.Status == DonationStatusFailed
}

// NewTxRef generates a caller-visible transaction reference used to correlate
// provider callbacks back to a donation. Format: tx-<unix_millis>-<8 hex chars>.
func NewTxRef() (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generating tx_ref suffix: %w", err)
	}
	return fmt.Sprintf("tx-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix)), nil
}

// ConfirmationCacheKey builds the idempotency cache key for a confirmation result.
func ConfirmationCacheKey(txRef string) string {
	return "confirm:" + txRef
}
