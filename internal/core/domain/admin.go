package domain

import (
	"time"

	"github.com/google/uuid"
)

// Admin represents an operator account used to settle withdrawal requests
// and read platform statistics. Accounts are provisioned out of band.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Argon2id, never expose
	CreatedAt    time.Time `json:"created_at"`
}
