package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"donation-ledger/internal/core/domain"
)

// InitializeRequest carries what the payment provider needs to open a
// checkout session for a donation.
type InitializeRequest struct {
	TxRef      string
	Amount     int64
	Currency   string
	DonorName  string
	DonorEmail string
	ReturnURL  string
}

// CheckoutSession is the provider's answer to a successful initialization.
type CheckoutSession struct {
	CheckoutURL string
}

// VerifyResult is the provider's current view of a transaction.
// Final reports whether the provider considers the transaction settled
// either way; Succeeded is only meaningful when Final is true.
type VerifyResult struct {
	Final     bool
	Succeeded bool
	Amount    int64
	Currency  string
}

// PaymentProvider talks to the external payment gateway.
type PaymentProvider interface {
	InitializeTransaction(ctx context.Context, req InitializeRequest) (*CheckoutSession, error)
	VerifyTransaction(ctx context.Context, txRef string) (*VerifyResult, error)
}

// SignatureService signs and verifies webhook payloads.
type SignatureService interface {
	Sign(payload []byte) string
	Verify(payload []byte, signature string) bool
}

// HashService hashes and verifies admin passwords.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// TokenClaims are the validated claims of an admin access token.
type TokenClaims struct {
	AdminID  uuid.UUID
	Username string
}

// TokenService issues and validates admin access tokens.
type TokenService interface {
	Generate(adminID uuid.UUID, username string) (string, time.Time, error)
	Validate(token string) (*TokenClaims, error)
}

// IdempotencyCache caches terminal confirmation outcomes so repeated
// webhook deliveries and polls can short-circuit without touching Postgres.
type IdempotencyCache interface {
	// Get returns "", nil on a cache miss.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// EventDedup tracks provider event IDs that have already been accepted.
type EventDedup interface {
	// CheckAndSet returns true if eventID was not seen before and marks it
	// seen atomically.
	CheckAndSet(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	// Clear releases a claimed event ID so a redelivery is processed again.
	Clear(ctx context.Context, eventID string) error
}

// DonateInput is everything a donor submits to start a donation.
type DonateInput struct {
	Amount      int64
	DonorName   string
	DonorEmail  string
	Message     string
	RecipientID *uuid.UUID
}

// IntakeService opens donations against the payment provider.
type IntakeService interface {
	// Donate validates input, opens a provider checkout session, and
	// records the pending donation.
	Donate(ctx context.Context, in DonateInput) (*domain.Donation, error)
}

// ConfirmationOutcome is the settled result a confirmation path reports.
type ConfirmationOutcome string

const (
	ConfirmationSucceeded ConfirmationOutcome = "SUCCEEDED"
	ConfirmationFailed    ConfirmationOutcome = "FAILED"
)

// WebhookEvent is the parsed body of a provider webhook delivery.
type WebhookEvent struct {
	EventID string `json:"event_id"`
	Event   string `json:"event"`
	TxRef   string `json:"tx_ref"`
	Status  string `json:"status"`
}

// SettlementService confirms donations and settles funds into wallets.
// Webhook deliveries and status polls both funnel into the same
// idempotent transition.
type SettlementService interface {
	// Confirm applies a terminal outcome to a donation exactly once.
	// Repeat calls return the already-settled donation without
	// re-crediting.
	Confirm(ctx context.Context, txRef string, outcome ConfirmationOutcome) (*domain.Donation, error)
	// HandleProviderEvent verifies the webhook signature, dedupes the
	// event, and confirms the referenced donation.
	HandleProviderEvent(ctx context.Context, payload []byte, signature string) (*domain.ProviderEvent, error)
	// GetDonation returns the donation, first polling the provider for a
	// terminal outcome when the donation is still pending.
	GetDonation(ctx context.Context, txRef string) (*domain.Donation, error)
	// GetOrCreateWallet returns the recipient's wallet, creating an empty
	// one on first access.
	GetOrCreateWallet(ctx context.Context, recipientID uuid.UUID) (*domain.Wallet, error)
}

// WithdrawalService manages the withdrawal lifecycle.
type WithdrawalService interface {
	// Request reserves funds and records a pending withdrawal.
	Request(ctx context.Context, recipientID uuid.UUID, amount int64) (*domain.WithdrawalRequest, error)
	// Approve marks a pending withdrawal completed. Reserved funds stay
	// debited.
	Approve(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)
	// Reject marks a pending withdrawal failed and restores the reserved
	// funds to the wallet.
	Reject(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)
	List(ctx context.Context, params WithdrawalListParams) ([]*domain.WithdrawalRequest, int64, error)
}

// AuthService authenticates operator accounts.
type AuthService interface {
	// Login returns a signed access token and its expiry on valid credentials.
	Login(ctx context.Context, username, password string) (string, time.Time, error)
}

// StatsPeriod selects the reporting window.
type StatsPeriod string

const (
	StatsPeriodDay   StatsPeriod = "day"
	StatsPeriodWeek  StatsPeriod = "week"
	StatsPeriodMonth StatsPeriod = "month"
	StatsPeriodAll   StatsPeriod = "all"
)

// ReportingService exposes aggregated donation statistics.
type ReportingService interface {
	GetStats(ctx context.Context, period StatsPeriod) (*DonationStats, error)
}

// AuditService records audit log entries asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
