package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"donation-ledger/internal/core/domain"
)

// DBTransactor begins database transactions for multi-step writes.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DonationStats aggregates donation counts and settled amounts for reporting.
type DonationStats struct {
	Total              int64 `json:"total"`
	Pending            int64 `json:"pending"`
	Successful         int64 `json:"successful"`
	Failed             int64 `json:"failed"`
	GrossSettled       int64 `json:"gross_settled"`
	CommissionRetained int64 `json:"commission_retained"`
	NetCredited        int64 `json:"net_credited"`
}

// DonationRepository persists donations.
type DonationRepository interface {
	Create(ctx context.Context, d *domain.Donation) error
	// GetByTxRef returns nil, nil if not found.
	GetByTxRef(ctx context.Context, txRef string) (*domain.Donation, error)
	// GetByTxRefForUpdate locks the donation row within tx.
	// Returns nil, nil if not found.
	GetByTxRefForUpdate(ctx context.Context, tx pgx.Tx, txRef string) (*domain.Donation, error)
	// MarkTerminal flips a PENDING donation to a terminal status. Returns
	// false if the donation was already terminal, so callers can detect a
	// lost confirmation race without re-reading.
	MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.DonationStatus, settledAt time.Time) (bool, error)
	// GetStats aggregates over donations created at or after periodStart.
	// A nil periodStart means all time.
	GetStats(ctx context.Context, periodStart *time.Time) (*DonationStats, error)
}

// WalletRepository persists recipient wallets.
type WalletRepository interface {
	// CreateIfAbsent inserts a wallet for the recipient unless one exists.
	CreateIfAbsent(ctx context.Context, w *domain.Wallet) error
	// CreateIfAbsentTx is CreateIfAbsent within an open transaction.
	CreateIfAbsentTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error
	// GetByRecipient returns nil, nil if not found.
	GetByRecipient(ctx context.Context, recipientID uuid.UUID) (*domain.Wallet, error)
	// GetByRecipientForUpdate locks the wallet row within tx.
	// Returns nil, nil if not found.
	GetByRecipientForUpdate(ctx context.Context, tx pgx.Tx, recipientID uuid.UUID) (*domain.Wallet, error)
	// Credit adds net to the balance and gross to the lifetime total.
	Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, net, gross int64) error
	// Debit subtracts amount from the balance only if sufficient funds
	// remain. Returns false when the guard fails.
	Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (bool, error)
}

// WithdrawalListParams filters and pages withdrawal listings.
type WithdrawalListParams struct {
	Status *domain.WithdrawalStatus
	Limit  int
	Offset int
}

// WithdrawalRepository persists withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, w *domain.WithdrawalRequest) error
	// GetByID returns nil, nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error)
	// GetByIDForUpdate locks the withdrawal row within tx.
	// Returns nil, nil if not found.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.WithdrawalRequest, error)
	// MarkProcessed flips a PENDING withdrawal to a terminal status.
	// Returns false if it was already terminal.
	MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, processedAt time.Time) (bool, error)
	List(ctx context.Context, params WithdrawalListParams) ([]*domain.WithdrawalRequest, int64, error)
}

// AdminRepository persists operator accounts.
type AdminRepository interface {
	Create(ctx context.Context, a *domain.Admin) error
	// GetByUsername returns nil, nil if not found.
	GetByUsername(ctx context.Context, username string) (*domain.Admin, error)
}

// ProviderEventRepository records inbound webhook deliveries.
type ProviderEventRepository interface {
	Create(ctx context.Context, e *domain.ProviderEvent) error
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}
