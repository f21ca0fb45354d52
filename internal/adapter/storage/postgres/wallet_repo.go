package postgres

import (
	"context"
	"errors"
	"fmt"

	"donation-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, recipient_id, balance, total_received, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.RecipientID, &w.Balance, &w.TotalReceived,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// CreateIfAbsent inserts a wallet for the recipient unless one exists.
// Concurrent first-access races collapse onto the single existing row.
func (r *WalletRepo) CreateIfAbsent(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (recipient_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.RecipientID, w.Balance, w.TotalReceived,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// CreateIfAbsentTx is CreateIfAbsent within an open transaction.
func (r *WalletRepo) CreateIfAbsentTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (recipient_id) DO NOTHING`

	_, err := tx.Exec(ctx, query,
		w.ID, w.RecipientID, w.Balance, w.TotalReceived,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet in tx: %w", err)
	}
	return nil
}

// GetByRecipient fetches a wallet by recipient ID (non-locking read).
func (r *WalletRepo) GetByRecipient(ctx context.Context, recipientID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE recipient_id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, recipientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by recipient: %w", err)
	}
	return w, nil
}

// GetByRecipientForUpdate fetches a wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByRecipientForUpdate(ctx context.Context, tx pgx.Tx, recipientID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE recipient_id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, recipientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// Credit adds net to the balance and gross to the lifetime total within a
// transaction.
func (r *WalletRepo) Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, net, gross int64) error {
	query := `UPDATE wallets
		SET balance = balance + $1, total_received = total_received + $2, updated_at = NOW()
		WHERE id = $3`

	tag, err := tx.Exec(ctx, query, net, gross, walletID)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// Debit subtracts amount from the balance. The balance guard in the WHERE
// clause rejects overdrafts at the database, so concurrent debits can never
// drive the balance negative.
func (r *WalletRepo) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (bool, error) {
	query := `UPDATE wallets
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1`

	tag, err := tx.Exec(ctx, query, amount, walletID)
	if err != nil {
		return false, fmt.Errorf("debit wallet: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
