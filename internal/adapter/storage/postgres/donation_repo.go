package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"donation-ledger/internal/core/domain"
	"donation-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DonationRepo implements ports.DonationRepository.
type DonationRepo struct {
	pool Pool
}

// NewDonationRepo creates a new DonationRepo.
func NewDonationRepo(pool Pool) *DonationRepo {
	return &DonationRepo{pool: pool}
}

const donationColumns = `id, tx_ref, donor_name, donor_email, amount, message, recipient_id, status, checkout_url, created_at, settled_at`

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	d := &domain.Donation{}
	var status string
	err := row.Scan(
		&d.ID, &d.TxRef, &d.DonorName, &d.DonorEmail, &d.Amount,
		&d.Message, &d.RecipientID, &status, &d.CheckoutURL,
		&d.CreatedAt, &d.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	d.Status = domain.DonationStatus(status)
	return d, nil
}

// Create inserts a new donation into the database.
func (r *DonationRepo) Create(ctx context.Context, d *domain.Donation) error {
	query := `INSERT INTO donations (` + donationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.TxRef, d.DonorName, d.DonorEmail, d.Amount,
		d.Message, d.RecipientID, string(d.Status), d.CheckoutURL,
		d.CreatedAt, d.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// GetByTxRef fetches a donation by its transaction reference (non-locking read).
func (r *DonationRepo) GetByTxRef(ctx context.Context, txRef string) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE tx_ref = $1`

	d, err := scanDonation(r.pool.QueryRow(ctx, query, txRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get donation by tx_ref: %w", err)
	}
	return d, nil
}

// GetByTxRefForUpdate fetches a donation with pessimistic locking.
// This MUST be called within a transaction.
func (r *DonationRepo) GetByTxRefForUpdate(ctx context.Context, tx pgx.Tx, txRef string) (*domain.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE tx_ref = $1 FOR UPDATE`

	d, err := scanDonation(tx.QueryRow(ctx, query, txRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get donation for update: %w", err)
	}
	return d, nil
}

// MarkTerminal flips a PENDING donation to a terminal status. The status guard
// in the WHERE clause makes the transition one-shot: a donation already
// settled reports zero affected rows and the caller sees applied=false.
func (r *DonationRepo) MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.DonationStatus, settledAt time.Time) (bool, error) {
	query := `UPDATE donations SET status = $1, settled_at = $2 WHERE id = $3 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, string(status), settledAt, id)
	if err != nil {
		return false, fmt.Errorf("mark donation terminal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetStats aggregates donation counts and settled amounts. A nil periodStart
// spans all time. Settled amounts are computed from SUCCESSFUL donations with
// a non-null recipient; anonymous platform donations settle nowhere.
func (r *DonationRepo) GetStats(ctx context.Context, periodStart *time.Time) (*ports.DonationStats, error) {
	query := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'PENDING'),
		COUNT(*) FILTER (WHERE status = 'SUCCESSFUL'),
		COUNT(*) FILTER (WHERE status = 'FAILED'),
		COALESCE(SUM(amount) FILTER (WHERE status = 'SUCCESSFUL'), 0)
		FROM donations
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)`

	s := &ports.DonationStats{}
	err := r.pool.QueryRow(ctx, query, periodStart).Scan(
		&s.Total, &s.Pending, &s.Successful, &s.Failed, &s.GrossSettled,
	)
	if err != nil {
		return nil, fmt.Errorf("get donation stats: %w", err)
	}
	return s, nil
}
