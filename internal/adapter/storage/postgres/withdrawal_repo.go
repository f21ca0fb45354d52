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

// WithdrawalRepo implements ports.WithdrawalRepository.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, recipient_id, amount, status, created_at, processed_at`

func scanWithdrawal(row pgx.Row) (*domain.WithdrawalRequest, error) {
	w := &domain.WithdrawalRequest{}
	var status string
	err := row.Scan(
		&w.ID, &w.RecipientID, &w.Amount, &status,
		&w.CreatedAt, &w.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	w.Status = domain.WithdrawalStatus(status)
	return w, nil
}

// Create inserts a withdrawal request within a transaction, alongside the
// reservation debit on the wallet.
func (r *WithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.WithdrawalRequest) error {
	query := `INSERT INTO withdrawal_requests (` + withdrawalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.RecipientID, w.Amount, string(w.Status),
		w.CreatedAt, w.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// GetByID fetches a withdrawal request (non-locking read).
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`

	w, err := scanWithdrawal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get withdrawal by id: %w", err)
	}
	return w, nil
}

// GetByIDForUpdate fetches a withdrawal request with pessimistic locking.
// This MUST be called within a transaction.
func (r *WithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`

	w, err := scanWithdrawal(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get withdrawal for update: %w", err)
	}
	return w, nil
}

// MarkProcessed flips a PENDING withdrawal to a terminal status. The status
// guard makes the transition one-shot under concurrent settlement attempts.
func (r *WithdrawalRepo) MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, processedAt time.Time) (bool, error) {
	query := `UPDATE withdrawal_requests SET status = $1, processed_at = $2
		WHERE id = $3 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, string(status), processedAt, id)
	if err != nil {
		return false, fmt.Errorf("mark withdrawal processed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns withdrawal requests newest-first, with the total count for
// pagination.
func (r *WithdrawalRepo) List(ctx context.Context, params ports.WithdrawalListParams) ([]*domain.WithdrawalRequest, int64, error) {
	var statusFilter *string
	if params.Status != nil {
		s := string(*params.Status)
		statusFilter = &s
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM withdrawal_requests
		WHERE ($1::text IS NULL OR status = $1)`
	if err := r.pool.QueryRow(ctx, countQuery, statusFilter).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count withdrawals: %w", err)
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, statusFilter, limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	var result []*domain.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan withdrawal: %w", err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate withdrawals: %w", err)
	}
	return result, total, nil
}
