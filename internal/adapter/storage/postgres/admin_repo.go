package postgres

import (
	"context"
	"errors"
	"fmt"

	"donation-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AdminRepo implements ports.AdminRepository.
type AdminRepo struct {
	pool Pool
}

// NewAdminRepo creates a new AdminRepo.
func NewAdminRepo(pool Pool) *AdminRepo {
	return &AdminRepo{pool: pool}
}

// Create inserts a new admin account.
func (r *AdminRepo) Create(ctx context.Context, a *domain.Admin) error {
	query := `INSERT INTO admins (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, a.ID, a.Username, a.PasswordHash, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// GetByUsername fetches an admin by username.
func (r *AdminRepo) GetByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	query := `SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`

	a := &domain.Admin{}
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return a, nil
}
