package postgres

import (
	"context"

	"donation-ledger/internal/core/domain"
	"donation-ledger/internal/core/ports"
)

type providerEventRepo struct {
	pool Pool
}

// NewProviderEventRepo creates a PostgreSQL-backed ProviderEventRepository.
func NewProviderEventRepo(pool Pool) ports.ProviderEventRepository {
	return &providerEventRepo{pool: pool}
}

func (r *providerEventRepo) Create(ctx context.Context, e *domain.ProviderEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO provider_events (id, tx_ref, event_type, status, signature_valid, outcome, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.TxRef, e.EventType, e.Status, e.SignatureValid,
		string(e.Outcome), e.Payload, e.CreatedAt,
	)
	return err
}
