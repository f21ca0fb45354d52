package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"donation-ledger/internal/core/domain"
	"donation-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Donation Repo ---

type inMemoryDonationRepo struct {
	mu        sync.RWMutex
	donations map[uuid.UUID]*domain.Donation
}

func newInMemoryDonationRepo() *inMemoryDonationRepo {
	return &inMemoryDonationRepo{donations: make(map[uuid.UUID]*domain.Donation)}
}

func (r *inMemoryDonationRepo) Create(ctx context.Context, d *domain.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.donations {
		if existing.TxRef == d.TxRef {
			return fmt.Errorf("tx_ref already exists")
		}
	}
	cp := *d
	r.donations[d.ID] = &cp
	return nil
}

func (r *inMemoryDonationRepo) GetByTxRef(ctx context.Context, txRef string) (*domain.Donation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.donations {
		if d.TxRef == txRef {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryDonationRepo) GetByTxRefForUpdate(ctx context.Context, tx pgx.Tx, txRef string) (*domain.Donation, error) {
	return r.GetByTxRef(ctx, txRef)
}

// MarkTerminal mirrors the conditional UPDATE: the transition applies only if
// the donation is still pending, and exactly one caller wins.
func (r *inMemoryDonationRepo) MarkTerminal(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.DonationStatus, settledAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.donations[id]
	if !ok {
		return false, nil
	}
	if d.Status != domain.DonationStatusPending {
		return false, nil
	}
	d.Status = status
	d.SettledAt = &settledAt
	return true, nil
}

func (r *inMemoryDonationRepo) GetStats(ctx context.Context, since *time.Time) (*ports.DonationStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &ports.DonationStats{}
	for _, d := range r.donations {
		if since != nil && d.CreatedAt.Before(*since) {
			continue
		}
		stats.Total++
		switch d.Status {
		case domain.DonationStatusPending:
			stats.Pending++
		case domain.DonationStatusSuccessful:
			stats.Successful++
			stats.GrossSettled += d.Amount
		case domain.DonationStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) CreateIfAbsent(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.RecipientID == w.RecipientID {
			return nil
		}
	}
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) CreateIfAbsentTx(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	return r.CreateIfAbsent(ctx, w)
}

func (r *inMemoryWalletRepo) GetByRecipient(ctx context.Context, recipientID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.RecipientID == recipientID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByRecipientForUpdate(ctx context.Context, tx pgx.Tx, recipientID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByRecipient(ctx, recipientID)
}

func (r *inMemoryWalletRepo) Credit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, net, gross int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance += net
	w.TotalReceived += gross
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// Debit mirrors the guarded UPDATE: the balance check and the decrement are a
// single atomic step.
func (r *inMemoryWalletRepo) Debit(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return false, fmt.Errorf("wallet not found")
	}
	if w.Balance < amount {
		return false, nil
	}
	w.Balance -= amount
	w.UpdatedAt = time.Now().UTC()
	return true, nil
}

// --- In-Memory Withdrawal Repo ---

type inMemoryWithdrawalRepo struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.WithdrawalRequest
}

func newInMemoryWithdrawalRepo() *inMemoryWithdrawalRepo {
	return &inMemoryWithdrawalRepo{requests: make(map[uuid.UUID]*domain.WithdrawalRequest)}
}

func (r *inMemoryWithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.requests[w.ID] = &cp
	return nil
}

func (r *inMemoryWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWithdrawalRepo) MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.WithdrawalStatus, processedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.requests[id]
	if !ok {
		return false, nil
	}
	if w.Status != domain.WithdrawalStatusPending {
		return false, nil
	}
	w.Status = status
	w.ProcessedAt = &processedAt
	return true, nil
}

func (r *inMemoryWithdrawalRepo) List(ctx context.Context, params ports.WithdrawalListParams) ([]*domain.WithdrawalRequest, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*domain.WithdrawalRequest
	for _, w := range r.requests {
		if params.Status != nil && w.Status != *params.Status {
			continue
		}
		cp := *w
		result = append(result, &cp)
	}
	total := int64(len(result))

	// Simple pagination
	if params.Offset >= len(result) {
		return []*domain.WithdrawalRequest{}, total, nil
	}
	end := params.Offset + params.Limit
	if params.Limit <= 0 || end > len(result) {
		end = len(result)
	}
	return result[params.Offset:end], total, nil
}

// --- In-Memory Admin Repo ---

type inMemoryAdminRepo struct {
	mu     sync.RWMutex
	admins map[uuid.UUID]*domain.Admin
}

func newInMemoryAdminRepo() *inMemoryAdminRepo {
	return &inMemoryAdminRepo{admins: make(map[uuid.UUID]*domain.Admin)}
}

func (r *inMemoryAdminRepo) Create(ctx context.Context, a *domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.admins {
		if existing.Username == a.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *a
	r.admins[a.ID] = &cp
	return nil
}

func (r *inMemoryAdminRepo) GetByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.admins {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Provider Event Repo ---

type inMemoryProviderEventRepo struct {
	mu     sync.RWMutex
	events []*domain.ProviderEvent
}

func newInMemoryProviderEventRepo() *inMemoryProviderEventRepo {
	return &inMemoryProviderEventRepo{}
}

func (r *inMemoryProviderEventRepo) Create(ctx context.Context, e *domain.ProviderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *inMemoryProviderEventRepo) byOutcome(outcome domain.EventOutcome) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.events {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
