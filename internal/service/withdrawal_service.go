package service

import (
	"context"
	"fmt"
	"time"

	"donation-ledger/internal/core/domain"
	"donation-ledger/internal/core/ports"
	"donation-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WithdrawalServiceImpl implements ports.WithdrawalService. Funds are
// reserved when the request is created: the wallet is debited up front and
// restored only if an admin rejects the request.
type WithdrawalServiceImpl struct {
	withdrawalRepo ports.WithdrawalRepository
	walletRepo     ports.WalletRepository
	transactor     ports.DBTransactor
	minWithdrawal  int64
	log            zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	withdrawalRepo ports.WithdrawalRepository,
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	minWithdrawal int64,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		withdrawalRepo: withdrawalRepo,
		walletRepo:     walletRepo,
		transactor:     transactor,
		minWithdrawal:  minWithdrawal,
		log:            log,
	}
}

// Request reserves amount from the recipient's wallet and records a pending
// withdrawal. The debit carries its own balance guard, so two concurrent
// requests can never overdraw the wallet.
func (s *WithdrawalServiceImpl) Request(ctx context.Context, recipientID uuid.UUID, amount int64) (*domain.WithdrawalRequest, error) {
	if amount <= s.minWithdrawal {
		return nil, apperror.ErrBelowMinimumWithdrawal(s.minWithdrawal)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByRecipientForUpdate(ctx, dbTx, recipientID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	ok, err := s.walletRepo.Debit(ctx, dbTx, wallet.ID, amount)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("debit wallet: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInsufficientFunds()
	}

	request := &domain.WithdrawalRequest{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Amount:      amount,
		Status:      domain.WithdrawalStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.withdrawalRepo.Create(ctx, dbTx, request); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create withdrawal: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", request.ID.String()).
		Str("recipient_id", recipientID.String()).
		Int64("amount", amount).
		Msg("withdrawal requested, funds reserved")

	return request, nil
}

// Approve marks a pending withdrawal as completed. The reserved funds have
// already left the wallet, so nothing else moves.
func (s *WithdrawalServiceImpl) Approve(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	return s.process(ctx, id, domain.WithdrawalStatusCompleted, false)
}

// Reject marks a pending withdrawal as failed and restores the reserved
// amount to the wallet.
func (s *WithdrawalServiceImpl) Reject(ctx context.Context, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	return s.process(ctx, id, domain.WithdrawalStatusFailed, true)
}

func (s *WithdrawalServiceImpl) process(ctx context.Context, id uuid.UUID, status domain.WithdrawalStatus, restoreFunds bool) (*domain.WithdrawalRequest, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	request, err := s.withdrawalRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock withdrawal: %w", err))
	}
	if request == nil {
		return nil, apperror.ErrWithdrawalNotFound()
	}
	if request.IsTerminal() {
		return nil, apperror.ErrWithdrawalAlreadyProcessed()
	}

	processedAt := time.Now().UTC()
	applied, err := s.withdrawalRepo.MarkProcessed(ctx, dbTx, id, status, processedAt)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("mark withdrawal processed: %w", err))
	}
	if !applied {
		return nil, apperror.ErrWithdrawalAlreadyProcessed()
	}

	if restoreFunds {
		wallet, err := s.walletRepo.GetByRecipientForUpdate(ctx, dbTx, request.RecipientID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return nil, apperror.InternalError(fmt.Errorf("wallet missing for recipient %s", request.RecipientID))
		}
		// Restore the reservation only. total_received is untouched: the
		// funds were already counted when the donation settled.
		if err := s.walletRepo.Credit(ctx, dbTx, wallet.ID, request.Amount, 0); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("restore reserved funds: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	request.Status = status
	request.ProcessedAt = &processedAt

	s.log.Info().
		Str("withdrawal_id", id.String()).
		Str("status", string(status)).
		Bool("funds_restored", restoreFunds).
		Msg("withdrawal processed")

	return request, nil
}

// List returns withdrawal requests matching params plus the total count.
func (s *WithdrawalServiceImpl) List(ctx context.Context, params ports.WithdrawalListParams) ([]*domain.WithdrawalRequest, int64, error) {
	requests, total, err := s.withdrawalRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list withdrawals: %w", err))
	}
	return requests, total, nil
}
