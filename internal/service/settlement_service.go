package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"donation-ledger/internal/core/domain"
	"donation-ledger/internal/core/ports"
	"donation-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	confirmationTTL = 24 * time.Hour
	eventDedupTTL   = 24 * time.Hour
)

// SettlementServiceImpl implements ports.SettlementService. Webhook
// deliveries and status polls both funnel into Confirm, the single idempotent
// transition from PENDING to a terminal status.
type SettlementServiceImpl struct {
	donationRepo   ports.DonationRepository
	walletRepo     ports.WalletRepository
	eventRepo      ports.ProviderEventRepository
	provider       ports.PaymentProvider
	sigSvc         ports.SignatureService
	dedup          ports.EventDedup
	idempCache     ports.IdempotencyCache
	transactor     ports.DBTransactor
	commissionRate decimal.Decimal
	log            zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	donationRepo ports.DonationRepository,
	walletRepo ports.WalletRepository,
	eventRepo ports.ProviderEventRepository,
	provider ports.PaymentProvider,
	sigSvc ports.SignatureService,
	dedup ports.EventDedup,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	commissionRate decimal.Decimal,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		donationRepo:   donationRepo,
		walletRepo:     walletRepo,
		eventRepo:      eventRepo,
		provider:       provider,
		sigSvc:         sigSvc,
		dedup:          dedup,
		idempCache:     idempCache,
		transactor:     transactor,
		commissionRate: commissionRate,
		log:            log,
	}
}

// Confirm applies a terminal outcome to a donation exactly once. A donation
// already settled is returned as-is, whatever outcome the caller reports:
// terminal states never revert and funds never move twice.
func (s *SettlementServiceImpl) Confirm(ctx context.Context, txRef string, outcome ports.ConfirmationOutcome) (*domain.Donation, error) {
	cacheKey := domain.ConfirmationCacheKey(txRef)

	// Layer 1: Redis check. A cached terminal outcome means the transition
	// already ran; skip the lock entirely.
	cached, err := s.idempCache.Get(ctx, cacheKey)
	if err != nil {
		s.log.Warn().Err(err).Str("tx_ref", txRef).Msg("redis confirmation check failed, falling through to DB")
	}
	if cached != "" {
		donation, err := s.donationRepo.GetByTxRef(ctx, txRef)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("get settled donation: %w", err))
		}
		if donation == nil {
			return nil, apperror.ErrDonationNotFound()
		}
		return donation, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	donation, err := s.donationRepo.GetByTxRefForUpdate(ctx, dbTx, txRef)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock donation: %w", err))
	}
	if donation == nil {
		return nil, apperror.ErrDonationNotFound()
	}
	if donation.IsTerminal() {
		return donation, nil
	}

	status := domain.DonationStatusFailed
	if outcome == ports.ConfirmationSucceeded {
		status = domain.DonationStatusSuccessful
	}
	settledAt := time.Now().UTC()

	// The status guard inside MarkTerminal is the authoritative gate: even
	// if two confirmers get this far, only one transition applies.
	applied, err := s.donationRepo.MarkTerminal(ctx, dbTx, donation.ID, status, settledAt)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("mark donation terminal: %w", err))
	}
	if !applied {
		settled, err := s.donationRepo.GetByTxRef(ctx, txRef)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("reread settled donation: %w", err))
		}
		if settled == nil {
			return nil, apperror.ErrDonationNotFound()
		}
		return settled, nil
	}

	if status == domain.DonationStatusSuccessful && donation.RecipientID != nil {
		if err := s.settleFunds(ctx, dbTx, donation); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-process: cache the terminal outcome (best-effort).
	if err := s.idempCache.Set(ctx, cacheKey, string(status), confirmationTTL); err != nil {
		s.log.Warn().Err(err).Str("tx_ref", txRef).Msg("failed to cache confirmation outcome")
	}

	donation.Status = status
	donation.SettledAt = &settledAt

	s.log.Info().
		Str("tx_ref", txRef).
		Str("status", string(status)).
		Int64("amount", donation.Amount).
		Msg("donation settled")

	return donation, nil
}

// settleFunds credits the recipient's wallet inside the open transaction.
// The wallet is created lazily on first credit; net and commission are split
// from the gross at the configured rate.
func (s *SettlementServiceImpl) settleFunds(ctx context.Context, dbTx pgx.Tx, donation *domain.Donation) error {
	wallet := domain.NewWallet(*donation.RecipientID)
	if err := s.walletRepo.CreateIfAbsentTx(ctx, dbTx, wallet); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("ensure wallet: %w", err))
	}

	wallet, err := s.walletRepo.GetByRecipientForUpdate(ctx, dbTx, *donation.RecipientID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return apperror.InternalError(fmt.Errorf("wallet missing after ensure for recipient %s", donation.RecipientID))
	}

	net := domain.NetAmount(donation.Amount, s.commissionRate)
	if err := s.walletRepo.Credit(ctx, dbTx, wallet.ID, net, donation.Amount); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("credit wallet: %w", err))
	}

	s.log.Info().
		Str("tx_ref", donation.TxRef).
		Str("recipient_id", donation.RecipientID.String()).
		Int64("gross", donation.Amount).
		Int64("net", net).
		Msg("wallet credited")

	return nil
}

// HandleProviderEvent verifies the webhook signature, dedupes the event, and
// confirms the referenced donation. Every delivery is recorded, including
// rejected and duplicate ones.
func (s *SettlementServiceImpl) HandleProviderEvent(ctx context.Context, payload []byte, signature string) (*domain.ProviderEvent, error) {
	record := &domain.ProviderEvent{
		ID:        uuid.New(),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	if !s.sigSvc.Verify(payload, signature) {
		record.Outcome = domain.EventOutcomeRejected
		s.recordEvent(ctx, record)
		s.log.Warn().Msg("webhook rejected: invalid signature")
		return nil, apperror.ErrInvalidSignature()
	}
	record.SignatureValid = true

	var event ports.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		record.Outcome = domain.EventOutcomeRejected
		s.recordEvent(ctx, record)
		return nil, apperror.Validation("invalid webhook payload")
	}
	record.TxRef = event.TxRef
	record.EventType = event.Event
	record.Status = event.Status

	if event.TxRef == "" {
		record.Outcome = domain.EventOutcomeRejected
		s.recordEvent(ctx, record)
		return nil, apperror.Validation("webhook payload missing tx_ref")
	}

	// Same status mapping as the verify poll: only a known-final status may
	// transition the donation. An intermediate update (pending, queued) is
	// acknowledged without touching the ledger; the terminal webhook or a
	// later status poll settles it.
	var outcome ports.ConfirmationOutcome
	switch strings.ToLower(event.Status) {
	case "successful":
		outcome = ports.ConfirmationSucceeded
	case "failed", "cancelled":
		outcome = ports.ConfirmationFailed
	default:
		record.Outcome = domain.EventOutcomeIgnored
		s.recordEvent(ctx, record)
		s.log.Info().
			Str("tx_ref", event.TxRef).
			Str("status", event.Status).
			Msg("non-final webhook status, no transition")
		return record, nil
	}

	// Dedup on the provider's event ID. Fail-open: a Redis outage must not
	// drop confirmations, the status guard still protects the ledger.
	if event.EventID != "" {
		fresh, err := s.dedup.CheckAndSet(ctx, event.EventID, eventDedupTTL)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", event.EventID).Msg("event dedup check failed, continuing")
		} else if !fresh {
			record.Outcome = domain.EventOutcomeDuplicate
			s.recordEvent(ctx, record)
			return record, nil
		}
	}

	if _, err := s.Confirm(ctx, event.TxRef, outcome); err != nil {
		// Release the dedup claim: the provider retries the same event ID,
		// and the retry must be reprocessed, not acknowledged as a duplicate.
		if event.EventID != "" {
			if derr := s.dedup.Clear(ctx, event.EventID); derr != nil {
				s.log.Warn().Err(derr).Str("event_id", event.EventID).Msg("failed to release event dedup claim")
			}
		}
		record.Outcome = domain.EventOutcomeError
		s.recordEvent(ctx, record)
		return nil, err
	}

	record.Outcome = domain.EventOutcomeProcessed
	s.recordEvent(ctx, record)
	return record, nil
}

// recordEvent persists the delivery record best-effort. Losing an event row
// must never fail the webhook.
func (s *SettlementServiceImpl) recordEvent(ctx context.Context, e *domain.ProviderEvent) {
	if s.eventRepo == nil {
		return
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("tx_ref", e.TxRef).Msg("failed to persist provider event")
	}
}

// GetDonation returns the donation for txRef. A still-pending donation
// triggers a provider poll; a final provider answer runs the same Confirm
// transition the webhook path uses.
func (s *SettlementServiceImpl) GetDonation(ctx context.Context, txRef string) (*domain.Donation, error) {
	donation, err := s.donationRepo.GetByTxRef(ctx, txRef)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get donation: %w", err))
	}
	if donation == nil {
		return nil, apperror.ErrDonationNotFound()
	}
	if donation.IsTerminal() {
		return donation, nil
	}

	result, err := s.provider.VerifyTransaction(ctx, txRef)
	if err != nil {
		// Provider unavailable: report what the ledger knows.
		s.log.Warn().Err(err).Str("tx_ref", txRef).Msg("provider verify failed, returning pending state")
		return donation, nil
	}
	if !result.Final {
		return donation, nil
	}

	outcome := ports.ConfirmationFailed
	if result.Succeeded {
		outcome = ports.ConfirmationSucceeded
	}
	return s.Confirm(ctx, txRef, outcome)
}

// GetOrCreateWallet returns the recipient's wallet, creating an empty one on
// first access.
func (s *SettlementServiceImpl) GetOrCreateWallet(ctx context.Context, recipientID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByRecipient(ctx, recipientID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	if err := s.walletRepo.CreateIfAbsent(ctx, domain.NewWallet(recipientID)); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet: %w", err))
	}

	wallet, err = s.walletRepo.GetByRecipient(ctx, recipientID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reread wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.InternalError(fmt.Errorf("wallet missing after create for recipient %s", recipientID))
	}
	return wallet, nil
}
