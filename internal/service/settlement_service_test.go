package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"donation-ledger/internal/core/domain"
	"donation-ledger/internal/core/ports"
	"donation-ledger/internal/core/ports/mocks"
	"donation-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type settlementTestDeps struct {
	svc          *SettlementServiceImpl
	donationRepo *mocks.MockDonationRepository
	walletRepo   *mocks.MockWalletRepository
	eventRepo    *mocks.MockProviderEventRepository
	provider     *mocks.MockPaymentProvider
	sigSvc       *mocks.MockSignatureService
	dedup        *mocks.MockEventDedup
	idempCache   *mocks.MockIdempotencyCache
	transactor   *mocks.MockDBTransactor
	ctrl         *gomock.Controller
}

func setupSettlementService(t *testing.T) *settlementTestDeps {
	ctrl := gomock.NewController(t)
	d := &settlementTestDeps{
		donationRepo: mocks.NewMockDonationRepository(ctrl),
		walletRepo:   mocks.NewMockWalletRepository(ctrl),
		eventRepo:    mocks.NewMockProviderEventRepository(ctrl),
		provider:     mocks.NewMockPaymentProvider(ctrl),
		sigSvc:       mocks.NewMockSignatureService(ctrl),
		dedup:        mocks.NewMockEventDedup(ctrl),
		idempCache:   mocks.NewMockIdempotencyCache(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewSettlementService(
		d.donationRepo, d.walletRepo, d.eventRepo, d.provider,
		d.sigSvc, d.dedup, d.idempCache, d.transactor,
		decimal.NewFromFloat(0.10), zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func pendingDonation(recipientID *uuid.UUID) *domain.Donation {
	return &domain.Donation{
		ID:          uuid.New(),
		TxRef:       "tx-1700000000000-deadbeef",
		DonorName:   "Ada",
		DonorEmail:  "ada@example.com",
		Amount:      500,
		RecipientID: recipientID,
		Status:      domain.DonationStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// ==================== Confirm Tests ====================

func TestSettlementService_Confirm_SuccessCreditsWallet(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	walletID := uuid.New()
	donation := pendingDonation(&recipientID)
	tx := &mockTx{}

	cacheKey := domain.ConfirmationCacheKey(donation.TxRef)

	d.idempCache.EXPECT().Get(ctx, cacheKey).Return("", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.donationRepo.EXPECT().GetByTxRefForUpdate(ctx, tx, donation.TxRef).Return(donation, nil)
	d.donationRepo.EXPECT().
		MarkTerminal(ctx, tx, donation.ID, domain.DonationStatusSuccessful, gomock.Any()).
		Return(true, nil)
	d.walletRepo.EXPECT().CreateIfAbsentTx(ctx, tx, gomock.Any()).Return(nil)
	d.walletRepo.EXPECT().GetByRecipientForUpdate(ctx, tx, recipientID).Return(&domain.Wallet{
		ID:          walletID,
		RecipientID: recipientID,
	}, nil)
	// 500 gross at 10% commission: 450 net
	d.walletRepo.EXPECT().Credit(ctx, tx, walletID, int64(450), int64(500)).Return(nil)
	d.idempCache.EXPECT().
		Set(ctx, cacheKey, string(domain.DonationStatusSuccessful), confirmationTTL).
		Return(nil)

	result, err := d.svc.Confirm(ctx, donation.TxRef, ports.ConfirmationSucceeded)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.DonationStatusSuccessful, result.Status)
	require.NotNil(t, result.SettledAt)
}

func TestSettlementService_Confirm_FailedOutcomeNoCredit(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	donation := pendingDonation(&recipientID)
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return("", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.donationRepo.EXPECT().GetByTxRefForUpdate(ctx, tx, donation.TxRef).Return(donation, nil)
	d.donationRepo.EXPECT().
		MarkTerminal(ctx, tx, donation.ID, domain.DonationStatusFailed, gomock.Any()).
		Return(true, nil)
	// No wallet calls expected at all.
	d.idempCache.EXPECT().Set(ctx, gomock.Any(), string(domain.DonationStatusFailed), confirmationTTL).Return(nil)

	result, err := d.svc.Confirm(ctx, donation.TxRef, ports.ConfirmationFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusFailed, result.Status)
}

func TestSettlementService_Confirm_AlreadyTerminalIsIdempotent(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	donation := pendingDonation(&recipientID)
	donation.Status = domain.DonationStatusSuccessful
	settled := time.Now().UTC()
	donation.SettledAt = &settled
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return("", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.donationRepo.EXPECT().GetByTxRefForUpdate(ctx, tx, donation.TxRef).Return(donation, nil)

	// A late FAILED report must not revert the settled donation.
	result, err := d.svc.Confirm(ctx, donation.TxRef, ports.ConfirmationFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusSuccessful, result.Status)
}

func TestSettlementService_Confirm_CacheHitShortCircuits(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	donation := pendingDonation(&recipientID)
	donation.Status = domain.DonationStatusSuccessful

	d.idempCache.EXPECT().
		Get(ctx, domain.ConfirmationCacheKey(donation.TxRef)).
		Return(string(domain.DonationStatusSuccessful), nil)
	d.donationRepo.EXPECT().GetByTxRef(ctx, donation.TxRef).Return(donation, nil)

	result, err := d.svc.Confirm(ctx, donation.TxRef, ports.ConfirmationSucceeded)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusSuccessful, result.Status)
}

func TestSettlementService_Confirm_NotFound(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return("", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.donationRepo.EXPECT().GetByTxRefForUpdate(ctx, tx, "tx-missing").Return(nil, nil)

	_, err := d.svc.Confirm(ctx, "tx-missing", ports.ConfirmationSucceeded)
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "DON_003", appErr.Code)
}

func TestSettlementService_Confirm_LostRaceReturnsSettledRow(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	donation := pendingDonation(&recipientID)
	tx := &mockTx{}

	winner := *donation
	winner.Status = domain.DonationStatusSuccessful

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return("", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.donationRepo.EXPECT().GetByTxRefForUpdate(ctx, tx, donation.TxRef).Return(donation, nil)
	d.donationRepo.EXPECT().
		MarkTerminal(ctx, tx, donation.ID, domain.DonationStatusSuccessful, gomock.Any()).
		Return(false, nil)
	d.donationRepo.EXPECT().GetByTxRef(ctx, donation.TxRef).Return(&winner, nil)

	result, err := d.svc.Confirm(ctx, donation.TxRef, ports.ConfirmationSucceeded)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusSuccessful, result.Status)
}

func TestSettlementService_Confirm_NoRecipientSkipsWallet(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	donation := pendingDonation(nil)
	tx := &mockTx{}

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return("", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.donationRepo.EXPECT().GetByTxRefForUpdate(ctx, tx, donation.TxRef).Return(donation, nil)
	d.donationRepo.EXPECT().
		MarkTerminal(ctx, tx, donation.ID, domain.DonationStatusSuccessful, gomock.Any()).
		Return(true, nil)
	d.idempCache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), confirmationTTL).Return(nil)

	result, err := d.svc.Confirm(ctx, donation.TxRef, ports.ConfirmationSucceeded)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusSuccessful, result.Status)
}

// ==================== HandleProviderEvent Tests ====================

func webhookPayload(t *testing.T, event ports.WebhookEvent) []byte {
	t.Helper()
	b, err := json.Marshal(event)
	require.NoError(t, err)
	return b
}

func TestSettlementService_HandleProviderEvent_Processed(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	donation := pendingDonation(&recipientID)
	tx := &mockTx{}

	payload := webhookPayload(t, ports.WebhookEvent{
		EventID: "evt_001",
		Event:   "charge.completed",
		TxRef:   donation.TxRef,
		Status:  "successful",
	})

	d.sigSvc.EXPECT().Verify(payload, "sig_valid").Return(true)
	d.dedup.EXPECT().CheckAndSet(ctx, "evt_001", eventDedupTTL).Return(true, nil)

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return("", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.donationRepo.EXPECT().GetByTxRefForUpdate(ctx, tx, donation.TxRef).Return(donation, nil)
	d.donationRepo.EXPECT().
		MarkTerminal(ctx, tx, donation.ID, domain.DonationStatusSuccessful, gomock.Any()).
		Return(true, nil)
	d.walletRepo.EXPECT().CreateIfAbsentTx(ctx, tx, gomock.Any()).Return(nil)
	d.walletRepo.EXPECT().GetByRecipientForUpdate(ctx, tx, recipientID).
		Return(&domain.Wallet{ID: uuid.New(), RecipientID: recipientID}, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, gomock.Any(), int64(450), int64(500)).Return(nil)
	d.idempCache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), confirmationTTL).Return(nil)

	d.eventRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	record, err := d.svc.HandleProviderEvent(ctx, payload, "sig_valid")
	require.NoError(t, err)
	assert.Equal(t, domain.EventOutcomeProcessed, record.Outcome)
	assert.True(t, record.SignatureValid)
	assert.Equal(t, donation.TxRef, record.TxRef)
}

func TestSettlementService_HandleProviderEvent_InvalidSignature(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payload := []byte(`{"tx_ref":"tx-x","status":"successful"}`)

	d.sigSvc.EXPECT().Verify(payload, "sig_bad").Return(false)
	d.eventRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.HandleProviderEvent(ctx, payload, "sig_bad")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "SEC_001", appErr.Code)
}

func TestSettlementService_HandleProviderEvent_Duplicate(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payload := webhookPayload(t, ports.WebhookEvent{
		EventID: "evt_001",
		Event:   "charge.completed",
		TxRef:   "tx-1",
		Status:  "successful",
	})

	d.sigSvc.EXPECT().Verify(payload, "sig_valid").Return(true)
	d.dedup.EXPECT().CheckAndSet(ctx, "evt_001", eventDedupTTL).Return(false, nil)
	d.eventRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	record, err := d.svc.HandleProviderEvent(ctx, payload, "sig_valid")
	require.NoError(t, err)
	assert.Equal(t, domain.EventOutcomeDuplicate, record.Outcome)
}

func TestSettlementService_HandleProviderEvent_MalformedPayload(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payload := []byte(`{not json`)

	d.sigSvc.EXPECT().Verify(payload, "sig_valid").Return(true)
	d.eventRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.HandleProviderEvent(ctx, payload, "sig_valid")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "DON_001", appErr.Code)
}

func TestSettlementService_HandleProviderEvent_MissingTxRef(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payload := webhookPayload(t, ports.WebhookEvent{
		EventID: "evt_002",
		Event:   "charge.completed",
		Status:  "successful",
	})

	d.sigSvc.EXPECT().Verify(payload, "sig_valid").Return(true)
	d.eventRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.HandleProviderEvent(ctx, payload, "sig_valid")
	require.Error(t, err)
}

func TestSettlementService_HandleProviderEvent_IntermediateStatusIgnored(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payload := webhookPayload(t, ports.WebhookEvent{
		EventID: "evt_003",
		Event:   "charge.pending",
		TxRef:   "tx-1",
		Status:  "pending",
	})

	// No repo or transactor expectations: a non-final status must not
	// transition the donation. The genuine terminal webhook still has to
	// land later, so the event ID is not claimed either.
	d.sigSvc.EXPECT().Verify(payload, "sig_valid").Return(true)
	d.eventRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	record, err := d.svc.HandleProviderEvent(ctx, payload, "sig_valid")
	require.NoError(t, err)
	assert.Equal(t, domain.EventOutcomeIgnored, record.Outcome)
}

func TestSettlementService_HandleProviderEvent_CancelledMarksFailed(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	donation := pendingDonation(nil)
	tx := &mockTx{}

	payload := webhookPayload(t, ports.WebhookEvent{
		EventID: "evt_004",
		Event:   "charge.cancelled",
		TxRef:   donation.TxRef,
		Status:  "cancelled",
	})

	d.sigSvc.EXPECT().Verify(payload, "sig_valid").Return(true)
	d.dedup.EXPECT().CheckAndSet(ctx, "evt_004", eventDedupTTL).Return(true, nil)

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return("", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.donationRepo.EXPECT().GetByTxRefForUpdate(ctx, tx, donation.TxRef).Return(donation, nil)
	d.donationRepo.EXPECT().
		MarkTerminal(ctx, tx, donation.ID, domain.DonationStatusFailed, gomock.Any()).
		Return(true, nil)
	d.idempCache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), confirmationTTL).Return(nil)

	d.eventRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	record, err := d.svc.HandleProviderEvent(ctx, payload, "sig_valid")
	require.NoError(t, err)
	assert.Equal(t, domain.EventOutcomeProcessed, record.Outcome)
}

func TestSettlementService_HandleProviderEvent_ErrorReleasesDedupClaim(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payload := webhookPayload(t, ports.WebhookEvent{
		EventID: "evt_005",
		Event:   "charge.completed",
		TxRef:   "tx-unknown",
		Status:  "successful",
	})

	d.sigSvc.EXPECT().Verify(payload, "sig_valid").Return(true)
	d.dedup.EXPECT().CheckAndSet(ctx, "evt_005", eventDedupTTL).Return(true, nil)

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return("", nil)
	d.transactor.EXPECT().Begin(ctx).Return(&mockTx{}, nil)
	d.donationRepo.EXPECT().GetByTxRefForUpdate(ctx, gomock.Any(), "tx-unknown").Return(nil, nil)

	// The claim must be released so the provider's retry is reprocessed.
	d.dedup.EXPECT().Clear(ctx, "evt_005").Return(nil)
	d.eventRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.HandleProviderEvent(ctx, payload, "sig_valid")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "DON_003", appErr.Code)
}

// ==================== GetDonation Tests ====================

func TestSettlementService_GetDonation_TerminalSkipsProvider(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	donation := pendingDonation(&recipientID)
	donation.Status = domain.DonationStatusFailed

	d.donationRepo.EXPECT().GetByTxRef(ctx, donation.TxRef).Return(donation, nil)

	result, err := d.svc.GetDonation(ctx, donation.TxRef)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusFailed, result.Status)
}

func TestSettlementService_GetDonation_PendingPollConfirms(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	donation := pendingDonation(&recipientID)
	tx := &mockTx{}

	d.donationRepo.EXPECT().GetByTxRef(ctx, donation.TxRef).Return(donation, nil)
	d.provider.EXPECT().VerifyTransaction(ctx, donation.TxRef).Return(&ports.VerifyResult{
		Final:     true,
		Succeeded: true,
		Amount:    donation.Amount,
		Currency:  "NGN",
	}, nil)

	d.idempCache.EXPECT().Get(ctx, gomock.Any()).Return("", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.donationRepo.EXPECT().GetByTxRefForUpdate(ctx, tx, donation.TxRef).Return(donation, nil)
	d.donationRepo.EXPECT().
		MarkTerminal(ctx, tx, donation.ID, domain.DonationStatusSuccessful, gomock.Any()).
		Return(true, nil)
	d.walletRepo.EXPECT().CreateIfAbsentTx(ctx, tx, gomock.Any()).Return(nil)
	d.walletRepo.EXPECT().GetByRecipientForUpdate(ctx, tx, recipientID).
		Return(&domain.Wallet{ID: uuid.New(), RecipientID: recipientID}, nil)
	d.walletRepo.EXPECT().Credit(ctx, tx, gomock.Any(), int64(450), int64(500)).Return(nil)
	d.idempCache.EXPECT().Set(ctx, gomock.Any(), gomock.Any(), confirmationTTL).Return(nil)

	result, err := d.svc.GetDonation(ctx, donation.TxRef)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusSuccessful, result.Status)
}

func TestSettlementService_GetDonation_ProviderDownReturnsPending(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	donation := pendingDonation(&recipientID)

	d.donationRepo.EXPECT().GetByTxRef(ctx, donation.TxRef).Return(donation, nil)
	d.provider.EXPECT().VerifyTransaction(ctx, donation.TxRef).Return(nil, errors.New("timeout"))

	result, err := d.svc.GetDonation(ctx, donation.TxRef)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusPending, result.Status)
}

func TestSettlementService_GetDonation_ProviderNotFinal(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	donation := pendingDonation(&recipientID)

	d.donationRepo.EXPECT().GetByTxRef(ctx, donation.TxRef).Return(donation, nil)
	d.provider.EXPECT().VerifyTransaction(ctx, donation.TxRef).Return(&ports.VerifyResult{Final: false}, nil)

	result, err := d.svc.GetDonation(ctx, donation.TxRef)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationStatusPending, result.Status)
}

// ==================== GetOrCreateWallet Tests ====================

func TestSettlementService_GetOrCreateWallet_Existing(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()
	wallet := &domain.Wallet{ID: uuid.New(), RecipientID: recipientID, Balance: 900}

	d.walletRepo.EXPECT().GetByRecipient(ctx, recipientID).Return(wallet, nil)

	result, err := d.svc.GetOrCreateWallet(ctx, recipientID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), result.Balance)
}

func TestSettlementService_GetOrCreateWallet_CreatesOnFirstAccess(t *testing.T) {
	d := setupSettlementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recipientID := uuid.New()

	d.walletRepo.EXPECT().GetByRecipient(ctx, recipientID).Return(nil, nil)
	d.walletRepo.EXPECT().CreateIfAbsent(ctx, gomock.Any()).Return(nil)
	d.walletRepo.EXPECT().GetByRecipient(ctx, recipientID).Return(&domain.Wallet{
		ID:          uuid.New(),
		RecipientID: recipientID,
	}, nil)

	result, err := d.svc.GetOrCreateWallet(ctx, recipientID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Balance)
}
