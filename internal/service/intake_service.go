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

// IntakeServiceImpl implements ports.IntakeService.
type IntakeServiceImpl struct {
	donationRepo ports.DonationRepository
	provider     ports.PaymentProvider
	currency     string
	returnURL    string
	log          zerolog.Logger
}

// NewIntakeService creates a new IntakeServiceImpl.
func NewIntakeService(
	donationRepo ports.DonationRepository,
	provider ports.PaymentProvider,
	currency string,
	returnURL string,
	log zerolog.Logger,
) *IntakeServiceImpl {
	return &IntakeServiceImpl{
		donationRepo: donationRepo,
		provider:     provider,
		currency:     currency,
		returnURL:    returnURL,
		log:          log,
	}
}

// Donate validates the input, opens a provider checkout session, and records
// the pending donation. The provider call happens before the insert: a
// rejected initialization leaves no ledger row behind.
func (s *IntakeServiceImpl) Donate(ctx context.Context, in ports.DonateInput) (*domain.Donation, error) {
	if in.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	donorName := in.DonorName
	if donorName == "" {
		donorName = domain.DefaultDonorName
	}
	donorEmail := in.DonorEmail
	if donorEmail == "" {
		donorEmail = domain.DefaultDonorEmail
	}

	txRef, err := domain.NewTxRef()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate tx_ref: %w", err))
	}

	session, err := s.provider.InitializeTransaction(ctx, ports.InitializeRequest{
		TxRef:      txRef,
		Amount:     in.Amount,
		Currency:   s.currency,
		DonorName:  donorName,
		DonorEmail: donorEmail,
		ReturnURL:  s.returnURL,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("tx_ref", txRef).Msg("donation intake: provider initialize failed")
		return nil, err
	}

	var message *string
	if in.Message != "" {
		message = &in.Message
	}

	donation := &domain.Donation{
		ID:          uuid.New(),
		TxRef:       txRef,
		DonorName:   donorName,
		DonorEmail:  donorEmail,
		Amount:      in.Amount,
		Message:     message,
		RecipientID: in.RecipientID,
		Status:      domain.DonationStatusPending,
		CheckoutURL: &session.CheckoutURL,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.donationRepo.Create(ctx, donation); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create donation: %w", err))
	}

	s.log.Info().
		Str("tx_ref", txRef).
		Int64("amount", in.Amount).
		Msg("donation recorded, awaiting confirmation")

	return donation, nil
}
