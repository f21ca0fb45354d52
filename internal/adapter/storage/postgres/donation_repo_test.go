package postgres

import (
	"context"
	"testing"
	"time"

	"donation-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDonation(recipientID *uuid.UUID) *domain.Donation {
	return &domain.Donation{
		ID:          uuid.New(),
		TxRef:       "tx-1700000000000-abcd1234",
		DonorName:   "Ada",
		DonorEmail:  "ada@example.com",
		Amount:      500,
		RecipientID: recipientID,
		Status:      domain.DonationStatusPending,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func donationColumnNames() []string {
	return []string{"id", "tx_ref", "donor_name", "donor_email", "amount", "message", "recipient_id", "status", "checkout_url", "created_at", "settled_at"}
}

func donationRow(d *domain.Donation) *pgxmock.Rows {
	return pgxmock.NewRows(donationColumnNames()).AddRow(
		d.ID, d.TxRef, d.DonorName, d.DonorEmail, d.Amount,
		d.Message, d.RecipientID, string(d.Status), d.CheckoutURL,
		d.CreatedAt, d.SettledAt,
	)
}

func TestDonationRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDonationRepo(mock)
	recipientID := uuid.New()
	d := newTestDonation(&recipientID)

	mock.ExpectExec("INSERT INTO donations").
		WithArgs(d.ID, d.TxRef, d.DonorName, d.DonorEmail, d.Amount,
			d.Message, d.RecipientID, string(d.Status), d.CheckoutURL,
			d.CreatedAt, d.SettledAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), d)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepo_GetByTxRef(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDonationRepo(mock)
	d := newTestDonation(nil)

	mock.ExpectQuery("SELECT .+ FROM donations WHERE tx_ref").
		WithArgs(d.TxRef).
		WillReturnRows(donationRow(d))

	result, err := repo.GetByTxRef(context.Background(), d.TxRef)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, d.ID, result.ID)
	assert.Equal(t, domain.DonationStatusPending, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepo_GetByTxRef_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDonationRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM donations WHERE tx_ref").
		WithArgs("tx-missing").
		WillReturnRows(pgxmock.NewRows(donationColumnNames()))

	result, err := repo.GetByTxRef(context.Background(), "tx-missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepo_GetByTxRefForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDonationRepo(mock)
	d := newTestDonation(nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM donations WHERE tx_ref .+ FOR UPDATE").
		WithArgs(d.TxRef).
		WillReturnRows(donationRow(d))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByTxRefForUpdate(context.Background(), tx, d.TxRef)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, d.TxRef, result.TxRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepo_MarkTerminal_Applied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDonationRepo(mock)
	id := uuid.New()
	settledAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE donations SET status").
		WithArgs(string(domain.DonationStatusSuccessful), settledAt, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	applied, err := repo.MarkTerminal(context.Background(), tx, id, domain.DonationStatusSuccessful, settledAt)
	assert.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepo_MarkTerminal_AlreadyTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDonationRepo(mock)
	id := uuid.New()
	settledAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE donations SET status").
		WithArgs(string(domain.DonationStatusFailed), settledAt, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	applied, err := repo.MarkTerminal(context.Background(), tx, id, domain.DonationStatusFailed, settledAt)
	assert.NoError(t, err)
	assert.False(t, applied, "terminal donations must never transition again")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDonationRepo_GetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDonationRepo(mock)

	mock.ExpectQuery("SELECT").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count", "pending", "successful", "failed", "gross"}).
			AddRow(int64(10), int64(2), int64(7), int64(1), int64(35000)))

	stats, err := repo.GetStats(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(7), stats.Successful)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(35000), stats.GrossSettled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
