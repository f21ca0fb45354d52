package service

import (
	"context"
	"time"

	"donation-ledger/internal/core/domain"
	"donation-ledger/internal/core/ports"
	"donation-ledger/pkg/apperror"

	"github.com/shopspring/decimal"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	donationRepo   ports.DonationRepository
	commissionRate decimal.Decimal
}

// NewReportingService creates a new reporting service.
func NewReportingService(donationRepo ports.DonationRepository, commissionRate decimal.Decimal) ports.ReportingService {
	return &reportingService{
		donationRepo:   donationRepo,
		commissionRate: commissionRate,
	}
}

// GetStats returns aggregated donation statistics for the period.
func (s *reportingService) GetStats(ctx context.Context, period ports.StatsPeriod) (*ports.DonationStats, error) {
	var periodStart *time.Time

	switch period {
	case ports.StatsPeriodDay:
		t := time.Now().AddDate(0, 0, -1)
		periodStart = &t
	case ports.StatsPeriodWeek:
		t := time.Now().AddDate(0, 0, -7)
		periodStart = &t
	case ports.StatsPeriodMonth:
		t := time.Now().AddDate(0, -1, 0)
		periodStart = &t
	case ports.StatsPeriodAll, "":
		// No time filter
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}

	stats, err := s.donationRepo.GetStats(ctx, periodStart)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	// Settled amounts derive from the gross: the commission schedule is
	// uniform, so aggregate net and commission are computed, not stored.
	stats.NetCredited = domain.NetAmount(stats.GrossSettled, s.commissionRate)
	stats.CommissionRetained = stats.GrossSettled - stats.NetCredited

	return stats, nil
}
