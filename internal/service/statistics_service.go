package service

import (
	"context"
	"time"

	"taller/internal/apperror"
	"taller/internal/model"
	"taller/internal/repository"

	"github.com/rs/zerolog/log"
)

const topMaterialsLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
	// GetLedgerBalances reconciles every active material against its movements.
	GetLedgerBalances(ctx context.Context) ([]model.LedgerBalance, error)
}

type statisticsService struct {
	statsRepo repository.StatisticsRepository
}

func NewStatisticsService(statsRepo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{statsRepo: statsRepo}
}

// GetStatistics aggregates repairs, orders and material consumption within the range
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	if endDate.Before(startDate) {
		return response, apperror.Validation("end_date must not be before start_date")
	}
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	repairs, err := s.statsRepo.GetRepairTotals(ctx, startDate, endDate)
	if err != nil {
		return response, storageFailure("statistics.repairs", err, nil)
	}
	response.RepairsReceived = repairs.Count
	response.RepairRevenue = repairs.Revenue
	response.PendingBalance = repairs.Pending

	if response.RepairsByState, err = s.statsRepo.GetRepairsByState(ctx); err != nil {
		return response, storageFailure("statistics.repairs_by_state", err, nil)
	}

	orders, err := s.statsRepo.GetOrderTotals(ctx, startDate, endDate)
	if err != nil {
		return response, storageFailure("statistics.orders", err, nil)
	}
	response.OrdersCreated = orders.Count
	response.OrderTotal = orders.Total

	if response.MaterialUsageCost, err = s.statsRepo.GetUsageCost(ctx, startDate, endDate); err != nil {
		return response, storageFailure("statistics.usage_cost", err, nil)
	}
	if response.TopConsumedMaterials, err = s.statsRepo.GetTopConsumedMaterials(ctx, startDate, endDate, topMaterialsLimit); err != nil {
		return response, storageFailure("statistics.top_materials", err, nil)
	}
	if response.LowStockCount, err = s.statsRepo.GetLowStockCount(ctx); err != nil {
		return response, storageFailure("statistics.low_stock", err, nil)
	}

	return response, nil
}

func (s *statisticsService) GetLedgerBalances(ctx context.Context) ([]model.LedgerBalance, error) {
	balances, err := s.statsRepo.GetLedgerBalances(ctx, 0)
	if err != nil {
		return nil, storageFailure("statistics.ledger", err, nil)
	}
	for i := range balances {
		reconcile(&balances[i])
		if !balances[i].Consistent {
			log.Warn().Uint("material_id", balances[i].MaterialID).Int("on_hand", balances[i].OnHand).
				Int("ledger_net", balances[i].LedgerNet).Msg("ledger mismatch")
		}
	}
	return balances, nil
}
