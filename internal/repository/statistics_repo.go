package repository

import (
	"context"
	"fmt"
	"time"

	"taller/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RepairTotals is the repair slice of the dashboard.
type RepairTotals struct {
	Count   int
	Revenue decimal.Decimal
	Pending decimal.Decimal
}

type OrderTotals struct {
	Count int
	Total decimal.Decimal
}

// StatisticsRepository is read-only. It trusts the ledgers as ground truth.
type StatisticsRepository interface {
	GetRepairTotals(ctx context.Context, start, end time.Time) (RepairTotals, error)
	GetRepairsByState(ctx context.Context) ([]model.StateCount, error)
	GetOrderTotals(ctx context.Context, start, end time.Time) (OrderTotals, error)
	GetUsageCost(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	GetTopConsumedMaterials(ctx context.Context, start, end time.Time, limit int) ([]model.MaterialRanking, error)
	GetLowStockCount(ctx context.Context) (int, error)
	// GetLedgerBalances sums movements per material. materialID 0 means every active material.
	GetLedgerBalances(ctx context.Context, materialID uint) ([]model.LedgerBalance, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) GetRepairTotals(ctx context.Context, start, end time.Time) (RepairTotals, error) {
	var result RepairTotals
	err := r.db.WithContext(ctx).Model(&model.Repair{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_cost), 0) AS revenue, COALESCE(SUM(GREATEST(total_cost - deposit, 0)), 0) AS pending").
		Where("active = ? AND intake_date >= ? AND intake_date <= ?", true, start, end).
		Scan(&result).Error
	if err != nil {
		return RepairTotals{}, fmt.Errorf("failed to query repair totals: %w", err)
	}
	return result, nil
}

func (r *statisticsRepository) GetRepairsByState(ctx context.Context) ([]model.StateCount, error) {
	var counts []model.StateCount
	if err := r.db.WithContext(ctx).Model(&model.Repair{}).
		Select("state, COUNT(*) AS count").
		Where("active = ?", true).
		Group("state").
		Order("state").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to query repairs by state: %w", err)
	}
	return counts, nil
}

func (r *statisticsRepository) GetOrderTotals(ctx context.Context, start, end time.Time) (OrderTotals, error) {
	var result OrderTotals
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Scan(&result).Error
	if err != nil {
		return OrderTotals{}, fmt.Errorf("failed to query order totals: %w", err)
	}
	return result, nil
}

func (r *statisticsRepository) GetUsageCost(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var result struct {
		Value decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&model.MaterialUsage{}).
		Select("COALESCE(SUM(quantity * unit_cost), 0) AS value").
		Where("date >= ? AND date <= ?", start, end).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query usage cost: %w", err)
	}
	return result.Value, nil
}

func (r *statisticsRepository) GetTopConsumedMaterials(ctx context.Context, start, end time.Time, limit int) ([]model.MaterialRanking, error) {
	var rankings []model.MaterialRanking
	if err := r.db.WithContext(ctx).Table("material_usages").
		Select("materials.id AS material_id, materials.name AS material_name, materials.unit AS unit, SUM(material_usages.quantity) AS total_quantity, SUM(material_usages.quantity * material_usages.unit_cost) AS total_value").
		Joins("JOIN materials ON materials.id = material_usages.material_id").
		Where("material_usages.date >= ? AND material_usages.date <= ?", start, end).
		Group("materials.id, materials.name, materials.unit").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top materials: %w", err)
	}
	return rankings, nil
}

func (r *statisticsRepository) GetLowStockCount(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Material{}).
		Where("active = ? AND quantity <= stock_minimum", true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count low stock: %w", err)
	}
	return int(count), nil
}

func (r *statisticsRepository) GetLedgerBalances(ctx context.Context, materialID uint) ([]model.LedgerBalance, error) {
	var balances []model.LedgerBalance
	db := r.db.WithContext(ctx).Table("materials").
		Select(`materials.id AS material_id, materials.name AS material_name, materials.quantity AS on_hand,
			COALESCE(SUM(CASE WHEN stock_movements.kind = 'entrada' THEN stock_movements.quantity ELSE 0 END), 0) AS entradas,
			COALESCE(SUM(CASE WHEN stock_movements.kind = 'salida' THEN stock_movements.quantity ELSE 0 END), 0) AS salidas,
			COALESCE(SUM(CASE WHEN stock_movements.kind = 'consumo' THEN stock_movements.quantity ELSE 0 END), 0) AS consumos`).
		Joins("LEFT JOIN stock_movements ON stock_movements.material_id = materials.id")
	if materialID != 0 {
		db = db.Where("materials.id = ?", materialID)
	} else {
		db = db.Where("materials.active = ?", true)
	}
	if err := db.Group("materials.id, materials.name, materials.quantity").
		Order("materials.id").
		Scan(&balances).Error; err != nil {
		return nil, fmt.Errorf("failed to query ledger balances: %w", err)
	}
	return balances, nil
}
