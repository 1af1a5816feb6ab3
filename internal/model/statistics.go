package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatisticsResponse aggregates workshop activity over a time range.
type StatisticsResponse struct {
	RepairsReceived      int               `json:"repairs_received"`
	RepairRevenue        decimal.Decimal   `json:"repair_revenue"`
	PendingBalance       decimal.Decimal   `json:"pending_balance"`
	RepairsByState       []StateCount      `json:"repairs_by_state"`
	OrdersCreated        int               `json:"orders_created"`
	OrderTotal           decimal.Decimal   `json:"order_total"`
	MaterialUsageCost    decimal.Decimal   `json:"material_usage_cost"`
	TopConsumedMaterials []MaterialRanking `json:"top_consumed_materials"`
	LowStockCount        int               `json:"low_stock_count"`
	TimeRangeStartDate   time.Time         `json:"time_range_start_date"`
	TimeRangeEndDate     time.Time         `json:"time_range_end_date"`
}

// MaterialRanking ranks a material by how much of it documents consumed
type MaterialRanking struct {
	MaterialID    uint            `json:"material_id"`
	MaterialName  string          `json:"material_name"`
	Unit          string          `json:"unit"`
	TotalQuantity int             `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

type StateCount struct {
	State string `json:"state"`
	Count int    `json:"count"`
}
