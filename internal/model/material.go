package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a raw-material stock item. Quantity is the on-hand aggregate and
// must always equal the signed sum of its StockMovement rows.
type Material struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Quantity     int             `gorm:"type:int;not null;default:0" json:"quantity"`
	Unit         string          `gorm:"type:varchar(50);not null" json:"unit"`
	StockMinimum int             `gorm:"type:int;not null;default:0" json:"stock_minimum"`
	Cost         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost"`
	Category     string          `gorm:"type:varchar(100);not null;index" json:"category"`
	Active       bool            `gorm:"not null;default:true;index" json:"active"`
	CreatedBy    string          `gorm:"type:varchar(100)" json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Movement kinds
const (
	MovementEntrada = "entrada"
	MovementSalida  = "salida"
	MovementConsumo = "consumo"
)

// StockMovement is one immutable ledger entry for a Material.
// Quantity is always positive; Kind carries the sign.
type StockMovement struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MaterialID uint      `gorm:"not null;index:idx_stock_movements_material_date,priority:1" json:"material_id"`
	Material   *Material `gorm:"foreignKey:MaterialID" json:"-"`
	Date       time.Time `gorm:"type:date;not null;index:idx_stock_movements_material_date,priority:2" json:"date"`
	Kind       string    `gorm:"type:varchar(20);not null" json:"kind"`
	Quantity   int       `gorm:"type:int;not null" json:"quantity"`
	StockAfter int       `gorm:"type:int;not null" json:"stock_after"`
	UserID     string    `gorm:"type:varchar(100)" json:"user_id"`
	Note       string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// Signed returns the movement's effect on on-hand quantity.
func (m StockMovement) Signed() int {
	if m.Kind == MovementEntrada {
		return m.Quantity
	}
	return -m.Quantity
}

// Document kinds a MaterialUsage can be attributed to
const (
	DocumentRepair = "reparacion"
	DocumentOrder  = "pedido"
)

// MaterialUsage attributes consumption of a material to a repair or order.
type MaterialUsage struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	DocumentKind string          `gorm:"type:varchar(20);not null;index:idx_material_usages_document,priority:1" json:"document_kind"`
	DocumentID   uint            `gorm:"not null;index:idx_material_usages_document,priority:2" json:"document_id"`
	MaterialID   uint            `gorm:"not null;index" json:"material_id"`
	Material     *Material       `gorm:"foreignKey:MaterialID" json:"-"`
	Quantity     int             `gorm:"type:int;not null" json:"quantity"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	Date         time.Time       `gorm:"type:date;not null" json:"date"`
	UserID       string          `gorm:"type:varchar(100)" json:"user_id"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

// Cost returns quantity × unit cost.
func (u MaterialUsage) Cost() decimal.Decimal {
	return u.UnitCost.Mul(decimal.NewFromInt(int64(u.Quantity)))
}

// LedgerBalance is a per-material reconciliation of the ledger against on-hand stock.
type LedgerBalance struct {
	MaterialID   uint   `json:"material_id"`
	MaterialName string `json:"material_name"`
	OnHand       int    `json:"on_hand"`
	Entradas     int    `json:"entradas"`
	Salidas      int    `json:"salidas"`
	Consumos     int    `json:"consumos"`
	LedgerNet    int    `json:"ledger_net"`
	Consistent   bool   `json:"consistent"`
}
