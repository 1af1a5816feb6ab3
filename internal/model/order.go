package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultOrderStage   = "Pendiente por realizar"
	DefaultOrderCreator = "admin"
)

// Order (pedido) is a customer order. Stage is an open label, not an enum.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CustomerName    string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerContact string          `gorm:"type:varchar(255)" json:"customer_contact"`
	DeliveryDate    *time.Time      `gorm:"type:date" json:"delivery_date"`
	Notes           string          `gorm:"type:text" json:"notes"`
	Stage           string          `gorm:"type:varchar(100);not null;index" json:"stage"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Deposit         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"deposit"`
	TotalQuantity   int             `gorm:"type:int;not null" json:"total_quantity"`
	ProductSummary  string          `gorm:"type:varchar(255)" json:"product_summary"`
	CreatedBy       string          `gorm:"type:varchar(100)" json:"created_by"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is one line of an order. ProductName is a snapshot taken at creation.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	ProductID   uint            `gorm:"not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

func (OrderItem) TableName() string { return "order_line_items" }

type OrderStageHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Order     *Order    `gorm:"foreignKey:OrderID" json:"-"`
	Stage     string    `gorm:"type:varchar(100);not null" json:"stage"`
	Notes     string    `gorm:"type:text" json:"notes"`
	Actor     string    `gorm:"type:varchar(100)" json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderStageHistory) TableName() string { return "order_stage_history" }
