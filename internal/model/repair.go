package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Repair states. Any state may follow any other; only membership is enforced.
const (
	RepairPending    = "Pendiente"
	RepairInProgress = "En Proceso"
	RepairCompleted  = "Completado"
	RepairDelivered  = "Entregado"
)

var RepairStates = []string{RepairPending, RepairInProgress, RepairCompleted, RepairDelivered}

func IsRepairState(s string) bool {
	for _, state := range RepairStates {
		if s == state {
			return true
		}
	}
	return false
}

const (
	DefaultRepairPriority   = "Media"
	DefaultOriginalMaterial = "Yeso frío"
	SystemActor             = "Sistema"
)

type Repair struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	CustomerID       *uint           `gorm:"index" json:"customer_id"`
	CustomerName     string          `gorm:"type:varchar(255);not null;index" json:"customer_name"`
	Contact          string          `gorm:"type:varchar(255)" json:"contact"`
	Model            string          `gorm:"type:varchar(255);not null" json:"model"`
	OriginalMaterial string          `gorm:"type:varchar(255)" json:"original_material"`
	Condition        string          `gorm:"type:text" json:"condition"`
	MaterialsUsed    string          `gorm:"type:text" json:"materials_used"`
	TotalCost        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_cost"`
	Deposit          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"deposit"`
	PieceCount       int             `gorm:"type:int;not null;default:1" json:"piece_count"`
	IntakeDate       time.Time       `gorm:"type:date;not null" json:"intake_date"`
	DeliveryDate     *time.Time      `gorm:"type:date" json:"delivery_date"`
	State            string          `gorm:"type:varchar(20);not null;default:'Pendiente';index" json:"state"`
	Priority         string          `gorm:"type:varchar(20);not null;default:'Media'" json:"priority"`
	Notes            string          `gorm:"type:text" json:"notes"`
	AssignedTo       string          `gorm:"type:varchar(100)" json:"assigned_to"`
	ImageURL         string          `gorm:"type:text" json:"image_url"`
	ReceiptURL       string          `gorm:"type:text" json:"receipt_url"`
	CreatedBy        string          `gorm:"type:varchar(100)" json:"created_by"`
	Active           bool            `gorm:"not null;default:true;index" json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PendingBalance is max(0, TotalCost - Deposit). Never stored.
func (r Repair) PendingBalance() decimal.Decimal {
	balance := r.TotalCost.Sub(r.Deposit)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// RepairHistory is appended on creation and on every state change.
type RepairHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RepairID  uint      `gorm:"not null;index" json:"repair_id"`
	Repair    *Repair   `gorm:"foreignKey:RepairID" json:"-"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	State     string    `gorm:"type:varchar(20);not null" json:"state"`
	Notes     string    `gorm:"type:text" json:"notes"`
	UserID    string    `gorm:"type:varchar(100)" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (RepairHistory) TableName() string { return "repair_history" }
