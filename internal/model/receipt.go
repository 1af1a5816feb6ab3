package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is a read-only projection of a repair handed to the customer.
// It is generated on demand and never persisted.
type Receipt struct {
	Number         string          `json:"number"`
	IssuedAt       time.Time       `json:"issued_at"`
	RepairID       uint            `json:"repair_id"`
	CustomerName   string          `json:"customer_name"`
	Contact        string          `json:"contact"`
	Model          string          `json:"model"`
	Description    string          `json:"description"`
	PieceCount     int             `json:"piece_count"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Deposit        decimal.Decimal `json:"deposit"`
	PendingBalance decimal.Decimal `json:"pending_balance"`
	MaterialCost   decimal.Decimal `json:"material_cost"`
	MaterialsUsed  string          `json:"materials_used"`
	State          string          `json:"state"`
	AssignedTo     string          `json:"assigned_to"`
	IntakeDate     time.Time       `json:"intake_date"`
	DeliveryDate   *time.Time      `json:"delivery_date"`
	ReceiptURL     string          `json:"receipt_url"`
}
