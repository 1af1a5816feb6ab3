package model

import "time"

// Tool status labels
const (
	ToolAvailable = "Disponible"
	ToolInUse     = "En Uso"
)

// Tool counts discrete units of a workshop tool. The holder fields track a
// single assignment slot on top of the counter, not one holder per unit:
// with several units out, only the latest holder is remembered, and any
// return resets the status to Disponible.
type Tool struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Name              string     `gorm:"type:varchar(255);not null;index" json:"name"`
	Description       string     `gorm:"type:text" json:"description"`
	TotalQuantity     int        `gorm:"type:int;not null" json:"total_quantity"`
	AvailableQuantity int        `gorm:"type:int;not null" json:"available_quantity"`
	Status            string     `gorm:"type:varchar(20);not null;default:'Disponible';index" json:"status"`
	Holder            *string    `gorm:"type:varchar(100)" json:"holder"`
	AssignedBy        *string    `gorm:"type:varchar(100)" json:"assigned_by"`
	AssignedAt        *time.Time `json:"assigned_at"`
	Active            bool       `gorm:"not null;default:true;index" json:"active"`
	CreatedBy         string     `gorm:"type:varchar(100)" json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
