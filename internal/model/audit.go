package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionUpdateMaterial  = "UPDATE_MATERIAL"
	ActionDeleteMaterial  = "DELETE_MATERIAL"
	ActionConsumeMaterial = "CONSUME_MATERIAL"
	ActionDeleteUsage     = "DELETE_USAGE"

	ActionCreateTool       = "CREATE_TOOL"
	ActionReplaceToolStock = "REPLACE_TOOL_STOCK"
	ActionAssignTool       = "ASSIGN_TOOL"
	ActionReturnTool       = "RETURN_TOOL"
	ActionDeleteTool       = "DELETE_TOOL"

	ActionUpdateRepair = "UPDATE_REPAIR"
	ActionDeleteRepair = "DELETE_REPAIR"

	ActionDeleteOrder = "DELETE_ORDER"
)

// Entity types referenced by AuditLog.EntityType
const (
	EntityMaterial = "material"
	EntityTool     = "tool"
	EntityRepair   = "repair"
	EntityOrder    = "order"
)

// AuditLog tracks who did what to which entity. Rows are written in the same
// transaction as the change they describe.
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Actor      string         `gorm:"type:varchar(100);index" json:"actor"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string         `gorm:"type:varchar(30);not null;index:idx_audit_entity,priority:1" json:"entity_type"`
	EntityID   string         `gorm:"type:varchar(50);index:idx_audit_entity,priority:2" json:"entity_id"`
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
