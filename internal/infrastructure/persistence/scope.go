package persistence

import (
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// InScope restricts a query to one workspace and warehouse.
// Panics on a zero scope to prevent reading across workspaces.
func InScope(scope shared.Scope) func(*gorm.DB) *gorm.DB {
	if scope.WorkspaceID == uuid.Nil {
		panic("InScope called with an empty workspace - this is a programming error")
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("workspace_id = ? AND warehouse_id = ?", scope.WorkspaceID, scope.WarehouseID)
	}
}
