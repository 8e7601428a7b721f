package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// ScopedModel extends BaseModel with the workspace and warehouse scope.
type ScopedModel struct {
	BaseModel
	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;index"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// FromDomainScoped populates ScopedModel from a domain entity and its scope
func (m *ScopedModel) FromDomainScoped(e shared.BaseEntity, scope shared.Scope) {
	m.FromDomainBaseEntity(e)
	m.WorkspaceID = scope.WorkspaceID
	m.WarehouseID = scope.WarehouseID
}

// All returns every model of the ledger, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&CatalogVariantModel{},
		&ReceiptModel{},
		&ReceiptLineModel{},
		&BatchModel{},
		&SaleModel{},
		&SaleLineModel{},
		&AllocationModel{},
		&MovementModel{},
	}
}
