package models

import (
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/catalog"
)

// CatalogVariantModel maps the catalog's variant table. The ledger only reads it.
type CatalogVariantModel struct {
	BaseModel
	WorkspaceID uuid.UUID      `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	SaleMode    string         `gorm:"type:varchar(50);not null"`
	SKUSuffix   string         `gorm:"column:sku_suffix;type:varchar(50)"`
	PackSize    int64          `gorm:"not null"`
	Status      catalog.Status `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (CatalogVariantModel) TableName() string {
	return "catalog_variants"
}

// ToDomain converts the persistence model to a domain Variant.
func (m *CatalogVariantModel) ToDomain() *catalog.Variant {
	return &catalog.Variant{
		ID:          m.ID,
		WorkspaceID: m.WorkspaceID,
		ProductID:   m.ProductID,
		SaleMode:    m.SaleMode,
		SKUSuffix:   m.SKUSuffix,
		PackSize:    m.PackSize,
		Status:      m.Status,
	}
}
