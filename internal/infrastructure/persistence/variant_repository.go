package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormVariantReader implements catalog.VariantReader over the catalog_variants table
type GormVariantReader struct {
	db *gorm.DB
}

// NewGormVariantReader creates a new GormVariantReader
func NewGormVariantReader(db *gorm.DB) *GormVariantReader {
	return &GormVariantReader{db: db}
}

// FindVariant finds a variant by ID within a workspace
func (r *GormVariantReader) FindVariant(ctx context.Context, workspaceID, variantID uuid.UUID) (*catalog.Variant, error) {
	var model models.CatalogVariantModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND workspace_id = ?", variantID, workspaceID).Error; err != nil {
		return nil, notFound(err, catalog.ErrVariantNotFound)
	}
	return model.ToDomain(), nil
}

// FindVariantsByProduct returns all variants of a product, retired ones included
func (r *GormVariantReader) FindVariantsByProduct(ctx context.Context, workspaceID, productID uuid.UUID) ([]catalog.Variant, error) {
	var ms []models.CatalogVariantModel
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND product_id = ?", workspaceID, productID).
		Order("pack_size ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	variants := make([]catalog.Variant, len(ms))
	for i := range ms {
		variants[i] = *ms[i].ToDomain()
	}
	return variants, nil
}

// Ensure GormVariantReader implements catalog.VariantReader
var _ catalog.VariantReader = (*GormVariantReader)(nil)
