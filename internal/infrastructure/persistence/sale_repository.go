package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSaleRepository implements inventory.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

func preloadSaleLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("Lines.Allocations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })
}

// FindByID finds a sale with lines and allocations
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Sale, error) {
	var model models.SaleModel
	if err := r.db.WithContext(ctx).
		Scopes(preloadSaleLines).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, inventory.ErrSaleNotFound)
	}
	return model.ToDomain(), nil
}

// FindByProduct lists sales with at least one line of the product. Each
// sale comes back whole, lines of other products included.
func (r *GormSaleRepository) FindByProduct(ctx context.Context, scope shared.Scope, productID uuid.UUID, filter shared.Filter) ([]inventory.Sale, error) {
	db := r.db.WithContext(ctx)
	withProduct := db.Model(&models.SaleLineModel{}).
		Select("sale_id").
		Where("product_id = ?", productID)

	var ms []models.SaleModel
	query := applyFilter(
		db.Model(&models.SaleModel{}).
			Scopes(InScope(scope)).
			Where("id IN (?)", withProduct),
		filter,
		SaleSortFields,
	)
	if err := query.Scopes(preloadSaleLines).Find(&ms).Error; err != nil {
		return nil, err
	}
	sales := make([]inventory.Sale, len(ms))
	for i := range ms {
		sales[i] = *ms[i].ToDomain()
	}
	return sales, nil
}

// Create inserts the header, lines and allocation records
func (r *GormSaleRepository) Create(ctx context.Context, sale *inventory.Sale) error {
	header := &models.SaleModel{}
	header.FromDomain(sale)
	lines, allocations := models.SaleLinesFromDomain(sale)

	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(header).Error; err != nil {
		return err
	}
	if len(lines) > 0 {
		if err := db.Omit(clause.Associations).Create(&lines).Error; err != nil {
			return err
		}
	}
	if len(allocations) > 0 {
		if err := db.Create(&allocations).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the allocation records, lines and header of a sale
func (r *GormSaleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("sale_id = ?", id).Delete(&models.AllocationModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("sale_id = ?", id).Delete(&models.SaleLineModel{}).Error; err != nil {
		return err
	}
	result := db.Delete(&models.SaleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %w", inventory.ErrSaleNotFound, shared.ErrNotFound)
	}
	return nil
}

// Ensure GormSaleRepository implements inventory.SaleRepository
var _ inventory.SaleRepository = (*GormSaleRepository)(nil)
