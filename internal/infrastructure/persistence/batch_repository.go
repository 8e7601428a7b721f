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

// batchKeyColumns are the columns of idx_batch_key
var batchKeyColumns = []clause.Column{
	{Name: "receipt_id"},
	{Name: "product_id"},
	{Name: "lot_number"},
	{Name: "expiry_key"},
}

// GormBatchRepository implements inventory.BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, inventory.ErrBatchNotFound)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a batch with SELECT ... FOR UPDATE. Dialects
// without row locks (sqlite) drop the locking clause.
func (r *GormBatchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	var model models.BatchModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, inventory.ErrBatchNotFound)
	}
	return model.ToDomain(), nil
}

// FindByIDs finds batches by their IDs
func (r *GormBatchRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.Batch, error) {
	if len(ids) == 0 {
		return []inventory.Batch{}, nil
	}
	var ms []models.BatchModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return models.BatchesToDomain(ms), nil
}

// FindByKey finds the batch for a uniqueness key
func (r *GormBatchRepository) FindByKey(ctx context.Context, key inventory.BatchKey) (*inventory.Batch, error) {
	key = key.Normalize()
	var model models.BatchModel
	if err := r.db.WithContext(ctx).
		Where("receipt_id = ? AND product_id = ? AND lot_number = ? AND expiry_key = ?",
			key.ReceiptID, key.ProductID, key.LotNumber, key.ExpiryKey()).
		First(&model).Error; err != nil {
		return nil, notFound(err, inventory.ErrBatchNotFound)
	}
	return model.ToDomain(), nil
}

// CreateIfAbsent inserts the batch with ON CONFLICT DO NOTHING on its key
func (r *GormBatchRepository) CreateIfAbsent(ctx context.Context, batch *inventory.Batch) (bool, error) {
	if err := batch.Validate(); err != nil {
		return false, err
	}
	model := models.BatchModelFromDomain(batch)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: batchKeyColumns, DoNothing: true}).
		Create(model)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByReceipt finds all batches created by a receipt
func (r *GormBatchRepository) FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]inventory.Batch, error) {
	var ms []models.BatchModel
	if err := r.db.WithContext(ctx).
		Where("receipt_id = ?", receiptID).
		Order("created_at ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return models.BatchesToDomain(ms), nil
}

// FindWithStock finds batches of a product with remaining > 0.
// Expiry filtering and FEFO ordering happen in the allocator.
func (r *GormBatchRepository) FindWithStock(ctx context.Context, scope shared.Scope, productID uuid.UUID) ([]inventory.Batch, error) {
	var ms []models.BatchModel
	if err := r.db.WithContext(ctx).
		Scopes(InScope(scope)).
		Where("product_id = ? AND remaining > 0", productID).
		Order("created_at ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return models.BatchesToDomain(ms), nil
}

// Increment adds qty to both received and remaining
func (r *GormBatchRepository) Increment(ctx context.Context, id uuid.UUID, qty int64) error {
	if qty <= 0 {
		return &inventory.InvalidQuantityError{Field: "increment quantity", Value: qty}
	}
	result := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"received":  gorm.Expr("received + ?", qty),
			"remaining": gorm.Expr("remaining + ?", qty),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %w", inventory.ErrBatchNotFound, shared.ErrNotFound)
	}
	return nil
}

// CompareAndDecrement subtracts qty from remaining if remaining >= qty
func (r *GormBatchRepository) CompareAndDecrement(ctx context.Context, id uuid.UUID, qty int64) (bool, error) {
	if qty <= 0 {
		return false, &inventory.InvalidQuantityError{Field: "decrement quantity", Value: qty}
	}
	result := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Where("id = ? AND remaining >= ?", id, qty).
		Update("remaining", gorm.Expr("remaining - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CompareAndRestore adds qty to remaining if the result stays <= received
func (r *GormBatchRepository) CompareAndRestore(ctx context.Context, id uuid.UUID, qty int64) (bool, error) {
	if qty <= 0 {
		return false, &inventory.InvalidQuantityError{Field: "restore quantity", Value: qty}
	}
	result := r.db.WithContext(ctx).
		Model(&models.BatchModel{}).
		Where("id = ? AND remaining + ? <= received", id, qty).
		Update("remaining", gorm.Expr("remaining + ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteByReceipt deletes all batches of a receipt
func (r *GormBatchRepository) DeleteByReceipt(ctx context.Context, receiptID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("receipt_id = ?", receiptID).Delete(&models.BatchModel{}).Error
}

// Ensure GormBatchRepository implements inventory.BatchRepository
var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
