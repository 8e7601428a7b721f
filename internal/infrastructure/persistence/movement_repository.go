package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMovementRepository implements inventory.MovementRepository using GORM.
// Rows are only inserted or deleted, never updated.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Append inserts movements
func (r *GormMovementRepository) Append(ctx context.Context, movements ...*inventory.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	ms := make([]*models.MovementModel, len(movements))
	for i, mv := range movements {
		ms[i] = models.MovementModelFromDomain(mv)
	}
	return r.db.WithContext(ctx).Create(&ms).Error
}

func (r *GormMovementRepository) find(ctx context.Context, query string, args ...any) ([]inventory.Movement, error) {
	var ms []models.MovementModel
	if err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("created_at ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return models.MovementsToDomain(ms), nil
}

// FindByBatch lists a batch's movements oldest first
func (r *GormMovementRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]inventory.Movement, error) {
	return r.find(ctx, "batch_id = ?", batchID)
}

// FindByReceipt lists the movements of a receipt oldest first
func (r *GormMovementRepository) FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]inventory.Movement, error) {
	return r.find(ctx, "receipt_id = ?", receiptID)
}

// FindBySale lists the movements of a sale oldest first
func (r *GormMovementRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]inventory.Movement, error) {
	return r.find(ctx, "sale_id = ?", saleID)
}

// DeleteByReceipt deletes movements referencing the receipt or any of its batches
func (r *GormMovementRepository) DeleteByReceipt(ctx context.Context, receiptID uuid.UUID, batchIDs []uuid.UUID) error {
	query := r.db.WithContext(ctx).Where("receipt_id = ?", receiptID)
	if len(batchIDs) > 0 {
		query = query.Or("batch_id IN ?", batchIDs)
	}
	return query.Delete(&models.MovementModel{}).Error
}

// DeleteOutBySale deletes the OUT movements of a sale
func (r *GormMovementRepository) DeleteOutBySale(ctx context.Context, saleID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("sale_id = ? AND kind = ?", saleID, inventory.MovementKindOut).
		Delete(&models.MovementModel{}).Error
}

// SumByBatch returns the signed sum of a batch's movements
func (r *GormMovementRepository) SumByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&models.MovementModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("batch_id = ?", batchID).
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

// Ensure GormMovementRepository implements inventory.MovementRepository
var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
