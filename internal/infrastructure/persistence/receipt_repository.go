package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReceiptRepository implements inventory.ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

func preloadReceiptLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID finds a receipt with its lines
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Receipt, error) {
	var model models.ReceiptModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", preloadReceiptLines).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, inventory.ErrReceiptNotFound)
	}
	return model.ToDomain(), nil
}

// FindByProduct lists receipts of a product
func (r *GormReceiptRepository) FindByProduct(ctx context.Context, scope shared.Scope, productID uuid.UUID, filter shared.Filter) ([]inventory.Receipt, error) {
	var ms []models.ReceiptModel
	query := applyFilter(
		r.db.WithContext(ctx).
			Model(&models.ReceiptModel{}).
			Scopes(InScope(scope)).
			Where("product_id = ?", productID),
		filter,
		ReceiptSortFields,
	)
	if err := query.Preload("Lines", preloadReceiptLines).Find(&ms).Error; err != nil {
		return nil, err
	}
	receipts := make([]inventory.Receipt, len(ms))
	for i := range ms {
		receipts[i] = *ms[i].ToDomain()
	}
	return receipts, nil
}

// DocumentNumbersWithPrefix returns the document numbers of a workspace starting with prefix
func (r *GormReceiptRepository) DocumentNumbersWithPrefix(ctx context.Context, workspaceID uuid.UUID, prefix string) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("workspace_id = ? AND document_number LIKE ?", workspaceID, prefix+"%").
		Pluck("document_number", &numbers).Error; err != nil {
		return nil, err
	}
	// LIKE treats _ and % in the prefix as wildcards
	out := numbers[:0]
	for _, n := range numbers {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out, nil
}

// ExistsByDocumentNumber checks whether the number is taken in the workspace
func (r *GormReceiptRepository) ExistsByDocumentNumber(ctx context.Context, workspaceID uuid.UUID, documentNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("workspace_id = ? AND document_number = ?", workspaceID, documentNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the header. Lines follow through CreateLines once the
// batches they point at exist.
func (r *GormReceiptRepository) Create(ctx context.Context, receipt *inventory.Receipt) error {
	model := models.ReceiptModelFromDomain(receipt)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return inventory.ErrDuplicateDocumentNumber
		}
		return err
	}
	return nil
}

// CreateLines inserts receipt lines
func (r *GormReceiptRepository) CreateLines(ctx context.Context, lines []inventory.ReceiptLine) error {
	if len(lines) == 0 {
		return nil
	}
	ms := make([]models.ReceiptLineModel, len(lines))
	for i := range lines {
		ms[i].FromDomain(&lines[i])
	}
	return r.db.WithContext(ctx).Create(&ms).Error
}

// DeleteLines removes the lines of a receipt
func (r *GormReceiptRepository) DeleteLines(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("receipt_id = ?", id).Delete(&models.ReceiptLineModel{}).Error
}

// Delete removes the header of a receipt
func (r *GormReceiptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ReceiptModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %w", inventory.ErrReceiptNotFound, shared.ErrNotFound)
	}
	return nil
}

// Ensure GormReceiptRepository implements inventory.ReceiptRepository
var _ inventory.ReceiptRepository = (*GormReceiptRepository)(nil)
