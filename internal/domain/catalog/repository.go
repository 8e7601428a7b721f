package catalog

import (
	"context"

	"github.com/google/uuid"
)

// VariantReader provides read-only access to product variants
type VariantReader interface {
	// FindVariant finds a variant by ID within a workspace.
	// Returns ErrVariantNotFound if it does not exist.
	FindVariant(ctx context.Context, workspaceID, variantID uuid.UUID) (*Variant, error)

	// FindVariantsByProduct returns all variants of a product, retired ones included
	FindVariantsByProduct(ctx context.Context, workspaceID, productID uuid.UUID) ([]Variant, error)
}
