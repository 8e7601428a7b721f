// Package catalog holds the read-only view of the product catalog that the
// inventory engine consumes. Catalog state is owned elsewhere; nothing in
// this module mutates it.
package catalog

import (
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// Status is the lifecycle tag of a catalog entity
type Status string

const (
	StatusActive  Status = "active"
	StatusRetired Status = "retired"
)

// IsValid returns true if the status is known
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusRetired
}

// Variant is a sellable pack of a product (e.g. single, pack of 5, box of 24).
// PackSize is the number of base units in one pack.
type Variant struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	ProductID   uuid.UUID
	SaleMode    string
	SKUSuffix   string
	PackSize    int64
	Status      Status
}

// IsActive reports whether the variant can be used for new sales
func (v *Variant) IsActive() bool {
	return v.Status == StatusActive
}

// BelongsTo reports whether the variant is a pack of the given product
func (v *Variant) BelongsTo(productID uuid.UUID) bool {
	return v.ProductID == productID
}

// Catalog errors
var (
	ErrVariantNotFound     = shared.NewDomainError("VARIANT_NOT_FOUND", "Product variant not found")
	ErrVariantRetired      = shared.NewDomainError("VARIANT_RETIRED", "Product variant is retired and cannot be sold")
	ErrVariantWrongProduct = shared.NewDomainError("VARIANT_PRODUCT_MISMATCH", "Product variant does not belong to the product")
	ErrInvalidVariantPack  = shared.NewDomainError("INVALID_PACK_SIZE", "Product variant has a non-positive pack size")
)
