// Package strategy holds the batch selection port used by sale allocation.
package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Batch is a candidate lot offered to a selection strategy.
// Quantities are in base units.
type Batch struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	LotNumber  string
	Remaining  int64
	ExpiryDate *time.Time
	CreatedAt  time.Time
}

// BatchSelection is one cut taken from a batch
type BatchSelection struct {
	BatchID    uuid.UUID
	LotNumber  string
	Quantity   int64
	ExpiryDate *time.Time
}

// BatchSelectionContext provides context for batch selection
type BatchSelectionContext struct {
	ProductID uuid.UUID
	Quantity  int64
	// Date is "today"; batches expiring strictly before it are never selected.
	Date time.Time
}

// BatchSelectionResult contains the result of batch selection
type BatchSelectionResult struct {
	Selections   []BatchSelection
	TotalQty     int64
	ShortfallQty int64
}

// IsSatisfied reports whether the selections cover the requested quantity.
func (r BatchSelectionResult) IsSatisfied() bool {
	return r.ShortfallQty == 0
}

// BatchSelectionStrategy selects batches for consumption.
// Implementations must be pure: no I/O, no mutation of the input slice.
type BatchSelectionStrategy interface {
	// Name is the key the strategy is registered and configured under
	Name() string
	Description() string
	// SelectBatches selects batches for consumption based on strategy rules
	SelectBatches(ctx context.Context, selCtx BatchSelectionContext, batches []Batch) (BatchSelectionResult, error)
	// ConsidersExpiry returns true if the strategy considers expiry dates
	ConsidersExpiry() bool
}

// Descriptor carries the name and description of a strategy implementation
type Descriptor struct {
	name        string
	description string
}

// NewDescriptor creates a Descriptor
func NewDescriptor(name, description string) Descriptor {
	return Descriptor{name: name, description: description}
}

func (d Descriptor) Name() string        { return d.name }
func (d Descriptor) Description() string { return d.description }
