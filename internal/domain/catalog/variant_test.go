package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestVariant(t *testing.T) {
	productID := uuid.New()
	v := &Variant{ID: uuid.New(), ProductID: productID, SaleMode: "box", PackSize: 24, Status: StatusActive}

	assert.True(t, v.IsActive())
	assert.True(t, v.BelongsTo(productID))
	assert.False(t, v.BelongsTo(uuid.New()))

	v.Status = StatusRetired
	assert.False(t, v.IsActive())
	assert.True(t, v.Status.IsValid())
	assert.False(t, Status("deleted").IsValid())
}
