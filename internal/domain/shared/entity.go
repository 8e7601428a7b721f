package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity provides common fields for all entities
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// NewBaseEntity creates a new base entity with generated ID
func NewBaseEntity(now time.Time) BaseEntity {
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewOrderedBaseEntity creates a base entity whose ID is a UUIDv7. IDs made
// by one process sort in creation order even when timestamps collide.
func NewOrderedBaseEntity(now time.Time) BaseEntity {
	return BaseEntity{
		ID:        uuid.Must(uuid.NewV7()),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Scope identifies the workspace and warehouse a document or batch belongs to.
type Scope struct {
	WorkspaceID uuid.UUID
	WarehouseID uuid.UUID
}

// IsZero reports whether neither identifier is set.
func (s Scope) IsZero() bool {
	return s.WorkspaceID == uuid.Nil && s.WarehouseID == uuid.Nil
}
