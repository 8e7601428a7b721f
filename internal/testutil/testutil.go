// Package testutil provides common test utilities for the stock ledger.
// It opens throwaway databases (sqlite in memory, sqlmock, a postgres
// container) and seeds the fixtures most ledger tests start from.
package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stockledger/backend/internal/infrastructure/persistence"
	"github.com/stockledger/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteDB opens an in-memory sqlite database with every ledger table.
// One connection only: each sqlite memory connection is its own database.
func NewSQLiteDB(t *testing.T) *persistence.Database {
	t.Helper()

	db, err := persistence.Open(sqlite.Open(":memory:"), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err, "Failed to open sqlite database")
	require.NoError(t, db.AutoMigrate(), "Failed to migrate sqlite database")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a postgres-dialect GORM database backed by sqlmock.
// Expectations are verified on cleanup.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err, "Failed to open GORM connection")

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet(), "Unmet database expectations")
		_ = mockDB.Close()
	})

	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// Date returns midnight UTC of the given day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DatePtr returns a pointer to Date(year, month, day)
func DatePtr(year int, month time.Month, day int) *time.Time {
	d := Date(year, month, day)
	return &d
}

// FixedClock returns a clock stopped at t
func FixedClock(t time.Time) shared.Clock {
	return func() time.Time { return t }
}

// NewScope returns a scope with fresh workspace and warehouse IDs
func NewScope() shared.Scope {
	return shared.Scope{WorkspaceID: uuid.New(), WarehouseID: uuid.New()}
}

// VariantFixture describes a catalog variant to seed
type VariantFixture struct {
	WorkspaceID uuid.UUID
	ProductID   uuid.UUID
	SaleMode    string
	PackSize    int64
	Retired     bool
}

// SeedVariant inserts a catalog variant and returns it
func SeedVariant(t *testing.T, db *gorm.DB, f VariantFixture) catalog.Variant {
	t.Helper()

	if f.SaleMode == "" {
		f.SaleMode = "unit"
	}
	if f.PackSize == 0 {
		f.PackSize = 1
	}
	status := catalog.StatusActive
	if f.Retired {
		status = catalog.StatusRetired
	}
	now := time.Now().UTC()
	m := &models.CatalogVariantModel{
		BaseModel:   models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		WorkspaceID: f.WorkspaceID,
		ProductID:   f.ProductID,
		SaleMode:    f.SaleMode,
		PackSize:    f.PackSize,
		Status:      status,
	}
	require.NoError(t, db.Create(m).Error, "Failed to seed variant")
	return *m.ToDomain()
}
