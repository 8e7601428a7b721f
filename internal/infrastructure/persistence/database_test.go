package persistence

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stockledger/backend/internal/infrastructure/persistence/models"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDatabase creates a Database instance with a mocked SQL connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(sqlite.Open(":memory:"), &config.DatabaseConfig{MaxOpenConns: 1})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.AutoMigrate())
	for _, m := range models.All() {
		assert.True(t, db.DB.Migrator().HasTable(m), "%T", m)
	}

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestOpen_WithOptions(t *testing.T) {
	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop())
	db, err := Open(sqlite.Open(":memory:"), &config.DatabaseConfig{},
		WithLogger(logger.Discard),
		WithTracing(plugin),
	)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, logger.Discard, db.DB.Logger)
	assert.NotNil(t, db.DB.Callback().Query().Get("ledger_timing:after_query"))
}

func TestOpen_PingFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err = Open(postgres.New(postgres.Config{Conn: mockDB}), &config.DatabaseConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_WithScope(t *testing.T) {
	type BatchRow struct {
		ID          uint
		WorkspaceID uuid.UUID
		WarehouseID uuid.UUID
	}

	t.Run("filters by workspace and warehouse", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		scope := shared.Scope{WorkspaceID: uuid.New(), WarehouseID: uuid.New()}
		mock.ExpectQuery(`SELECT \* FROM "batch_rows" WHERE workspace_id = \$1 AND warehouse_id = \$2`).
			WithArgs(scope.WorkspaceID, scope.WarehouseID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "warehouse_id"}).
				AddRow(1, scope.WorkspaceID, scope.WarehouseID))

		var rows []BatchRow
		require.NoError(t, db.WithScope(scope).Find(&rows).Error)
		assert.Len(t, rows, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("chains with other clauses", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		scope := shared.Scope{WorkspaceID: uuid.New(), WarehouseID: uuid.New()}
		mock.ExpectQuery(`SELECT \* FROM "batch_rows" WHERE workspace_id = \$1 AND warehouse_id = \$2 AND id > \$3 ORDER BY id ASC LIMIT \$4`).
			WithArgs(scope.WorkspaceID, scope.WarehouseID, 5, 10).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		var rows []BatchRow
		require.NoError(t, db.WithScope(scope).Where("id > ?", 5).Order("id ASC").Limit(10).Find(&rows).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("does not modify original DB", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		original := db.DB
		scoped := db.WithScope(shared.Scope{WorkspaceID: uuid.New(), WarehouseID: uuid.New()})
		assert.NotSame(t, original, scoped)
		assert.Same(t, original, db.DB)
	})

	t.Run("nil workspace panics", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		assert.Panics(t, func() {
			db.WithScope(shared.Scope{WarehouseID: uuid.New()})
		})
	})
}

func TestDatabase_Ping(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	// gorm pings once while opening
	mock.ExpectPing()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectPing()
	db := &Database{DB: gormDB}
	assert.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Stats(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.Equal(t, stats.OpenConnections, stats.InUse+stats.Idle)
	assert.GreaterOrEqual(t, stats.WaitDuration, time.Duration(0))
}

func TestDatabase_Transaction(t *testing.T) {
	type TestModel struct {
		ID   uint
		Name string
	}

	t.Run("commits on success", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "test_models"`).
			WithArgs("test").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&TestModel{Name: "test"}).Error
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := db.Transaction(func(tx *gorm.DB) error {
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
