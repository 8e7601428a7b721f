package main

import (
	"path/filepath"
	"testing"

	"github.com/stockledger/backend/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRun_CreateAndList(t *testing.T) {
	dir := t.TempDir()
	log := zap.NewNop()

	require.NoError(t, run([]string{"create", "add batch note"}, dir, log))
	require.NoError(t, run([]string{"create", "second", "with description"}, dir, log))
	require.NoError(t, run([]string{"list"}, dir, log))

	migrations, err := migration.ListMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "000001_add_batch_note", migrations[0].FileName())
	assert.Equal(t, "000002_second", migrations[1].FileName())
}

func TestRun_UsageErrors(t *testing.T) {
	dir := t.TempDir()

	assert.ErrorIs(t, run([]string{"create"}, dir, zap.NewNop()), errUsage)
	assert.ErrorIs(t, run([]string{"drop"}, dir, zap.NewNop()), errUsage)
}

func TestResolveMigrationsPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, resolveMigrationsPath(dir))
	assert.True(t, filepath.IsAbs(resolveMigrationsPath("")))
}
