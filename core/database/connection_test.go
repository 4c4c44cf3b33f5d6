package database

import (
	"path/filepath"
	"testing"

	"github.com/AzielCF/az-smartfilter/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase_SQLiteCreatesFile(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{
		Driver: "sqlite",
		Name:   filepath.Join(t.TempDir(), "nested", "test.db"),
	}}

	db, err := NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close() })

	assert.Same(t, db, GlobalDB)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "mssql", Name: "x"}}
	_, err := NewDatabase(cfg)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestClose_ResetsGlobal(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Name: filepath.Join(t.TempDir(), "close.db")}}
	_, err := NewDatabase(cfg)
	require.NoError(t, err)

	require.NoError(t, Close())
	assert.Nil(t, GlobalDB)
	assert.NoError(t, Close())
}
