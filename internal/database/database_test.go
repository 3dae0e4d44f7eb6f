package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LiorShrago/BudgetBuddy/internal/config"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
)

func TestNew_SQLiteFile(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "budget.db")

	db, err := New(cfg, logging.NewMockLogger())
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.HealthCheck())
	for _, table := range []string{"transactions", "categories", "categorization_rules"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("transactions", "idx_transactions_account_fingerprint"))
}

func TestNew_UnsupportedDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "mysql"

	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t)
	assert.NoError(t, db.HealthCheck())
}
