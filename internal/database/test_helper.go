package database

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

// SetupTestDB returns a migrated in-memory SQLite database closed at test end.
func SetupTestDB(t testing.TB) *DB {
	t.Helper()

	db, err := open(sqlite.Open(":memory:"), logger.Silent)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}
