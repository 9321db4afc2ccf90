package repository

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskory/taskory/internal/domain"
)

// newRepositoryDBForTest opens a uniquely named shared in-memory SQLite
// database so every test gets isolated state regardless of pool size.
func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func migrateAllForTest(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.AutoMigrate(
		&domain.Account{},
		&domain.Profile{},
		&domain.Task{},
		&domain.AccessToken{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}
