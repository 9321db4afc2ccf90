package database

import (
	"gorm.io/gorm"

	"github.com/taskory/taskory/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Account{},
		&domain.Profile{},
		&domain.Task{},
		&domain.AccessToken{},
	)
}
