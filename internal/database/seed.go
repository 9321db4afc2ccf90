package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/security"
)

// SeedReport says what a seed run actually changed, so repeated runs can be
// audited as no-ops.
type SeedReport struct {
	CreatedAccount bool `json:"created_account"`
	CreatedTasks   int  `json:"created_tasks"`
	Noop           bool `json:"noop"`
}

var demoTasks = []string{
	"Walk through the API with the demo credentials",
	"Create your first real task",
	"Mark something as done",
}

// Seed provisions a verified demo account with a few starter tasks. It is
// idempotent: an existing demo account is left alone.
func Seed(db *gorm.DB, demoEmail, demoPassword string) (*SeedReport, error) {
	report := &SeedReport{}
	email := strings.ToLower(strings.TrimSpace(demoEmail))
	if email == "" {
		report.Noop = true
		return report, nil
	}
	if demoPassword == "" {
		return nil, errors.New("demo password is required when a demo email is set")
	}

	var existing domain.Account
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		report.Noop = true
		return report, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up demo account: %w", err)
	}

	hash, err := security.HashPassword(demoPassword)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	now := time.Now()
	account := domain.Account{Email: email, PasswordHash: hash, IsVerified: true, VerifiedAt: &now}
	txErr := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.Profile{AccountID: account.ID, FirstName: "Demo"}).Error; err != nil {
			return err
		}
		for _, title := range demoTasks {
			if err := tx.Create(&domain.Task{AccountID: account.ID, Title: title}).Error; err != nil {
				return err
			}
			report.CreatedTasks++
		}
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("seed demo account: %w", txErr)
	}
	report.CreatedAccount = true
	return report, nil
}

// VerifyEmail flips an account to verified without a token, for local
// development and operator use.
func VerifyEmail(db *gorm.DB, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("email is required")
	}
	now := time.Now()
	res := db.Model(&domain.Account{}).
		Where("email = ?", email).
		Updates(map[string]any{"is_verified": true, "verified_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no account with email %s", email)
	}
	return nil
}
