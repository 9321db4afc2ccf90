package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/taskory/taskory/internal/domain"
	"github.com/taskory/taskory/internal/observability"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already registered")
)

type AccountRepository interface {
	// CreateWithProfile persists the account and its empty profile in one
	// transaction, so a registered account always has a profile row.
	CreateWithProfile(account *domain.Account) error
	FindByID(id uint) (*domain.Account, error)
	FindByEmail(email string) (*domain.Account, error)
	UpdatePassword(accountID uint, newHash string) error
	// MarkVerified flips the verification flag; verifying an already-verified
	// account is a no-op, never an error.
	MarkVerified(accountID uint) error
}

type GormAccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) CreateWithProfile(account *domain.Account) error {
	account.Email = NormalizeEmail(account.Email)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Account{}).Where("email = ?", account.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateEmail
		}
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		return tx.Create(&domain.Profile{AccountID: account.ID}).Error
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrDuplicateEmail) {
			outcome = "duplicate"
		}
		observability.RecordRepositoryOperation(context.Background(), "account", "create", outcome)
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "account", "create", "success")
	return nil
}

func (r *GormAccountRepository) FindByID(id uint) (*domain.Account, error) {
	var a domain.Account
	if err := r.db.First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAccountRepository) FindByEmail(email string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.Where("email = ?", NormalizeEmail(email)).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *GormAccountRepository) UpdatePassword(accountID uint, newHash string) error {
	res := r.db.Model(&domain.Account{}).Where("id = ?", accountID).
		Updates(map[string]any{"password_hash": newHash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *GormAccountRepository) MarkVerified(accountID uint) error {
	now := time.Now().UTC()
	res := r.db.Model(&domain.Account{}).Where("id = ? AND is_verified = ?", accountID, false).
		Updates(map[string]any{"is_verified": true, "verified_at": &now, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either already verified (fine) or gone.
		var count int64
		if err := r.db.Model(&domain.Account{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrAccountNotFound
		}
	}
	observability.RecordRepositoryOperation(context.Background(), "account", "mark_verified", "success")
	return nil
}

// NormalizeEmail is the single write-time canonical form for addresses.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
