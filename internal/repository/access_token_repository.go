package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/taskory/taskory/internal/domain"
)

var ErrAccessTokenNotFound = errors.New("access token not found")

type AccessTokenRepository interface {
	// GetOrCreate returns the account's persistent token, creating one with
	// the candidate key on first login. Later logins get the original row
	// back untouched, which is what makes opaque login idempotent.
	GetOrCreate(accountID uint, candidateKey string) (*domain.AccessToken, bool, error)
	FindByKey(key string) (*domain.AccessToken, error)
	TouchLastUsed(tokenID uint) error
	DeleteByAccountID(accountID uint) error
}

type GormAccessTokenRepository struct{ db *gorm.DB }

func NewAccessTokenRepository(db *gorm.DB) AccessTokenRepository {
	return &GormAccessTokenRepository{db: db}
}

func (r *GormAccessTokenRepository) GetOrCreate(accountID uint, candidateKey string) (*domain.AccessToken, bool, error) {
	var token domain.AccessToken
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("account_id = ?", accountID).First(&token).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		token = domain.AccessToken{AccountID: accountID, Key: candidateKey}
		created = true
		return tx.Create(&token).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &token, created, nil
}

func (r *GormAccessTokenRepository) FindByKey(key string) (*domain.AccessToken, error) {
	var token domain.AccessToken
	err := r.db.Where("key = ?", key).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *GormAccessTokenRepository) TouchLastUsed(tokenID uint) error {
	now := time.Now().UTC()
	return r.db.Model(&domain.AccessToken{}).Where("id = ?", tokenID).
		Updates(map[string]any{"last_used_at": &now, "updated_at": now}).Error
}

func (r *GormAccessTokenRepository) DeleteByAccountID(accountID uint) error {
	res := r.db.Where("account_id = ?", accountID).Delete(&domain.AccessToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccessTokenNotFound
	}
	return nil
}
