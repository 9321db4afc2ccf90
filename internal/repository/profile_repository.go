package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/taskory/taskory/internal/domain"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository interface {
	FindByAccountID(accountID uint) (*domain.Profile, error)
	Update(accountID uint, updates map[string]any) error
	SetAvatarKey(accountID uint, key string) error
}

type GormProfileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &GormProfileRepository{db: db}
}

func (r *GormProfileRepository) FindByAccountID(accountID uint) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.Where("account_id = ?", accountID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *GormProfileRepository) Update(accountID uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	res := r.db.Model(&domain.Profile{}).Where("account_id = ?", accountID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *GormProfileRepository) SetAvatarKey(accountID uint, key string) error {
	return r.Update(accountID, map[string]any{"avatar_key": key})
}
