package domain

import "time"

// Profile carries the free-form display attributes of an account.
// One profile exists per account; it is created together with the account.
type Profile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AccountID   uint      `gorm:"uniqueIndex;not null" json:"account_id"`
	FirstName   string    `gorm:"size:250" json:"first_name"`
	LastName    string    `gorm:"size:250" json:"last_name"`
	AvatarKey   string    `gorm:"size:1024" json:"-"`
	Description string    `gorm:"size:2000" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
