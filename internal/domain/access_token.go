package domain

import "time"

// AccessToken is the opaque login credential: one persistent row per account,
// returned unchanged on every login and revocable by deletion. The key is
// random and only ever matched by server-side lookup.
type AccessToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	AccountID  uint       `gorm:"uniqueIndex;not null" json:"account_id"`
	Key        string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
