package domain

import "time"

type Task struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"index:idx_tasks_account;not null" json:"account_id"`
	Title     string    `gorm:"size:225;not null;index" json:"title"`
	IsDone    bool      `gorm:"not null;default:false;index:idx_tasks_done" json:"is_done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
