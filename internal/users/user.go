package users

import (
	"strings"
	"time"
)

// User is an account that owns bookmarks.
type User struct {
	ID           string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex:idx_users_email"`
	PasswordHash string    `gorm:"column:password_hash;size:100;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
