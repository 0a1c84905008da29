package models

import "time"

// User roles.
const (
	// RoleAdmin can manage settings and users.
	RoleAdmin = "admin"
	// RoleUser can manage proxies and accounts.
	RoleUser = "user"
)

// User represents a dashboard operator account.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`             // Bcrypt password hash.

	Role   string `gorm:"type:text;not null;default:'user'"` // admin or user.
	Active bool   `gorm:"not null;default:true"`             // Whether the user can sign in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
