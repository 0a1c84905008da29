package models

import "time"

// Account statuses tracked by the dashboard.
const (
	// AccountActive marks an account in rotation.
	AccountActive = "active"
	// AccountInactive marks a parked account.
	AccountInactive = "inactive"
	// AccountBanned marks an account banned by its platform.
	AccountBanned = "banned"
)

// AccountStatuses lists all account states.
var AccountStatuses = []string{AccountActive, AccountInactive, AccountBanned}

// ValidAccountStatus reports whether s is a known account state.
func ValidAccountStatus(s string) bool {
	for _, known := range AccountStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Account represents a platform account optionally routed through a proxy.
// The proxy reference is a weak binding: deleting a proxy either rejects or
// clears it depending on the configured policy, never cascades to the account.
type Account struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null"` // Platform login name.
	Password string `gorm:"type:text;not null"` // Platform password.
	Platform string `gorm:"type:text;not null"` // Platform label.

	Status string  `gorm:"type:text;not null;default:'active'"` // Account state.
	Note   *string `gorm:"type:text"`                           // Optional free text.

	ProxyID *uint64 `gorm:"index"` // Weak reference to the proxy routing this account.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
