package models

import (
	"time"

	"gorm.io/datatypes"
)

// Provider represents a proxy vendor. Billing rollups group on the
// free-text provider name carried by each proxy; this table only stores
// vendor bookkeeping (API endpoint, key, arbitrary config).
type Provider struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name   string         `gorm:"type:text;not null;uniqueIndex"` // Vendor name.
	APIURL *string        `gorm:"type:text"`                      // Optional vendor API endpoint.
	APIKey *string        `gorm:"type:text"`                      // Optional vendor API key.
	Config datatypes.JSON `gorm:"type:jsonb"`                     // Free-form vendor config.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
