package db

import (
	"fmt"

	"github.com/blong711/Proxy-Manager/internal/models"
	"gorm.io/gorm"
)

// Migrate applies schema migrations for all engine tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Provider{},
		&models.Proxy{},
		&models.Account{},
		&models.Setting{},
	)
}
