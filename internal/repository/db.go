package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/retendo/account/internal/config"
	"github.com/retendo/account/internal/domain"
)

// Open connects to the configured database. TranslateError is on so unique
// constraint violations surface as gorm.ErrDuplicatedKey on every driver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	case "sqlite":
		dsn := cfg.DatabaseDSN
		if dsn == "" {
			dsn = "file:account?mode=memory&cache=shared"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("open database: unsupported driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Migrate applies the schema for every persisted entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Device{},
		&domain.RNID{},
		&domain.NEXAccount{},
		&domain.GameServer{},
	)
}
