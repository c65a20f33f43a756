package config

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/geezlabs/geez-bingo/models"
	"github.com/geezlabs/geez-bingo/utils/logger"
)

var DB *gorm.DB

// SetupDatabase connects to Postgres and migrates the history tables.
// History is optional: callers skip this entirely when no DATABASE_URL is
// configured.
func SetupDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.Round{},
		&models.Transaction{},
	); err != nil {
		return nil, err
	}

	DB = db
	logger.Info("database connected and migrated")
	return db, nil
}
