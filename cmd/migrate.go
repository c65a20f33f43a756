package main

import (
	"os"

	"github.com/geezlabs/geez-bingo/config"
	"github.com/geezlabs/geez-bingo/utils/logger"
)

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatalf("DATABASE_URL is required")
	}
	if _, err := config.SetupDatabase(dsn); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}
	logger.Info("database migration completed")
}
