package main

import (
	"log"

	"github.com/akozyrev/transcript-analyzer/internal/infrastructure/database"
	"github.com/akozyrev/transcript-analyzer/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	log.Println("🔄 Applying migrations...")
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
}
