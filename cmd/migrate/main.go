// cmd/migrate/main.go - Schema migration and feed trigger install
package main

import (
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"taskdeck/internal/config"
	"taskdeck/internal/database"
	"taskdeck/internal/feed"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database, false)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	log.Println("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Install the change-feed trigger on the tasks table
	log.Println("Installing task change trigger...")
	sqlxDB, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect for trigger install: %v", err)
	}
	defer sqlxDB.Close()
	if err := feed.InstallTrigger(sqlxDB, cfg.Feed.Channel); err != nil {
		log.Fatalf("Failed to install trigger: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}
