package main

import (
	"log"
	"os"

	"sharecycle-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Error: migration failed: %v", err)
	}

	log.Println("Step 2: Seeding notification types...")
	if err := database.SeedNotificationTypes(db); err != nil {
		log.Fatalf("Error: seeding notification types failed: %v", err)
	}

	log.Println("Success: database migration completed")
}
