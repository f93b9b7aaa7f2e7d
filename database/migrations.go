package database

import (
	"log"

	"tregorent/backend/migrations"
)

// RunMigrations runs all database migrations against DB
func RunMigrations() error {
	log.Println("Running database migrations...")

	if err := migrations.RunMigrations(DB); err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}
