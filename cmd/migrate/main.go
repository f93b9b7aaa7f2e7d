package main

import (
	"flag"
	"fmt"
	"log"

	"tregorent/backend/config"
	"tregorent/backend/database"
)

func main() {
	cfg := config.Load()
	path := flag.String("db", cfg.SQLitePath, "SQLite database to migrate")
	flag.Parse()

	db, err := database.Open(*path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	database.DB = db
	defer database.DB.Close()

	if err := database.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	fmt.Printf("Migrations completed successfully for %s\n", *path)
}
