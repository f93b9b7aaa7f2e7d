package migrations

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"tregorent/backend/config"
)

// DevAdminEmail signs in as the seeded administrator in development.
const DevAdminEmail = "admin@tregorent.local"

// DevGuestEmail has a profile without the admin role.
const DevGuestEmail = "guest@tregorent.local"

// SeedDevData seeds profiles, listings and reservations for local development.
// It only runs when ENV and APP_ENV are unset or name development.
func SeedDevData(db *sql.DB) (err error) {
	if !config.IsDevelopmentEnv(os.Getenv("ENV")) || !config.IsDevelopmentEnv(os.Getenv("APP_ENV")) {
		log.Println("Refusing to seed dev data outside a development environment")
		return nil
	}
	if os.Getenv("SEED_DEV_DATA") == "false" {
		log.Println("Skipping dev data seeding - SEED_DEV_DATA=false")
		return nil
	}

	log.Println("Seeding dev data...")

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	stamp := func(d time.Duration) string {
		return now.Add(-d).Format("2006-01-02T15:04:05.000000000Z")
	}

	seeds := []struct {
		collection string
		id         string
		data       map[string]any
	}{
		{"users", DevAdminEmail, map[string]any{"name": "Admin", "role": "admin"}},
		{"users", DevGuestEmail, map[string]any{"name": "Guest", "role": "user"}},
		{"apartments", "apt_seed_1", map[string]any{
			"name": "Ocean View Suite", "price": 450000, "description": "Two bedrooms facing the sea",
			"bedrooms": 2, "bathrooms": 1, "place": "Kaloum", "category": "Suite",
			"images": []string{}, "createdAt": stamp(48 * time.Hour), "contactClicks": 3,
		}},
		{"cars", "car_seed_1", map[string]any{
			"name": "Toyota Corolla", "price": 350000, "description": "Reliable city car",
			"model": "2019", "transmission": "Automatic", "airConditioning": "Yes",
			"images": []string{}, "createdAt": stamp(24 * time.Hour), "contactClicks": 5,
		}},
		{"reservations", "res_seed_1", map[string]any{
			"itemName": "Ocean View Suite", "itemType": "apartment", "userName": "Mariama",
			"startDate": stamp(-72 * time.Hour), "endDate": stamp(-144 * time.Hour),
			"duration": 3, "totalPrice": 1350000, "status": "pending", "createdAt": stamp(time.Hour),
		}},
	}

	for _, seed := range seeds {
		var count int
		err = tx.QueryRow("SELECT COUNT(*) FROM documents WHERE collection = ? AND id = ?", seed.collection, seed.id).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check seed %s/%s: %w", seed.collection, seed.id, err)
		}
		if count > 0 {
			continue
		}

		var payload []byte
		payload, err = json.Marshal(seed.data)
		if err != nil {
			return fmt.Errorf("failed to encode seed %s/%s: %w", seed.collection, seed.id, err)
		}
		_, err = tx.Exec("INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)", seed.collection, seed.id, string(payload))
		if err != nil {
			return fmt.Errorf("failed to insert seed %s/%s: %w", seed.collection, seed.id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dev seed: %w", err)
	}

	log.Println("Dev data seeded")
	return nil
}
