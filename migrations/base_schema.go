package migrations

import (
	"database/sql"
	"fmt"
	"log"
)

// CreateBaseSchema creates the document and blob tables the local
// development backend keeps its collections in.
func CreateBaseSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);

		CREATE TABLE IF NOT EXISTS blobs (
			path TEXT PRIMARY KEY,
			content_type TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create base schema: %w", err)
	}

	log.Println("Base schema created")
	return nil
}

// AddCollectionIndex speeds up the per-collection scans every list view does.
func AddCollectionIndex(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection)`)
	if err != nil {
		return fmt.Errorf("failed to create collection index: %w", err)
	}
	return nil
}
