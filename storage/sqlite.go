package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// SQLiteStore keeps documents as JSON rows. It backs local development
// when no Firebase project is configured.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore expects the schema created by migrations.CreateBaseSchema.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	payload, err := s.encode(data)
	if err != nil {
		return "", err
	}

	id := generateID()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)",
		collection, id, payload)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", collection, err)
	}
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decode(payload)
}

func (s *SQLiteStore) List(ctx context.Context, collection, orderField string, desc bool) ([]Document, error) {
	direction := "ASC"
	if desc {
		direction = "DESC"
	}

	// Timestamps are stored fixed width so a text ordering is chronological.
	query := fmt.Sprintf(
		"SELECT id, data FROM documents WHERE collection = ? ORDER BY json_extract(data, ?) %s, rowid %s",
		direction, direction)
	rows, err := s.db.QueryContext(ctx, query, collection, "$."+orderField)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		data, err := decode(payload)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var payload string
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s/%s: %w", collection, id, err)
	}

	existing, err := decode(payload)
	if err != nil {
		return err
	}
	for k, v := range data {
		if _, ok := v.(deleteField); ok {
			delete(existing, k)
			continue
		}
		existing[k] = v
	}

	merged, err := s.encode(existing)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET data = ? WHERE collection = ? AND id = ?",
		merged, collection, id)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLiteStore) encode(data map[string]any) (string, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch tv := v.(type) {
		case serverTimestamp:
			out[k] = formatTimestamp(s.now())
		case deleteField:
			continue
		case time.Time:
			out[k] = formatTimestamp(tv)
		default:
			out[k] = v
		}
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(payload), nil
}

func decode(payload string) (map[string]any, error) {
	data := map[string]any{}
	if err := json.NewDecoder(strings.NewReader(payload)).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return data, nil
}

// generateID mimics Firestore's 20 character auto ids.
func generateID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 20)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}

// SQLiteBlobs stores images in the blobs table and serves them from the
// panel's own /media/ route.
type SQLiteBlobs struct {
	db      *sql.DB
	baseURL string
}

// NewSQLiteBlobs returns URLs rooted at baseURL + "/media/".
func NewSQLiteBlobs(db *sql.DB, baseURL string) *SQLiteBlobs {
	return &SQLiteBlobs{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

func (b *SQLiteBlobs) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	_, err := b.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO blobs (path, content_type, data) VALUES (?, ?, ?)",
		path, contentType, data)
	if err != nil {
		return "", fmt.Errorf("store blob %s: %w", path, err)
	}
	return b.baseURL + "/media/" + path, nil
}

// Get returns a stored blob for the media route.
func (b *SQLiteBlobs) Get(ctx context.Context, path string) (string, []byte, error) {
	var contentType string
	var data []byte
	err := b.db.QueryRowContext(ctx,
		"SELECT content_type, data FROM blobs WHERE path = ?", path).Scan(&contentType, &data)
	if err == sql.ErrNoRows {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("load blob %s: %w", path, err)
	}
	return contentType, data, nil
}
