package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tregorent/backend/migrations"
)

// DB is the SQLite handle of the local development backend.
var DB *sql.DB

// Open opens a SQLite database at path (":memory:" for tests) with the
// pragmas the panel relies on for concurrent request handling.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal=WAL&_timeout=10000&_busy_timeout=10000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if path == ":memory:" {
		// Every new connection to :memory: is a fresh, empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Minute * 5)

		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, err
		}
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitDB opens the database at path, runs migrations and sets DB.
func InitDB(path string) error {
	db, err := Open(path)
	if err != nil {
		return err
	}

	if err := migrations.RunMigrations(db); err != nil {
		db.Close()
		return err
	}

	DB = db
	return nil
}
