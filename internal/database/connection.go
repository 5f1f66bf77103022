package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Driver names accepted by Connect.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// sqliteParams waits up to 5s for a lock held elsewhere and takes the write
// lock at BEGIN.
const sqliteParams = "_busy_timeout=5000&_txlock=immediate"

// Options selects and locates the database.
type Options struct {
	// Type is "sqlite" or "postgres".
	Type string
	// Path is the SQLite file. ":memory:" and "file:" URIs are passed through.
	Path string
	// URL is the PostgreSQL connection string.
	URL string
}

// Connect opens the database and makes sure the schema exists.
func Connect(opts Options) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch opts.Type {
	case "postgres", "postgresql":
		if opts.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for postgres")
		}
		db, err = sqlx.Connect(DriverPostgres, opts.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	case "", "sqlite", "sqlite3":
		db, err = connectSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", opts.Type)
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func connectSQLite(path string) (*sqlx.DB, error) {
	if path == "" {
		path = filepath.Join("data", "reviewq.db")
	}
	if path != ":memory:" && !isURI(path) {
		// Create data directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect(DriverSQLite, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
	db.SetMaxIdleConns(1)
	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqliteParams
	}
	return path + "?" + sqliteParams
}

func isURI(path string) bool {
	return strings.HasPrefix(path, "file:")
}

// isBusy reports whether err is SQLite giving up on a lock held by another
// connection or process.
func isBusy(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS questions (
		id %s,
		exam_id BIGINT NOT NULL,
		question_type INTEGER NOT NULL DEFAULT 1,
		title TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_exam ON questions(exam_id, id)`,
	`CREATE TABLE IF NOT EXISTS review_tracks (
		user_id BIGINT NOT NULL,
		question_id BIGINT NOT NULL,
		exam_id BIGINT NOT NULL,
		question_type INTEGER NOT NULL,
		correct_count INTEGER NOT NULL DEFAULT 0,
		error_count INTEGER NOT NULL DEFAULT 0,
		total_count INTEGER NOT NULL DEFAULT 0,
		last_answer_time TEXT NOT NULL,
		next_review_time TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		cycle_index INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_review_tracks_next_review ON review_tracks(user_id, status, next_review_time)`,
	`CREATE TABLE IF NOT EXISTS exam_sessions (
		id %s,
		user_id BIGINT NOT NULL,
		exam_id BIGINT NOT NULL,
		quota INTEGER NOT NULL,
		question_ids TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// InitSchema creates the tables if they don't exist.
func InitSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == DriverPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	for _, stmt := range schema {
		if strings.Contains(stmt, "%s") {
			stmt = fmt.Sprintf(stmt, serial)
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
