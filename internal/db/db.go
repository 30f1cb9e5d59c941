package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/dealflow/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the schema version Init migrates to.
const CurrentSchemaVersion = 1

// FileName is the database file inside the base directory.
const FileName = "dealflow.db"

// Init opens (creating if needed) the pipeline store at baseDir/dealflow.db
// and migrates it. baseDir is normally ~/.dealflow.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Pragmas in the connection string apply to every pooled connection
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
}

// migrations are applied in order; entry i moves user_version from i to i+1.
var migrations = []string{
	schemaV1,
}

const schemaV1 = `
		CREATE TABLE IF NOT EXISTS documents (
		  id              TEXT PRIMARY KEY,
		  source_id       TEXT NOT NULL,
		  origin          TEXT NOT NULL,
		  raw_text        TEXT NOT NULL,
		  sender_address  TEXT,
		  received_at     INTEGER NOT NULL,
		  created_at      INTEGER NOT NULL,
		  updated_at      INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_source_id
		ON documents(source_id);

		CREATE TABLE IF NOT EXISTS candidates (
		  id              TEXT PRIMARY KEY,
		  document_id     TEXT NOT NULL REFERENCES documents(id),
		  source_id       TEXT NOT NULL,
		  company_name    TEXT,
		  company_norm    TEXT,
		  funding_stage   TEXT NOT NULL,
		  warm_intro      INTEGER NOT NULL,
		  degraded        INTEGER NOT NULL,
		  sectors_json    TEXT NOT NULL,
		  candidate_json  TEXT NOT NULL,
		  created_at      INTEGER NOT NULL,
		  superseded_at   INTEGER
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_candidates_current_source
		ON candidates(source_id)
		WHERE superseded_at IS NULL;

		CREATE INDEX IF NOT EXISTS idx_candidates_created
		ON candidates(created_at DESC)
		WHERE superseded_at IS NULL;

		CREATE INDEX IF NOT EXISTS idx_candidates_company
		ON candidates(company_norm)
		WHERE company_norm IS NOT NULL AND superseded_at IS NULL;

		CREATE TABLE IF NOT EXISTS scores (
		  id                TEXT PRIMARY KEY,
		  candidate_id      TEXT REFERENCES candidates(id),
		  company_name      TEXT NOT NULL,
		  company_norm      TEXT NOT NULL,
		  composite         REAL NOT NULL,
		  thesis_relevance  REAL,
		  result_json       TEXT NOT NULL,
		  profile_json      TEXT NOT NULL,
		  created_at        INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scores_company_created
		ON scores(company_norm, created_at DESC);

		CREATE TABLE IF NOT EXISTS memos (
		  id              TEXT PRIMARY KEY,
		  score_id        TEXT NOT NULL REFERENCES scores(id),
		  company_name    TEXT NOT NULL,
		  recommendation  TEXT NOT NULL,
		  memo_markdown   TEXT NOT NULL,
		  memo_json       TEXT NOT NULL,
		  generated_at    INTEGER NOT NULL,
		  created_at      INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memos_score
		ON memos(score_id, created_at DESC);
		`

// migrate brings the schema up to CurrentSchemaVersion. A database written
// by a newer build is left untouched.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	for v := version; v < len(migrations); v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if err := SetUserVersion(db, v+1); err != nil {
			return err
		}
	}
	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
