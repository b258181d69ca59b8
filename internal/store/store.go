package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	_ "modernc.org/sqlite"
)

// ErrVersionConflict is returned by CheckedUpsert when the stored version of
// a record no longer matches the version the caller read.
var ErrVersionConflict = errors.New("record version conflict")

// Store is a document store over sqlite. Each entity kind is a separate
// logical collection; every record is upserted individually under a
// monotonically increasing version, so concurrent writers cannot silently
// lose each other's updates.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE TABLE IF NOT EXISTS teachers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL,
		code_hash TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		teacher_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (teacher_id) REFERENCES teachers(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Read returns every document in a collection in insertion order. An unknown
// collection yields an empty slice; a row whose body cannot be decoded is
// skipped and logged. Read never fails outward.
func (s *Store) Read(collection string) []json.RawMessage {
	docs, err := s.ReadChecked(collection)
	if err != nil {
		slog.Warn("read collection failed, returning empty", "collection", collection, "error", err)
		return nil
	}
	return docs
}

// ReadChecked is Read with the query error surfaced, for callers that need
// to distinguish an empty collection from a failing store.
func (s *Store) ReadChecked(collection string) ([]json.RawMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, data FROM records WHERE collection = ? ORDER BY rowid`, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			slog.Warn("skipping unreadable record", "collection", collection, "error", err)
			continue
		}
		if !json.Valid([]byte(data)) {
			slog.Warn("skipping malformed record", "collection", collection, "id", id)
			continue
		}
		docs = append(docs, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return docs, fmt.Errorf("read %s: %w", collection, err)
	}
	return docs, nil
}

// Get returns a single document by id.
func (s *Store) Get(collection, id string) (json.RawMessage, bool) {
	var data string
	err := s.db.QueryRow(
		`SELECT data FROM records WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		slog.Warn("get record failed", "collection", collection, "id", id, "error", err)
		return nil, false
	}
	return json.RawMessage(data), true
}

// Upsert inserts or replaces one record, bumping its version.
func (s *Store) Upsert(collection, id string, data []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO records (collection, id, version, data) VALUES (?, ?, 1, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, version = version + 1`,
		collection, id, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// CheckedUpsert upserts a record only if its stored version still equals
// expectedVersion (0 for a record the caller believes does not exist yet).
// Returns ErrVersionConflict otherwise.
func (s *Store) CheckedUpsert(collection, id string, data []byte, expectedVersion int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRow(
		`SELECT version FROM records WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
		if expectedVersion != 0 {
			return fmt.Errorf("%s/%s: expected version %d, record missing: %w",
				collection, id, expectedVersion, ErrVersionConflict)
		}
		if _, err := tx.Exec(
			`INSERT INTO records (collection, id, version, data) VALUES (?, ?, 1, ?)`,
			collection, id, string(data),
		); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if current != expectedVersion {
			return fmt.Errorf("%s/%s: expected version %d, found %d: %w",
				collection, id, expectedVersion, current, ErrVersionConflict)
		}
		if _, err := tx.Exec(
			`UPDATE records SET data = ?, version = version + 1 WHERE collection = ? AND id = ?`,
			string(data), collection, id,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Version returns the stored version of a record, 0 when absent.
func (s *Store) Version(collection, id string) (int64, error) {
	var v int64
	err := s.db.QueryRow(
		`SELECT version FROM records WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}

// Delete removes one record.
func (s *Store) Delete(collection, id string) error {
	_, err := s.db.Exec(`DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	return err
}

// Clear removes every record in a collection.
func (s *Store) Clear(collection string) error {
	_, err := s.db.Exec(`DELETE FROM records WHERE collection = ?`, collection)
	return err
}

// ReplaceAll transactionally replaces the whole collection with the given
// documents. A document carrying an "id" field keeps it; one without gets a
// generated identifier. This backs the raw resource overwrite surface.
func (s *Store) ReplaceAll(collection string, docs []json.RawMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM records WHERE collection = ?`, collection); err != nil {
		return err
	}
	for _, doc := range docs {
		id := gjson.GetBytes(doc, "id").String()
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.Exec(
			`INSERT INTO records (collection, id, version, data) VALUES (?, ?, 1, ?)`,
			collection, id, string(doc),
		); err != nil {
			return fmt.Errorf("replace %s: %w", collection, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of records in a collection.
func (s *Store) Count(collection string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&count)
	return count, err
}
