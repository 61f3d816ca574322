package notesdb

import (
	"database/sql"
	_ "embed"
	"errors"

	_ "github.com/mattn/go-sqlite3"
)

var (
	//go:embed files/create_kv_tables.sql
	CREATE_KV_TABLES_SQL string
)

// NotesKey is the single key under which the full note collection is
// persisted, as a JSON array. The name doubles as the app's storage
// namespace.
const NotesKey = "notes_txt_app"

func Initialize(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(CREATE_KV_TABLES_SQL)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	return db, nil
}

// Get returns the value stored under key. The second return value reports
// whether the key was present at all.
func Get(db *sql.DB, key string) (string, bool, error) {
	stmt, err := db.Prepare("SELECT value FROM kv WHERE key = ?")
	if err != nil {
		return "", false, err
	}

	row := stmt.QueryRow(key)

	var value string
	err = row.Scan(&value)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}

	return value, true, nil
}

// Set writes value under key, replacing any previous value. The write is a
// single statement, so a subsequent Get never observes a torn value.
func Set(db *sql.DB, key string, value string) error {
	stmt, err := db.Prepare(`
        INSERT INTO kv (key, value) VALUES (?, ?)
            ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(key, value)
	return err
}

// KV adapts a database handle to callers that want key-value methods
// rather than free functions, such as the note store's Storage interface.
type KV struct {
	DB *sql.DB
}

func (s *KV) Get(key string) (string, bool, error) {
	return Get(s.DB, key)
}

func (s *KV) Set(key string, value string) error {
	return Set(s.DB, key, value)
}

// Delete removes key if present.
func Delete(db *sql.DB, key string) error {
	stmt, err := db.Prepare("DELETE FROM kv WHERE key = ?")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(key)
	return err
}
