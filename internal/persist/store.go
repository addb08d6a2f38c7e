// Package persist stores expression weights and type tags in a sqlite file
// so editor sessions can warm their caches across restarts.
package persist

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/lumelang/lume/internal/ident"
)

const schema = `
CREATE TABLE IF NOT EXISTS expr_weights (
	expr_id TEXT PRIMARY KEY,
	weight  REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS expr_types (
	expr_id  TEXT PRIMARY KEY,
	type_key TEXT NOT NULL
);
`

// Store is a sqlite-backed snapshot of per-expression metadata.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveWeights replaces the stored weight table.
func (s *Store) SaveWeights(weights map[ident.ID]float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM expr_weights`); err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO expr_weights (expr_id, weight) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for id, w := range weights {
		if _, err := stmt.Exec(id.String(), w); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadWeights reads the stored weight table. Rows with unparsable ids are
// skipped rather than failing the whole load.
func (s *Store) LoadWeights() (map[ident.ID]float64, error) {
	rows, err := s.db.Query(`SELECT expr_id, weight FROM expr_weights`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	weights := make(map[ident.ID]float64)
	for rows.Next() {
		var raw string
		var w float64
		if err := rows.Scan(&raw, &w); err != nil {
			return nil, err
		}
		id, err := ident.Parse(raw)
		if err != nil {
			continue
		}
		weights[id] = w
	}
	return weights, rows.Err()
}

// SaveTypes replaces the stored type-tag table.
func (s *Store) SaveTypes(types map[ident.ID]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM expr_types`); err != nil {
		tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO expr_types (expr_id, type_key) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for id, key := range types {
		if _, err := stmt.Exec(id.String(), key); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) LoadTypes() (map[ident.ID]string, error) {
	rows, err := s.db.Query(`SELECT expr_id, type_key FROM expr_types`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	types := make(map[ident.ID]string)
	for rows.Next() {
		var raw, key string
		if err := rows.Scan(&raw, &key); err != nil {
			return nil, err
		}
		id, err := ident.Parse(raw)
		if err != nil {
			continue
		}
		types[id] = key
	}
	return types, rows.Err()
}
