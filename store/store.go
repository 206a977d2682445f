// Package store archives named density matrices in a sqlite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableMatrix  = "m"
	tableElement = "e"
)

// Store is a sqlite archive of dense float64 matrices keyed by name.
type Store struct {
	Path string

	db *sql.DB
}

// Open opens or creates the archive at dbPath.
func Open(dbPath string) (*Store, error) {
	s := &Store{Path: dbPath}
	var err error
	s.db, err = newDB(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return s, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Put saves data under name, replacing any matrix already stored there.
func (s *Store) Put(name string, data []float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer tx.Rollback()

	sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE name=?`, tableElement)
	if _, err := tx.ExecContext(ctx, sqlStr, name); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`INSERT OR REPLACE INTO %s (name, size) VALUES (?, ?)`, tableMatrix)
	if _, err := tx.ExecContext(ctx, sqlStr, name, len(data)); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`INSERT INTO %s (name, idx, v) VALUES (?, ?, ?)`, tableElement)
	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer stmt.Close()
	for i, v := range data {
		if v == 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, name, i, v); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s %d", name, i))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Get loads the matrix stored under name. Elements never written come
// back zero.
func (s *Store) Get(name string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sqlStr := fmt.Sprintf(`SELECT size FROM %s WHERE name=?`, tableMatrix)
	var size int
	if err := s.db.QueryRowContext(ctx, sqlStr, name).Scan(&size); err != nil {
		return nil, errors.Wrap(err, name)
	}
	data := make([]float64, size)

	sqlStr = fmt.Sprintf(`SELECT idx, v FROM %s WHERE name=? ORDER BY idx`, tableElement)
	rows, err := s.db.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()
	for rows.Next() {
		var idx int
		var v float64
		if err := rows.Scan(&idx, &v); err != nil {
			return nil, errors.Wrap(err, "")
		}
		data[idx] = v
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return data, nil
}

// Names lists the stored matrices in name order.
func (s *Store) Names() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT name FROM %s ORDER BY name`, tableMatrix)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return names, nil
}

func newDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return db, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, size INTEGER) STRICT`, tableMatrix)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT, idx INTEGER, v REAL, PRIMARY KEY (name, idx)) STRICT`, tableElement)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
