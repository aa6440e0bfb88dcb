// SPDX-License-Identifier: ISC

// Package sqlbackend implements the storage.Handle contract on top of
// the mandatory SQL-backed table (id INTEGER PRIMARY KEY AUTOINCREMENT,
// k BLOB UNIQUE, v BLOB), against an embedded sqlite3 file.
package sqlbackend

import (
	"database/sql"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/storage"
)

func init() {
	storage.Register("sql", open)
}

type handle struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	k  BLOB UNIQUE NOT NULL,
	v  BLOB NOT NULL
);
`

func open(path string, mode storage.Mode) (storage.Handle, error) {
	if mode == storage.ModeCreate {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fault.ErrIO
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fault.ErrIO
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fault.ErrIO
	}
	return &handle{db: db}, nil
}

func (h *handle) Close() error {
	if err := h.db.Close(); err != nil {
		return fault.ErrIO
	}
	return nil
}

func (h *handle) Get(k []byte) ([]byte, bool, error) {
	var value []byte
	err := h.db.Get(&value, `SELECT v FROM kv WHERE k = ?`, k)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fault.ErrIO
	}
	return value, true, nil
}

func (h *handle) Set(k, v []byte) error {
	_, err := h.db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v`, k, v)
	if err != nil {
		return fault.ErrIO
	}
	return nil
}

func (h *handle) Delete(k []byte) error {
	if _, err := h.db.Exec(`DELETE FROM kv WHERE k = ?`, k); err != nil {
		return fault.ErrIO
	}
	return nil
}

func (h *handle) Exists(k []byte) (bool, error) {
	var count int
	err := h.db.Get(&count, `SELECT COUNT(*) FROM kv WHERE k = ?`, k)
	if err != nil {
		return false, fault.ErrIO
	}
	return count > 0, nil
}

func (h *handle) Range(prefix []byte, limit int) ([]storage.Pair, error) {
	// sqlite BLOB comparison is already byte-lexicographic, so a plain
	// ORDER BY k gives the required ascending key order.
	query := `SELECT k, v FROM kv WHERE k >= ? AND k < ? ORDER BY k ASC`
	upper := prefixUpperBound(prefix)

	rows := []struct {
		K []byte `db:"k"`
		V []byte `db:"v"`
	}{}

	var err error
	if upper == nil {
		err = h.db.Select(&rows, `SELECT k, v FROM kv WHERE k >= ? ORDER BY k ASC`, prefix)
	} else {
		err = h.db.Select(&rows, query, prefix, upper)
	}
	if err != nil {
		return nil, fault.ErrIO
	}

	pairs := make([]storage.Pair, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, storage.Pair{Key: r.K, Value: r.V})
		if limit > 0 && len(pairs) >= limit {
			break
		}
	}
	return pairs, nil
}

func (h *handle) Import(src storage.Handle) error {
	pairs, err := src.Range(nil, 0)
	if err != nil {
		return err
	}

	tx, err := h.db.Beginx()
	if err != nil {
		return fault.ErrIO
	}
	if _, err := tx.Exec(`DELETE FROM kv`); err != nil {
		tx.Rollback()
		return fault.ErrIO
	}
	for _, p := range pairs {
		if _, err := tx.Exec(`INSERT INTO kv (k, v) VALUES (?, ?)`, p.Key, p.Value); err != nil {
			tx.Rollback()
			return fault.ErrIO
		}
	}
	if err := tx.Commit(); err != nil {
		return fault.ErrIO
	}
	return nil
}

// prefixUpperBound returns the smallest byte string greater than every
// string starting with prefix, or nil if prefix is empty or all 0xff.
func prefixUpperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	upper := append([]byte(nil), prefix...)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
