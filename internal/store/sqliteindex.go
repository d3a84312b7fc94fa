package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteIndex stores records in a single SQLite file. Embeddings are kept
// as sqlite-vec float32 blobs, so the file stays queryable with vec_*
// functions from the sqlite3 shell.
type SQLiteIndex struct {
	db         *sql.DB
	vecVersion string
}

// OpenSQLiteIndex opens or creates the database at path and checks that
// the sqlite-vec extension is loaded.
func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteIndex{db: db, vecVersion: vecVersion}, nil
}

// VecVersion returns the loaded sqlite-vec version.
func (s *SQLiteIndex) VecVersion() string { return s.vecVersion }

func (s *SQLiteIndex) Load() ([]Record, error) {
	rows, err := s.db.Query("SELECT id, text, embedding, metadata FROM records ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r    Record
			blob []byte
			meta string
		)
		if err := rows.Scan(&r.ID, &r.Text, &blob, &meta); err != nil {
			return nil, err
		}
		if r.Embedding, err = deserializeFloat32(blob); err != nil {
			return nil, fmt.Errorf("record %q: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("record %q metadata: %w", r.ID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Save replaces every row in one transaction.
func (s *SQLiteIndex) Save(records []Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records"); err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT INTO records (position, id, text, embedding, metadata) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		blob, err := sqlite_vec.SerializeFloat32(r.Embedding)
		if err != nil {
			return fmt.Errorf("serialize embedding for %q: %w", r.ID, err)
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %q: %w", r.ID, err)
		}
		if _, err := stmt.Exec(i, r.ID, r.Text, blob, string(meta)); err != nil {
			return fmt.Errorf("insert %q: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// deserializeFloat32 reverses sqlite_vec.SerializeFloat32 (little-endian float32).
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
