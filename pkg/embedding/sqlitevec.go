package embedding

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/c360/semdedup/errors"
)

func init() {
	sqlite_vec.Auto()
}

// SQLiteLookup implements Lookup over a local SQLite database with the
// sqlite-vec extension, the file-based alternative to a NATS KV bucket for
// precomputed graph embeddings.
//
// Schema:
//
//	entities(id INTEGER PRIMARY KEY, uri TEXT UNIQUE NOT NULL)
//	vec_entities(entity_id INTEGER PRIMARY KEY, embedding float[dim])
type SQLiteLookup struct {
	db  *sql.DB
	dim int
}

// OpenSQLiteLookup opens (or creates) a sqlite-vec database at the given
// path for vectors of the declared dimensionality.
func OpenSQLiteLookup(path string, dimensions int) (*SQLiteLookup, error) {
	if dimensions <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "SQLiteLookup", "Open",
			"dimensions must be positive")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "SQLiteLookup", "Open", "open "+path)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS entities (
			id  INTEGER PRIMARY KEY,
			uri TEXT UNIQUE NOT NULL
		);
		CREATE VIRTUAL TABLE IF NOT EXISTS vec_entities USING vec0(
			entity_id INTEGER PRIMARY KEY,
			embedding float[%d]
		);`, dimensions)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.WrapFatal(err, "SQLiteLookup", "Open", "initialize schema")
	}

	return &SQLiteLookup{db: db, dim: dimensions}, nil
}

// Close releases the database handle.
func (l *SQLiteLookup) Close() error {
	return l.db.Close()
}

// Vector returns the precomputed embedding for an entity URI.
func (l *SQLiteLookup) Vector(ctx context.Context, uri string) ([]float32, bool, error) {
	var blob []byte
	err := l.db.QueryRowContext(ctx, `
		SELECT v.embedding
		FROM vec_entities v
		JOIN entities e ON e.id = v.entity_id
		WHERE e.uri = ?`, uri).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrStorageUnavailable, err),
			"SQLiteLookup", "Vector", "query embedding")
	}

	vec, err := deserializeFloat32(blob)
	if err != nil {
		return nil, false, errors.WrapInvalid(err, "SQLiteLookup", "Vector", "decode embedding")
	}
	return vec, true, nil
}

// Dimensions returns the declared vector dimensionality.
func (l *SQLiteLookup) Dimensions() int {
	return l.dim
}

// Insert stores one precomputed vector. Used by loader tooling.
func (l *SQLiteLookup) Insert(ctx context.Context, uri string, vector []float32) error {
	if len(vector) != l.dim {
		return errors.WrapInvalid(errors.ErrDimensionMismatch, "SQLiteLookup", "Insert",
			fmt.Sprintf("vector has %d dimensions, store expects %d", len(vector), l.dim))
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapTransient(err, "SQLiteLookup", "Insert", "begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO entities (uri) VALUES (?)", uri)
	if err != nil {
		return errors.WrapTransient(err, "SQLiteLookup", "Insert", "insert entity row")
	}

	var entityID int64
	if n, _ := res.RowsAffected(); n > 0 {
		entityID, _ = res.LastInsertId()
	} else {
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM entities WHERE uri = ?", uri).Scan(&entityID); err != nil {
			return errors.WrapTransient(err, "SQLiteLookup", "Insert", "resolve entity id")
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_entities (entity_id, embedding) VALUES (?, ?)",
		entityID, serializeFloat32(vector)); err != nil {
		return errors.WrapTransient(err, "SQLiteLookup", "Insert", "insert embedding")
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapTransient(err, "SQLiteLookup", "Insert", "commit")
	}
	return nil
}

// serializeFloat32 encodes a vector in the little-endian layout sqlite-vec
// expects for float[] columns.
func serializeFloat32(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func deserializeFloat32(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
