package embedding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrUnsupportedDriver is returned by OpenStore for unknown drivers.
var ErrUnsupportedDriver = errors.New("unsupported embedding store driver")

// Store persists product vectors keyed by (model, text hash) so that index
// rebuilds only embed texts that changed.
type Store interface {
	Lookup(ctx context.Context, model string, hashes []string) (map[string][]float32, error)
	Save(ctx context.Context, model string, vectors map[string][]float32) error
	Count(ctx context.Context, model string) (int, error)
	Close() error
}

// lookupChunk bounds the IN list size per query.
const lookupChunk = 500

// SQLStore is a Store backed by SQLite or PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenStore opens and migrates an embedding store. driver is "sqlite" or
// "postgres".
func OpenStore(ctx context.Context, driver, dsn string, maxOpenConns int) (*SQLStore, error) {
	var sqlDriver string
	switch driver {
	case "sqlite", "sqlite3":
		sqlDriver = "sqlite3"
	case "postgres", "postgresql":
		sqlDriver = "postgres"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", sqlDriver, err)
	}
	if sqlDriver == "sqlite3" {
		// SQLite serialises writers anyway.
		db.SetMaxOpenConns(1)
	} else if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", sqlDriver, err)
	}

	s := &SQLStore{db: db, driver: sqlDriver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	blobType := "BLOB"
	if s.driver == "postgres" {
		blobType = "BYTEA"
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS product_embeddings (
			model      TEXT NOT NULL,
			text_hash  TEXT NOT NULL,
			dimension  INTEGER NOT NULL,
			vector     %s NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (model, text_hash)
		)`, blobType)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate embedding store: %w", err)
	}
	return nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Lookup returns the stored vectors for the hashes that are present.
func (s *SQLStore) Lookup(ctx context.Context, model string, hashes []string) (map[string][]float32, error) {
	found := make(map[string][]float32, len(hashes))
	for start := 0; start < len(hashes); start += lookupChunk {
		end := min(start+lookupChunk, len(hashes))
		chunk := hashes[start:end]

		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, model)
		marks := make([]string, len(chunk))
		for i, h := range chunk {
			marks[i] = s.placeholder(i + 2)
			args = append(args, h)
		}

		query := fmt.Sprintf(`
			SELECT text_hash, vector FROM product_embeddings
			WHERE model = %s AND text_hash IN (%s)`,
			s.placeholder(1), strings.Join(marks, ", "))

		if err := s.scanVectors(ctx, query, args, found); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (s *SQLStore) scanVectors(ctx context.Context, query string, args []interface{}, into map[string][]float32) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		var blob []byte
		if err := rows.Scan(&hash, &blob); err != nil {
			return fmt.Errorf("scan embedding: %w", err)
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return fmt.Errorf("decode embedding %s: %w", hash, err)
		}
		into[hash] = vec
	}
	return rows.Err()
}

// Save upserts vectors in a single transaction.
func (s *SQLStore) Save(ctx context.Context, model string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		INSERT INTO product_embeddings (model, text_hash, dimension, vector, updated_at)
		VALUES (%s, %s, %s, %s, %s)
		ON CONFLICT (model, text_hash) DO UPDATE SET
			dimension = excluded.dimension,
			vector = excluded.vector,
			updated_at = excluded.updated_at`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for hash, vec := range vectors {
		if _, err := stmt.ExecContext(ctx, model, hash, len(vec), EncodeVector(vec), now); err != nil {
			return fmt.Errorf("upsert embedding %s: %w", hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Count returns how many vectors are stored for model.
func (s *SQLStore) Count(ctx context.Context, model string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM product_embeddings WHERE model = %s`, s.placeholder(1))
	var n int
	if err := s.db.QueryRowContext(ctx, query, model).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
