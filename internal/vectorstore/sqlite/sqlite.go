package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"ragchat/internal/domain"

	_ "modernc.org/sqlite"
)

// Store persists a vector collection in a SQLite database under the
// configured storage path, one database file per collection. Similarity
// search loads the stored vectors and ranks by cosine similarity; passage
// counts in this application stay small enough for a full scan.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS passages (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	file_name  TEXT,
	page_label TEXT,
	vector     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passages_file_name ON passages(file_name);
`

// Open creates or opens the collection database under storePath. The
// directory is created on first use.
func Open(storePath, collection string) (*Store, error) {
	if err := os.MkdirAll(storePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}
	dbPath := filepath.Join(storePath, collection+".db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collection, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init collection schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

func (s *Store) Exists(ctx context.Context) (bool, error) {
	if s.db == nil {
		return false, nil
	}
	if _, err := os.Stat(s.path); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Store) Filenames(ctx context.Context) (map[string]struct{}, error) {
	if s.db == nil {
		return nil, errors.New("collection is closed")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT file_name FROM passages WHERE file_name IS NOT NULL AND file_name != ''`)
	if err != nil {
		return nil, fmt.Errorf("read collection metadata: %w", err)
	}
	defer rows.Close()
	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}

func (s *Store) Insert(ctx context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) {
		return errors.New("passages and vectors length mismatch")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// REPLACE makes re-inserting a passage ID idempotent. The manager never
	// re-extracts an indexed file, so this only fires when a build was
	// interrupted and retried; the collection still only grows.
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO passages (id, text, file_name, page_label, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for i, p := range passages {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Text,
			p.Metadata[domain.MetaFileName], p.Metadata[domain.MetaPageLabel],
			encodeVector(vectors[i])); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert passage %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedPassage, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, file_name, page_label, vector FROM passages`)
	if err != nil {
		return nil, fmt.Errorf("scan collection: %w", err)
	}
	defer rows.Close()

	var results []domain.RetrievedPassage
	for rows.Next() {
		var (
			p           domain.Passage
			name, page  string
			vectorBytes []byte
		)
		if err := rows.Scan(&p.ID, &p.Text, &name, &page, &vectorBytes); err != nil {
			return nil, err
		}
		p.Metadata = map[string]string{
			domain.MetaFileName:  name,
			domain.MetaPageLabel: page,
		}
		results = append(results, domain.RetrievedPassage{
			Passage: p,
			Score:   cosine(decodeVector(vectorBytes), vector),
			Scored:  true,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n)
	return n, err
}

// Drop closes the database and removes its files from disk.
func (s *Store) Drop(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("close collection: %w", err)
		}
		s.db = nil
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(s.path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove collection data: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
