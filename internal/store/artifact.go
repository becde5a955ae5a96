package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/cognidex/cognidex/internal/chunk"
)

// State keys stamped into the artifact alongside chunk records.
const (
	StateEmbedModel   = "embed_model"
	StateEmbedDims    = "embed_dims"
	StateCorpusHash   = "corpus_hash"
	StateBuiltAt      = "built_at"
	StateSchemaKey    = "schema_version"
	artifactSchemaVer = "1"
)

// Record is the persisted per-chunk index artifact: the indexed text, the
// embedding, and the full chunk as metadata so query-time filtering and
// source-level dedup have every field available.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
	Chunk     *chunk.Chunk
	Hash      string
}

// ArtifactStore persists index build output in a single SQLite file.
type ArtifactStore struct {
	db   *sql.DB
	path string
}

// OpenArtifactStore opens (creating if needed) the artifact database.
func OpenArtifactStore(path string) (*ArtifactStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	// WAL must be set via PRAGMA statements; modernc.org/sqlite ignores
	// some DSN parameters.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	s := &ArtifactStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *ArtifactStore) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS chunks (
	id        TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	hash      TEXT NOT NULL,
	text      TEXT NOT NULL,
	metadata  TEXT NOT NULL,
	embedding BLOB
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);
CREATE TABLE IF NOT EXISTS state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create artifact schema: %w", err)
	}
	return s.SetState(context.Background(), StateSchemaKey, artifactSchemaVer)
}

// ReplaceAll swaps the stored records wholesale inside one transaction,
// matching the build-is-a-snapshot model.
func (s *ArtifactStore) ReplaceAll(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin artifact transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (id, source_id, hash, text, metadata, embedding) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		meta, err := json.Marshal(rec.Chunk)
		if err != nil {
			return fmt.Errorf("marshal chunk %s: %w", rec.ID, err)
		}
		_, err = stmt.ExecContext(ctx, rec.ID, rec.Chunk.SourceID, rec.Hash,
			rec.Text, string(meta), encodeEmbedding(rec.Embedding))
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// LoadAll reads every stored record.
func (s *ArtifactStore) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, hash, text, metadata, embedding FROM chunks ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var rec Record
		var meta string
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.Hash, &rec.Text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		var c chunk.Chunk
		if err := json.Unmarshal([]byte(meta), &c); err != nil {
			return nil, fmt.Errorf("unmarshal chunk %s metadata: %w", rec.ID, err)
		}
		rec.Chunk = &c
		rec.Embedding = decodeEmbedding(blob)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get reads one record by chunk id.
func (s *ArtifactStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, hash, text, metadata, embedding FROM chunks WHERE id = ?", id)

	var rec Record
	var meta string
	var blob []byte
	if err := row.Scan(&rec.ID, &rec.Hash, &rec.Text, &meta, &blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get chunk %s: %w", id, err)
	}
	var c chunk.Chunk
	if err := json.Unmarshal([]byte(meta), &c); err != nil {
		return nil, fmt.Errorf("unmarshal chunk %s metadata: %w", id, err)
	}
	rec.Chunk = &c
	rec.Embedding = decodeEmbedding(blob)
	return &rec, nil
}

// Count returns the number of stored records.
func (s *ArtifactStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

// SetState stores a stamp value.
func (s *ArtifactStore) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return err
}

// GetState reads a stamp value; missing keys return "".
func (s *ArtifactStore) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Close closes the database.
func (s *ArtifactStore) Close() error {
	return s.db.Close()
}

// encodeEmbedding packs a vector as little-endian float32 bits.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
