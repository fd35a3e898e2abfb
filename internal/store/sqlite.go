package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codescope-dev/codescope/internal/index"
	"github.com/codescope-dev/codescope/pkg/types"
)

const syncedAtKey = "synced_at"

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the index database at
// dbPath and applies pending migrations. Use ":memory:" for an
// ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the persisted snapshot into memory. Embeddings come back
// nil and are recomputed on the next sync (served from the embedding
// cache when warm).
func (s *SQLiteStore) Load(ctx context.Context) (*index.Index, error) {
	syncedAt, err := s.loadSyncedAt(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, name, qualified_name, parent_id, file,
		       start_line, end_line, line_count, text, doc_comment,
		       token_count, truncated, mtime_ns, meta
		FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*types.Chunk
	for rows.Next() {
		var (
			c       types.Chunk
			kind    string
			mtimeNS int64
			metaRaw string
		)
		if err := rows.Scan(
			&c.ID, &kind, &c.Name, &c.QualifiedName, &c.ParentID, &c.File,
			&c.StartLine, &c.EndLine, &c.LineCount, &c.Text, &c.DocComment,
			&c.TokenCount, &c.Truncated, &mtimeNS, &metaRaw,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Kind = types.ChunkKind(kind)
		c.MTime = time.Unix(0, mtimeNS)
		if err := json.Unmarshal([]byte(metaRaw), &c.Meta); err != nil {
			return nil, fmt.Errorf("%w: meta of chunk %s: %v", types.ErrIndexCorrupt, c.ID, err)
		}
		chunks = append(chunks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	idx, err := index.Build(chunks, syncedAt)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("chunks", idx.Len()).
		Time("synced_at", syncedAt).
		Msg("loaded index from store")
	return idx, nil
}

// Replace swaps the persisted snapshot for idx in one transaction, so
// readers observe either the old index or the new one, never a mix.
func (s *SQLiteStore) Replace(ctx context.Context, idx *index.Index) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (
			id, kind, name, qualified_name, parent_id, file,
			start_line, end_line, line_count, text, doc_comment,
			token_count, truncated, mtime_ns, meta
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range idx.All() {
		metaRaw, err := json.Marshal(c.Meta)
		if err != nil {
			return fmt.Errorf("marshal meta of chunk %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, string(c.Kind), c.Name, c.QualifiedName, c.ParentID, c.File,
			c.StartLine, c.EndLine, c.LineCount, c.Text, c.DocComment,
			c.TokenCount, c.Truncated, c.MTime.UnixNano(), string(metaRaw),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		syncedAtKey, idx.SyncedAt().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("record sync time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Debug().Int("chunks", idx.Len()).Msg("persisted index snapshot")
	return nil
}

func (s *SQLiteStore) loadSyncedAt(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM index_meta WHERE key = ?", syncedAtKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read sync time: %w", err)
	}
	syncedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid sync time %q: %v", types.ErrIndexCorrupt, raw, err)
	}
	return syncedAt, nil
}
