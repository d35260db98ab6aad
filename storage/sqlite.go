// SQLite-backed item store and conversation storage.
//
// Information Hiding:
// - Connection management hidden behind the interfaces
// - Schema and FTS5 index details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling
package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/chronica/model"
)

// SqliteStore implements ItemStore and ConversationStorage on one SQLite file.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			scope TEXT NOT NULL,
			ts INTEGER NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			embedding BLOB,
			metric REAL,
			parent_id TEXT NOT NULL DEFAULT '',
			fragment_id TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_items_scope_ts
		ON items(scope, ts);

		CREATE VIRTUAL TABLE IF NOT EXISTS items_fts
		USING fts5(item_id UNINDEXED, scope UNINDEXED, text);

		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS turns (
			session_id TEXT NOT NULL,
			turn_index INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (session_id, turn_index),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// PutItems inserts or replaces items and keeps the FTS index in sync.
func (s *SqliteStore) PutItems(ctx context.Context, items []model.SearchableItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	itemStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO items (id, scope, ts, text, embedding, metric, parent_id, fragment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	for _, it := range items {
		var metric any
		if it.Metric != nil {
			metric = *it.Metric
		}
		_, err = itemStmt.ExecContext(ctx, it.ID, string(it.Scope), it.Timestamp.Unix(),
			it.Text, encodeEmbedding(it.Embedding), metric, it.ParentID, it.FragmentID)
		if err != nil {
			return fmt.Errorf("failed to insert item %s: %w", it.ID, err)
		}

		_, err = tx.ExecContext(ctx, "DELETE FROM items_fts WHERE item_id = ?", it.ID)
		if err != nil {
			return fmt.Errorf("failed to clear FTS row for %s: %w", it.ID, err)
		}
		if it.Text != "" {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO items_fts (item_id, scope, text) VALUES (?, ?, ?)",
				it.ID, string(it.Scope), it.Text)
			if err != nil {
				return fmt.Errorf("failed to index item %s: %w", it.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListItems returns items in the scope matching the filter, by timestamp ascending.
func (s *SqliteStore) ListItems(ctx context.Context, scope model.Scope, f ItemFilter) ([]model.SearchableItem, error) {
	query := "SELECT id, scope, ts, text, embedding, metric, parent_id, fragment_id FROM items WHERE scope = ?"
	args := []any{string(scope)}

	if f.Start != nil {
		query += " AND ts >= ?"
		args = append(args, f.Start.Unix())
	}
	if f.End != nil {
		query += " AND ts <= ?"
		args = append(args, f.End.Unix())
	}
	if len(f.IDs) > 0 {
		query += " AND id IN (?" + strings.Repeat(",?", len(f.IDs)-1) + ")"
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY ts ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []model.SearchableItem{}
	for rows.Next() {
		var it model.SearchableItem
		var scopeStr string
		var ts int64
		var emb []byte
		var metric sql.NullFloat64
		if err := rows.Scan(&it.ID, &scopeStr, &ts, &it.Text, &emb, &metric, &it.ParentID, &it.FragmentID); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.Scope = model.Scope(scopeStr)
		it.Timestamp = time.Unix(ts, 0).UTC()
		it.Embedding = decodeEmbedding(emb)
		if metric.Valid {
			v := metric.Float64
			it.Metric = &v
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// KeywordRank returns the raw FTS5 relevance of one item for a keyword.
// SQLite's bm25() ranks lower-is-better and negative, so the sign is flipped
// to yield an unbounded better-is-higher score. Unmatched items score 0.
func (s *SqliteStore) KeywordRank(ctx context.Context, keyword, itemID string) (float64, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || itemID == "" {
		return 0, nil
	}

	var rank float64
	err := s.db.QueryRowContext(ctx,
		"SELECT -bm25(items_fts) FROM items_fts WHERE items_fts MATCH ? AND item_id = ?",
		ftsQuery(keyword), itemID).Scan(&rank)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to rank keyword: %w", err)
	}
	if rank < 0 {
		rank = 0
	}
	return rank, nil
}

// KeywordRanks returns raw FTS5 relevance for all matching items in a scope.
func (s *SqliteStore) KeywordRanks(ctx context.Context, scope model.Scope, keyword string) (map[string]float64, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return map[string]float64{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT item_id, -bm25(items_fts) FROM items_fts WHERE items_fts MATCH ? AND scope = ?",
		ftsQuery(keyword), string(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword ranks: %w", err)
	}
	defer rows.Close()

	ranks := make(map[string]float64)
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, fmt.Errorf("failed to scan keyword rank: %w", err)
		}
		if rank < 0 {
			rank = 0
		}
		ranks[id] = rank
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keyword ranks: %w", err)
	}
	return ranks, nil
}

// ftsQuery quotes each term so user keywords cannot inject FTS5 syntax.
func ftsQuery(keyword string) string {
	terms := strings.Fields(keyword)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

func (s *SqliteStore) ensureSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (session_id) VALUES (?)", sessionID)
	if err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}
	return nil
}

// Save saves the transcript for a session.
func (s *SqliteStore) Save(ctx context.Context, sessionID string, transcript []model.ConversationTurn) error {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, "DELETE FROM turns WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to clear old turns: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO turns (session_id, turn_index, kind, payload) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare turn insert: %w", err)
	}
	defer stmt.Close()

	for i, turn := range transcript {
		payload, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn %d: %w", i, err)
		}
		if _, err = stmt.ExecContext(ctx, sessionID, i, string(turn.Kind), string(payload)); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = datetime('now') WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Load loads the transcript for a session.
// Returns an empty slice if the session doesn't exist.
func (s *SqliteStore) Load(ctx context.Context, sessionID string) ([]model.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM turns WHERE session_id = ? ORDER BY turn_index ASC", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	transcript := []model.ConversationTurn{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		var turn model.ConversationTurn
		if err := json.Unmarshal([]byte(payload), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		transcript = append(transcript, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}
	return transcript, nil
}

// Delete removes a session's transcript.
func (s *SqliteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM turns WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	return nil
}

// ListSessions lists all session IDs, most recently updated first.
func (s *SqliteStore) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// encodeEmbedding packs a float32 vector into a little-endian blob.
func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// Verify interface conformance
var (
	_ ItemStore           = (*SqliteStore)(nil)
	_ ConversationStorage = (*SqliteStore)(nil)
)
