// Package sqlite persists conversations in a SQLite database, as an
// alternative backend to the in-memory store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id             TEXT PRIMARY KEY,
	interface_type TEXT NOT NULL,
	room_id        TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL,
	metadata       TEXT,
	UNIQUE(room_id, interface_type)
);
CREATE TABLE IF NOT EXISTS turns (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	tier            TEXT NOT NULL CHECK (tier IN ('active', 'archive')),
	position        INTEGER NOT NULL,
	timestamp       TIMESTAMP NOT NULL,
	query           TEXT NOT NULL,
	response        TEXT,
	user_id         TEXT NOT NULL,
	user_name       TEXT,
	metadata        TEXT
);
CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id, tier, position);
CREATE TABLE IF NOT EXISTS summaries (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	start_time      TIMESTAMP NOT NULL,
	end_time        TIMESTAMP NOT NULL,
	text            TEXT NOT NULL,
	turn_count      INTEGER NOT NULL
);
`

// Store implements conversation.Store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateConversation provisions a conversation, returning the existing one on
// a (roomID, interfaceType) collision.
func (s *Store) CreateConversation(ctx context.Context, interfaceType conversation.InterfaceType, roomID string) (*conversation.Conversation, error) {
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}

	if existing, err := s.GetConversationByRoomID(ctx, roomID, interfaceType); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, interface_type, room_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(interfaceType), roomID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	return s.GetConversation(ctx, id)
}

// GetConversation loads a conversation with all three tiers. Nil on miss.
func (s *Store) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, interface_type, room_id, created_at, updated_at, metadata FROM conversations WHERE id = ?`, id)
	return s.scanConversation(ctx, row)
}

// GetConversationByRoomID loads the conversation for a room. Nil on miss.
func (s *Store) GetConversationByRoomID(ctx context.Context, roomID string, interfaceType conversation.InterfaceType) (*conversation.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, interface_type, room_id, created_at, updated_at, metadata FROM conversations WHERE room_id = ? AND interface_type = ?`,
		roomID, string(interfaceType))
	return s.scanConversation(ctx, row)
}

// AddTurn appends a turn to the active tier.
func (s *Store) AddTurn(ctx context.Context, id string, turn conversation.Turn) (*conversation.Conversation, error) {
	if err := s.require(ctx, id, "add turn"); err != nil {
		return nil, err
	}

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	metadata, err := encodeMetadata(turn.Metadata)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM turns WHERE conversation_id = ? AND tier = 'active'`, id).Scan(&next); err != nil {
		return nil, fmt.Errorf("failed to compute turn position: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (id, conversation_id, tier, position, timestamp, query, response, user_id, user_name, metadata)
		 VALUES (?, ?, 'active', ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, id, next, turn.Timestamp, turn.Query, turn.Response, turn.UserID, turn.UserName, metadata); err != nil {
		return nil, fmt.Errorf("failed to insert turn: %w", err)
	}
	if err := touch(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit turn: %w", err)
	}
	return s.GetConversation(ctx, id)
}

// AddSummary appends a summary entry.
func (s *Store) AddSummary(ctx context.Context, id string, summary conversation.Summary) (*conversation.Conversation, error) {
	if err := s.require(ctx, id, "add summary"); err != nil {
		return nil, err
	}
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (id, conversation_id, start_time, end_time, text, turn_count) VALUES (?, ?, ?, ?, ?, ?)`,
		summary.ID, id, summary.StartTime, summary.EndTime, summary.Text, summary.TurnCount)
	if err != nil {
		return nil, fmt.Errorf("failed to insert summary: %w", err)
	}
	return s.GetConversation(ctx, id)
}

// MoveTurnsToArchive moves the active turns at the given indices to the
// archive tier, preserving order.
func (s *Store) MoveTurnsToArchive(ctx context.Context, id string, indices []int) (*conversation.Conversation, error) {
	if err := s.require(ctx, id, "archive turns"); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM turns WHERE conversation_id = ? AND tier = 'active' ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list active turns: %w", err)
	}
	var activeIDs []string
	for rows.Next() {
		var turnID string
		if err := rows.Scan(&turnID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan turn id: %w", err)
		}
		activeIDs = append(activeIDs, turnID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	var archiveNext int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM turns WHERE conversation_id = ? AND tier = 'archive'`, id).Scan(&archiveNext); err != nil {
		return nil, fmt.Errorf("failed to compute archive position: %w", err)
	}

	for _, idx := range indices {
		if idx < 0 || idx >= len(activeIDs) {
			return nil, fmt.Errorf("archive turns of %s: index %d out of range", id, idx)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE turns SET tier = 'archive', position = ? WHERE id = ?`, archiveNext, activeIDs[idx]); err != nil {
			return nil, fmt.Errorf("failed to archive turn: %w", err)
		}
		archiveNext++
	}
	if err := touch(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit archive: %w", err)
	}
	return s.GetConversation(ctx, id)
}

// GetRecentConversations lists conversations by most recent update.
func (s *Store) GetRecentConversations(ctx context.Context, opts conversation.RecentOptions) ([]*conversation.Conversation, error) {
	query := `SELECT id FROM conversations`
	var args []any
	if opts.InterfaceType != "" {
		query += ` WHERE interface_type = ?`
		args = append(args, string(opts.InterfaceType))
	}
	query += ` ORDER BY updated_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	out := make([]*conversation.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			out = append(out, conv)
		}
	}
	return out, nil
}

// DeleteConversation removes the conversation and its tiers.
func (s *Store) DeleteConversation(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}

// UpdateMetadata shallow-merges the patch into the stored metadata.
func (s *Store) UpdateMetadata(ctx context.Context, id string, patch map[string]any) (*conversation.Conversation, error) {
	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("update metadata of %s: %w", id, conversation.ErrNotFound)
	}

	merged := conv.Metadata
	if merged == nil {
		merged = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		merged[k] = v
	}
	encoded, err := encodeMetadata(merged)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET metadata = ?, updated_at = ? WHERE id = ?`, encoded, time.Now().UTC(), id); err != nil {
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}
	return s.GetConversation(ctx, id)
}

func (s *Store) require(ctx context.Context, id, op string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s of %s: %w", op, id, conversation.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check conversation: %w", err)
	}
	return nil
}

func (s *Store) scanConversation(ctx context.Context, row *sql.Row) (*conversation.Conversation, error) {
	var conv conversation.Conversation
	var interfaceType string
	var metadata sql.NullString
	err := row.Scan(&conv.ID, &interfaceType, &conv.RoomID, &conv.CreatedAt, &conv.UpdatedAt, &metadata)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}
	conv.InterfaceType = conversation.InterfaceType(interfaceType)
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &conv.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}

	conv.ActiveTurns, err = s.loadTurns(ctx, conv.ID, "active")
	if err != nil {
		return nil, err
	}
	conv.ArchivedTurns, err = s.loadTurns(ctx, conv.ID, "archive")
	if err != nil {
		return nil, err
	}
	conv.Summaries, err = s.loadSummaries(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Store) loadTurns(ctx context.Context, conversationID, tier string) ([]conversation.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, query, response, user_id, user_name, metadata
		 FROM turns WHERE conversation_id = ? AND tier = ? ORDER BY position`, conversationID, tier)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s turns: %w", tier, err)
	}
	defer rows.Close()

	var turns []conversation.Turn
	for rows.Next() {
		var turn conversation.Turn
		var response, userName, metadata sql.NullString
		if err := rows.Scan(&turn.ID, &turn.Timestamp, &turn.Query, &response, &turn.UserID, &userName, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Response = response.String
		turn.UserName = userName.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &turn.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode turn metadata: %w", err)
			}
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func (s *Store) loadSummaries(ctx context.Context, conversationID string) ([]conversation.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_time, end_time, text, turn_count FROM summaries WHERE conversation_id = ? ORDER BY start_time`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load summaries: %w", err)
	}
	defer rows.Close()

	var summaries []conversation.Summary
	for rows.Next() {
		var summary conversation.Summary
		if err := rows.Scan(&summary.ID, &summary.StartTime, &summary.EndTime, &summary.Text, &summary.TurnCount); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func touch(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

func encodeMetadata(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
