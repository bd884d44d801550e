package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrConversationNotFound is returned when an operation references a
// conversation id the store has never seen.
var ErrConversationNotFound = errors.New("store: conversation not found")

// CreateConversationIfAbsent atomically creates a conversation record keyed
// by participant pair, along with the per-user index rows. Returns true when
// this call created the record and false when one already existed. Two
// near-simultaneous first sends between the same pair therefore yield exactly
// one conversation.
func (db *DB) CreateConversationIfAbsent(c *Conversation) (bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	res, err := tx.Exec(`
		INSERT INTO conversations (id, pair_key, participant_a, participant_b, name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pair_key) DO NOTHING`,
		c.ID, c.PairKey, c.ParticipantA, c.ParticipantB, c.Name, now)
	if err != nil {
		return false, fmt.Errorf("insert conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	for _, email := range []string{c.ParticipantA, c.ParticipantB} {
		if _, err := tx.Exec(`
			INSERT INTO user_conversations (email, conversation_id)
			VALUES (?, ?)
			ON CONFLICT DO NOTHING`,
			email, c.ID); err != nil {
			return false, fmt.Errorf("index conversation for %q: %w", email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// GetConversation returns a conversation by id, or nil when absent.
func (db *DB) GetConversation(id string) (*Conversation, error) {
	var c Conversation
	var isRead int
	err := db.QueryRow(`
		SELECT id, pair_key, participant_a, participant_b, name,
		       latest_sent_at, latest_preview, latest_is_read, created_at
		FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.PairKey, &c.ParticipantA, &c.ParticipantB, &c.Name,
			&c.Latest.SentAt, &c.Latest.Preview, &isRead, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Latest.IsRead = isRead != 0
	return &c, nil
}

// ListConversations returns a user's conversations, most recent activity
// first, via the per-user index.
func (db *DB) ListConversations(email string, limit, offset int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT c.id, c.pair_key, c.participant_a, c.participant_b, c.name,
		       c.latest_sent_at, c.latest_preview, c.latest_is_read, c.created_at
		FROM user_conversations uc
		JOIN conversations c ON c.id = uc.conversation_id
		WHERE uc.email = ?
		ORDER BY c.latest_sent_at DESC
		LIMIT ? OFFSET ?`, email, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convos []Conversation
	for rows.Next() {
		var c Conversation
		var isRead int
		if err := rows.Scan(&c.ID, &c.PairKey, &c.ParticipantA, &c.ParticipantB, &c.Name,
			&c.Latest.SentAt, &c.Latest.Preview, &isRead, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Latest.IsRead = isRead != 0
		convos = append(convos, c)
	}
	return convos, rows.Err()
}

// MarkConversationRead flips the latest-message read flag. Called when a
// participant opens the conversation.
func (db *DB) MarkConversationRead(id string) error {
	res, err := db.Exec(`UPDATE conversations SET latest_is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// ConversationCount returns the total number of conversations.
func (db *DB) ConversationCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}
