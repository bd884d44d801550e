package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/courierhq/courier/internal/message"
)

// AppendMessage appends a message to a conversation's log and refreshes the
// denormalized latest-message snapshot in one transaction. Messages are
// immutable; there is no update path.
func (db *DB) AppendMessage(conversationID string, m *message.Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRow(`SELECT 1 FROM conversations WHERE id = ?`, conversationID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("check conversation: %w", err)
	}

	var (
		mediaURL      string
		width, height int
		lat, lon      sql.NullFloat64
	)
	if ref := m.Content.Media; ref != nil {
		mediaURL = ref.RemoteURL
		width, height = ref.Width, ref.Height
	}
	if loc := m.Content.Location; loc != nil {
		lat = sql.NullFloat64{Float64: loc.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: loc.Longitude, Valid: true}
	}

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		INSERT INTO messages (conversation_id, msg_id, sender_email, sender_name, sent_at,
		                      kind, body, media_url, media_width, media_height, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conversationID, m.ID, m.Sender.SafeEmail, m.Sender.DisplayName, m.SentAt.UnixMilli(),
		string(m.Content.Kind), m.Content.Text, mediaURL, width, height, lat, lon, now); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE conversations
		SET latest_sent_at = ?, latest_preview = ?, latest_is_read = 0
		WHERE id = ?`,
		m.SentAt.UnixMilli(), m.Preview(), conversationID); err != nil {
		return fmt.Errorf("update latest message: %w", err)
	}

	return tx.Commit()
}

// ListMessages returns the full ordered log of a conversation: sent_at
// ascending, insertion order as the tie-break. Returns
// ErrConversationNotFound for unknown ids so callers can distinguish "no
// messages yet" from a stale id.
func (db *DB) ListMessages(conversationID string) ([]message.Message, error) {
	var exists int
	err := db.QueryRow(`SELECT 1 FROM conversations WHERE id = ?`, conversationID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT msg_id, sender_email, sender_name, sent_at,
		       kind, body, media_url, media_width, media_height, latitude, longitude
		FROM messages
		WHERE conversation_id = ?
		ORDER BY sent_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (message.Message, error) {
	var (
		m             message.Message
		sentAt        int64
		kind          string
		body          string
		mediaURL      string
		width, height int
		lat, lon      sql.NullFloat64
	)
	if err := row.Scan(&m.ID, &m.Sender.SafeEmail, &m.Sender.DisplayName, &sentAt,
		&kind, &body, &mediaURL, &width, &height, &lat, &lon); err != nil {
		return message.Message{}, err
	}
	m.SentAt = time.UnixMilli(sentAt).UTC()
	m.Content = rebuildContent(message.Kind(kind), body, mediaURL, width, height, lat, lon)
	return m, nil
}

// rebuildContent reconstructs the tagged variant from flattened columns.
// Rows written by AppendMessage always round-trip cleanly; the kind switch
// tolerates nothing else.
func rebuildContent(kind message.Kind, body, mediaURL string, width, height int, lat, lon sql.NullFloat64) message.Content {
	switch kind {
	case message.KindText:
		return message.Content{Kind: kind, Text: body}
	case message.KindPhoto, message.KindVideo:
		return message.Content{Kind: kind, Media: &message.MediaRef{
			RemoteURL: mediaURL,
			Width:     width,
			Height:    height,
		}}
	case message.KindLocation:
		return message.Content{Kind: kind, Location: &message.Coordinates{
			Latitude:  lat.Float64,
			Longitude: lon.Float64,
		}}
	default:
		return message.Content{Kind: kind, Text: body}
	}
}
