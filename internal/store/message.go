package store

import (
	"database/sql"
	"time"

	"go.mau.fi/whatsmeow/types"
)

// Message is a single chat message as delivered over the webhook.
// Messages are immutable once stored; redelivery resolves by upsert on ID.
type Message struct {
	ID        string
	ChatJID   types.JID
	SenderJID types.JID
	Text      string
	Timestamp time.Time
	CreatedAt time.Time
}

// MessageStore handles message operations.
type MessageStore struct {
	store *Store
}

// NewMessageStore creates a new MessageStore.
func NewMessageStore(s *Store) *MessageStore {
	return &MessageStore{store: s}
}

// Upsert stores a message keyed on its globally-unique ID. A redelivered
// message never creates a second row and never overwrites the first one.
func (s *MessageStore) Upsert(m *Message) error {
	_, err := s.store.Exec(`
		INSERT INTO wadigest_messages (id, chat_jid, sender_jid, text, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		m.ID, m.ChatJID.String(), m.SenderJID.String(), nullString(m.Text),
		m.Timestamp.Unix(), time.Now().Unix(),
	)
	return err
}

// Get retrieves a message by ID, or nil if absent.
func (s *MessageStore) Get(id string) (*Message, error) {
	row := s.store.QueryRow(`
		SELECT id, chat_jid, sender_jid, text, timestamp, created_at
		FROM wadigest_messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// Recent returns messages for a chat with timestamps at or after since,
// newest first, capped at limit.
func (s *MessageStore) Recent(chatJID types.JID, since time.Time, limit int) ([]*Message, error) {
	rows, err := s.store.Query(`
		SELECT id, chat_jid, sender_jid, text, timestamp, created_at
		FROM wadigest_messages
		WHERE chat_jid = ? AND timestamp >= ?
		ORDER BY timestamp DESC LIMIT ?`,
		chatJID.String(), since.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// SinceExcluding returns messages for a chat with timestamps at or after
// since, excluding those sent by exclude, newest first.
func (s *MessageStore) SinceExcluding(chatJID types.JID, since time.Time, exclude types.JID) ([]*Message, error) {
	rows, err := s.store.Query(`
		SELECT id, chat_jid, sender_jid, text, timestamp, created_at
		FROM wadigest_messages
		WHERE chat_jid = ? AND timestamp >= ? AND sender_jid != ?
		ORDER BY timestamp DESC`,
		chatJID.String(), since.Unix(), exclude.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Count returns the total number of stored messages.
func (s *MessageStore) Count() (int, error) {
	var n int
	err := s.store.QueryRow(`SELECT COUNT(*) FROM wadigest_messages`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var m Message
	var chatStr, senderStr string
	var text sql.NullString
	var timestamp, createdAt int64

	if err := row.Scan(&m.ID, &chatStr, &senderStr, &text, &timestamp, &createdAt); err != nil {
		return nil, err
	}

	m.ChatJID, _ = types.ParseJID(chatStr)
	m.SenderJID, _ = types.ParseJID(senderStr)
	m.Text = text.String
	m.Timestamp = time.Unix(timestamp, 0)
	m.CreatedAt = time.Unix(createdAt, 0)
	return &m, nil
}

func scanMessages(rows *sql.Rows) ([]*Message, error) {
	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
