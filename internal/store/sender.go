package store

import (
	"database/sql"
	"time"

	"go.mau.fi/whatsmeow/types"
)

// Sender is a minimal identity record, created lazily the first time a JID
// is observed as a message author or group owner. Never updated.
type Sender struct {
	JID       types.JID
	CreatedAt time.Time
}

// SenderStore handles sender operations.
type SenderStore struct {
	store *Store
}

// NewSenderStore creates a new SenderStore.
func NewSenderStore(s *Store) *SenderStore {
	return &SenderStore{store: s}
}

// PutIfAbsent creates a sender record if one does not already exist.
func (s *SenderStore) PutIfAbsent(jid types.JID) error {
	return putSenderIfAbsent(s.store, jid)
}

// PutIfAbsentTx creates a sender record inside a transaction if one does not
// already exist.
func (s *SenderStore) PutIfAbsentTx(tx *sql.Tx, jid types.JID) error {
	return putSenderIfAbsent(tx, jid)
}

func putSenderIfAbsent(q querier, jid types.JID) error {
	_, err := q.Exec(`
		INSERT INTO wadigest_senders (jid, created_at) VALUES (?, ?)
		ON CONFLICT(jid) DO NOTHING`,
		jid.String(), time.Now().Unix())
	return err
}

// Exists reports whether a sender record exists for the given JID.
func (s *SenderStore) Exists(jid types.JID) (bool, error) {
	var n int
	err := s.store.QueryRow(`SELECT COUNT(*) FROM wadigest_senders WHERE jid = ?`,
		jid.String()).Scan(&n)
	return n > 0, err
}
