package store

import (
	"database/sql"
	"encoding/json"

	"go.mau.fi/whatsmeow/types"
)

// Helper functions for null-safe SQL operations

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullJID(jid types.JID) sql.NullString {
	if jid.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: jid.String(), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func keysToJSON(keys []string) sql.NullString {
	if len(keys) == 0 {
		return sql.NullString{}
	}
	b, _ := json.Marshal(keys)
	return sql.NullString{String: string(b), Valid: true}
}

func keysFromJSON(data sql.NullString) []string {
	if !data.Valid || data.String == "" {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(data.String), &keys); err != nil {
		return nil
	}
	return keys
}
