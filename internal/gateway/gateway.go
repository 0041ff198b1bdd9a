// Package gateway abstracts outbound calls to the chat gateway process that
// owns the actual wire protocol session. The bot talks to it over a small
// REST surface with basic auth.
package gateway

import (
	"context"
	"errors"

	"go.mau.fi/whatsmeow/types"
)

// ErrAuthNotReady signals that the gateway session is not (or no longer)
// authenticated. Callers distinguish it from transient failures: bootstrap
// sync retries on it, the keep-alive loop backs off on it.
var ErrAuthNotReady = errors.New("gateway session not authenticated")

// GroupInfo is a remote group record as reported by the gateway roster.
type GroupInfo struct {
	JID      string `json:"JID"`
	Name     string `json:"Name"`
	Topic    string `json:"Topic"`
	OwnerJID string `json:"OwnerJID"`
	OwnerPN  string `json:"OwnerPN"`
}

// Owner returns the preferred owner identity for the group: the phone-number
// form when present, the raw JID otherwise.
func (g *GroupInfo) Owner() string {
	if g.OwnerPN != "" {
		return g.OwnerPN
	}
	return g.OwnerJID
}

// Client is the fixed call surface onto the chat gateway.
type Client interface {
	// SelfJID returns the bot's own identity. Implementations cache it
	// after the first successful resolution.
	SelfJID(ctx context.Context) (types.JID, error)

	// JoinedGroups returns the full remote group roster.
	JoinedGroups(ctx context.Context) ([]GroupInfo, error)

	// Devices performs a lightweight liveness probe and returns the
	// number of linked devices observed.
	Devices(ctx context.Context) (int, error)

	// SendMessage sends text to a chat, optionally as a reply.
	SendMessage(ctx context.Context, to types.JID, text string, replyTo string) error
}
