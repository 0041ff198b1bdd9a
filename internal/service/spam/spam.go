// Package spam flags group-invite links and alerts the group owner.
package spam

import (
	"context"
	"fmt"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/gateway"
	"wadigest/internal/store"
)

const inviteLinkPrefix = "https://chat.whatsapp.com/"

// ContainsInviteLink reports whether text carries a WhatsApp group invite
// link, the usual vector for join-my-group spam.
func ContainsInviteLink(text string) bool {
	return strings.Contains(text, inviteLinkPrefix)
}

// Notifier sends spam alerts to group owners.
type Notifier struct {
	gateway gateway.Client
	log     waLog.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(gw gateway.Client, log waLog.Logger) *Notifier {
	return &Notifier{
		gateway: gw,
		log:     log.Sub("Spam"),
	}
}

// NotifyOwner alerts the group owner about a suspected spam message. Groups
// without a known owner only get a log line.
func (n *Notifier) NotifyOwner(ctx context.Context, msg *store.Message, grp *store.Group) error {
	if grp.OwnerJID.IsEmpty() {
		n.log.Warnf("Spam link in %s but group has no known owner", grp.JID)
		return nil
	}
	alert := fmt.Sprintf("⚠️ Possible spam in *%s*:\n\nSender: %s\nMessage: %s",
		grp.Name, msg.SenderJID.User, msg.Text)
	if err := n.gateway.SendMessage(ctx, grp.OwnerJID, alert, ""); err != nil {
		return fmt.Errorf("notify owner %s: %w", grp.OwnerJID, err)
	}
	n.log.Infof("Notified owner %s about spam link in %s", grp.OwnerJID, grp.JID)
	return nil
}
