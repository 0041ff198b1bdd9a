// Package handler implements the per-message dispatch policy: every webhook
// message is persisted, then walked through the forwarding, filtering,
// dedupe, mention-routing and spam gates in order.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/dedupe"
	"wadigest/internal/gateway"
	"wadigest/internal/service/router"
	"wadigest/internal/service/spam"
	"wadigest/internal/store"
)

const forwardTimeout = 30 * time.Second

// Payload is the webhook body posted by the gateway for each message.
type Payload struct {
	From      string          `json:"from"`
	PushName  string          `json:"pushname"`
	Timestamp time.Time       `json:"timestamp"`
	Message   *PayloadMessage `json:"message"`
}

// PayloadMessage carries the message content.
type PayloadMessage struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Text returns the message text, tolerating payloads without a message body.
func (p *Payload) Text() string {
	if p.Message == nil {
		return ""
	}
	return p.Message.Text
}

// Handler applies the dispatch policy to incoming messages.
type Handler struct {
	messages *store.MessageStore
	groups   *store.GroupStore
	senders  *store.SenderStore
	gateway  gateway.Client
	guard    *dedupe.Guard
	router   *router.Router
	spam     *spam.Notifier
	forward  *http.Client
	log      waLog.Logger
}

// New creates a new Handler.
func New(messages *store.MessageStore, groups *store.GroupStore, senders *store.SenderStore,
	gw gateway.Client, guard *dedupe.Guard, rt *router.Router, notifier *spam.Notifier, log waLog.Logger) *Handler {
	return &Handler{
		messages: messages,
		groups:   groups,
		senders:  senders,
		gateway:  gw,
		guard:    guard,
		router:   rt,
		spam:     notifier,
		forward:  &http.Client{Timeout: forwardTimeout},
		log:      log.Sub("Handler"),
	}
}

// HandleMessage persists the message and runs the gates in order. Gates that
// stop processing are not errors; the message stays stored either way.
func (h *Handler) HandleMessage(ctx context.Context, p *Payload) error {
	msg, grp, err := h.storeMessage(ctx, p)
	if err != nil {
		return fmt.Errorf("store message: %w", err)
	}

	// Forwarding is best-effort and happens before any filtering so
	// downstream consumers see the full managed-group stream.
	if grp != nil && grp.Managed && grp.ForwardURL != "" {
		h.forwardPayload(ctx, grp.ForwardURL, p)
	}

	if msg.Text == "" {
		return nil
	}

	self, err := h.gateway.SelfJID(ctx)
	if err != nil {
		return fmt.Errorf("resolve own jid: %w", err)
	}
	if msg.SenderJID.User == self.User {
		h.log.Debugf("Ignoring own message %s", msg.ID)
		return nil
	}

	// Only a group that explicitly opted out blocks processing; direct
	// chats and not-yet-synced groups flow through.
	if grp != nil && !grp.Managed {
		h.log.Debugf("Ignoring message %s in unmanaged group %s", msg.ID, msg.ChatJID)
		return nil
	}

	if !h.guard.Admit(msg.ID) {
		h.log.Warnf("Duplicate delivery of message %s, skipping", msg.ID)
		return nil
	}

	// Spam detection is independent of mention routing; a mention inside a
	// spam message still gets both treatments.
	if grp != nil && grp.NotifyOnSpam && spam.ContainsInviteLink(msg.Text) {
		if err := h.spam.NotifyOwner(ctx, msg, grp); err != nil {
			h.log.Errorf("Spam notification failed: %v", err)
		}
	}

	if strings.Contains(msg.Text, "@"+self.User) {
		return h.router.Dispatch(ctx, msg, grp)
	}
	return nil
}

// storeMessage normalizes the sender and chat JIDs, lazily creates the
// sender row and upserts the message. The group row is returned if the chat
// is a known group.
func (h *Handler) storeMessage(ctx context.Context, p *Payload) (*store.Message, *store.Group, error) {
	if p.Message == nil || p.Message.ID == "" {
		return nil, nil, fmt.Errorf("payload without message id")
	}
	sender, chat, err := parseSource(p.From)
	if err != nil {
		return nil, nil, err
	}
	if sender.Server == types.HiddenUserServer {
		// LID senders cannot be matched against phone-number rosters yet.
		h.log.Debugf("Sender %s uses a LID address (push name %q)", sender, p.PushName)
	}

	if err := h.senders.PutIfAbsent(sender); err != nil {
		return nil, nil, err
	}

	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := &store.Message{
		ID:        p.Message.ID,
		ChatJID:   chat,
		SenderJID: sender,
		Text:      p.Text(),
		Timestamp: ts,
	}
	if err := h.messages.Upsert(msg); err != nil {
		return nil, nil, err
	}

	grp, err := h.groups.Get(chat)
	if err != nil {
		return nil, nil, err
	}
	if grp != nil {
		if err := h.groups.TouchIngest(grp.JID, ts); err != nil {
			h.log.Warnf("Failed to update ingest time for %s: %v", grp.JID, err)
		}
	}
	return msg, grp, nil
}

// parseSource splits the gateway "from" field, which is either a bare JID
// for direct chats or "<sender> in <chat>" for group messages. Both JIDs
// come back normalized to their non-device form.
func parseSource(from string) (sender, chat types.JID, err error) {
	senderRaw, chatRaw, found := strings.Cut(from, " in ")
	if !found {
		chatRaw = senderRaw
	}
	sender, err = types.ParseJID(senderRaw)
	if err != nil {
		return sender, chat, fmt.Errorf("parse sender jid %q: %w", senderRaw, err)
	}
	chat, err = types.ParseJID(chatRaw)
	if err != nil {
		return sender, chat, fmt.Errorf("parse chat jid %q: %w", chatRaw, err)
	}
	return sender.ToNonAD(), chat.ToNonAD(), nil
}

// forwardPayload mirrors the raw payload to the group's configured endpoint.
// Failures are logged and never block dispatch.
func (h *Handler) forwardPayload(ctx context.Context, url string, p *Payload) {
	body, err := json.Marshal(p)
	if err != nil {
		h.log.Errorf("Failed to encode forward payload: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		h.log.Errorf("Failed to build forward request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.forward.Do(req)
	if err != nil {
		h.log.Warnf("Forward to %s failed: %v", url, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		h.log.Warnf("Forward to %s returned status %d", url, resp.StatusCode)
	}
}
