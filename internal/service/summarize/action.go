// Package summarize produces chat summaries: on demand for a mention-
// triggered request, and periodically fanned out across managed groups and
// their community siblings.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/gateway"
	"wadigest/internal/llm"
	"wadigest/internal/service/router"
	"wadigest/internal/store"
)

const (
	// recentWindow bounds how far back an on-demand summary looks.
	recentWindow = 24 * time.Hour

	// recentLimit caps how many messages feed a single summary.
	recentLimit = 30
)

const emptyCommunityReply = "No recent messages to summarize in the linked groups."

// Action performs on-demand, request-scoped summarization across one chat
// or a linked set of community chats.
type Action struct {
	messages *store.MessageStore
	groups   *store.GroupStore
	gateway  gateway.Client
	llm      llm.Completer
	log      waLog.Logger
}

// NewAction creates a new Action.
func NewAction(messages *store.MessageStore, groups *store.GroupStore, gw gateway.Client, completer llm.Completer, log waLog.Logger) *Action {
	return &Action{
		messages: messages,
		groups:   groups,
		gateway:  gw,
		llm:      completer,
		log:      log.Sub("Summarize"),
	}
}

// Summarize handles a summarize-intent message. When the triggering group is
// linked to community siblings, each sibling's recent messages are
// summarized independently and the labeled blocks are sent as one combined
// reply; otherwise only the triggering chat is summarized.
func (a *Action) Summarize(ctx context.Context, msg *store.Message, grp *store.Group) error {
	requested := router.ExtractMessageCount(msg.Text)

	if grp != nil && len(grp.CommunityKeys) > 0 {
		return a.summarizeCommunity(ctx, msg, grp, requested)
	}
	return a.summarizeSingle(ctx, msg, requested)
}

func (a *Action) summarizeCommunity(ctx context.Context, msg *store.Message, grp *store.Group, requested int) error {
	siblings, err := a.groups.CommunitySiblings(grp)
	if err != nil {
		return fmt.Errorf("resolve community siblings: %w", err)
	}
	all := append([]*store.Group{grp}, siblings...)

	var blocks []string
	for _, g := range all {
		// The requesting chat can opt out of its own messages, which
		// allows using it as a control panel for the community.
		if g.JID == msg.ChatJID && !g.SendSummaryToSelf {
			continue
		}

		msgs, err := a.fetchRecent(g, requested)
		if err != nil {
			a.log.Errorf("Failed to fetch messages for %s: %v", g.Name, err)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		summary, err := a.llm.Complete(ctx, communityPrompt(g.Name, requested), transcript(msgs))
		if err != nil {
			a.log.Errorf("Error summarizing group %s: %v", g.Name, err)
			continue
		}
		blocks = append(blocks, fmt.Sprintf("📱 *%s*:\n%s", g.Name, summary))
	}

	reply := emptyCommunityReply
	if len(blocks) > 0 {
		reply = strings.Join(blocks, "\n\n")
	}
	return a.gateway.SendMessage(ctx, msg.ChatJID, reply, msg.ID)
}

func (a *Action) summarizeSingle(ctx context.Context, msg *store.Message, requested int) error {
	msgs, err := a.messages.Recent(msg.ChatJID, time.Now().Add(-recentWindow), recentLimit)
	if err != nil {
		return fmt.Errorf("fetch recent messages: %w", err)
	}
	msgs = capCount(msgs, requested)

	prompt := fmt.Sprintf("@%s: %s\n\n# History:\n%s",
		msg.SenderJID.User, msg.Text, transcript(msgs))
	summary, err := a.llm.Complete(ctx, singlePrompt(requested), prompt)
	if err != nil {
		return fmt.Errorf("summarize chat %s: %w", msg.ChatJID, err)
	}

	return a.gateway.SendMessage(ctx, msg.ChatJID, summary, msg.ID)
}

func (a *Action) fetchRecent(g *store.Group, requested int) ([]*store.Message, error) {
	msgs, err := a.messages.Recent(g.JID, time.Now().Add(-recentWindow), recentLimit)
	if err != nil {
		return nil, err
	}
	return capCount(msgs, requested), nil
}

// capCount trims a newest-first message list to the user-requested count.
func capCount(msgs []*store.Message, requested int) []*store.Message {
	if requested > 0 && len(msgs) > requested {
		return msgs[:requested]
	}
	return msgs
}

func communityPrompt(groupName string, requested int) string {
	if requested > 0 {
		return fmt.Sprintf(`Summarize EXACTLY the last %d message(s) from "%s" group.

- Start by stating this is a summary of "%s" group
- Summarize ONLY the %d most recent message(s) - no more, no less
- Be specific about what each message said
- Keep it short and conversational
- Tag users when mentioning them
- CRITICAL: You MUST respond in the EXACT same language as the messages. Never translate or mix languages.`,
			requested, groupName, groupName, requested)
	}
	return fmt.Sprintf(`Summarize the following group chat messages in a few words.

- Start by stating this is a summary of "%s" group
- Keep it short and conversational
- Tag users when mentioning them
- CRITICAL: You MUST respond in the EXACT same language as the messages. Never translate or mix languages.`,
		groupName)
}

func singlePrompt(requested int) string {
	if requested > 0 {
		return fmt.Sprintf(`Summarize EXACTLY the last %d message(s) provided.

- You MUST summarize ONLY the %d most recent message(s) - no more, no less
- Be specific about what each message said
- Keep it short and conversational
- Tag users when mentioning them
- CRITICAL: You MUST respond in the EXACT same language as the messages. Never translate or mix languages.`,
			requested, requested)
	}
	return `Summarize the following group chat messages in a few words.

- You MUST state that this is a summary of TODAY's messages. Even if the user asked for a summary of a different time period (in that case, state that you can only summarize today's messages)
- Always personalize the summary to the user's request
- Keep it short and conversational
- Tag users when mentioning them
- CRITICAL: You MUST respond in the EXACT same language as the messages. Never translate or mix languages.`
}
