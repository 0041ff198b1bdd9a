// Package router classifies mention-triggered messages into an intent and
// dispatches them through an explicit handler table.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/gateway"
	"wadigest/internal/llm"
	"wadigest/internal/store"
)

// Intent is the classified purpose of a mention-triggered message.
type Intent string

const (
	IntentSummarize   Intent = "summarize"
	IntentAskQuestion Intent = "ask_question"
	IntentAbout       Intent = "about"
	IntentOther       Intent = "other"
)

const classifySystemPrompt = `What is the intent of the message? What does the user want us to help with?

Classify into exactly one of:
- summarize: Summarize TODAY's chat messages, or catch up on the chat messages FROM TODAY ONLY. A query across a broader timespan is classified as ask_question.
- ask_question: Ask a question or learn from the collective knowledge of the group.
- about: Learn about me (the bot) and my capabilities.
- other: something else.

Answer with a JSON object: {"intent": "<one of summarize|ask_question|about|other>"}`

const aboutReply = "I'm an open source bot. I can help you catch up on the chat messages and answer questions based on the group's knowledge."

const fallbackReply = "I'm sorry, but I don't think this is something I can help with right now 😅.\nI can help catch up on the chat messages or answer questions based on the group's knowledge."

// Action handles a message classified with a particular intent.
type Action func(ctx context.Context, msg *store.Message, grp *store.Group) error

// Router routes a mention-triggered message to the action for its intent.
type Router struct {
	llm      llm.Completer
	gateway  gateway.Client
	handlers map[Intent]Action
	log      waLog.Logger
}

// New creates a Router with the built-in about and fallback handlers
// registered. Summarize and ask_question actions are registered by the
// caller.
func New(completer llm.Completer, gw gateway.Client, log waLog.Logger) *Router {
	r := &Router{
		llm:      completer,
		gateway:  gw,
		handlers: map[Intent]Action{},
		log:      log.Sub("Router"),
	}
	r.Register(IntentAbout, r.reply(aboutReply))
	r.Register(IntentOther, r.reply(fallbackReply))
	return r
}

// Register installs the action for an intent, replacing any previous one.
func (r *Router) Register(intent Intent, fn Action) {
	r.handlers[intent] = fn
}

// Dispatch classifies the message text and runs the matching action.
// Classification failure aborts processing of this message only.
func (r *Router) Dispatch(ctx context.Context, msg *store.Message, grp *store.Group) error {
	intent, err := r.classify(ctx, msg.Text)
	if err != nil {
		return fmt.Errorf("classify message %s: %w", msg.ID, err)
	}

	r.log.Infof("Message %s classified as %s", msg.ID, intent)

	handler, ok := r.handlers[intent]
	if !ok {
		handler = r.handlers[IntentOther]
	}
	return handler(ctx, msg, grp)
}

// classify asks the completion service for the message intent.
func (r *Router) classify(ctx context.Context, text string) (Intent, error) {
	raw, err := r.llm.CompleteJSON(ctx, classifySystemPrompt, text)
	if err != nil {
		return "", err
	}

	var out struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("parse intent %q: %w", raw, err)
	}

	switch intent := Intent(strings.TrimSpace(out.Intent)); intent {
	case IntentSummarize, IntentAskQuestion, IntentAbout, IntentOther:
		return intent, nil
	default:
		return "", fmt.Errorf("unknown intent %q", out.Intent)
	}
}

// reply builds an action sending a fixed text as a reply to the message.
func (r *Router) reply(text string) Action {
	return func(ctx context.Context, msg *store.Message, _ *store.Group) error {
		return r.gateway.SendMessage(ctx, msg.ChatJID, text, msg.ID)
	}
}
