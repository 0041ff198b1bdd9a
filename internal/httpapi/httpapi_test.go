package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/dedupe"
	"wadigest/internal/gateway"
	"wadigest/internal/service/handler"
	"wadigest/internal/service/router"
	"wadigest/internal/service/spam"
	"wadigest/internal/service/summarize"
	"wadigest/internal/store"
)

type fakeCompleter struct{}

func (fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return "summary", nil
}
func (fakeCompleter) CompleteJSON(ctx context.Context, system, prompt string) (string, error) {
	return `{"intent": "other"}`, nil
}

type fakeGateway struct{}

func (fakeGateway) SelfJID(ctx context.Context) (types.JID, error) {
	return types.NewJID("972500000099", types.DefaultUserServer), nil
}
func (fakeGateway) JoinedGroups(ctx context.Context) ([]gateway.GroupInfo, error) { return nil, nil }
func (fakeGateway) Devices(ctx context.Context) (int, error)                      { return 1, nil }
func (fakeGateway) SendMessage(ctx context.Context, to types.JID, text, replyTo string) error {
	return nil
}

func newTestServer(t *testing.T) (*Server, *store.MessageStore) {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "test.db"), waLog.Noop)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	messages := store.NewMessageStore(db)
	groups := store.NewGroupStore(db)
	senders := store.NewSenderStore(db)
	gw := fakeGateway{}
	llm := fakeCompleter{}

	rt := router.New(llm, gw, waLog.Noop)
	h := handler.New(messages, groups, senders, gw, dedupe.NewDefault(), rt, spam.NewNotifier(gw, waLog.Noop), waLog.Noop)
	sched := summarize.NewScheduler(messages, groups, gw, llm, waLog.Noop)
	return New(h, sched, messages, groups, waLog.Noop), messages
}

func TestWebhookAlwaysAcks(t *testing.T) {
	srv, messages := newTestServer(t)

	body := `{"from": "972500000001@s.whatsapp.net in 120363000000000001@g.us",
		"pushname": "Dana", "message": {"id": "M1", "text": "hello"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	msg, err := messages.Get("M1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "hello", msg.Text)
}

func TestWebhookAcksMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookAcksNonMessageEvent(t *testing.T) {
	srv, _ := newTestServer(t)

	// Gateway events without a "from" are acknowledged and dropped.
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"event": "qr"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusReportsCounts(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "ok", out["status"])
	assert.EqualValues(t, 0, out["messages"])
}

func TestSummarizeRunAccepted(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/summarize/run", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}
