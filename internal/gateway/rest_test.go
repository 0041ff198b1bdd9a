package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/infra/config"
)

func newTestClient(t *testing.T, handler http.Handler) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRESTClient(&config.GatewayConfig{
		BaseURL:  srv.URL,
		Username: "admin",
		Password: "secret",
	}, waLog.Noop)
}

func TestSelfJIDResolvedOnceAndCached(t *testing.T) {
	hits := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/app/devices", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{{"name": "bot", "device": "972500000099:7@s.whatsapp.net"}},
		})
	}))

	jid, err := c.SelfJID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "972500000099@s.whatsapp.net", jid.String())

	_, err = c.SelfJID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestJoinedGroupsParsesRoster(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/my/groups", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"results": map[string]any{
				"data": []map[string]string{
					{"JID": "120363000000000001@g.us", "Name": "Alpha", "OwnerPN": "972500000001@s.whatsapp.net"},
				},
			},
		})
	}))

	groups, err := c.JoinedGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Alpha", groups[0].Name)
	assert.Equal(t, "972500000001@s.whatsapp.net", groups[0].Owner())
}

func TestUnauthorizedMapsToAuthNotReady(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.JoinedGroups(context.Background())
	require.ErrorIs(t, err, ErrAuthNotReady)

	_, err = c.Devices(context.Background())
	require.ErrorIs(t, err, ErrAuthNotReady)
}

func TestSendMessagePostsReplyThread(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send/message", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))

	to, err := types.ParseJID("120363000000000001@g.us")
	require.NoError(t, err)
	require.NoError(t, c.SendMessage(context.Background(), to, "hello", "MSG1"))

	assert.Equal(t, "120363000000000001@g.us", got["phone"])
	assert.Equal(t, "hello", got["message"])
	assert.Equal(t, "MSG1", got["reply_message_id"])
}
