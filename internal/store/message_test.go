package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageUpsertIsImmutable(t *testing.T) {
	s := newTestStore(t)
	messages := NewMessageStore(s)

	chat := jid(t, "120363000000000001@g.us")
	sender := jid(t, "972500000001@s.whatsapp.net")

	first := &Message{ID: "M1", ChatJID: chat, SenderJID: sender, Text: "original", Timestamp: time.Unix(1000, 0)}
	require.NoError(t, messages.Upsert(first))

	// Redelivery with different content must not change the stored row.
	second := &Message{ID: "M1", ChatJID: chat, SenderJID: sender, Text: "tampered", Timestamp: time.Unix(2000, 0)}
	require.NoError(t, messages.Upsert(second))

	got, err := messages.Get("M1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "original", got.Text)
	assert.Equal(t, int64(1000), got.Timestamp.Unix())

	n, err := messages.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecentOrdersNewestFirstAndLimits(t *testing.T) {
	s := newTestStore(t)
	messages := NewMessageStore(s)

	chat := jid(t, "120363000000000001@g.us")
	sender := jid(t, "972500000001@s.whatsapp.net")
	for i := 1; i <= 5; i++ {
		require.NoError(t, messages.Upsert(&Message{
			ID: string(rune('A' + i)), ChatJID: chat, SenderJID: sender,
			Text: "m", Timestamp: time.Unix(int64(1000*i), 0),
		}))
	}

	got, err := messages.Recent(chat, time.Unix(2000, 0), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(5000), got[0].Timestamp.Unix())
	assert.Equal(t, int64(3000), got[2].Timestamp.Unix())
}

func TestSinceExcludingFiltersSender(t *testing.T) {
	s := newTestStore(t)
	messages := NewMessageStore(s)

	chat := jid(t, "120363000000000001@g.us")
	human := jid(t, "972500000001@s.whatsapp.net")
	bot := jid(t, "972500000099@s.whatsapp.net")

	require.NoError(t, messages.Upsert(&Message{ID: "H1", ChatJID: chat, SenderJID: human, Text: "hi", Timestamp: time.Unix(1000, 0)}))
	require.NoError(t, messages.Upsert(&Message{ID: "B1", ChatJID: chat, SenderJID: bot, Text: "summary", Timestamp: time.Unix(1100, 0)}))
	require.NoError(t, messages.Upsert(&Message{ID: "H2", ChatJID: chat, SenderJID: human, Text: "bye", Timestamp: time.Unix(1200, 0)}))

	got, err := messages.SinceExcluding(chat, time.Unix(0, 0), bot)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "H2", got[0].ID)
	assert.Equal(t, "H1", got[1].ID)
}
