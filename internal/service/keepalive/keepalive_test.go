package keepalive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/gateway"
)

type fakeGateway struct {
	devices int
	err     error
}

func (f *fakeGateway) SelfJID(ctx context.Context) (types.JID, error) { return types.JID{}, nil }
func (f *fakeGateway) JoinedGroups(ctx context.Context) ([]gateway.GroupInfo, error) {
	return nil, nil
}
func (f *fakeGateway) Devices(ctx context.Context) (int, error) { return f.devices, f.err }
func (f *fakeGateway) SendMessage(ctx context.Context, to types.JID, text, replyTo string) error {
	return nil
}

func TestProbeTracksSession(t *testing.T) {
	gw := &fakeGateway{devices: 2}
	p := New(gw, waLog.Noop)

	require.NoError(t, p.probe(context.Background()))
	require.NoError(t, p.probe(context.Background()))

	assert.Equal(t, 2, p.probes)
	assert.Equal(t, 2, p.lastDevices)
	assert.False(t, p.sessionUp.IsZero())
	assert.False(t, p.lastSuccess.IsZero())
}

func TestSessionLossResetsTracking(t *testing.T) {
	gw := &fakeGateway{devices: 1}
	p := New(gw, waLog.Noop)
	require.NoError(t, p.probe(context.Background()))

	gw.err = gateway.ErrAuthNotReady
	err := p.probe(context.Background())
	require.ErrorIs(t, err, gateway.ErrAuthNotReady)
	p.logSessionLoss()

	// The next successful probe starts a fresh session.
	assert.True(t, p.sessionUp.IsZero())
	gw.err = nil
	require.NoError(t, p.probe(context.Background()))
	assert.False(t, p.sessionUp.IsZero())
}

func TestProbeErrorsDoNotAdvanceCounters(t *testing.T) {
	gw := &fakeGateway{err: errors.New("timeout")}
	p := New(gw, waLog.Noop)

	require.Error(t, p.probe(context.Background()))
	assert.Zero(t, p.probes)
	assert.True(t, p.lastSuccess.IsZero())
}
