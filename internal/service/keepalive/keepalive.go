// Package keepalive keeps the gateway session warm by polling the device
// list on a fixed cadence and logging diagnostics when the session drops.
package keepalive

import (
	"context"
	"errors"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/gateway"
)

const (
	initialDelay = 10 * time.Second
	interval     = 45 * time.Second
	authBackoff  = 60 * time.Second
)

// Prober probes the gateway session and tracks its health over time.
type Prober struct {
	gateway gateway.Client
	log     waLog.Logger

	probes      int
	sessionUp   time.Time
	lastSuccess time.Time
	lastDevices int
}

// New creates a new Prober.
func New(gw gateway.Client, log waLog.Logger) *Prober {
	return &Prober{
		gateway: gw,
		log:     log.Sub("KeepAlive"),
	}
}

// Run probes until ctx is cancelled. It never returns on probe failure:
// auth loss gets a longer backoff, anything else keeps the normal cadence.
func (p *Prober) Run(ctx context.Context) {
	p.log.Infof("Keep-alive started (interval %s)", interval)
	if !p.sleep(ctx, initialDelay) {
		return
	}
	for {
		wait := interval
		if err := p.probe(ctx); err != nil {
			if errors.Is(err, gateway.ErrAuthNotReady) {
				p.logSessionLoss()
				wait = authBackoff
			} else {
				p.log.Warnf("Keep-alive probe failed: %v", err)
			}
		}
		if !p.sleep(ctx, wait) {
			return
		}
	}
}

func (p *Prober) probe(ctx context.Context) error {
	devices, err := p.gateway.Devices(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	p.probes++
	if p.sessionUp.IsZero() {
		p.sessionUp = now
		p.log.Infof("Gateway session established (%d devices)", devices)
	}
	p.lastSuccess = now
	p.lastDevices = devices
	p.log.Debugf("Keep-alive ok: %d devices, probe #%d", devices, p.probes)
	return nil
}

// logSessionLoss emits a diagnostic snapshot and resets session tracking so
// the next success is reported as a fresh session.
func (p *Prober) logSessionLoss() {
	uptime := time.Duration(0)
	if !p.sessionUp.IsZero() {
		uptime = time.Since(p.sessionUp)
	}
	p.log.Warnf("Gateway session lost: %d probes, session uptime %s, last success %s, last device count %d",
		p.probes, uptime.Round(time.Second), p.lastSuccess.Format(time.RFC3339), p.lastDevices)
	p.sessionUp = time.Time{}
}

// sleep waits d or until ctx is cancelled; reports false on cancellation.
func (p *Prober) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		p.log.Infof("Keep-alive stopped")
		return false
	case <-t.C:
		return true
	}
}
