// Package groupsync reconciles the remote group roster into local storage.
// Descriptive fields follow the gateway; locally-set policy fields survive
// every resync.
package groupsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/gateway"
	"wadigest/internal/store"
	"wadigest/internal/utils/retry"
)

const (
	bootstrapAttempts = 3
	bootstrapDelay    = 10 * time.Second
)

// Service pulls the remote roster and merges it into the local group table.
type Service struct {
	db      *store.Store
	groups  *store.GroupStore
	senders *store.SenderStore
	gateway gateway.Client
	log     waLog.Logger
}

// New creates a new Service.
func New(db *store.Store, groups *store.GroupStore, senders *store.SenderStore, gw gateway.Client, log waLog.Logger) *Service {
	return &Service{
		db:      db,
		groups:  groups,
		senders: senders,
		gateway: gw,
		log:     log.Sub("GroupSync"),
	}
}

// Sync fetches the full remote roster and upserts it in one transaction.
// Per-item failures are counted as skipped and never abort the batch; an
// error escaping the loop rolls everything back and fails the cycle.
func (s *Service) Sync(ctx context.Context) error {
	roster, err := s.gateway.JoinedGroups(ctx)
	if err != nil {
		return fmt.Errorf("fetch roster: %w", err)
	}
	if len(roster) == 0 {
		s.log.Infof("No groups found in gateway account")
		return nil
	}
	s.log.Infof("Processing %d groups from gateway", len(roster))

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin roster sync: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	now := time.Now()
	saved, skipped := 0, 0
	for _, rg := range roster {
		if strings.TrimSpace(rg.JID) == "" {
			s.log.Warnf("Skipping group with blank JID: %s", rg.Name)
			skipped++
			continue
		}
		if err := s.syncOne(tx, &rg, now); err != nil {
			s.log.Errorf("Error processing group %s (%s): %v", rg.JID, rg.Name, err)
			skipped++
			continue
		}
		saved++
	}

	// Sender rows are written before the group rows referencing them; the
	// single commit makes both durable together.
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster sync: %w", err)
	}
	committed = true
	s.log.Infof("Saved %d groups, skipped %d", saved, skipped)

	// Read-back sanity check.
	count, err := s.groups.Count()
	if err != nil {
		s.log.Warnf("Verification query failed: %v", err)
	} else {
		s.log.Infof("Verification: %d groups now in database", count)
	}
	return nil
}

// syncOne merges one remote record: lazily creates the owner's sender row,
// then writes the group with remote descriptive fields and, for known
// groups, the existing policy fields.
func (s *Service) syncOne(tx *sql.Tx, rg *gateway.GroupInfo, now time.Time) error {
	jid, err := types.ParseJID(rg.JID)
	if err != nil {
		return fmt.Errorf("parse group jid: %w", err)
	}

	var owner types.JID
	if rg.Owner() != "" {
		owner, err = types.ParseJID(rg.Owner())
		if err != nil {
			return fmt.Errorf("parse owner jid: %w", err)
		}
		if err := s.senders.PutIfAbsentTx(tx, owner); err != nil {
			return fmt.Errorf("upsert owner sender: %w", err)
		}
	}

	existing, err := s.groups.GetTx(tx, jid)
	if err != nil {
		return fmt.Errorf("lookup existing group: %w", err)
	}

	group := &store.Group{
		JID:             jid,
		Name:            rg.Name,
		Topic:           rg.Topic,
		OwnerJID:        owner,
		LastSummarySync: now,
		LastIngest:      now,
	}
	if existing != nil {
		group.Managed = existing.Managed
		group.CommunityKeys = existing.CommunityKeys
		group.ForwardURL = existing.ForwardURL
		group.SendSummaryToSelf = existing.SendSummaryToSelf
		group.NotifyOnSpam = existing.NotifyOnSpam
		group.LastSummarySync = existing.LastSummarySync
		group.LastIngest = existing.LastIngest
	}

	if err := s.groups.PutTx(tx, group); err != nil {
		return fmt.Errorf("upsert group: %w", err)
	}
	return nil
}

// Bootstrap runs the initial roster sync at startup, retrying only while
// the gateway session is not yet authenticated. It never crashes the host
// process: terminal failures are logged for the operator and swallowed.
func (s *Service) Bootstrap(ctx context.Context) {
	err := retry.Fixed(ctx, bootstrapAttempts, bootstrapDelay, gateway.ErrAuthNotReady, func() error {
		return s.Sync(ctx)
	})
	switch {
	case err == nil:
		s.log.Infof("Bootstrap roster sync complete")
	case errors.Is(err, gateway.ErrAuthNotReady):
		s.log.Warnf("Gateway not authenticated after %d attempts; please log in via the gateway UI", bootstrapAttempts)
	default:
		s.log.Errorf("Bootstrap roster sync failed: %v", err)
	}
}
