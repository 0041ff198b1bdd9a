package store

import (
	"database/sql"
	"time"

	"go.mau.fi/whatsmeow/types"
)

// Group is a chat group together with its local policy fields. Descriptive
// fields (name, topic, owner) come from the gateway roster; policy fields
// (Managed, CommunityKeys, ForwardURL, SendSummaryToSelf, NotifyOnSpam) are
// set locally and must survive roster resyncs.
type Group struct {
	JID               types.JID
	Name              string
	Topic             string
	OwnerJID          types.JID
	Managed           bool
	CommunityKeys     []string
	ForwardURL        string
	SendSummaryToSelf bool
	NotifyOnSpam      bool
	LastSummarySync   time.Time
	LastIngest        time.Time
}

// SharesCommunityKey reports whether two groups are community siblings,
// i.e. their key sets intersect.
func (g *Group) SharesCommunityKey(other *Group) bool {
	for _, k := range g.CommunityKeys {
		for _, ok := range other.CommunityKeys {
			if k == ok {
				return true
			}
		}
	}
	return false
}

// GroupStore handles group operations.
type GroupStore struct {
	store *Store
}

// NewGroupStore creates a new GroupStore.
func NewGroupStore(s *Store) *GroupStore {
	return &GroupStore{store: s}
}

// Put stores or replaces a group.
func (s *GroupStore) Put(g *Group) error {
	return putGroup(s.store, g)
}

// PutTx stores or replaces a group inside a transaction.
func (s *GroupStore) PutTx(tx *sql.Tx, g *Group) error {
	return putGroup(tx, g)
}

func putGroup(q querier, g *Group) error {
	_, err := q.Exec(`
		INSERT INTO wadigest_groups (
			jid, name, topic, owner_jid, managed, community_keys,
			forward_url, send_summary_to_self, notify_on_spam,
			last_summary_sync, last_ingest
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(jid) DO UPDATE SET
			name = excluded.name,
			topic = excluded.topic,
			owner_jid = excluded.owner_jid,
			managed = excluded.managed,
			community_keys = excluded.community_keys,
			forward_url = excluded.forward_url,
			send_summary_to_self = excluded.send_summary_to_self,
			notify_on_spam = excluded.notify_on_spam,
			last_summary_sync = excluded.last_summary_sync,
			last_ingest = excluded.last_ingest`,
		g.JID.String(), nullString(g.Name), nullString(g.Topic), nullJID(g.OwnerJID),
		boolToInt(g.Managed), keysToJSON(g.CommunityKeys),
		nullString(g.ForwardURL), boolToInt(g.SendSummaryToSelf), boolToInt(g.NotifyOnSpam),
		g.LastSummarySync.Unix(), g.LastIngest.Unix(),
	)
	return err
}

// Get retrieves a group by JID, or nil if unknown.
func (s *GroupStore) Get(jid types.JID) (*Group, error) {
	return getGroup(s.store, jid)
}

// GetTx retrieves a group by JID inside a transaction, or nil if unknown.
func (s *GroupStore) GetTx(tx *sql.Tx, jid types.JID) (*Group, error) {
	return getGroup(tx, jid)
}

func getGroup(q querier, jid types.JID) (*Group, error) {
	row := q.QueryRow(`
		SELECT jid, name, topic, owner_jid, managed, community_keys,
			forward_url, send_summary_to_self, notify_on_spam,
			last_summary_sync, last_ingest
		FROM wadigest_groups WHERE jid = ?`, jid.String())

	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// GetManaged returns all groups with the managed policy flag set.
func (s *GroupStore) GetManaged() ([]*Group, error) {
	rows, err := s.store.Query(`
		SELECT jid, name, topic, owner_jid, managed, community_keys,
			forward_url, send_summary_to_self, notify_on_spam,
			last_summary_sync, last_ingest
		FROM wadigest_groups WHERE managed = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroups(rows)
}

// CommunitySiblings returns the groups linked to g through a shared
// community key, excluding g itself.
func (s *GroupStore) CommunitySiblings(g *Group) ([]*Group, error) {
	if len(g.CommunityKeys) == 0 {
		return nil, nil
	}

	rows, err := s.store.Query(`
		SELECT jid, name, topic, owner_jid, managed, community_keys,
			forward_url, send_summary_to_self, notify_on_spam,
			last_summary_sync, last_ingest
		FROM wadigest_groups
		WHERE community_keys IS NOT NULL AND jid != ?`, g.JID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates, err := scanGroups(rows)
	if err != nil {
		return nil, err
	}

	var siblings []*Group
	for _, c := range candidates {
		if g.SharesCommunityKey(c) {
			siblings = append(siblings, c)
		}
	}
	return siblings, nil
}

// AdvanceWatermark moves a group's last_summary_sync forward to t.
// The watermark never moves backward.
func (s *GroupStore) AdvanceWatermark(jid types.JID, t time.Time) error {
	_, err := s.store.Exec(`
		UPDATE wadigest_groups SET last_summary_sync = ?
		WHERE jid = ? AND last_summary_sync <= ?`,
		t.Unix(), jid.String(), t.Unix())
	return err
}

// TouchIngest records the last time a message was ingested for a group.
func (s *GroupStore) TouchIngest(jid types.JID, t time.Time) error {
	_, err := s.store.Exec(`
		UPDATE wadigest_groups SET last_ingest = ? WHERE jid = ?`,
		t.Unix(), jid.String())
	return err
}

// Count returns the total number of stored groups.
func (s *GroupStore) Count() (int, error) {
	var n int
	err := s.store.QueryRow(`SELECT COUNT(*) FROM wadigest_groups`).Scan(&n)
	return n, err
}

func scanGroup(row rowScanner) (*Group, error) {
	var g Group
	var jidStr string
	var name, topic, owner, keys, forwardURL sql.NullString
	var managed, sendToSelf, notifySpam int
	var lastSync, lastIngest int64

	err := row.Scan(&jidStr, &name, &topic, &owner, &managed, &keys,
		&forwardURL, &sendToSelf, &notifySpam, &lastSync, &lastIngest)
	if err != nil {
		return nil, err
	}

	g.JID, _ = types.ParseJID(jidStr)
	g.Name = name.String
	g.Topic = topic.String
	if owner.Valid {
		g.OwnerJID, _ = types.ParseJID(owner.String)
	}
	g.Managed = managed == 1
	g.CommunityKeys = keysFromJSON(keys)
	g.ForwardURL = forwardURL.String
	g.SendSummaryToSelf = sendToSelf == 1
	g.NotifyOnSpam = notifySpam == 1
	g.LastSummarySync = time.Unix(lastSync, 0)
	g.LastIngest = time.Unix(lastIngest, 0)
	return &g, nil
}

func scanGroups(rows *sql.Rows) ([]*Group, error) {
	var groups []*Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
