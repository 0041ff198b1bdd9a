package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wadigest/internal/infra/config"
)

// RESTClient talks to the gateway's HTTP API.
type RESTClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      waLog.Logger

	selfMu  sync.Mutex
	selfJID types.JID
}

// NewRESTClient creates a gateway client from config.
func NewRESTClient(cfg *config.GatewayConfig, log waLog.Logger) *RESTClient {
	return &RESTClient{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: 60 * time.Second},
		log:      log.Sub("Gateway"),
	}
}

// SelfJID returns the bot's own identity, resolving it from the device list
// on first use and caching it afterwards.
func (c *RESTClient) SelfJID(ctx context.Context) (types.JID, error) {
	c.selfMu.Lock()
	defer c.selfMu.Unlock()

	if !c.selfJID.IsEmpty() {
		return c.selfJID, nil
	}

	var resp struct {
		Results []struct {
			Name   string `json:"name"`
			Device string `json:"device"`
		} `json:"results"`
	}
	if err := c.get(ctx, "/app/devices", &resp); err != nil {
		return types.JID{}, err
	}
	if len(resp.Results) == 0 {
		return types.JID{}, fmt.Errorf("gateway reported no linked devices")
	}

	jid, err := types.ParseJID(resp.Results[0].Device)
	if err != nil {
		return types.JID{}, fmt.Errorf("parse device jid %q: %w", resp.Results[0].Device, err)
	}

	c.selfJID = jid.ToNonAD()
	c.log.Infof("Resolved own JID: %s", c.selfJID)
	return c.selfJID, nil
}

// JoinedGroups fetches the full remote group roster.
func (c *RESTClient) JoinedGroups(ctx context.Context) ([]GroupInfo, error) {
	var resp struct {
		Results struct {
			Data []GroupInfo `json:"data"`
		} `json:"results"`
	}
	if err := c.get(ctx, "/user/my/groups", &resp); err != nil {
		return nil, err
	}
	return resp.Results.Data, nil
}

// Devices probes gateway session liveness via the device list.
func (c *RESTClient) Devices(ctx context.Context) (int, error) {
	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := c.get(ctx, "/app/devices", &resp); err != nil {
		return 0, err
	}
	return len(resp.Results), nil
}

// SendMessage sends text to a chat through the gateway.
func (c *RESTClient) SendMessage(ctx context.Context, to types.JID, text string, replyTo string) error {
	body := map[string]string{
		"phone":   to.String(),
		"message": text,
	}
	if replyTo != "" {
		body["reply_message_id"] = replyTo
	}
	return c.post(ctx, "/send/message", body, nil)
}

func (c *RESTClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *RESTClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *RESTClient) do(req *http.Request, out interface{}) error {
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("gateway request %s: %w", req.URL.Path, ErrAuthNotReady)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway request %s: status %d: %s", req.URL.Path, resp.StatusCode, data)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("gateway response %s: %w", req.URL.Path, err)
		}
	}
	return nil
}

// Ensure RESTClient implements Client.
var _ Client = (*RESTClient)(nil)
