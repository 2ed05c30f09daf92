package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jetsocket/backend/internal/config"
)

var (
	ErrNotConfigured = errors.New("broker is not configured")
	ErrInvalidEvent  = errors.New("invalid event")
)

// Error reports a failed call to the broker.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return "broker: " + e.Message
	}
	return fmt.Sprintf("broker returned %d: %s", e.StatusCode, e.Message)
}

// Client reaches the external soketi-compatible broker for demo calls.
type Client struct {
	cfg        config.BrokerConfig
	httpClient *http.Client
	dialer     *websocket.Dialer
	now        func() time.Time
}

func NewClient(cfg config.BrokerConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
		},
		now: time.Now,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Enabled()
}

func (c *Client) baseURL() string {
	return c.cfg.Scheme + "://" + c.cfg.Host + ":" + strconv.Itoa(c.cfg.Port)
}

// WebSocketURL is the client connection URL for an application key.
func (c *Client) WebSocketURL(key string) string {
	scheme := "ws"
	if c.cfg.Scheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/app/%s?protocol=7&client=jetsocket-dashboard&version=1.0", scheme, c.cfg.Host, c.cfg.Port, key)
}

// Event is a message published through the broker REST API.
type Event struct {
	Channel string
	Name    string
	Data    string
}

func (e Event) validate() error {
	switch {
	case strings.TrimSpace(e.Channel) == "":
		return fmt.Errorf("%w: channel is required", ErrInvalidEvent)
	case strings.TrimSpace(e.Name) == "":
		return fmt.Errorf("%w: event name is required", ErrInvalidEvent)
	case len(e.Channel) > 200:
		return fmt.Errorf("%w: channel name is too long", ErrInvalidEvent)
	}
	return nil
}

type triggerBody struct {
	Name     string   `json:"name"`
	Channels []string `json:"channels"`
	Data     string   `json:"data"`
}

// Trigger publishes one event on behalf of the application.
func (c *Client) Trigger(ctx context.Context, creds Credentials, ev Event) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if err := ev.validate(); err != nil {
		return err
	}

	body, err := json.Marshal(triggerBody{Name: ev.Name, Channels: []string{ev.Channel}, Data: ev.Data})
	if err != nil {
		return err
	}

	path := "/apps/" + creds.AppID + "/events"
	query := SignedQuery(creds, http.MethodPost, path, body, nil, c.now())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path+"?"+query, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	return nil
}
