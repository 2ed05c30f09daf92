package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const (
	eventConnectionEstablished = "pusher:connection_established"
	eventError                 = "pusher:error"
)

// ProbeResult describes a connection attempt against the broker.
type ProbeResult struct {
	Connected       bool          `json:"connected"`
	SocketID        string        `json:"socket_id,omitempty"`
	ActivityTimeout int           `json:"activity_timeout,omitempty"`
	Latency         time.Duration `json:"-"`
	LatencyMS       int64         `json:"latency_ms"`
	Error           string        `json:"error,omitempty"`
	ErrorCode       int           `json:"error_code,omitempty"`
}

type pusherMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// decode handles data sent either as an encoded JSON string or as an object.
func (m pusherMessage) decode(v interface{}) error {
	var s string
	if err := json.Unmarshal(m.Data, &s); err == nil {
		return json.Unmarshal([]byte(s), v)
	}
	return json.Unmarshal(m.Data, v)
}

type establishedData struct {
	SocketID        string `json:"socket_id"`
	ActivityTimeout int    `json:"activity_timeout"`
}

type errorData struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Probe opens a client connection with the application key and waits for
// the broker's handshake event. A refused handshake is reported in the
// result; only transport failures return an error.
func (c *Client) Probe(ctx context.Context, key string) (*ProbeResult, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := c.now()
	conn, _, err := c.dialer.DialContext(ctx, c.WebSocketURL(key), nil)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return &ProbeResult{Error: err.Error()}, nil
		}

		var msg pusherMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Event {
		case eventConnectionEstablished:
			var data establishedData
			err := msg.decode(&data)
			if err == nil && data.SocketID == "" {
				err = errors.New("missing socket_id")
			}
			latency := c.now().Sub(start)
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				return &ProbeResult{
					Error:     fmt.Sprintf("invalid %s payload: %v", eventConnectionEstablished, err),
					Latency:   latency,
					LatencyMS: latency.Milliseconds(),
				}, nil
			}
			return &ProbeResult{
				Connected:       true,
				SocketID:        data.SocketID,
				ActivityTimeout: data.ActivityTimeout,
				Latency:         latency,
				LatencyMS:       latency.Milliseconds(),
			}, nil
		case eventError:
			var data errorData
			if err := msg.decode(&data); err != nil {
				return &ProbeResult{Error: fmt.Sprintf("invalid %s payload: %v", eventError, err)}, nil
			}
			return &ProbeResult{Error: data.Message, ErrorCode: data.Code}, nil
		}
	}
}
