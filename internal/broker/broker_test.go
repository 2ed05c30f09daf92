package broker

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jetsocket/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pusherDocCreds = Credentials{AppID: "3", Key: "278d425bdf160c739803", Secret: "7ad3773142a6692b25b8"}

const pusherDocBody = `{"name":"foo","channels":["project-3"],"data":"{\"some\":\"data\"}"}`

func TestSignedQuery_PusherReference(t *testing.T) {
	q := SignedQuery(pusherDocCreds, "post", "/apps/3/events", []byte(pusherDocBody), nil, time.Unix(1353088179, 0))

	assert.Equal(t,
		"auth_key=278d425bdf160c739803&auth_timestamp=1353088179&auth_version=1.0"+
			"&body_md5=ec365a775a4cd0599faeb73354201b6f"+
			"&auth_signature=da454824c97ba181a32ccc17a72625ba02771f50b50e1e7430e47a1f3f457e6c",
		q)
}

func TestSignedQuery_NoBody(t *testing.T) {
	q := SignedQuery(pusherDocCreds, "GET", "/apps/3/channels", nil, url.Values{"Info": {"user_count"}}, time.Unix(1, 0))
	assert.NotContains(t, q, "body_md5")
	assert.True(t, strings.HasPrefix(q, "auth_key=278d425bdf160c739803&auth_timestamp=1&auth_version=1.0&info=user_count&auth_signature="))
}

func clientFor(t *testing.T, rawURL string) *Client {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return NewClient(config.BrokerConfig{Host: host, Port: port, Scheme: "http"})
}

func TestTrigger(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, pusherDocBody, string(body))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := clientFor(t, srv.URL)
	c.now = func() time.Time { return time.Unix(1353088179, 0) }

	err := c.Trigger(context.Background(), pusherDocCreds, Event{Channel: "project-3", Name: "foo", Data: `{"some":"data"}`})
	require.NoError(t, err)

	assert.Equal(t, "/apps/3/events", gotPath)
	assert.Equal(t, "278d425bdf160c739803", gotQuery.Get("auth_key"))
	assert.Equal(t, "ec365a775a4cd0599faeb73354201b6f", gotQuery.Get("body_md5"))
	assert.Equal(t, "da454824c97ba181a32ccc17a72625ba02771f50b50e1e7430e47a1f3f457e6c", gotQuery.Get("auth_signature"))
}

func TestTrigger_BrokerRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := clientFor(t, srv.URL).Trigger(context.Background(), pusherDocCreds, Event{Channel: "c", Name: "e"})
	var berr *Error
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, http.StatusUnauthorized, berr.StatusCode)
	assert.Equal(t, "Invalid signature", berr.Message)
}

func TestTrigger_Validation(t *testing.T) {
	c := NewClient(config.BrokerConfig{Host: "localhost", Port: 6001, Scheme: "http"})
	assert.ErrorIs(t, c.Trigger(context.Background(), pusherDocCreds, Event{Name: "e"}), ErrInvalidEvent)
	assert.ErrorIs(t, c.Trigger(context.Background(), pusherDocCreds, Event{Channel: "c"}), ErrInvalidEvent)

	disabled := NewClient(config.BrokerConfig{})
	assert.ErrorIs(t, disabled.Trigger(context.Background(), pusherDocCreds, Event{Channel: "c", Name: "e"}), ErrNotConfigured)
}

func fakeBroker(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/app/app-key", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("protocol"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(reply))
		conn.ReadMessage()
	}))
}

func TestProbe_Established(t *testing.T) {
	srv := fakeBroker(t, `{"event":"pusher:connection_established","data":"{\"socket_id\":\"123.456\",\"activity_timeout\":120}"}`)
	defer srv.Close()

	res, err := clientFor(t, srv.URL).Probe(context.Background(), "app-key")
	require.NoError(t, err)
	assert.True(t, res.Connected)
	assert.Equal(t, "123.456", res.SocketID)
	assert.Equal(t, 120, res.ActivityTimeout)
}

func TestProbe_MalformedEstablished(t *testing.T) {
	for name, frame := range map[string]string{
		"bad data":       `{"event":"pusher:connection_established","data":"{not json"}`,
		"missing socket": `{"event":"pusher:connection_established","data":{"activity_timeout":120}}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := fakeBroker(t, frame)
			defer srv.Close()

			res, err := clientFor(t, srv.URL).Probe(context.Background(), "app-key")
			require.NoError(t, err)
			assert.False(t, res.Connected)
			assert.Empty(t, res.SocketID)
			assert.Contains(t, res.Error, "invalid pusher:connection_established payload")
		})
	}
}

func TestProbe_ErrorEvent(t *testing.T) {
	srv := fakeBroker(t, `{"event":"pusher:error","data":{"message":"App key app-key does not exist.","code":4001}}`)
	defer srv.Close()

	res, err := clientFor(t, srv.URL).Probe(context.Background(), "app-key")
	require.NoError(t, err)
	assert.False(t, res.Connected)
	assert.Equal(t, 4001, res.ErrorCode)
	assert.Equal(t, "App key app-key does not exist.", res.Error)
}

func TestProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := clientFor(t, srv.URL)
	srv.Close()

	_, err := c.Probe(context.Background(), "app-key")
	var berr *Error
	assert.True(t, errors.As(err, &berr))
}

func TestWebSocketURL(t *testing.T) {
	c := NewClient(config.BrokerConfig{Host: "ws.jetsocket.io", Port: 443, Scheme: "https"})
	assert.Equal(t, "wss://ws.jetsocket.io:443/app/k?protocol=7&client=jetsocket-dashboard&version=1.0", c.WebSocketURL("k"))
}

func TestSnippets(t *testing.T) {
	c := NewClient(config.BrokerConfig{Host: "ws.jetsocket.io", Port: 443, Scheme: "https"})
	snippets, err := c.Snippets(Credentials{AppID: "app-1", Key: "the-key", Secret: "the-secret"})
	require.NoError(t, err)
	require.Len(t, snippets, 4)

	assert.Equal(t, "javascript", snippets[0].Language)
	assert.Contains(t, snippets[0].Code, `new Pusher("the-key"`)
	assert.NotContains(t, snippets[0].Code, "the-secret", "browser code never embeds the secret")
	assert.Contains(t, snippets[1].Code, `secret: "the-secret"`)
	assert.Contains(t, snippets[3].Code, "ssl=True")

	local, err := NewClient(config.BrokerConfig{}).Snippets(Credentials{Key: "k"})
	require.NoError(t, err)
	assert.Contains(t, local[0].Code, `wsHost: "localhost"`)
}
