package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// wsServer upgrades connections and hands each one to serve.
func wsServer(t *testing.T, connects *atomic.Int64, serve func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if connects != nil {
			connects.Add(1)
		}
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestConnectAndDispatch(t *testing.T) {
	srv := wsServer(t, nil, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"alert","message":"disk full"}`))
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	got := make(chan Message, 1)
	c := New(Config{
		URL:       wsURL(srv),
		OnMessage: func(m Message) { got <- m },
	}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	select {
	case m := <-got:
		assert.Equal(t, AlertEvent, m.Type)
		assert.Equal(t, "disk full", m.Message)
	case <-time.After(3 * time.Second):
		t.Fatal("message never dispatched")
	}

	waitFor(t, c.IsConnected)
	require.NotNil(t, c.LastMessage())
	assert.Equal(t, AlertEvent, c.LastMessage().Type)
}

func TestMalformedFrameIsDroppedNotFatal(t *testing.T) {
	srv := wsServer(t, nil, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{{{not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	got := make(chan Message, 2)
	c := New(Config{
		URL:       wsURL(srv),
		OnMessage: func(m Message) { got <- m },
	}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	// The well-formed frame behind the garbage still arrives.
	select {
	case m := <-got:
		assert.Equal(t, PongEvent, m.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("pong never arrived")
	}
	assert.True(t, c.IsConnected(), "parse failure must not drop the connection")
}

func TestReconnectAfterServerClose(t *testing.T) {
	var connects atomic.Int64
	srv := wsServer(t, &connects, func(conn *websocket.Conn) {
		if connects.Load() == 1 {
			conn.Close() // first connection dies immediately
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := New(Config{
		URL:               wsURL(srv),
		ReconnectInterval: 50 * time.Millisecond,
	}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	waitFor(t, func() bool { return connects.Load() >= 2 })
	waitFor(t, c.IsConnected)
}

func TestNoReconnectAfterCancel(t *testing.T) {
	var connects atomic.Int64
	srv := wsServer(t, &connects, func(conn *websocket.Conn) {
		conn.Close() // force the client into its backoff wait
	})

	closed := make(chan struct{}, 4)
	c := New(Config{
		URL:               wsURL(srv),
		ReconnectInterval: 40 * time.Millisecond,
		OnClose:           func() { closed <- struct{}{} },
	}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	// Wait until a reconnect is pending, then cancel before it fires.
	<-closed
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start didn't return after cancel")
	}

	before := connects.Load()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, before, connects.Load(), "no connection attempt may fire after cancel")
	assert.Equal(t, Disconnected, c.State())
}

func TestPingFailureTearsDownConnection(t *testing.T) {
	var connects atomic.Int64
	srv := wsServer(t, &connects, func(conn *websocket.Conn) {
		// Hold the read side open and never write back, so only the
		// client's own close can error its blocked read.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := New(Config{
		URL:               wsURL(srv),
		ReconnectInterval: 20 * time.Millisecond,
		PingInterval:      5 * time.Millisecond,
		WriteTimeout:      time.Nanosecond, // every ping deadline is already expired
	}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	// A failed ping must close the connection so the read loop unblocks
	// and the client dials again instead of sitting on a dead socket.
	waitFor(t, func() bool { return connects.Load() >= 2 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start didn't return after cancel")
	}
}

func TestSendWhenDisconnectedIsRejected(t *testing.T) {
	c := New(Config{URL: "ws://127.0.0.1:1/ws/admin/"}, slog.Default())
	err := c.Send(map[string]string{"type": "ping"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSendReachesServer(t *testing.T) {
	received := make(chan []byte, 1)
	srv := wsServer(t, nil, func(conn *websocket.Conn) {
		_, raw, err := conn.ReadMessage()
		if err == nil {
			received <- raw
		}
	})

	c := New(Config{URL: wsURL(srv)}, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Start(ctx)

	waitFor(t, c.IsConnected)
	require.NoError(t, c.Send(map[string]string{"type": "ping"}))

	select {
	case raw := <-received:
		assert.JSONEq(t, `{"type":"ping"}`, string(raw))
	case <-time.After(3 * time.Second):
		t.Fatal("server never received the message")
	}
}
