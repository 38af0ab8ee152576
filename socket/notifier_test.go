package socket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anotador/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer runs handler for every accepted connection and counts
// dials.
func wsServer(t *testing.T, handler func(conn *websocket.Conn)) (*httptest.Server, *int32) {
	t.Helper()
	var dials int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		atomic.AddInt32(&dials, 1)
		handler(conn)
	}))
	return server, &dials
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDispatchByType(t *testing.T) {
	server, _ := wsServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"new_message","message":{"sender_id":"U2","receiver_id":"U1"}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"user_online","user_id":"U2"}`))
	})
	defer server.Close()

	n := NewNotifier(wsURL(server), time.Minute, time.Minute)
	defer n.Close()

	gotMessage := make(chan Envelope, 1)
	gotOnline := make(chan Envelope, 1)
	n.On(NewMessageType, func(env Envelope) { gotMessage <- env })
	n.On(UserOnlineType, func(env Envelope) { gotOnline <- env })
	n.Start()

	select {
	case env := <-gotMessage:
		assert.JSONEq(t, `{"sender_id":"U2","receiver_id":"U1"}`, string(env.Message))
	case <-time.After(2 * time.Second):
		t.Fatal("new_message envelope not dispatched")
	}

	select {
	case env := <-gotOnline:
		assert.Equal(t, "U2", env.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("user_online envelope not dispatched")
	}
}

func TestKeepalivePing(t *testing.T) {
	gotPing := make(chan string, 1)
	server, _ := wsServer(t, func(conn *websocket.Conn) {
		_, raw, err := conn.ReadMessage()
		if err == nil {
			gotPing <- string(raw)
		}
	})
	defer server.Close()

	n := NewNotifier(wsURL(server), 50*time.Millisecond, time.Minute)
	defer n.Close()
	n.Start()

	select {
	case msg := <-gotPing:
		assert.Equal(t, "ping", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("keepalive ping never arrived")
	}
}

func TestReconnectAfterServerClose(t *testing.T) {
	server, dials := wsServer(t, func(conn *websocket.Conn) {
		conn.Close() // drop every client immediately
	})
	defer server.Close()

	n := NewNotifier(wsURL(server), time.Minute, 20*time.Millisecond)
	defer n.Close()

	var states []bool
	stateCh := make(chan bool, 16)
	n.OnStateChange(func(connected bool) { stateCh <- connected })
	n.Start()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(dials) < 3 {
		select {
		case s := <-stateCh:
			states = append(states, s)
		case <-deadline:
			t.Fatalf("expected repeated reconnects, got %d dials", atomic.LoadInt32(dials))
		}
	}
	// The indicator saw at least one disconnect between connects.
	assert.Contains(t, states, false)
	assert.Contains(t, states, true)
}

func TestCloseStopsReconnecting(t *testing.T) {
	server, dials := wsServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})
	defer server.Close()

	n := NewNotifier(wsURL(server), time.Minute, 10*time.Millisecond)
	n.Start()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(dials) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	n.Close()
	n.Close() // idempotent

	time.Sleep(50 * time.Millisecond)
	settled := atomic.LoadInt32(dials)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, atomic.LoadInt32(dials), "dials continued after Close")
}

func TestMalformedEnvelopeIsSkipped(t *testing.T) {
	server, _ := wsServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
	})
	defer server.Close()

	n := NewNotifier(wsURL(server), time.Minute, time.Minute)
	defer n.Close()

	gotPong := make(chan struct{}, 1)
	n.On(PongType, func(Envelope) { gotPong <- struct{}{} })
	n.Start()

	select {
	case <-gotPong:
	case <-time.After(2 * time.Second):
		t.Fatal("pong after malformed frame never dispatched")
	}
}
