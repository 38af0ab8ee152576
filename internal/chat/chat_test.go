package chat

import (
	"context"
	"encoding/json"
	"io"
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
	"anotador/socket"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

func TestMessagesAndSeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages/U1/U2", r.URL.Path)
		json.NewEncoder(w).Encode(messagesResponse{Messages: []Message{
			{ID: "m1", SenderID: "U2", ReceiverID: "U1", Content: "Hola", Read: false},
			{ID: "m2", SenderID: "U2", ReceiverID: "U1", Content: "¿Revisaste?", Read: false},
			{ID: "m3", SenderID: "U1", ReceiverID: "U2", Content: "Sí", Read: true},
			{ID: "m4", SenderID: "U2", ReceiverID: "U1", Content: "Gracias", Read: true},
		}})
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	msgs, err := c.Messages(context.Background(), "U1", "U2")
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	u := NewUnread("U1", "U2", nil)
	assert.Equal(t, 2, u.Seed(msgs))
}

func TestSendAndMarkAsRead(t *testing.T) {
	var sent Message
	var markedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/send-message":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/mark-as-read/"):
			markedPath = r.URL.Path + "?" + r.URL.RawQuery
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	require.NoError(t, c.Send(context.Background(), Message{SenderID: "U1", ReceiverID: "U2", Content: "Hola"}))
	assert.Equal(t, "Hola", sent.Content)

	require.NoError(t, c.MarkAsRead(context.Background(), "room42", "U1"))
	assert.Equal(t, "/mark-as-read/room42?user_id=U1", markedPath)
}

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)

		json.NewEncoder(w).Encode(Attachment{
			FileURL:  "/uploads/chat/" + hdr.Filename,
			FileName: hdr.Filename,
			FileType: "application/pdf",
			FileSize: int64(len(content)),
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	att, err := c.Upload(context.Background(), "tesis.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/chat/tesis.pdf", att.FileURL)
	assert.Equal(t, int64(8), att.FileSize)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestUnreadIncrementsOnNewMessage(t *testing.T) {
	// Viewing as U1: a new_message envelope with sender U2 must bump
	// the counter by exactly one and fire the callback with the total.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"new_message","message":{"sender_id":"U2","receiver_id":"U1"}}`))
		// A message the viewer sent from another tab must not count.
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"new_message","message":{"sender_id":"U1","receiver_id":"U2"}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"new_message","message":{"sender_id":"U2","receiver_id":"U1"}}`))
	}))
	defer server.Close()

	n := socket.NewNotifier("ws"+strings.TrimPrefix(server.URL, "http"), time.Minute, time.Minute)
	defer n.Close()

	var fired int32
	totals := make(chan int, 4)
	u := NewUnread("U1", "U2", func(total int) {
		atomic.AddInt32(&fired, 1)
		totals <- total
	})
	u.Bind(n)
	n.Start()

	expect := []int{1, 2}
	for _, want := range expect {
		select {
		case got := <-totals:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("callback for total %d never fired", want)
		}
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&fired))
	assert.Equal(t, 2, u.Count())

	u.Reset()
	assert.Equal(t, 0, u.Count())
}
