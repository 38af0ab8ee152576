// Package socket implements the realtime notification client: a
// reconnecting WebSocket connection that dispatches typed envelopes to
// registered handlers and keeps the connection alive with periodic
// pings.
package socket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"anotador/pkg/logger"
)

const (
	NewMessageType        = "new_message"        // chat message delivered
	UserOnlineType        = "user_online"        // peer connected
	UserOfflineType       = "user_offline"       // peer disconnected
	PongType              = "pong"               // keepalive reply
	AnnotationChangedType = "annotation_changed" // remote annotation set changed
)

// Envelope is one decoded realtime message. Payload carries the fields
// beyond "type"; handlers unmarshal what they need.
type Envelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
	UserID  string          `json:"user_id,omitempty"`
	Raw     []byte          `json:"-"`
}

// Handler consumes envelopes of one registered type.
type Handler func(Envelope)

// Notifier maintains one WebSocket connection per logged-in user. On
// close it schedules a reconnect after a fixed delay and keeps trying
// indefinitely; Close tears down the connection, the keepalive ticker
// and the reconnect timer as one unit so no timers leak across
// reconnects.
type Notifier struct {
	url            string
	pingInterval   time.Duration
	reconnectDelay time.Duration
	dialer         *websocket.Dialer

	mu       sync.Mutex
	handlers map[string][]Handler
	onState  func(connected bool)
	conn     *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
	started   bool
}

// NewNotifier builds a notifier for the given ws:// endpoint. It does
// not connect until Start is called.
func NewNotifier(url string, pingInterval, reconnectDelay time.Duration) *Notifier {
	return &Notifier{
		url:            url,
		pingInterval:   pingInterval,
		reconnectDelay: reconnectDelay,
		dialer:         websocket.DefaultDialer,
		handlers:       make(map[string][]Handler),
		done:           make(chan struct{}),
	}
}

// On registers a handler for one envelope type. Handlers run on the
// read goroutine, in registration order.
func (n *Notifier) On(msgType string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[msgType] = append(n.handlers[msgType], h)
}

// OnStateChange registers the connected/disconnected indicator
// callback.
func (n *Notifier) OnStateChange(fn func(connected bool)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onState = fn
}

// Start launches the connect/reconnect loop in its own goroutine.
func (n *Notifier) Start() {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.mu.Unlock()

	go n.run()
}

// Close shuts the notifier down. Idempotent.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		close(n.done)
		n.mu.Lock()
		if n.conn != nil {
			n.conn.Close()
		}
		n.mu.Unlock()
	})
}

func (n *Notifier) run() {
	for {
		select {
		case <-n.done:
			return
		default:
		}

		conn, _, err := n.dialer.Dial(n.url, nil)
		if err != nil {
			logger.Sugar.Warnf("realtime dial failed: %v", err)
			n.setState(false)
			if !n.sleep() {
				return
			}
			continue
		}

		n.mu.Lock()
		n.conn = conn
		n.mu.Unlock()
		n.setState(true)
		logger.Sugar.Infof("realtime connection established: %s", n.url)

		n.pump(conn)

		n.mu.Lock()
		n.conn = nil
		n.mu.Unlock()
		n.setState(false)

		if !n.sleep() {
			return
		}
		logger.Sugar.Info("retrying realtime connection")
	}
}

// pump reads envelopes until the connection drops, keeping a ping
// ticker alive for the duration of the connection only.
func (n *Notifier) pump(conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	defer conn.Close()

	// Keepalive: the server detects dead clients by ping silence, so
	// the literal "ping" text frame goes out on a fixed interval.
	go func() {
		ticker := time.NewTicker(n.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					return
				}
			case <-stop:
				return
			case <-n.done:
				return
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Sugar.Warnf("realtime connection lost: %v", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Sugar.Errorf("malformed realtime envelope: %v", err)
			continue
		}
		env.Raw = raw
		n.dispatch(env)
	}
}

func (n *Notifier) dispatch(env Envelope) {
	n.mu.Lock()
	handlers := append([]Handler(nil), n.handlers[env.Type]...)
	n.mu.Unlock()

	for _, h := range handlers {
		h(env)
	}
}

func (n *Notifier) setState(connected bool) {
	n.mu.Lock()
	fn := n.onState
	n.mu.Unlock()
	if fn != nil {
		fn(connected)
	}
}

// sleep waits out the reconnect delay; false means the notifier was
// closed while waiting.
func (n *Notifier) sleep() bool {
	timer := time.NewTimer(n.reconnectDelay)
	defer timer.Stop()
	select {
	case <-n.done:
		return false
	case <-timer.C:
		return true
	}
}
