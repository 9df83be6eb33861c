package audit

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // restrict in prod deployments
}

// feedEvent is the frame pushed to connected admin clients.
type feedEvent struct {
	Type  string `json:"type"`
	Entry *Entry `json:"entry"`
}

const eventHighRisk = "high_risk_entry"

// connection is a single admin websocket client.
type connection struct {
	principalID string
	conn        *websocket.Conn
	send        chan []byte
}

// Feed pushes high-risk audit entries to connected administrative clients in
// real time. Entries are already persisted before they reach the feed, so a
// slow or absent client loses nothing.
type Feed struct {
	mu          sync.RWMutex
	connections map[*connection]bool
}

func NewFeed() *Feed {
	return &Feed{connections: make(map[*connection]bool)}
}

func (f *Feed) register(c *connection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connections[c] = true
}

func (f *Feed) unregister(c *connection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connections[c] {
		delete(f.connections, c)
		close(c.send)
	}
}

// Broadcast fans one entry out to every connected client.
func (f *Feed) Broadcast(entry *Entry) {
	data, err := json.Marshal(feedEvent{Type: eventHighRisk, Entry: entry})
	if err != nil {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.connections {
		select {
		case c.send <- data:
		default:
			// Client too slow, skip it.
		}
	}
}

// ServeWS upgrades the request and runs the connection loops until disconnect.
func (f *Feed) ServeWS(w http.ResponseWriter, r *http.Request, principalID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &connection{principalID: principalID, conn: conn, send: make(chan []byte, 64)}
	f.register(c)

	go f.writePump(c)
	f.readPump(c) // blocks until disconnect
	return nil
}

func (f *Feed) readPump(c *connection) {
	defer func() {
		f.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The feed is one-way; we only read to detect disconnects and pongs.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (f *Feed) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
