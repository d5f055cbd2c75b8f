package importer

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Progress is pushed to every subscriber of the job's event.
type Progress struct {
	JobID    string  `json:"jobId"`
	EventID  int64   `json:"eventId"`
	Progress float64 `json:"progress"`
	Done     bool    `json:"done"`
	Report   *Report `json:"report,omitempty"`
}

type Publisher interface {
	Publish(p Progress)
}

// ProgressHub fans import progress out to websocket subscribers, grouped by
// event.
type ProgressHub struct {
	mu      sync.Mutex
	clients map[*subscriber]struct{}
	log     logrus.FieldLogger
}

type subscriber struct {
	eventID int64
	conn    *websocket.Conn
	send    chan []byte
}

func NewProgressHub(log logrus.FieldLogger) *ProgressHub {
	return &ProgressHub{clients: make(map[*subscriber]struct{}), log: log}
}

func (h *ProgressHub) Publish(p Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		h.log.WithError(err).Warn("marshal import progress")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.eventID != p.EventID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow reader; drop it rather than block the worker.
			h.removeLocked(c)
		}
	}
}

// Subscribers reports how many clients listen on eventID.
func (h *ProgressHub) Subscribers(eventID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.clients {
		if c.eventID == eventID {
			n++
		}
	}
	return n
}

// Serve registers conn for eventID and blocks until the peer goes away.
func (h *ProgressHub) Serve(conn *websocket.Conn, eventID int64) {
	c := &subscriber{eventID: eventID, conn: conn, send: make(chan []byte, 16)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	c.readPump()

	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *ProgressHub) removeLocked(c *subscriber) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump only drains control frames; subscribers never send data.
func (c *subscriber) readPump() {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
