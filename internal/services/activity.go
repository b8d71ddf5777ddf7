package services

import (
	"net/http"
	"sync"
	"time"

	"inboxcrm/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ActivityEvent is one message pushed to the live automation feed.
type ActivityEvent struct {
	Type      string      `json:"type"` // send_log
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type activityClient struct {
	id   string
	conn *websocket.Conn
	send chan ActivityEvent
}

// ActivityHub fans automation events out to connected dashboard clients.
// The feed is read-only: client frames are drained and discarded.
type ActivityHub struct {
	clients    map[string]*activityClient
	broadcast  chan ActivityEvent
	register   chan *activityClient
	unregister chan *activityClient
	mutex      sync.RWMutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced upstream by the CORS layer
	},
}

func NewActivityHub() *ActivityHub {
	return &ActivityHub{
		clients:    make(map[string]*activityClient),
		broadcast:  make(chan ActivityEvent, 64),
		register:   make(chan *activityClient),
		unregister: make(chan *activityClient),
	}
}

func (h *ActivityHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.id] = client
			h.mutex.Unlock()
			logrus.Infof("activity client %s connected", client.id)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
				logrus.Infof("activity client %s disconnected", client.id)
			}
			h.mutex.Unlock()

		case event := <-h.broadcast:
			h.mutex.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- event:
				default:
					close(client.send)
					delete(h.clients, id)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastSendLog pushes a freshly written send-log row to the feed.
func (h *ActivityHub) BroadcastSendLog(row *models.AutomationSendLog) {
	if row == nil {
		return
	}
	select {
	case h.broadcast <- ActivityEvent{Type: "send_log", Data: row, Timestamp: time.Now()}:
	default:
		// feed is best-effort; drop rather than block the writer
	}
}

// ClientCount returns the number of connected feed clients.
func (h *ActivityHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and attaches the client to the feed.
func (h *ActivityHub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Errorf("activity feed upgrade failed: %v", err)
		return
	}
	client := &activityClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan ActivityEvent, 16),
	}
	h.register <- client

	go h.writePump(client)
	go h.readPump(client)
}

func (h *ActivityHub) writePump(client *activityClient) {
	defer client.conn.Close()
	for event := range client.send {
		if err := client.conn.WriteJSON(event); err != nil {
			break
		}
	}
}

func (h *ActivityHub) readPump(client *activityClient) {
	defer func() {
		h.unregister <- client
		client.conn.Close()
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}
}
