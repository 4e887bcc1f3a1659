package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/internal/journal"
	"github.com/kirillm/fx-copilot/pkg/utils"
)

const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event live-обновление журнала для подписчиков /ws
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub рассылает новые реплики и решения всем websocket-клиентам.
// Медленный клиент, чей буфер переполнен, отключается.
type Hub struct {
	logger *utils.Logger

	lock    sync.Mutex
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewHub создает хаб
func NewHub(logger *utils.Logger) *Hub {
	if logger == nil {
		logger = utils.Discard()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// AppendTurn journal.Sink
func (h *Hub) AppendTurn(turn domain.ConversationTurn) {
	h.Broadcast(Event{Type: "turn", Data: turn})
}

// AppendDecision journal.Sink
func (h *Hub) AppendDecision(entry domain.DecisionLogEntry) {
	h.Broadcast(Event{Type: "decision", Data: entry})
}

// Broadcast отправляет событие всем клиентам, не блокируясь
func (h *Hub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("❌ [Hub] failed to encode event: %v", err)
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("⚠️ [Hub] client too slow, disconnecting")
			h.removeLocked(c)
		}
	}
}

// Clients количество подключенных клиентов
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// ServeWS подключает websocket-клиента
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("⚠️ [Hub] upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	h.lock.Lock()
	if h.closed {
		h.lock.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	h.lock.Unlock()

	h.logger.Debug("[Hub] client connected from %s", r.RemoteAddr)

	go h.writePump(c)
	go h.readPump(c)
}

// readPump держит соединение и замечает отключение клиента
func (h *Hub) readPump(c *client) {
	defer h.wg.Done()
	defer h.remove(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer h.wg.Done()
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
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Close отключает всех клиентов и ждет завершения их горутин
func (h *Hub) Close() {
	h.lock.Lock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.lock.Unlock()

	h.wg.Wait()
}

var _ journal.Sink = (*Hub)(nil)
