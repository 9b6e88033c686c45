package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer      = 16
	broadcastBuffer = 256

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	orderID string
}

// Hub рассылает изменения статуса подписчикам конкретного заказа.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan models.OrderStatusEvent
	clients    map[string]map[*client]struct{}
	done       chan struct{}
	stopOnce   sync.Once
	upgrader   websocket.Upgrader
}

// NewHub создаёт хаб. allowedOrigins перечисляет источники (scheme://host[:port]),
// которым разрешено открывать подписку из браузера; "*" разрешает любой источник.
// Без списка принимаются только запросы с того же хоста.
func NewHub(allowedOrigins ...string) *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan models.OrderStatusEvent, broadcastBuffer),
		clients:    make(map[string]map[*client]struct{}),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Не браузерные клиенты заголовок Origin не передают.
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		if len(allowed) == 0 {
			return strings.EqualFold(u.Host, r.Host)
		}

		_, ok := allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

// Run обслуживает подписки до отмены ctx. После выхода все соединения закрываются.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case c := <-h.register:
			set, ok := h.clients[c.orderID]
			if !ok {
				set = make(map[*client]struct{})
				h.clients[c.orderID] = set
			}
			set[c] = struct{}{}
		case c := <-h.unregister:
			h.remove(c)
		case event := <-h.broadcast:
			h.deliver(event)
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*client]struct{})
			return
		}
	}
}

// Publish ставит событие в очередь рассылки. Если очередь заполнена, событие теряется.
func (h *Hub) Publish(event models.OrderStatusEvent) {
	select {
	case h.broadcast <- event:
	default:
		logger.Log.Warn("status broadcast is full, event dropped", zap.String("orderID", event.OrderID))
	}
}

func (h *Hub) deliver(event models.OrderStatusEvent) {
	set, ok := h.clients[event.OrderID]
	if !ok {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("failed to marshal status event", zap.Error(err))
		return
	}

	for c := range set {
		select {
		case c.send <- msg:
		default:
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	set, ok := h.clients[c.orderID]
	if !ok {
		return
	}

	if _, exists := set[c]; exists {
		delete(set, c)
		close(c.send)
	}

	if len(set) == 0 {
		delete(h.clients, c.orderID)
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("websocket closed", zap.String("orderID", c.orderID), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
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
