package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-house/internal/house-service/cache"
)

const writeTimeout = 5 * time.Second

// client serializa escritas: gorilla/websocket aceita um único escritor por conexão
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *client) reply(m ServerMsg) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.send(b)
}

// Hub mantém as conexões WebSocket assinadas por house e repassa liquidações
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{} // house -> conexões
}

// NewHub cria o hub com a política de origem informada (nil aceita só same-origin)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP faz o upgrade e trata subscribe/unsubscribe/ping até o cliente sair
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	defer func() {
		h.drop(c)
		_ = conn.Close()
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe", "unsubscribe":
			if msg.House == "" {
				_ = c.reply(ServerMsg{Type: "error", Error: "house required"})
				continue
			}
			if msg.Type == "subscribe" {
				h.add(msg.House, c)
				_ = c.reply(ServerMsg{Type: "subscribed", House: msg.House})
			} else {
				h.remove(msg.House, c)
				_ = c.reply(ServerMsg{Type: "unsubscribed", House: msg.House})
			}
		case "ping":
			_ = c.reply(ServerMsg{Type: "pong"})
		default:
			_ = c.reply(ServerMsg{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Hub) add(house string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[house]; !ok {
		h.subs[house] = make(map[*client]struct{})
	}
	h.subs[house][c] = struct{}{}
}

func (h *Hub) remove(house string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[house]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, house)
		}
	}
}

// drop remove a conexão de todas as assinaturas
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for house, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, house)
		}
	}
}

// Subscribers retorna quantas conexões acompanham a house
func (h *Hub) Subscribers(house string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[house])
}

// Broadcast envia a liquidação para quem assina a house correspondente
func (h *Hub) Broadcast(u cache.SettlementUpdate) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[u.House]))
	for c := range h.subs[u.House] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(u)
	if err != nil {
		h.log.Warn("feed marshal failed", zap.Error(err))
		return
	}
	for _, c := range targets {
		if err := c.send(b); err != nil {
			h.log.Debug("feed write failed", zap.Error(err))
		}
	}
}
