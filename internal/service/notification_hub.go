package service

import (
	"context"
	"edu_platform_backend/pkg/logger"
	"edu_platform_backend/pkg/monitoring"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32

	notificationChannel = "notification_channel"
)

const (
	WSTypeNotification = "NOTIFICATION"
	WSTypeRead         = "READ"
)

var ErrHubStopped = errors.New("notification hub stopped")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ReadHandler 客户端通过 WebSocket 回执已读
type ReadHandler func(ctx context.Context, userID, notificationID uint) error

type wsClient struct {
	hub     *NotificationHub
	conn    *websocket.Conn
	send    chan []byte
	userID  uint
	limiter *rate.Limiter
}

func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.userID))
			}
			return
		}
		if !c.limiter.Allow() {
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != WSTypeRead {
			continue
		}
		var body struct {
			ID uint `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &body); err != nil || body.ID == 0 {
			continue
		}
		if c.hub.OnRead != nil {
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			if err := c.hub.OnRead(ctx, c.userID, body.ID); err != nil {
				logger.Log.Debug("WebSocket read receipt rejected", zap.Uint("userId", c.userID), zap.Error(err))
			}
			cancel()
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

type shard struct {
	mu      sync.RWMutex
	clients map[uint]map[*wsClient]struct{}
}

// NotificationHub 维护在线连接并推送站内通知；配置 Redis 时经 Pub/Sub 在多实例间转发
type NotificationHub struct {
	shards     [shardCount]*shard
	register   chan *wsClient
	unregister chan *wsClient
	Redis      *redis.Client
	OnRead     ReadHandler
	// CheckOrigin 为空时只允许同源
	CheckOrigin func(origin string) bool
	done        chan struct{}
}

func NewNotificationHub(rdb *redis.Client) *NotificationHub {
	h := &NotificationHub{
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		Redis:      rdb,
		done:       make(chan struct{}),
	}
	for i := range h.shards {
		h.shards[i] = &shard{clients: make(map[uint]map[*wsClient]struct{})}
	}
	return h
}

func (h *NotificationHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

type pubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

// Run 处理连接注册直到 ctx 结束
func (h *NotificationHub) Run(ctx context.Context) {
	defer close(h.done)

	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(ctx, notificationChannel)
		defer pubsub.Close()
		go func() {
			for msg := range pubsub.Channel() {
				var ps pubSubMessage
				if err := json.Unmarshal([]byte(msg.Payload), &ps); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.deliverLocal(ps.TargetUsers, ps.Payload)
			}
		}()
	}

	for {
		select {
		case c := <-h.register:
			s := h.getShard(c.userID)
			s.mu.Lock()
			if s.clients[c.userID] == nil {
				s.clients[c.userID] = make(map[*wsClient]struct{})
			}
			s.clients[c.userID][c] = struct{}{}
			s.mu.Unlock()
			monitoring.WSConnections.Inc()

		case c := <-h.unregister:
			h.remove(c)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *NotificationHub) remove(c *wsClient) {
	s := h.getShard(c.userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, ok := s.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(s.clients, c.userID)
	}
	close(c.send)
	monitoring.WSConnections.Dec()
}

func (h *NotificationHub) closeAll() {
	closed := 0
	for _, s := range h.shards {
		s.mu.Lock()
		for userID, conns := range s.clients {
			for c := range conns {
				close(c.send)
				closed++
			}
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}
	monitoring.WSConnections.Set(0)
	logger.Log.Info("Notification hub stopped", zap.Int("closedConnections", closed))
}

// Online 本实例上该用户是否有连接
func (h *NotificationHub) Online(userID uint) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID]) > 0
}

// Push 推送给指定用户，未启用 Redis 时只投递本实例
func (h *NotificationHub) Push(userIDs []uint, msgType string, data interface{}) {
	if len(userIDs) == 0 {
		return
	}
	body, err := json.Marshal(data)
	if err != nil {
		logger.Log.Error("WebSocket payload marshal failed", zap.Error(err))
		return
	}
	payload, _ := json.Marshal(WSMessage{Type: msgType, Data: body})

	if h.Redis == nil {
		h.deliverLocal(userIDs, payload)
		return
	}
	ps, _ := json.Marshal(pubSubMessage{TargetUsers: userIDs, Payload: payload})
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := h.Redis.Publish(ctx, notificationChannel, ps).Err(); err != nil {
		logger.Log.Warn("Notification publish failed, delivering locally", zap.Error(err))
		h.deliverLocal(userIDs, payload)
	}
}

func (h *NotificationHub) deliverLocal(userIDs []uint, payload []byte) {
	for _, id := range userIDs {
		s := h.getShard(id)
		s.mu.RLock()
		for c := range s.clients[id] {
			select {
			case c.send <- payload:
			default:
				// 慢连接直接丢弃，客户端可通过列表接口补齐
				logger.Log.Debug("WebSocket send buffer full", zap.Uint("userId", id))
			}
		}
		s.mu.RUnlock()
	}
}

// ServeWS 升级连接并登记到 hub
func (h *NotificationHub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint) error {
	up := upgrader
	if h.CheckOrigin != nil {
		up.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || h.CheckOrigin(origin)
		}
	}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &wsClient{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 64),
		userID:  userID,
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return ErrHubStopped
	}

	go c.writePump()
	go c.readPump()
	return nil
}
