package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/faultline-dev/faultline/internal/config"
)

// Live update fan-out. Clients subscribe to a topic (alerts, incidents,
// approvals) and receive refresh pushes whenever something on that topic
// changes.

var (
	topicClients   = make(map[string]map[*websocket.Conn]bool)
	topicClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var wsTopics = map[string]bool{
	"alerts":    true,
	"incidents": true,
	"approvals": true,
}

// BroadcastRefresh tells every subscriber of the topic to refetch.
func BroadcastRefresh(topic string) {
	topicClientsMu.RLock()
	clients, exists := topicClients[topic]
	if !exists || len(clients) == 0 {
		topicClientsMu.RUnlock()
		return
	}

	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	topicClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			continue
		}

		err := conn.WriteJSON(map[string]string{
			"type":  "refresh",
			"topic": topic,
		})

		if err != nil {
			zap.L().Warn("broadcast failed, dropping client", zap.String("topic", topic), zap.Error(err))
			topicClientsMu.Lock()
			if clients, exists := topicClients[topic]; exists {
				delete(clients, conn)
				if len(clients) == 0 {
					delete(topicClients, topic)
				}
			}
			topicClientsMu.Unlock()
			conn.Close()
		}
	}
}

func WebSocket(c *gin.Context) {
	topic := c.Param("topic")

	if !wsTopics[topic] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown topic"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range config.C.AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	topicClientsMu.Lock()
	if topicClients[topic] == nil {
		topicClients[topic] = make(map[*websocket.Conn]bool)
	}
	topicClients[topic][conn] = true
	topicClientsMu.Unlock()

	defer func() {
		topicClientsMu.Lock()

		if clients, exists := topicClients[topic]; exists {
			delete(clients, conn)

			if len(clients) == 0 {
				delete(topicClients, topic)
			}
		}

		topicClientsMu.Unlock()
		conn.Close()
	}()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}

	err = conn.WriteJSON(map[string]string{
		"type":  "connected",
		"topic": topic,
	})

	if err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	go func() {
		for range ticker.C {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("websocket closed", zap.String("topic", topic), zap.Error(err))
			}
			break
		}
	}
}
