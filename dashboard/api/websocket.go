package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn wraps a WebSocket connection with a write lock, since the hub and
// the per-connection read loop both write to it.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// handleWebSocket handles WebSocket connections for real-time updates.
func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	client := &wsConn{conn: conn}
	s.registerWSClient(client)
	s.log.WithField("remote_addr", r.RemoteAddr).Info("WebSocket client connected")

	message := map[string]interface{}{
		"type":      "connection",
		"status":    "connected",
		"timestamp": time.Now(),
	}
	if err := client.writeJSON(message); err != nil {
		s.log.WithError(err).Error("Failed to send initial WebSocket message")
		s.unregisterWSClient(client)
		return
	}

	for {
		var msg map[string]interface{}
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.WithError(err).Error("WebSocket connection error")
			}
			break
		}

		if msgType, ok := msg["type"].(string); ok && msgType == "ping" {
			pong := map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now(),
			}
			if err := client.writeJSON(pong); err != nil {
				break
			}
		}
	}

	s.unregisterWSClient(client)
	s.log.WithField("remote_addr", r.RemoteAddr).Info("WebSocket client disconnected")
}

// registerWSClient adds a connection to the broadcast set. The set is shared
// between per-connection handler goroutines and the hub, so every access
// holds wsMu.
func (s *server) registerWSClient(client *wsConn) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	s.wsClients[client] = true
}

func (s *server) unregisterWSClient(client *wsConn) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	delete(s.wsClients, client)
}

// handleWebSocketHub manages WebSocket message broadcasting. Writes happen
// against a snapshot of the client set so a slow client never holds the lock.
func (s *server) handleWebSocketHub() {
	for message := range s.wsBroadcast {
		s.wsMu.RLock()
		clients := make([]*wsConn, 0, len(s.wsClients))
		for client := range s.wsClients {
			clients = append(clients, client)
		}
		s.wsMu.RUnlock()

		var failed []*wsConn
		for _, client := range clients {
			if err := client.writeMessage(websocket.TextMessage, message); err != nil {
				client.conn.Close()
				failed = append(failed, client)
			}
		}

		if len(failed) > 0 {
			s.wsMu.Lock()
			for _, client := range failed {
				delete(s.wsClients, client)
			}
			s.wsMu.Unlock()
		}
	}
}

// Broadcast sends a real-time update to all WebSocket clients. Updates are
// dropped rather than blocking when the hub cannot keep up, and become no-ops
// once the server has stopped.
func (s *server) Broadcast(eventType string, data interface{}) {
	message := map[string]interface{}{
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now(),
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		s.log.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	s.wsMu.RLock()
	defer s.wsMu.RUnlock()
	if s.wsClosed {
		return
	}

	select {
	case s.wsBroadcast <- messageBytes:
	default:
	}
}
