package barowatch

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// WebSocketServer fans JSON messages out to every connected client.
type WebSocketServer struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan interface{}
	upgrader   websocket.Upgrader
	clientsMux sync.Mutex
}

func NewWebSocketServer() *WebSocketServer {
	s := &WebSocketServer{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan interface{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // telemetry is served on a trusted LAN
			},
		},
	}
	go s.handleBroadcasts()
	return s
}

// HandleWS upgrades the request and keeps the connection registered until the
// client goes away.
func (s *WebSocketServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade error: %v", err)
		return
	}
	defer ws.Close()

	s.clientsMux.Lock()
	s.clients[ws] = true
	s.clientsMux.Unlock()

	log.Debug("WebSocket client connected")
	defer func() {
		s.clientsMux.Lock()
		delete(s.clients, ws)
		s.clientsMux.Unlock()
		log.Debug("WebSocket client disconnected")
	}()

	for {
		// Clients never send anything useful; reading just detects the close.
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *WebSocketServer) handleBroadcasts() {
	for msg := range s.broadcast {
		message, err := json.Marshal(msg)
		if err != nil {
			log.Warnf("Error marshaling message: %v", err)
			continue
		}
		s.clientsMux.Lock()
		for client := range s.clients {
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warnf("WebSocket write error: %v", err)
				client.Close()
				delete(s.clients, client)
			}
		}
		s.clientsMux.Unlock()
	}
}

// Broadcast queues msg for delivery to all connected clients.
func (s *WebSocketServer) Broadcast(msg interface{}) {
	s.broadcast <- msg
}
