package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/publisher"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventSource delivers match-loaded events newer than lastID.
type EventSource interface {
	Subscribe(ctx context.Context, lastID string, handle func(id string, evt publisher.MatchLoadedEvent)) error
}

// Server relays match-loaded events to websocket clients
type Server struct {
	hub    *Hub
	source EventSource
	logger *zap.Logger
}

// NewServer creates a relay for source. A nil source serves clients
// without ever sending them anything.
func NewServer(source EventSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("websocket")
	return &Server{
		hub:    NewHub(logger),
		source: source,
		logger: logger,
	}
}

// Run starts the hub and the stream relay; it returns when ctx is done.
func (s *Server) Run(ctx context.Context) {
	go s.hub.Run(ctx)
	if s.source == nil {
		<-ctx.Done()
		return
	}

	lastID := "$"
	retryDelay := time.Second
	for {
		err := s.source.Subscribe(ctx, lastID, func(id string, evt publisher.MatchLoadedEvent) {
			lastID = id
			data, err := json.Marshal(map[string]interface{}{
				"type":  "match_loaded",
				"event": evt,
			})
			if err != nil {
				s.logger.Error("Failed to encode event", zap.Error(err))
				return
			}
			s.hub.Broadcast(data)
		})
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Match stream subscription ended", zap.Error(err), zap.Duration("retry_in", retryDelay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
		if retryDelay < 30*time.Second {
			retryDelay *= 2
		}
	}
}

// HandleMatches upgrades the request and registers the client with the hub.
func (s *Server) HandleMatches(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	select {
	case s.hub.register <- client:
	case <-s.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// HandleHealth reports how many clients are connected.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}
