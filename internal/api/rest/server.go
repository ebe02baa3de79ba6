package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/backfill"
	"github.com/fortuna/crease/internal/metrics"
	"github.com/fortuna/crease/internal/store"
)

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	router  *mux.Router
	handler *Handler
}

// Options carries the optional collaborators of the server.
type Options struct {
	Asker     Asker
	Backfill  *backfill.Service
	WebSocket http.HandlerFunc
	Logger    *zap.Logger
}

// NewServer creates a new REST API server
func NewServer(port string, db *store.Database, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("rest")

	handler := NewHandler(db, opts.Asker, logger)
	backfillHandler := NewBackfillHandler(opts.Backfill)

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	// Health check and metrics
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	if opts.WebSocket != nil {
		router.HandleFunc("/ws/matches", opts.WebSocket)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Questions
	api.HandleFunc("/ask", handler.Ask).Methods("POST")

	// Matches
	api.HandleFunc("/matches", handler.GetRecentMatches).Methods("GET")
	api.HandleFunc("/matches/{matchID}", handler.GetMatch).Methods("GET")
	api.HandleFunc("/matches/{matchID}/innings/{inningsNo}/deliveries", handler.GetDeliveries).Methods("GET")

	// Teams and players
	api.HandleFunc("/teams", handler.GetTeams).Methods("GET")
	api.HandleFunc("/players/search", handler.SearchPlayers).Methods("GET")
	api.HandleFunc("/players/{playerID}", handler.GetPlayer).Methods("GET")

	// Backfill operations
	api.HandleFunc("/backfill", backfillHandler.HandleBackfillRequest).Methods("POST")
	api.HandleFunc("/backfill/status", backfillHandler.HandleBackfillStatus).Methods("GET")
	api.HandleFunc("/backfill/jobs/{jobID}", backfillHandler.HandleBackfillJob).Methods("GET")

	return &Server{
		port:    port,
		router:  router,
		handler: handler,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
