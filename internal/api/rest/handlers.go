package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/query"
	"github.com/fortuna/crease/internal/service"
	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

// Asker answers natural-language questions about the loaded matches.
type Asker interface {
	Ask(ctx context.Context, question string) (*query.Answer, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	db            *store.Database
	matchService  *service.MatchService
	playerService *service.PlayerService
	asker         Asker
	logger        *zap.Logger
}

// NewHandler creates a new handler. asker may be nil, which disables /ask.
func NewHandler(db *store.Database, asker Asker, logger *zap.Logger) *Handler {
	return &Handler{
		db:            db,
		matchService:  service.NewMatchService(db),
		playerService: service.NewPlayerService(db),
		asker:         asker,
		logger:        logger,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "crease",
		"driver":  h.db.Driver(),
	})
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask turns a question into SQL, runs it and returns the rendered answer
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.asker == nil {
		respondError(w, http.StatusServiceUnavailable, "Question answering is not configured", nil)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Question == "" {
		respondError(w, http.StatusBadRequest, "Missing field 'question'", nil)
		return
	}

	answer, err := h.asker.Ask(r.Context(), req.Question)
	switch {
	case errors.Is(err, query.ErrNoSQLQuery), errors.Is(err, query.ErrNotReadOnly):
		respondError(w, http.StatusUnprocessableEntity, "Could not produce a runnable query", err)
		return
	case err != nil:
		h.logger.Warn("Ask failed", zap.String("question", req.Question), zap.Error(err))
		respondError(w, http.StatusBadGateway, "Failed to answer question", err)
		return
	}

	respondJSON(w, http.StatusOK, answer)
}

// GetRecentMatches returns the latest matches by date
func (h *Handler) GetRecentMatches(w http.ResponseWriter, r *http.Request) {
	limit := 20 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	matches, err := h.matchService.GetRecentMatches(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch matches", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}

// GetMatch returns a match with its innings and powerplays
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := strconv.ParseInt(mux.Vars(r)["matchID"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid match ID", err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		respondLookupError(w, "Match not found", err)
		return
	}

	respondJSON(w, http.StatusOK, match)
}

// GetDeliveries returns one innings ball by ball
func (h *Handler) GetDeliveries(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	matchID, err := strconv.ParseInt(vars["matchID"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid match ID", err)
		return
	}
	inningsNo, err := strconv.Atoi(vars["inningsNo"])
	if err != nil || inningsNo < 1 {
		respondError(w, http.StatusBadRequest, "Invalid innings number", err)
		return
	}

	deliveries, err := h.matchService.GetDeliveries(r.Context(), matchID, inningsNo)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch deliveries", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match_id":   matchID,
		"innings_no": inningsNo,
		"deliveries": deliveries,
		"count":      len(deliveries),
	})
}

// GetTeams returns every team
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.playerService.ListTeams(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch teams", err)
		return
	}

	respondJSON(w, http.StatusOK, teams)
}

// GetPlayer returns a player by ID
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := strconv.ParseInt(mux.Vars(r)["playerID"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid player ID", err)
		return
	}

	player, err := h.playerService.GetPlayer(r.Context(), playerID)
	if err != nil {
		respondLookupError(w, "Player not found", err)
		return
	}

	respondJSON(w, http.StatusOK, player)
}

// SearchPlayers searches for players by name
func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "Missing query parameter 'name'", nil)
		return
	}

	players, err := h.playerService.SearchPlayers(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to search players", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"players": players,
		"count":   len(players),
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}

	respondJSON(w, status, response)
}

func respondLookupError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, message, err)
		return
	}
	respondError(w, http.StatusInternalServerError, "Lookup failed", err)
}
