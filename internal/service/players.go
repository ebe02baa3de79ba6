package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

// PlayerService handles player-related business logic
type PlayerService struct {
	playerRepo *repository.PlayerRepository
	teamRepo   *repository.TeamRepository
}

// NewPlayerService creates a new player service
func NewPlayerService(db *store.Database) *PlayerService {
	return &PlayerService{
		playerRepo: repository.NewPlayerRepository(db),
		teamRepo:   repository.NewTeamRepository(db),
	}
}

// GetPlayer retrieves a player by ID
func (s *PlayerService) GetPlayer(ctx context.Context, playerID int64) (*store.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("fetching player: %w", err)
	}
	return player, nil
}

// SearchPlayers searches for players by a name fragment
func (s *PlayerService) SearchPlayers(ctx context.Context, name string) ([]*store.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	players, err := s.playerRepo.SearchByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("searching players: %w", err)
	}
	if players == nil {
		players = []*store.Player{}
	}
	return players, nil
}

// ListTeams retrieves every stored team
func (s *PlayerService) ListTeams(ctx context.Context) ([]*store.Team, error) {
	teams, err := s.teamRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching teams: %w", err)
	}
	if teams == nil {
		teams = []*store.Team{}
	}
	return teams, nil
}
