package service

import (
	"context"
	"fmt"

	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

// MatchService handles match-related read paths
type MatchService struct {
	matchRepo    *repository.MatchRepository
	deliveryRepo *repository.DeliveryRepository
	teamRepo     *repository.TeamRepository
	playerRepo   *repository.PlayerRepository
}

// NewMatchService creates a new match service
func NewMatchService(db *store.Database) *MatchService {
	return &MatchService{
		matchRepo:    repository.NewMatchRepository(db),
		deliveryRepo: repository.NewDeliveryRepository(db),
		teamRepo:     repository.NewTeamRepository(db),
		playerRepo:   repository.NewPlayerRepository(db),
	}
}

// MatchSummary is a match with its team names resolved
type MatchSummary struct {
	Match       *store.Match `json:"match"`
	Team1       *store.Team  `json:"team1"`
	Team2       *store.Team  `json:"team2"`
	MatchWinner *store.Team  `json:"match_winner,omitempty"`
}

// MatchDetail adds innings totals and powerplays to a summary
type MatchDetail struct {
	MatchSummary
	PlayerOfMatch *store.Player      `json:"player_of_match,omitempty"`
	Innings       []*store.Innings   `json:"innings"`
	Powerplays    []*store.Powerplay `json:"powerplays"`
}

// DeliveryView is a delivery with player names alongside the ids
type DeliveryView struct {
	*store.Delivery
	Batter     string `json:"batter"`
	Bowler     string `json:"bowler"`
	NonStriker string `json:"non_striker"`
	PlayerOut  string `json:"player_out,omitempty"`
	Fielder    string `json:"fielder,omitempty"`
}

// GetMatch retrieves a match with teams, innings and powerplays
func (s *MatchService) GetMatch(ctx context.Context, matchID int64) (*MatchDetail, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("fetching match: %w", err)
	}

	summary, err := s.summarize(ctx, match)
	if err != nil {
		return nil, err
	}
	detail := &MatchDetail{MatchSummary: *summary}

	if match.PlayerOfMatch.Valid {
		detail.PlayerOfMatch, err = s.playerRepo.GetByID(ctx, match.PlayerOfMatch.Int64)
		if err != nil {
			return nil, fmt.Errorf("fetching player of the match: %w", err)
		}
	}

	if detail.Innings, err = s.matchRepo.GetInnings(ctx, matchID); err != nil {
		return nil, fmt.Errorf("fetching innings: %w", err)
	}
	if detail.Powerplays, err = s.matchRepo.GetPowerplays(ctx, matchID); err != nil {
		return nil, fmt.Errorf("fetching powerplays: %w", err)
	}
	return detail, nil
}

// GetRecentMatches retrieves the latest matches by date
func (s *MatchService) GetRecentMatches(ctx context.Context, limit int) ([]*MatchSummary, error) {
	matches, err := s.matchRepo.GetRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching recent matches: %w", err)
	}

	summaries := make([]*MatchSummary, 0, len(matches))
	for _, m := range matches {
		summary, err := s.summarize(ctx, m)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetDeliveries retrieves one innings ball by ball with player names
func (s *MatchService) GetDeliveries(ctx context.Context, matchID int64, inningsNo int) ([]*DeliveryView, error) {
	deliveries, err := s.deliveryRepo.GetByInnings(ctx, matchID, inningsNo)
	if err != nil {
		return nil, fmt.Errorf("fetching deliveries: %w", err)
	}

	names := make(map[int64]string)
	name := func(id int64) (string, error) {
		if n, ok := names[id]; ok {
			return n, nil
		}
		p, err := s.playerRepo.GetByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("fetching player %d: %w", id, err)
		}
		names[id] = p.PlayerName
		return p.PlayerName, nil
	}

	views := make([]*DeliveryView, 0, len(deliveries))
	for _, d := range deliveries {
		v := &DeliveryView{Delivery: d}
		if v.Batter, err = name(d.BatterID); err != nil {
			return nil, err
		}
		if v.Bowler, err = name(d.BowlerID); err != nil {
			return nil, err
		}
		if v.NonStriker, err = name(d.NonStrikerID); err != nil {
			return nil, err
		}
		if d.PlayerOutID.Valid {
			if v.PlayerOut, err = name(d.PlayerOutID.Int64); err != nil {
				return nil, err
			}
		}
		if d.FielderID.Valid {
			if v.Fielder, err = name(d.FielderID.Int64); err != nil {
				return nil, err
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// summarize adds team details to a match
func (s *MatchService) summarize(ctx context.Context, m *store.Match) (*MatchSummary, error) {
	team1, err := s.teamRepo.GetByID(ctx, m.Team1)
	if err != nil {
		return nil, fmt.Errorf("fetching team1 for match %d: %w", m.MatchID, err)
	}
	team2, err := s.teamRepo.GetByID(ctx, m.Team2)
	if err != nil {
		return nil, fmt.Errorf("fetching team2 for match %d: %w", m.MatchID, err)
	}

	summary := &MatchSummary{Match: m, Team1: team1, Team2: team2}
	switch {
	case !m.MatchWinner.Valid:
	case m.MatchWinner.Int64 == team1.TeamID:
		summary.MatchWinner = team1
	case m.MatchWinner.Int64 == team2.TeamID:
		summary.MatchWinner = team2
	}
	return summary, nil
}
