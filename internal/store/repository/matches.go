package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fortuna/crease/internal/store"
)

// MatchRepository handles match, innings and powerplay data access
type MatchRepository struct {
	db store.Executor
}

// NewMatchRepository creates a new match repository. db may be a transaction.
func NewMatchRepository(db store.Executor) *MatchRepository {
	return &MatchRepository{db: db}
}

const matchColumns = `match_id, season, match_date, city, venue, event_name, match_number,
			match_type, gender, overs_per_side, team1, team2, toss_winner, toss_decision,
			match_winner, win_by_runs, win_by_wkts, result, player_of_match`

// Insert stores a match and returns its generated id.
func (r *MatchRepository) Insert(ctx context.Context, m *store.Match) (int64, error) {
	query := `
		INSERT INTO matches (
			season, match_date, city, venue, event_name, match_number, match_type,
			gender, overs_per_side, team1, team2, toss_winner, toss_decision,
			match_winner, win_by_runs, win_by_wkts, result, player_of_match
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING match_id
	`

	// Bound as text so SQLite keeps the ISO date and date literals compare equal.
	err := r.db.QueryRowContext(ctx, query,
		m.Season, m.MatchDate.Format(store.DateLayout), m.City, m.Venue, m.EventName, m.MatchNumber, m.MatchType,
		m.Gender, m.OversPerSide, m.Team1, m.Team2, m.TossWinner, m.TossDecision,
		m.MatchWinner, m.WinByRuns, m.WinByWickets, m.Result, m.PlayerOfMatch,
	).Scan(&m.MatchID)
	if err != nil {
		return 0, fmt.Errorf("inserting match: %w", store.ClassifyError(err))
	}

	return m.MatchID, nil
}

// InsertInnings stores one innings row.
func (r *MatchRepository) InsertInnings(ctx context.Context, inn *store.Innings) error {
	query := `
		INSERT INTO innings (match_id, innings_no, batting_team, runs, wickets, overs)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		inn.MatchID, inn.InningsNo, inn.BattingTeam, inn.Runs, inn.Wickets, inn.Overs,
	)
	if err != nil {
		return fmt.Errorf("inserting innings %d: %w", inn.InningsNo, store.ClassifyError(err))
	}
	return nil
}

// InsertPowerplays stores powerplays in one statement, skipping any that
// repeat an existing (match, innings, over range). It returns the number of
// rows actually inserted.
func (r *MatchRepository) InsertPowerplays(ctx context.Context, pps []store.Powerplay) (int64, error) {
	if len(pps) == 0 {
		return 0, nil
	}

	var (
		values []string
		args   = make([]any, 0, len(pps)*5)
	)
	for _, pp := range pps {
		n := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5))
		args = append(args, pp.MatchID, pp.InningsNo, pp.Type, pp.FromOver, pp.ToOver)
	}

	query := `
		INSERT INTO powerplays (match_id, innings_no, pp_type, from_over, to_over)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (match_id, innings_no, from_over, to_over) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting powerplays: %w", store.ClassifyError(err))
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return inserted, nil
}

// GetByID finds a match by its id
func (r *MatchRepository) GetByID(ctx context.Context, matchID int64) (*store.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE match_id = $1`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %d: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying match: %w", err)
	}
	return m, nil
}

// GetRecent returns the most recently played matches.
func (r *MatchRepository) GetRecent(ctx context.Context, limit int) ([]*store.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		ORDER BY match_date DESC, match_id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	var matches []*store.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetInnings returns a match's innings in batting order.
func (r *MatchRepository) GetInnings(ctx context.Context, matchID int64) ([]*store.Innings, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT match_id, innings_no, batting_team, runs, wickets, overs
		FROM innings
		WHERE match_id = $1
		ORDER BY innings_no
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("querying innings: %w", err)
	}
	defer rows.Close()

	var innings []*store.Innings
	for rows.Next() {
		inn := &store.Innings{}
		if err := rows.Scan(&inn.MatchID, &inn.InningsNo, &inn.BattingTeam, &inn.Runs, &inn.Wickets, &inn.Overs); err != nil {
			return nil, fmt.Errorf("scanning innings: %w", err)
		}
		innings = append(innings, inn)
	}
	return innings, rows.Err()
}

// GetPowerplays returns a match's powerplays ordered by innings and start over.
func (r *MatchRepository) GetPowerplays(ctx context.Context, matchID int64) ([]*store.Powerplay, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT match_id, innings_no, pp_type, from_over, to_over
		FROM powerplays
		WHERE match_id = $1
		ORDER BY innings_no, from_over
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("querying powerplays: %w", err)
	}
	defer rows.Close()

	var pps []*store.Powerplay
	for rows.Next() {
		pp := &store.Powerplay{}
		if err := rows.Scan(&pp.MatchID, &pp.InningsNo, &pp.Type, &pp.FromOver, &pp.ToOver); err != nil {
			return nil, fmt.Errorf("scanning powerplay: %w", err)
		}
		pps = append(pps, pp)
	}
	return pps, rows.Err()
}

func scanMatch(scanner interface {
	Scan(dest ...any) error
}) (*store.Match, error) {
	m := &store.Match{}
	err := scanner.Scan(
		&m.MatchID, &m.Season, &m.MatchDate, &m.City, &m.Venue, &m.EventName, &m.MatchNumber,
		&m.MatchType, &m.Gender, &m.OversPerSide, &m.Team1, &m.Team2, &m.TossWinner, &m.TossDecision,
		&m.MatchWinner, &m.WinByRuns, &m.WinByWickets, &m.Result, &m.PlayerOfMatch,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}
