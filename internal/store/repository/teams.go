package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/crease/internal/store"
)

// TeamRepository handles team data access
type TeamRepository struct {
	db store.Executor
}

// NewTeamRepository creates a new team repository. db may be a transaction.
func NewTeamRepository(db store.Executor) *TeamRepository {
	return &TeamRepository{db: db}
}

// InsertOrFetch returns the id of the named team, creating it on first sight.
func (r *TeamRepository) InsertOrFetch(ctx context.Context, name string) (int64, bool, error) {
	return insertOrFetch(ctx, r.db, teamsTable, name)
}

// GetAll returns all teams ordered by name
func (r *TeamRepository) GetAll(ctx context.Context) ([]*store.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT team_id, team_name
		FROM teams
		ORDER BY team_name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	defer rows.Close()

	var teams []*store.Team
	for rows.Next() {
		team := &store.Team{}
		if err := rows.Scan(&team.TeamID, &team.TeamName); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, team)
	}

	return teams, rows.Err()
}

// GetByID finds a team by ID
func (r *TeamRepository) GetByID(ctx context.Context, teamID int64) (*store.Team, error) {
	team := &store.Team{}
	err := r.db.QueryRowContext(ctx, `
		SELECT team_id, team_name
		FROM teams
		WHERE team_id = $1
	`, teamID).Scan(&team.TeamID, &team.TeamName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team %d: %w", teamID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return team, nil
}

// GetByName finds a team by its exact name
func (r *TeamRepository) GetByName(ctx context.Context, name string) (*store.Team, error) {
	team := &store.Team{}
	err := r.db.QueryRowContext(ctx, `
		SELECT team_id, team_name
		FROM teams
		WHERE team_name = $1
	`, name).Scan(&team.TeamID, &team.TeamName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return team, nil
}
