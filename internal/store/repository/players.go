package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/crease/internal/store"
)

// PlayerRepository handles player data access
type PlayerRepository struct {
	db store.Executor
}

// NewPlayerRepository creates a new player repository. db may be a transaction.
func NewPlayerRepository(db store.Executor) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// InsertOrFetch returns the id of the named player, creating it on first sight.
func (r *PlayerRepository) InsertOrFetch(ctx context.Context, name string) (int64, bool, error) {
	return insertOrFetch(ctx, r.db, playersTable, name)
}

// GetByID finds a player by ID
func (r *PlayerRepository) GetByID(ctx context.Context, playerID int64) (*store.Player, error) {
	player := &store.Player{}
	err := r.db.QueryRowContext(ctx, `
		SELECT player_id, player_name
		FROM players
		WHERE player_id = $1
	`, playerID).Scan(&player.PlayerID, &player.PlayerName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %d: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying player: %w", err)
	}

	return player, nil
}

// SearchByName returns players whose name contains the fragment
// (case-insensitive), capped at 50 results.
func (r *PlayerRepository) SearchByName(ctx context.Context, fragment string) ([]*store.Player, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT player_id, player_name
		FROM players
		WHERE LOWER(player_name) LIKE LOWER($1)
		ORDER BY player_name
		LIMIT 50
	`, "%"+fragment+"%")
	if err != nil {
		return nil, fmt.Errorf("querying players: %w", err)
	}
	defer rows.Close()

	var players []*store.Player
	for rows.Next() {
		player := &store.Player{}
		if err := rows.Scan(&player.PlayerID, &player.PlayerName); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, player)
	}

	return players, rows.Err()
}
