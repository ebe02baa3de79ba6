package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
	"github.com/fortuna/crease/internal/store/storetest"
)

func TestInsertOrFetch_ReturnsStableIDs(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()
	players := repository.NewPlayerRepository(db)

	first, inserted, err := players.InsertOrFetch(ctx, "SC Ganguly")
	require.NoError(t, err)
	assert.True(t, inserted)

	for i := 0; i < 5; i++ {
		id, inserted, err := players.InsertOrFetch(ctx, "SC Ganguly")
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Equal(t, first, id)
	}

	other, _, err := players.InsertOrFetch(ctx, "BB McCullum")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
	assert.Equal(t, 1, storetest.Count(t, db, "players WHERE player_name = $1", "SC Ganguly"))
}

func TestTeamRepository_Lookups(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()
	teams := repository.NewTeamRepository(db)

	id, _, err := teams.InsertOrFetch(ctx, "Royal Challengers Bangalore")
	require.NoError(t, err)

	team, err := teams.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Royal Challengers Bangalore", team.TeamName)

	byName, err := teams.GetByName(ctx, "Royal Challengers Bangalore")
	require.NoError(t, err)
	assert.Equal(t, id, byName.TeamID)

	_, err = teams.GetByID(ctx, id+100)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPlayerRepository_SearchByName(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()
	players := repository.NewPlayerRepository(db)

	for _, name := range []string{"R Dravid", "RT Ponting", "DJ Hussey"} {
		_, _, err := players.InsertOrFetch(ctx, name)
		require.NoError(t, err)
	}

	found, err := players.SearchByName(ctx, "pont")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "RT Ponting", found[0].PlayerName)
}

func seedMatch(t *testing.T, db store.Executor) (matchID, team1, team2 int64) {
	t.Helper()
	ctx := context.Background()

	teams := repository.NewTeamRepository(db)
	team1, _, err := teams.InsertOrFetch(ctx, "Kolkata Knight Riders")
	require.NoError(t, err)
	team2, _, err = teams.InsertOrFetch(ctx, "Royal Challengers Bangalore")
	require.NoError(t, err)

	matches := repository.NewMatchRepository(db)
	matchID, err = matches.Insert(ctx, &store.Match{
		Season:       "2007/08",
		MatchDate:    time.Date(2008, 4, 18, 0, 0, 0, 0, time.UTC),
		City:         sql.NullString{String: "Bangalore", Valid: true},
		Team1:        team1,
		Team2:        team2,
		TossWinner:   team2,
		TossDecision: "field",
	})
	require.NoError(t, err)
	return matchID, team1, team2
}

func TestMatchRepository_RoundTrip(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()
	matches := repository.NewMatchRepository(db)

	matchID, team1, _ := seedMatch(t, db)

	m, err := matches.GetByID(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, "2007/08", m.Season)
	assert.Equal(t, team1, m.Team1)
	assert.Equal(t, "Bangalore", m.City.String)
	assert.Equal(t, "2008-04-18", m.MatchDate.Format(store.DateLayout))
	assert.Equal(t, 1, storetest.Count(t, db, "matches WHERE match_date = $1", "2008-04-18"))
	assert.False(t, m.MatchWinner.Valid)
	assert.False(t, m.PlayerOfMatch.Valid)

	require.NoError(t, matches.InsertInnings(ctx, &store.Innings{MatchID: matchID, InningsNo: 1, BattingTeam: team1, Runs: 222, Wickets: 3, Overs: 19}))
	innings, err := matches.GetInnings(ctx, matchID)
	require.NoError(t, err)
	require.Len(t, innings, 1)
	assert.Equal(t, 222, innings[0].Runs)

	recent, err := matches.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestInsertPowerplays_SkipsDuplicates(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()
	matches := repository.NewMatchRepository(db)

	matchID, team1, _ := seedMatch(t, db)
	require.NoError(t, matches.InsertInnings(ctx, &store.Innings{MatchID: matchID, InningsNo: 1, BattingTeam: team1}))

	pp := store.Powerplay{MatchID: matchID, InningsNo: 1, Type: "mandatory", FromOver: 0.1, ToOver: 5.6}

	n, err := matches.InsertPowerplays(ctx, []store.Powerplay{pp, pp})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = matches.InsertPowerplays(ctx, []store.Powerplay{pp})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	stored, err := matches.GetPowerplays(ctx, matchID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.InDelta(t, 5.6, stored[0].ToOver, 1e-9)
}

func TestDeliveryRepository_InsertBatch(t *testing.T) {
	db := storetest.NewSQLite(t)
	ctx := context.Background()

	matchID, team1, team2 := seedMatch(t, db)
	require.NoError(t, repository.NewMatchRepository(db).InsertInnings(ctx, &store.Innings{MatchID: matchID, InningsNo: 1, BattingTeam: team1}))

	players := repository.NewPlayerRepository(db)
	batter, _, _ := players.InsertOrFetch(ctx, "SC Ganguly")
	bowler, _, _ := players.InsertOrFetch(ctx, "P Kumar")
	partner, _, _ := players.InsertOrFetch(ctx, "BB McCullum")

	var rows []store.Delivery
	for ball := 1; ball <= 6; ball++ {
		rows = append(rows, store.Delivery{
			MatchID: matchID, InningsNo: 1, OverNo: 0, BallNo: ball,
			BattingTeam: team1, BowlingTeam: team2,
			BatterID: batter, BowlerID: bowler, NonStrikerID: partner,
			RunsBatter: ball % 2,
		})
	}
	rows[5].WicketType = sql.NullString{String: "bowled", Valid: true}
	rows[5].PlayerOutID = sql.NullInt64{Int64: batter, Valid: true}

	deliveries := repository.NewDeliveryRepository(db)
	statements, err := deliveries.InsertBatch(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, statements)

	stored, err := deliveries.GetByInnings(ctx, matchID, 1)
	require.NoError(t, err)
	require.Len(t, stored, 6)
	assert.Equal(t, "bowled", stored[5].WicketType.String)
	assert.False(t, stored[5].FielderID.Valid)
	assert.False(t, stored[0].WicketType.Valid)

	count, err := deliveries.CountByMatch(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	statements, err = deliveries.InsertBatch(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, statements)
}
