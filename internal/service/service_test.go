package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fortuna/crease/internal/ingest/cricsheet"
	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
	"github.com/fortuna/crease/internal/store/storetest"
)

func loadFixture(t *testing.T) (*store.Database, int64) {
	t.Helper()
	db := storetest.NewSQLite(t)
	res, err := cricsheet.NewIngester(db, zaptest.NewLogger(t)).
		LoadFile(context.Background(), "../ingest/cricsheet/testdata/two_innings.json")
	require.NoError(t, err)
	return db, res.MatchID
}

func TestMatchService_GetMatch(t *testing.T) {
	db, matchID := loadFixture(t)
	svc := NewMatchService(db)
	ctx := context.Background()

	detail, err := svc.GetMatch(ctx, matchID)
	require.NoError(t, err)

	assert.Equal(t, "Royal Challengers Bangalore", detail.Team1.TeamName)
	assert.Equal(t, "Kolkata Knight Riders", detail.Team2.TeamName)
	require.NotNil(t, detail.MatchWinner)
	assert.Equal(t, "Kolkata Knight Riders", detail.MatchWinner.TeamName)
	require.NotNil(t, detail.PlayerOfMatch)
	assert.Equal(t, "BB McCullum", detail.PlayerOfMatch.PlayerName)

	require.Len(t, detail.Innings, 2)
	assert.Equal(t, 1, detail.Innings[0].InningsNo)
	assert.Equal(t, detail.Team2.TeamID, detail.Innings[0].BattingTeam)
	assert.Equal(t, 20, detail.Innings[0].Runs)
	assert.NotEmpty(t, detail.Powerplays)

	_, err = svc.GetMatch(ctx, matchID+100)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMatchService_GetDeliveriesNamesPlayers(t *testing.T) {
	db, matchID := loadFixture(t)
	svc := NewMatchService(db)

	views, err := svc.GetDeliveries(context.Background(), matchID, 1)
	require.NoError(t, err)
	require.Len(t, views, 12)

	var wickets []*DeliveryView
	for _, v := range views {
		assert.NotEmpty(t, v.Batter)
		assert.NotEmpty(t, v.Bowler)
		if v.PlayerOut != "" {
			wickets = append(wickets, v)
		}
	}
	require.Len(t, wickets, 1)
	assert.Equal(t, "SC Ganguly", wickets[0].PlayerOut)
	assert.Equal(t, "JH Kallis", wickets[0].Fielder)
	assert.Equal(t, 1, wickets[0].OverNo)
	assert.Equal(t, 3, wickets[0].BallNo)

	views, err = svc.GetDeliveries(context.Background(), matchID, 3)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestMatchService_GetRecentMatches(t *testing.T) {
	db, matchID := loadFixture(t)

	recent, err := NewMatchService(db).GetRecentMatches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, matchID, recent[0].Match.MatchID)
}

func TestPlayerService(t *testing.T) {
	db, _ := loadFixture(t)
	svc := NewPlayerService(db)
	ctx := context.Background()

	players, err := svc.SearchPlayers(ctx, "mccul")
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "BB McCullum", players[0].PlayerName)
	mccullumID := players[0].PlayerID

	players, err = svc.SearchPlayers(ctx, "Tendulkar")
	require.NoError(t, err)
	assert.NotNil(t, players)
	assert.Empty(t, players)

	_, err = svc.SearchPlayers(ctx, "  ")
	assert.Error(t, err)

	teams, err := svc.ListTeams(ctx)
	require.NoError(t, err)
	assert.Len(t, teams, 2)

	p, err := svc.GetPlayer(ctx, mccullumID)
	require.NoError(t, err)
	assert.Equal(t, "BB McCullum", p.PlayerName)
}
