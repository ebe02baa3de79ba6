package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fortuna/crease/internal/cache"
	"github.com/fortuna/crease/internal/ingest/cricsheet"
	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/storetest"
)

func loadedStore(t *testing.T) *store.Database {
	t.Helper()
	db := storetest.NewSQLite(t)
	ing := cricsheet.NewIngester(db, zaptest.NewLogger(t))
	_, err := ing.LoadFile(context.Background(), "../ingest/cricsheet/testdata/two_innings.json")
	require.NoError(t, err)
	return db
}

func fixedGenerator(calls *int, reply string) Generator {
	return GeneratorFunc(func(ctx context.Context, question string) (*Trace, error) {
		*calls++
		return &Trace{Steps: []any{question, map[string]any{"sql_cmd": reply}}}, nil
	})
}

func TestService_AnswersFromLoadedMatch(t *testing.T) {
	db := loadedStore(t)
	var calls int
	gen := fixedGenerator(&calls, "SQLQuery: ```sql\nSELECT team_name FROM teams ORDER BY team_name\n```")
	svc := NewService(gen, NewExecutor(db), nil, 0, zaptest.NewLogger(t))

	answer, err := svc.Ask(context.Background(), "  Which teams played?  ")
	require.NoError(t, err)

	assert.Equal(t, "Which teams played?", answer.Question)
	assert.Equal(t, "SELECT team_name FROM teams ORDER BY team_name", answer.SQL)
	assert.Equal(t, []string{"team_name"}, answer.Result.Columns)
	assert.Equal(t, [][]any{{"Kolkata Knight Riders"}, {"Royal Challengers Bangalore"}}, answer.Result.Rows)
	assert.Contains(t, answer.Text, "```sql\nSELECT team_name FROM teams ORDER BY team_name\n```")
	assert.Contains(t, answer.Text, "| Royal Challengers Bangalore |")
	assert.False(t, answer.Cached)
	assert.Equal(t, 1, calls)
}

func TestService_NoSQLInTrace(t *testing.T) {
	db := storetest.NewSQLite(t)
	var calls int
	svc := NewService(fixedGenerator(&calls, "I cannot answer that."), NewExecutor(db), nil, 0, nil)

	_, err := svc.Ask(context.Background(), "What is the meaning of cricket?")
	assert.ErrorIs(t, err, ErrNoSQLQuery)
}

func TestService_RejectsGeneratedWrites(t *testing.T) {
	db := loadedStore(t)
	var calls int
	svc := NewService(fixedGenerator(&calls, "SQLQuery: DELETE FROM deliveries"), NewExecutor(db), nil, 0, nil)

	_, err := svc.Ask(context.Background(), "Delete everything")
	require.ErrorIs(t, err, ErrNotReadOnly)
	assert.Equal(t, 18, storetest.Count(t, db, "deliveries"))
}

func TestService_GeneratorFailure(t *testing.T) {
	db := storetest.NewSQLite(t)
	gen := GeneratorFunc(func(ctx context.Context, question string) (*Trace, error) {
		return nil, errors.New("upstream unavailable")
	})
	svc := NewService(gen, NewExecutor(db), nil, 0, nil)

	_, err := svc.Ask(context.Background(), "anything")
	assert.ErrorContains(t, err, "upstream unavailable")

	_, err = svc.Ask(context.Background(), "   ")
	assert.Error(t, err)
}

func TestService_CachesRenderedAnswers(t *testing.T) {
	db := loadedStore(t)
	mr := miniredis.RunT(t)
	rc := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })

	var calls int
	gen := fixedGenerator(&calls, "SQLQuery: SELECT COUNT(*) AS balls FROM deliveries")
	svc := NewService(gen, NewExecutor(db), rc, time.Hour, zaptest.NewLogger(t))
	ctx := context.Background()

	first, err := svc.Ask(ctx, "How many balls were bowled?")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Ask(ctx, "how many balls   were bowled?")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.SQL, second.SQL)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Hour)
	third, err := svc.Ask(ctx, "How many balls were bowled?")
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, calls)
}
