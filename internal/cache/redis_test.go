package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionKey_NormalizesCaseAndSpacing(t *testing.T) {
	a := QuestionKey("Who scored the most runs in 2008?")
	b := QuestionKey("  who SCORED the most\truns in 2008? ")
	c := QuestionKey("Who took the most wickets in 2008?")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, askKeyPrefix)
}

func TestJSONRoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })
	ctx := context.Background()

	type answer struct {
		SQL  string `json:"sql"`
		Rows int    `json:"rows"`
	}

	var got answer
	found, err := rc.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, rc.SetJSON(ctx, "k", answer{SQL: "SELECT 1", Rows: 1}, time.Minute))
	found, err = rc.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, answer{SQL: "SELECT 1", Rows: 1}, got)

	mr.FastForward(2 * time.Minute)
	found, err = rc.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, rc.HealthCheck(ctx))
}

func TestPurgeAnswers_RemovesOnlyAnswerKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rc.Close() })
	ctx := context.Background()

	require.NoError(t, rc.SetJSON(ctx, QuestionKey("top scorer 2008"), map[string]int{"rows": 1}, time.Minute))
	require.NoError(t, rc.SetJSON(ctx, QuestionKey("most wickets"), map[string]int{"rows": 2}, time.Minute))
	require.NoError(t, mr.Set("crease:other", "keep"))

	removed, err := rc.PurgeAnswers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.False(t, mr.Exists(QuestionKey("top scorer 2008")))
	assert.True(t, mr.Exists("crease:other"))

	removed, err = rc.PurgeAnswers(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
