package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fortuna/crease/internal/ingest/cricsheet"
)

// MatchesLoadedStream carries one entry per committed match document.
const MatchesLoadedStream = "matches.loaded.cricket"

// MatchLoadedEvent is the payload stored under the "data" field of each entry.
type MatchLoadedEvent struct {
	EventID    string                    `json:"event_id"`
	RunID      string                    `json:"run_id"`
	MatchID    int64                     `json:"match_id"`
	Source     string                    `json:"source,omitempty"`
	Season     string                    `json:"season"`
	MatchDate  string                    `json:"match_date"`
	Teams      [2]string                 `json:"teams"`
	Innings    []cricsheet.InningsResult `json:"innings"`
	Deliveries int                       `json:"deliveries"`
	LoadedAt   time.Time                 `json:"loaded_at"`
}

// RedisStreamPublisher publishes events to Redis streams
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	owned  bool
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: MatchesLoadedStream,
		maxLen: 10000,
	}
}

// NewRedisPublisher connects to redisURL and verifies the connection.
func NewRedisPublisher(redisURL string) (*RedisStreamPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	p := NewRedisStreamPublisher(client)
	p.owned = true
	return p, nil
}

// Close closes the Redis connection if the publisher opened it.
func (p *RedisStreamPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.client.Close()
}

// Stream returns the stream name entries are written to.
func (p *RedisStreamPublisher) Stream() string {
	return p.stream
}

// PublishMatchLoaded appends a committed match to the stream.
func (p *RedisStreamPublisher) PublishMatchLoaded(ctx context.Context, runID string, result *cricsheet.Result) error {
	evt := MatchLoadedEvent{
		EventID:    uuid.NewString(),
		RunID:      runID,
		MatchID:    result.MatchID,
		Source:     result.Source,
		Season:     result.Season,
		MatchDate:  result.MatchDate.Format("2006-01-02"),
		Teams:      result.Teams,
		Innings:    result.Innings,
		Deliveries: result.Deliveries,
		LoadedAt:   time.Now().UTC(),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"event_id":  evt.EventID,
			"timestamp": evt.LoadedAt.Unix(),
		},
	}).Err()
}

// Subscribe reads entries after lastID ("$" for only new ones) until ctx is
// done, calling handle for each decoded event in order. Entries that do not
// decode are skipped.
func (p *RedisStreamPublisher) Subscribe(ctx context.Context, lastID string, handle func(id string, evt MatchLoadedEvent)) error {
	if lastID == "" {
		lastID = "$"
	}

	for {
		streams, err := p.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{p.stream, lastID},
			Count:   100,
			Block:   5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read %s: %w", p.stream, err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				evt, err := decodeEvent(msg)
				if err != nil {
					continue
				}
				handle(msg.ID, evt)
			}
		}
	}
}

func decodeEvent(msg redis.XMessage) (MatchLoadedEvent, error) {
	var evt MatchLoadedEvent
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return evt, fmt.Errorf("entry %s has no data field", msg.ID)
	}
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		return evt, fmt.Errorf("decode entry %s: %w", msg.ID, err)
	}
	return evt, nil
}
