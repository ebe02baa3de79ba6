package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/cache"
	"github.com/fortuna/crease/internal/metrics"
)

// AnswerCache stores rendered answers between identical questions.
type AnswerCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// Answer is the outcome of one question.
type Answer struct {
	Question string  `json:"question"`
	SQL      string  `json:"sql"`
	Result   *Result `json:"result"`
	Text     string  `json:"text"`
	Cached   bool    `json:"cached"`
}

// Runner executes a read-only statement.
type Runner interface {
	Run(ctx context.Context, sqlText string) (*Result, error)
}

// Service turns questions into rendered answers.
type Service struct {
	generator Generator
	runner    Runner
	cache     AnswerCache
	ttl       time.Duration
	logger    *zap.Logger
}

// NewService wires a generator to a runner. cache may be nil.
func NewService(generator Generator, runner Runner, answerCache AnswerCache, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		generator: generator,
		runner:    runner,
		cache:     answerCache,
		ttl:       ttl,
		logger:    logger.Named("query"),
	}
}

// Ask generates SQL for question, runs it and renders the result.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	start := time.Now()
	defer func() { metrics.AskDuration.Observe(time.Since(start).Seconds()) }()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	key := cache.QuestionKey(question)
	if s.cache != nil {
		var cached Answer
		found, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Answer cache read failed", zap.Error(err))
		} else if found {
			cached.Cached = true
			metrics.AskRequests.WithLabelValues("cached").Inc()
			return &cached, nil
		}
	}

	answer, err := s.answer(ctx, question)
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrNoSQLQuery) {
			outcome = "no_sql"
		}
		metrics.AskRequests.WithLabelValues(outcome).Inc()
		return nil, err
	}
	metrics.AskRequests.WithLabelValues("ok").Inc()

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetJSON(ctx, key, answer, s.ttl); err != nil {
			s.logger.Warn("Answer cache write failed", zap.Error(err))
		}
	}
	return answer, nil
}

func (s *Service) answer(ctx context.Context, question string) (*Answer, error) {
	trace, err := s.generator.GenerateSQL(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}

	sqlText, err := ExtractSQL(trace)
	if err != nil {
		return nil, err
	}
	sqlText = StripFences(sqlText)

	s.logger.Debug("Running generated query", zap.String("sql", sqlText))
	result, err := s.runner.Run(ctx, sqlText)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Question: question,
		SQL:      sqlText,
		Result:   result,
		Text:     Render(sqlText, result),
	}, nil
}
