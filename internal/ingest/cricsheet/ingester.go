package cricsheet

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/crease/internal/metrics"
	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

// Ingester loads cricsheet documents into the relational store, one
// transaction per document. An Ingester owns the id maps of one run and must
// not be shared between concurrent loaders.
type Ingester struct {
	db      *store.Database
	teams   *Resolver
	players *Resolver
	ids     *Identities
	logger  *zap.Logger
}

// Result describes a committed document.
type Result struct {
	Source     string          `json:"source,omitempty"`
	MatchID    int64           `json:"match_id"`
	Season     string          `json:"season"`
	MatchDate  time.Time       `json:"match_date"`
	Teams      [2]string       `json:"teams"`
	Innings    []InningsResult `json:"innings"`
	Deliveries int             `json:"deliveries"`
	Powerplays int64           `json:"powerplays"`
	Duration   time.Duration   `json:"duration"`
}

type InningsResult struct {
	InningsNo   int    `json:"innings_no"`
	BattingTeam string `json:"batting_team"`
	Summary
	Deliveries int `json:"deliveries"`
}

// NewIngester creates an ingester with an empty id map.
func NewIngester(db *store.Database, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		db:      db,
		teams:   NewTeamResolver(),
		players: NewPlayerResolver(),
		ids:     NewIdentities(),
		logger:  logger.Named("cricsheet"),
	}
}

// Identities exposes the run's committed id maps.
func (i *Ingester) Identities() *Identities {
	return i.ids
}

// LoadFile parses and loads the document at path.
func (i *Ingester) LoadFile(ctx context.Context, path string) (*Result, error) {
	doc, err := ParseFile(path)
	if err != nil {
		metrics.DocumentsLoaded.WithLabelValues("failed").Inc()
		return nil, err
	}
	return i.LoadDocument(ctx, doc, path)
}

// LoadDocument writes every row of doc in one transaction. On any error the
// transaction rolls back and the ids staged for this document are dropped.
func (i *Ingester) LoadDocument(ctx context.Context, doc *Document, source string) (*Result, error) {
	start := time.Now()

	if err := doc.Validate(); err != nil {
		metrics.DocumentsLoaded.WithLabelValues("failed").Inc()
		return nil, err
	}

	scope := i.ids.Scope()
	var result *Result
	err := i.db.WithTx(ctx, nil, func(tx *store.Tx) error {
		var err error
		result, err = i.loadMatch(ctx, tx, scope, doc)
		return err
	})
	if err != nil {
		metrics.DocumentsLoaded.WithLabelValues("failed").Inc()
		i.logger.Warn("Rolled back match document", zap.String("source", source), zap.Error(err))
		return nil, err
	}
	scope.Commit()

	result.Source = source
	result.Duration = time.Since(start)
	metrics.DocumentsLoaded.WithLabelValues("committed").Inc()
	metrics.LoadDuration.Observe(result.Duration.Seconds())

	i.logger.Info("✓ Loaded match",
		zap.Int64("match_id", result.MatchID),
		zap.String("source", source),
		zap.Int("deliveries", result.Deliveries),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// loadMatch inserts the match row followed by each innings with its
// powerplays and deliveries, and returns the new match id in the result.
func (i *Ingester) loadMatch(ctx context.Context, q store.Executor, ids *Identities, doc *Document) (*Result, error) {
	info := &doc.Info

	numbers, err := doc.InningsNumbers()
	if err != nil {
		return nil, err
	}
	matchDate, err := doc.MatchDate()
	if err != nil {
		return nil, err
	}

	team1, err := i.teams.Resolve(ctx, q, ids.Teams, info.Teams[0])
	if err != nil {
		return nil, err
	}
	team2, err := i.teams.Resolve(ctx, q, ids.Teams, info.Teams[1])
	if err != nil {
		return nil, err
	}

	// Every player is resolved before the match row so player_of_match
	// always points at an existing row.
	for _, name := range doc.PlayerNames() {
		if _, err := i.players.Resolve(ctx, q, ids.Players, name); err != nil {
			return nil, err
		}
	}

	match, err := i.buildMatch(ctx, q, ids, info, matchDate, team1, team2)
	if err != nil {
		return nil, err
	}

	matches := repository.NewMatchRepository(q)
	matchID, err := matches.Insert(ctx, match)
	if err != nil {
		return nil, err
	}

	result := &Result{
		MatchID:   matchID,
		Season:    match.Season,
		MatchDate: matchDate,
		Teams:     [2]string{info.Teams[0], info.Teams[1]},
	}

	for idx := range doc.Innings {
		inn := &doc.Innings[idx]

		batting, err := i.teams.Resolve(ctx, q, ids.Teams, inn.Team)
		if err != nil {
			return nil, err
		}
		bowling := team1
		if batting == team1 {
			bowling = team2
		}

		summary, err := Summarize(inn)
		if err != nil {
			return nil, err
		}

		inningsNo := numbers[idx]
		err = matches.InsertInnings(ctx, &store.Innings{
			MatchID:     matchID,
			InningsNo:   inningsNo,
			BattingTeam: batting,
			Runs:        summary.Runs,
			Wickets:     summary.Wickets,
			Overs:       summary.Overs,
		})
		if err != nil {
			return nil, err
		}

		inserted, err := matches.InsertPowerplays(ctx, powerplayRows(matchID, inningsNo, inn.Powerplays))
		if err != nil {
			return nil, err
		}
		result.Powerplays += inserted

		keys := inningsKeys{matchID: matchID, inningsNo: inningsNo, batting: batting, bowling: bowling}
		n, err := i.loadDeliveries(ctx, q, ids.Players, keys, inn)
		if err != nil {
			return nil, fmt.Errorf("innings %d: %w", inningsNo, err)
		}

		result.Deliveries += n
		result.Innings = append(result.Innings, InningsResult{
			InningsNo:   inningsNo,
			BattingTeam: inn.Team,
			Summary:     summary,
			Deliveries:  n,
		})
	}

	return result, nil
}

func (i *Ingester) buildMatch(ctx context.Context, q store.Executor, ids *Identities, info *Info, date time.Time, team1, team2 int64) (*store.Match, error) {
	tossWinner, err := i.teams.Resolve(ctx, q, ids.Teams, info.Toss.Winner)
	if err != nil {
		return nil, err
	}

	m := &store.Match{
		Season:       info.Season.String(),
		MatchDate:    date,
		City:         nullString(info.City),
		Venue:        nullString(info.Venue),
		MatchType:    nullString(info.MatchType),
		Gender:       nullString(info.Gender),
		OversPerSide: nullInt(info.Overs),
		Team1:        team1,
		Team2:        team2,
		TossWinner:   tossWinner,
		TossDecision: info.Toss.Decision,
		Result:       nullString(info.Outcome.Result),
	}

	if info.Event != nil {
		m.EventName = nullString(info.Event.Name)
		m.MatchNumber = nullInt(info.Event.MatchNumber)
	}

	if info.Outcome.Winner != "" {
		winner, err := i.teams.Resolve(ctx, q, ids.Teams, info.Outcome.Winner)
		if err != nil {
			return nil, err
		}
		m.MatchWinner = sql.NullInt64{Int64: winner, Valid: true}
	}
	if by := info.Outcome.By; by != nil {
		m.WinByRuns = nullInt(by.Runs)
		m.WinByWickets = nullInt(by.Wickets)
	}

	if len(info.PlayerOfMatch) > 0 {
		pom, err := i.players.Resolve(ctx, q, ids.Players, info.PlayerOfMatch[0])
		if err != nil {
			return nil, err
		}
		m.PlayerOfMatch = sql.NullInt64{Int64: pom, Valid: true}
	}

	return m, nil
}

func powerplayRows(matchID int64, inningsNo int, pps []Powerplay) []store.Powerplay {
	rows := make([]store.Powerplay, 0, len(pps))
	for _, pp := range pps {
		rows = append(rows, store.Powerplay{
			MatchID:   matchID,
			InningsNo: inningsNo,
			Type:      pp.Type,
			FromOver:  pp.From,
			ToOver:    pp.To,
		})
	}
	return rows
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
