package store

import (
	"database/sql"
	"time"
)

// DateLayout is the ISO calendar-date form match dates are stored in.
const DateLayout = "2006-01-02"

// Team is a side identified by its unique name.
type Team struct {
	TeamID   int64  `json:"team_id" db:"team_id"`
	TeamName string `json:"team_name" db:"team_name"`
}

// Player is a cricketer identified by the name used in scorecards.
type Player struct {
	PlayerID   int64  `json:"player_id" db:"player_id"`
	PlayerName string `json:"player_name" db:"player_name"`
}

// Match holds the metadata of one loaded match document.
type Match struct {
	MatchID       int64          `json:"match_id" db:"match_id"`
	Season        string         `json:"season" db:"season"`
	MatchDate     time.Time      `json:"match_date" db:"match_date"`
	City          sql.NullString `json:"city,omitempty" db:"city"`
	Venue         sql.NullString `json:"venue,omitempty" db:"venue"`
	EventName     sql.NullString `json:"event_name,omitempty" db:"event_name"`
	MatchNumber   sql.NullInt64  `json:"match_number,omitempty" db:"match_number"`
	MatchType     sql.NullString `json:"match_type,omitempty" db:"match_type"`
	Gender        sql.NullString `json:"gender,omitempty" db:"gender"`
	OversPerSide  sql.NullInt64  `json:"overs_per_side,omitempty" db:"overs_per_side"`
	Team1         int64          `json:"team1" db:"team1"`
	Team2         int64          `json:"team2" db:"team2"`
	TossWinner    int64          `json:"toss_winner" db:"toss_winner"`
	TossDecision  string         `json:"toss_decision" db:"toss_decision"`
	MatchWinner   sql.NullInt64  `json:"match_winner,omitempty" db:"match_winner"`
	WinByRuns     sql.NullInt64  `json:"win_by_runs,omitempty" db:"win_by_runs"`
	WinByWickets  sql.NullInt64  `json:"win_by_wkts,omitempty" db:"win_by_wkts"`
	Result        sql.NullString `json:"result,omitempty" db:"result"`
	PlayerOfMatch sql.NullInt64  `json:"player_of_match,omitempty" db:"player_of_match"`
}

// Innings stores one batting turn with its derived totals.
type Innings struct {
	MatchID     int64 `json:"match_id" db:"match_id"`
	InningsNo   int   `json:"innings_no" db:"innings_no"`
	BattingTeam int64 `json:"batting_team" db:"batting_team"`
	Runs        int   `json:"runs" db:"runs"`
	Wickets     int   `json:"wickets" db:"wickets"`
	Overs       int   `json:"overs" db:"overs"`
}

// Powerplay is an over range with fielding restrictions.
type Powerplay struct {
	MatchID   int64   `json:"match_id" db:"match_id"`
	InningsNo int     `json:"innings_no" db:"innings_no"`
	Type      string  `json:"pp_type" db:"pp_type"`
	FromOver  float64 `json:"from_over" db:"from_over"`
	ToOver    float64 `json:"to_over" db:"to_over"`
}

// Delivery is one ball bowled.
type Delivery struct {
	MatchID      int64          `json:"match_id" db:"match_id"`
	InningsNo    int            `json:"innings_no" db:"innings_no"`
	OverNo       int            `json:"over_no" db:"over_no"`
	BallNo       int            `json:"ball_no" db:"ball_no"`
	BattingTeam  int64          `json:"batting_team" db:"batting_team"`
	BowlingTeam  int64          `json:"bowling_team" db:"bowling_team"`
	BatterID     int64          `json:"batter_id" db:"batter_id"`
	BowlerID     int64          `json:"bowler_id" db:"bowler_id"`
	NonStrikerID int64          `json:"non_striker_id" db:"non_striker_id"`
	RunsBatter   int            `json:"runs_batter" db:"runs_batter"`
	RunsExtras   int            `json:"runs_extras" db:"runs_extras"`
	WicketType   sql.NullString `json:"wicket_type,omitempty" db:"wicket_type"`
	PlayerOutID  sql.NullInt64  `json:"player_out_id,omitempty" db:"player_out_id"`
	FielderID    sql.NullInt64  `json:"fielder_id,omitempty" db:"fielder_id"`
}
