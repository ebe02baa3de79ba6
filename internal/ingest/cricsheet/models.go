package cricsheet

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is one cricsheet match file.
type Document struct {
	Meta    Meta      `json:"meta"`
	Info    Info      `json:"info"`
	Innings []Innings `json:"innings"`
}

// Meta describes the file itself rather than the match.
type Meta struct {
	DataVersion string `json:"data_version"`
	Created     string `json:"created"`
	Revision    int    `json:"revision"`
}

// Info is the match metadata block.
type Info struct {
	Season        Season              `json:"season"`
	Dates         []string            `json:"dates"`
	City          string              `json:"city"`
	Venue         string              `json:"venue"`
	Event         *Event              `json:"event"`
	Gender        string              `json:"gender"`
	MatchType     string              `json:"match_type"`
	Overs         *int                `json:"overs"`
	Teams         []string            `json:"teams"`
	Toss          Toss                `json:"toss"`
	Outcome       Outcome             `json:"outcome"`
	PlayerOfMatch []string            `json:"player_of_match"`
	Players       map[string][]string `json:"players"`
}

type Event struct {
	Name        string `json:"name"`
	MatchNumber *int   `json:"match_number"`
}

type Toss struct {
	Winner   string `json:"winner"`
	Decision string `json:"decision"`
}

// Outcome is empty for matches without a result block.
type Outcome struct {
	Winner string  `json:"winner"`
	By     *Margin `json:"by"`
	Result string  `json:"result"`
	Method string  `json:"method"`
}

type Margin struct {
	Runs    *int `json:"runs"`
	Wickets *int `json:"wickets"`
	Innings *int `json:"innings"`
}

// Innings is one batting turn. Target is only present for the side chasing.
type Innings struct {
	Team       string      `json:"team"`
	Target     *Target     `json:"target"`
	SuperOver  bool        `json:"super_over"`
	Powerplays []Powerplay `json:"powerplays"`
	Overs      []Over      `json:"overs"`
}

type Target struct {
	Runs  int     `json:"runs"`
	Overs float64 `json:"overs"`
}

// Powerplay bounds use decimal over notation, e.g. 5.6.
type Powerplay struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
	Type string  `json:"type"`
}

// Over holds the balls bowled in one over. Over is the 0-based index.
type Over struct {
	Over       *int       `json:"over"`
	Deliveries []Delivery `json:"deliveries"`
}

type Delivery struct {
	Batter     string         `json:"batter"`
	Bowler     string         `json:"bowler"`
	NonStriker string         `json:"non_striker"`
	Runs       *Runs          `json:"runs"`
	Extras     map[string]int `json:"extras,omitempty"`
	Wickets    []Wicket       `json:"wickets,omitempty"`
}

// Runs fields are pointers so a missing value can be told apart from zero.
type Runs struct {
	Batter *int `json:"batter"`
	Extras *int `json:"extras"`
	Total  *int `json:"total"`
}

type Wicket struct {
	Kind      string    `json:"kind"`
	PlayerOut string    `json:"player_out"`
	Fielders  []Fielder `json:"fielders,omitempty"`
}

type Fielder struct {
	Name       string `json:"name"`
	Substitute bool   `json:"substitute,omitempty"`
}

// Season is written either as a string ("2007/08") or a bare year (2019).
type Season string

func (s *Season) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Season(v)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("season must be a string or number: %w", err)
	}
	*s = Season(n.String())
	return nil
}

func (s Season) String() string {
	return string(s)
}
