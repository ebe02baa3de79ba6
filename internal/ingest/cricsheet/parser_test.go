package cricsheet

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDoc = `{
	"info": {
		"season": "2007/08",
		"dates": ["2008-04-18"],
		"teams": ["A", "B"],
		"toss": {"winner": "A", "decision": "bat"}
	},
	"innings": [
		{"team": "A", "overs": [{"over": 0, "deliveries": [
			{"batter": "a1", "bowler": "b1", "non_striker": "a2", "runs": {"batter": 1, "extras": 0, "total": 1}}
		]}]}
	]
}`

func mustDoc(t *testing.T, raw string) *Document {
	t.Helper()
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return &doc
}

func TestSeason_AcceptsStringOrNumber(t *testing.T) {
	var info struct {
		Season Season `json:"season"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"season": "2007/08"}`), &info))
	assert.Equal(t, Season("2007/08"), info.Season)

	require.NoError(t, json.Unmarshal([]byte(`{"season": 2019}`), &info))
	assert.Equal(t, Season("2019"), info.Season)

	assert.Error(t, json.Unmarshal([]byte(`{"season": true}`), &info))
}

func TestParse_Minimal(t *testing.T) {
	doc, err := Parse([]byte(minimalDoc))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, doc.Info.Teams)
	assert.Len(t, doc.Innings, 1)

	date, err := doc.MatchDate()
	require.NoError(t, err)
	assert.Equal(t, "2008-04-18", date.Format(dateLayout))
}

func TestParse_ReportsMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(doc *Document)
		field  string
	}{
		{"no dates", func(d *Document) { d.Info.Dates = nil }, "info.dates"},
		{"bad date", func(d *Document) { d.Info.Dates = []string{"18/04/2008"} }, "info.dates[0]"},
		{"no season", func(d *Document) { d.Info.Season = "" }, "info.season"},
		{"one team", func(d *Document) { d.Info.Teams = []string{"A"} }, "info.teams"},
		{"same teams", func(d *Document) { d.Info.Teams = []string{"A", "A"} }, "info.teams"},
		{"no toss winner", func(d *Document) { d.Info.Toss.Winner = "" }, "info.toss.winner"},
		{"foreign toss winner", func(d *Document) { d.Info.Toss.Winner = "C" }, "info.toss.winner"},
		{"foreign match winner", func(d *Document) { d.Info.Outcome.Winner = "C" }, "info.outcome.winner"},
		{"no toss decision", func(d *Document) { d.Info.Toss.Decision = "" }, "info.toss.decision"},
		{"no innings team", func(d *Document) { d.Innings[0].Team = "" }, "innings[0].team"},
		{"foreign innings team", func(d *Document) { d.Innings[0].Team = "C" }, "innings[0].team"},
		{"no over index", func(d *Document) { d.Innings[0].Overs[0].Over = nil }, "innings[0].overs[0].over"},
		{"no bowler", func(d *Document) { d.Innings[0].Overs[0].Deliveries[0].Bowler = "" }, "innings[0].overs[0].deliveries[0].bowler"},
		{"no runs", func(d *Document) { d.Innings[0].Overs[0].Deliveries[0].Runs = nil }, "innings[0].overs[0].deliveries[0].runs"},
		{"no total", func(d *Document) { d.Innings[0].Overs[0].Deliveries[0].Runs.Total = nil }, "innings[0].overs[0].deliveries[0].runs.total"},
		{"wicket without player out", func(d *Document) {
			d.Innings[0].Overs[0].Deliveries[0].Wickets = []Wicket{{Kind: "bowled"}}
		}, "innings[0].overs[0].deliveries[0].wickets[0].player_out"},
		{"fielder without name", func(d *Document) {
			d.Innings[0].Overs[0].Deliveries[0].Wickets = []Wicket{{Kind: "caught", PlayerOut: "a1", Fielders: []Fielder{{}}}}
		}, "innings[0].overs[0].deliveries[0].wickets[0].fielders[0].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, minimalDoc)
			tt.mutate(doc)

			err := doc.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidate_AcceptsWinnerFromEitherTeam(t *testing.T) {
	doc := mustDoc(t, minimalDoc)
	doc.Info.Toss.Winner = "B"
	doc.Info.Outcome.Winner = "A"
	assert.NoError(t, doc.Validate())

	doc.Info.Outcome.Winner = ""
	assert.NoError(t, doc.Validate())
}

func TestParse_RejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"info": [`))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "decode match document"))
}

func TestInningsNumbers(t *testing.T) {
	target := &Target{Runs: 150, Overs: 20}

	tests := []struct {
		name    string
		innings []Innings
		want    []int
		wantErr bool
	}{
		{name: "no innings", innings: nil, want: []int{}},
		{name: "first only", innings: []Innings{{Team: "A"}}, want: []int{1}},
		{name: "chase", innings: []Innings{{Team: "A"}, {Team: "B", Target: target}}, want: []int{1, 2}},
		{name: "target listed first", innings: []Innings{{Team: "B", Target: target}, {Team: "A"}}, want: []int{2, 1}},
		{name: "two without target", innings: []Innings{{Team: "A"}, {Team: "B"}}, wantErr: true},
		{name: "two with target", innings: []Innings{{Team: "A", Target: target}, {Team: "B", Target: target}}, wantErr: true},
		{name: "three innings", innings: []Innings{{Team: "A"}, {Team: "B", Target: target}, {Team: "A"}}, wantErr: true},
		{name: "super over", innings: []Innings{{Team: "A", SuperOver: true}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Innings: tt.innings}
			got, err := doc.InningsNumbers()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedInnings)
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlayerNames_FirstSeenOrderWithoutDuplicates(t *testing.T) {
	doc := mustDoc(t, minimalDoc)
	doc.Info.Players = map[string][]string{
		"A": {"a1", "a2"},
		"B": {"b1"},
	}
	doc.Info.PlayerOfMatch = []string{"a2"}
	doc.Innings[0].Overs[0].Deliveries[0].Wickets = []Wicket{
		{Kind: "run out", PlayerOut: "a1", Fielders: []Fielder{{Name: "sub1", Substitute: true}}},
	}

	assert.Equal(t, []string{"a1", "a2", "b1", "sub1"}, doc.PlayerNames())
}

func TestParseFile_Fixture(t *testing.T) {
	doc, err := ParseFile("testdata/two_innings.json")
	require.NoError(t, err)
	assert.Equal(t, Season("2007/08"), doc.Info.Season)
	require.NotNil(t, doc.Info.Event)
	require.NotNil(t, doc.Info.Event.MatchNumber)
	assert.Equal(t, 1, *doc.Info.Event.MatchNumber)
	assert.Len(t, doc.PlayerNames(), 10)

	_, err = ParseFile("testdata/missing.json")
	assert.Error(t, err)
}
