package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRender_Layout(t *testing.T) {
	result := &Result{
		Columns: []string{"player_name", "runs"},
		Rows: [][]any{
			{"BB McCullum", int64(158)},
			{"RT Ponting", int64(20)},
		},
	}

	want := "**SQL**\n```sql\nSELECT player_name, runs FROM t\n```\n\n" +
		"| player_name | runs |\n" +
		"|:------------|-----:|\n" +
		"| BB McCullum |  158 |\n" +
		"| RT Ponting  |   20 |"

	assert.Equal(t, want, Render("SELECT player_name, runs FROM t", result))
}

func TestRender_TruncatedAndEmpty(t *testing.T) {
	out := Render("SELECT 1", &Result{Columns: []string{"x"}, Rows: [][]any{{int64(1)}}, Truncated: true})
	assert.Contains(t, out, "_Showing the first 1 rows._")

	empty := MarkdownTable(&Result{Columns: []string{"team_name"}, Rows: [][]any{}})
	assert.Equal(t, "| team_name |\n|:----------|", empty)
}

func TestMarkdownTable_CellFormatting(t *testing.T) {
	table := MarkdownTable(&Result{
		Columns: []string{"d", "f", "s", "n"},
		Rows: [][]any{
			{time.Date(2008, 4, 18, 0, 0, 0, 0, time.UTC), 5.6, "a|b", nil},
		},
	})
	assert.Contains(t, table, "2008-04-18")
	assert.Contains(t, table, "5.6")
	assert.Contains(t, table, `a\|b`)
}
