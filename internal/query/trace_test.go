package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name  string
		steps []any
		want  string
	}{
		{
			name:  "plain string",
			steps: []any{"Question: top scorer\nSQLQuery: SELECT 1  "},
			want:  "SELECT 1",
		},
		{
			name:  "case insensitive across lines",
			steps: []any{"sqlquery:\n  SELECT *\n  FROM teams\n"},
			want:  "SELECT *\n  FROM teams",
		},
		{
			name:  "map prefers sql_cmd",
			steps: []any{map[string]any{"input": "SQLQuery: SELECT 'input'", "sql_cmd": "SQLQuery: SELECT 'cmd'"}},
			want:  "SELECT 'cmd'",
		},
		{
			name:  "map falls back to input",
			steps: []any{map[string]any{"sql_cmd": 42, "input": "SQLQuery: SELECT 2"}},
			want:  "SELECT 2",
		},
		{
			name:  "tuple uses first element",
			steps: []any{[]any{"SQLQuery: SELECT 3", "SQLQuery: SELECT 4"}},
			want:  "SELECT 3",
		},
		{
			name:  "first matching step wins",
			steps: []any{"no marker here", []string{"SQLQuery: SELECT 5"}, "SQLQuery: SELECT 6"},
			want:  "SELECT 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractSQL(&Trace{Steps: tt.steps})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractSQL_NoMarker(t *testing.T) {
	for _, trace := range []*Trace{
		nil,
		{},
		{Steps: []any{"SELECT 1", map[string]any{"sql_cmd": "SELECT 2"}, []any{7, "SQLQuery: SELECT 3"}}},
	} {
		_, err := ExtractSQL(trace)
		assert.ErrorIs(t, err, ErrNoSQLQuery)
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"SELECT 1":                         "SELECT 1",
		"```sql\nSELECT 1\n```":            "SELECT 1",
		"```\nSELECT *\nFROM teams\n```\n": "SELECT *\nFROM teams",
		"```sql SELECT 1```":               "SELECT 1",
		"SELECT 1\n```":                    "SELECT 1",
		"```postgresql\nSELECT 1":          "SELECT 1",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripFences(in), "input %q", in)
	}
}
