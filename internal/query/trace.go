// Package query answers natural-language questions about the loaded matches.
// SQL generation is delegated to a Generator; this package extracts the
// statement from the generator's trace, runs it read-only and renders the
// result.
package query

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrNoSQLQuery is returned when a trace holds no SQLQuery: marker.
var ErrNoSQLQuery = errors.New("no SQLQuery found")

var sqlQueryRe = regexp.MustCompile(`(?is)SQLQuery:\s*(.+)`)

// Trace is the intermediate output of a generator. Each step is a string,
// a map with "sql_cmd" or "input" string values, or a tuple ([]any or
// []string) whose first element is a string.
type Trace struct {
	Steps []any `json:"steps"`
}

// Generator produces a trace containing a SQL statement for question.
type Generator interface {
	GenerateSQL(ctx context.Context, question string) (*Trace, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, question string) (*Trace, error)

func (f GeneratorFunc) GenerateSQL(ctx context.Context, question string) (*Trace, error) {
	return f(ctx, question)
}

// ExtractSQL returns the text after the first SQLQuery: marker found while
// scanning the steps in order.
func ExtractSQL(trace *Trace) (string, error) {
	if trace == nil {
		return "", ErrNoSQLQuery
	}
	for _, step := range trace.Steps {
		for _, text := range stepTexts(step) {
			if m := sqlQueryRe.FindStringSubmatch(text); m != nil {
				return strings.TrimSpace(m[1]), nil
			}
		}
	}
	return "", ErrNoSQLQuery
}

func stepTexts(step any) []string {
	switch s := step.(type) {
	case string:
		return []string{s}
	case map[string]any:
		var texts []string
		for _, key := range []string{"sql_cmd", "input"} {
			if v, ok := s[key].(string); ok {
				texts = append(texts, v)
			}
		}
		return texts
	case map[string]string:
		var texts []string
		for _, key := range []string{"sql_cmd", "input"} {
			if v, ok := s[key]; ok {
				texts = append(texts, v)
			}
		}
		return texts
	case []any:
		if len(s) > 0 {
			if v, ok := s[0].(string); ok {
				return []string{v}
			}
		}
	case []string:
		if len(s) > 0 {
			return []string{s[0]}
		}
	}
	return nil
}

// StripFences removes a leading ```lang line and a trailing ``` fence.
// A single-line fenced statement loses both fences and an optional sql tag.
func StripFences(sqlText string) string {
	s := strings.TrimSpace(sqlText)

	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
			if len(s) >= 4 && strings.EqualFold(s[:3], "sql") && (s[3] == ' ' || s[3] == '\t') {
				s = s[4:]
			}
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
