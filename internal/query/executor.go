package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/fortuna/crease/internal/store"
)

// MaxRows is the number of result rows kept by default.
const MaxRows = 300

// ErrNotReadOnly rejects statements that are not plain queries.
var ErrNotReadOnly = errors.New("only read-only statements may be executed")

var readOnlyKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"EXPLAIN": true,
	"VALUES":  true,
	"SHOW":    true,
	"TABLE":   true,
}

// Result is a query result capped at the executor's row limit.
type Result struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated"`
}

// Executor runs generated statements inside a transaction that never commits.
type Executor struct {
	db      *store.Database
	maxRows int
	timeout time.Duration
}

func NewExecutor(db *store.Database) *Executor {
	return &Executor{db: db, maxRows: MaxRows, timeout: 30 * time.Second}
}

// WithMaxRows overrides the row cap.
func (e *Executor) WithMaxRows(n int) *Executor {
	e.maxRows = n
	return e
}

// Run executes one read-only statement and returns at most maxRows rows.
// Truncated is set when more rows were available.
func (e *Executor) Run(ctx context.Context, sqlText string) (*Result, error) {
	if err := CheckReadOnly(sqlText); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var result *Result
	err := e.db.ReadOnly(ctx, func(tx *store.Tx) error {
		rows, err := tx.QueryVerbatim(ctx, sqlText)
		if err != nil {
			return fmt.Errorf("execute query: %w", err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		result = &Result{Columns: cols, Rows: [][]any{}}

		for rows.Next() {
			if len(result.Rows) == e.maxRows {
				result.Truncated = true
				break
			}
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return fmt.Errorf("scan row: %w", err)
			}
			for i, v := range values {
				if b, ok := v.([]byte); ok {
					values[i] = string(b)
				}
			}
			result.Rows = append(result.Rows, values)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CheckReadOnly accepts a single statement whose first keyword starts a
// query. Leading comments are skipped.
func CheckReadOnly(sqlText string) error {
	s := skipComments(sqlText)
	if s == "" {
		return fmt.Errorf("%w: empty statement", ErrNotReadOnly)
	}

	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		end = len(s)
	}
	keyword := strings.ToUpper(s[:end])
	if !readOnlyKeywords[keyword] {
		return fmt.Errorf("%w: statement starts with %q", ErrNotReadOnly, keyword)
	}

	if i := statementEnd(s); i >= 0 && skipComments(s[i+1:]) != "" {
		return fmt.Errorf("%w: multiple statements", ErrNotReadOnly)
	}
	return nil
}

// statementEnd returns the index of the first semicolon outside string
// literals, quoted identifiers and comments, or -1.
func statementEnd(s string) int {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ';':
			return i
		case '\'', '"':
			// Doubled quotes escape themselves, so skipping to the next
			// quote and rescanning handles them.
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return -1
			}
			i += end + 1
		case '-':
			if strings.HasPrefix(s[i:], "--") {
				nl := strings.IndexByte(s[i:], '\n')
				if nl < 0 {
					return -1
				}
				i += nl
			}
		case '/':
			if strings.HasPrefix(s[i:], "/*") {
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return -1
				}
				i += end + 3
			}
		}
	}
	return -1
}

func skipComments(s string) string {
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			nl := strings.IndexByte(s, '\n')
			if nl < 0 {
				return ""
			}
			s = s[nl+1:]
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s, "*/")
			if end < 0 {
				return ""
			}
			s = s[end+2:]
		default:
			return s
		}
	}
}
