package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Render formats the statement and its result as markdown: a bold SQL
// heading, the statement in a sql fence, then the rows as a pipe table.
func Render(sqlText string, result *Result) string {
	var b strings.Builder
	b.WriteString("**SQL**\n```sql\n")
	b.WriteString(sqlText)
	b.WriteString("\n```\n\n")
	if result != nil {
		b.WriteString(MarkdownTable(result))
		if result.Truncated {
			fmt.Fprintf(&b, "\n\n_Showing the first %d rows._", len(result.Rows))
		}
	}
	return b.String()
}

// MarkdownTable renders rows as a pipe table. Numeric columns are right
// aligned and everything else left aligned.
func MarkdownTable(result *Result) string {
	cols := len(result.Columns)
	cells := make([][]string, len(result.Rows))
	widths := make([]int, cols)
	numeric := make([]bool, cols)

	for c, name := range result.Columns {
		widths[c] = utf8.RuneCountInString(name)
		numeric[c] = len(result.Rows) > 0
	}
	for r, row := range result.Rows {
		cells[r] = make([]string, cols)
		for c := 0; c < cols && c < len(row); c++ {
			text, isNum := formatCell(row[c])
			if row[c] != nil && !isNum {
				numeric[c] = false
			}
			cells[r][c] = text
			widths[c] = max(widths[c], utf8.RuneCountInString(text))
		}
	}

	var b strings.Builder
	writeRow := func(values []string) {
		b.WriteByte('|')
		for c, v := range values {
			pad := strings.Repeat(" ", widths[c]-utf8.RuneCountInString(v))
			if numeric[c] {
				b.WriteString(" " + pad + v + " |")
			} else {
				b.WriteString(" " + v + pad + " |")
			}
		}
	}

	writeRow(result.Columns)
	b.WriteString("\n|")
	for c := range result.Columns {
		dashes := strings.Repeat("-", widths[c]+1)
		if numeric[c] {
			b.WriteString(dashes + ":|")
		} else {
			b.WriteString(":" + dashes + "|")
		}
	}
	for _, row := range cells {
		b.WriteByte('\n')
		writeRow(row)
	}
	return b.String()
}

func formatCell(v any) (text string, numeric bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), false
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02"), false
		}
		return x.Format(time.RFC3339), false
	case string:
		return strings.ReplaceAll(x, "|", `\|`), false
	default:
		return fmt.Sprint(x), false
	}
}
