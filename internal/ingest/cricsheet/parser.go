package cricsheet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ErrUnsupportedInnings is wrapped by validation errors for documents whose
// innings cannot be numbered 1 and 2 unambiguously.
var ErrUnsupportedInnings = errors.New("unsupported innings layout")

// ValidationError reports a document that is missing a required field or
// breaks a structural rule. Field is a JSON-style path such as
// innings[1].overs[3].deliveries[0].runs.total.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid document: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Parse decodes and validates a match document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode match document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseFile reads and parses the document at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Validate checks every field the loader depends on.
func (d *Document) Validate() error {
	info := &d.Info

	if info.Season == "" {
		return invalid("info.season", "required")
	}
	if _, err := d.MatchDate(); err != nil {
		return err
	}

	if len(info.Teams) != 2 {
		return invalid("info.teams", "want exactly 2 teams, got %d", len(info.Teams))
	}
	for i, team := range info.Teams {
		if strings.TrimSpace(team) == "" {
			return invalid(fmt.Sprintf("info.teams[%d]", i), "empty team name")
		}
	}
	if info.Teams[0] == info.Teams[1] {
		return invalid("info.teams", "teams must differ, both are %q", info.Teams[0])
	}

	if info.Toss.Winner == "" {
		return invalid("info.toss.winner", "required")
	}
	if !d.isMatchTeam(info.Toss.Winner) {
		return invalid("info.toss.winner", "%q is not one of the match teams", info.Toss.Winner)
	}
	if info.Toss.Decision == "" {
		return invalid("info.toss.decision", "required")
	}
	if w := info.Outcome.Winner; w != "" && !d.isMatchTeam(w) {
		return invalid("info.outcome.winner", "%q is not one of the match teams", w)
	}

	for i := range d.Innings {
		if err := d.validateInnings(i); err != nil {
			return err
		}
	}

	_, err := d.InningsNumbers()
	return err
}

func (d *Document) validateInnings(idx int) error {
	inn := &d.Innings[idx]
	path := fmt.Sprintf("innings[%d]", idx)

	if inn.Team == "" {
		return invalid(path+".team", "required")
	}
	if !d.isMatchTeam(inn.Team) {
		return invalid(path+".team", "%q is not one of %v", inn.Team, d.Info.Teams)
	}

	for o := range inn.Overs {
		over := &inn.Overs[o]
		overPath := fmt.Sprintf("%s.overs[%d]", path, o)
		if over.Over == nil {
			return invalid(overPath+".over", "required")
		}
		for b := range over.Deliveries {
			if err := validateDelivery(&over.Deliveries[b], fmt.Sprintf("%s.deliveries[%d]", overPath, b)); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateDelivery(del *Delivery, path string) error {
	switch {
	case del.Batter == "":
		return invalid(path+".batter", "required")
	case del.Bowler == "":
		return invalid(path+".bowler", "required")
	case del.NonStriker == "":
		return invalid(path+".non_striker", "required")
	}

	if err := validateRuns(del.Runs, path+".runs"); err != nil {
		return err
	}

	for w := range del.Wickets {
		wicket := &del.Wickets[w]
		wPath := fmt.Sprintf("%s.wickets[%d]", path, w)
		if wicket.Kind == "" {
			return invalid(wPath+".kind", "required")
		}
		if wicket.PlayerOut == "" {
			return invalid(wPath+".player_out", "required")
		}
		for f, fielder := range wicket.Fielders {
			if fielder.Name == "" {
				return invalid(fmt.Sprintf("%s.fielders[%d].name", wPath, f), "required")
			}
		}
	}
	return nil
}

func validateRuns(runs *Runs, path string) error {
	switch {
	case runs == nil:
		return invalid(path, "required")
	case runs.Batter == nil:
		return invalid(path+".batter", "required")
	case runs.Extras == nil:
		return invalid(path+".extras", "required")
	case runs.Total == nil:
		return invalid(path+".total", "required")
	}
	return nil
}

// MatchDate returns the first listed date.
func (d *Document) MatchDate() (time.Time, error) {
	if len(d.Info.Dates) == 0 {
		return time.Time{}, invalid("info.dates", "at least one date is required")
	}
	date, err := time.Parse(dateLayout, d.Info.Dates[0])
	if err != nil {
		return time.Time{}, &ValidationError{Field: "info.dates[0]", Reason: "want YYYY-MM-DD", Err: err}
	}
	return date, nil
}

// InningsNumbers assigns 1 or 2 to each innings: an innings carrying a
// target was batted second. Documents with more than two innings, super
// overs, or two innings that land on the same number are rejected.
func (d *Document) InningsNumbers() ([]int, error) {
	if len(d.Innings) > 2 {
		return nil, &ValidationError{
			Field:  "innings",
			Reason: fmt.Sprintf("%d innings, at most 2 supported", len(d.Innings)),
			Err:    ErrUnsupportedInnings,
		}
	}

	numbers := make([]int, len(d.Innings))
	seen := make(map[int]int, len(d.Innings))
	for i, inn := range d.Innings {
		path := fmt.Sprintf("innings[%d]", i)
		if inn.SuperOver {
			return nil, &ValidationError{Field: path + ".super_over", Reason: "super overs are not supported", Err: ErrUnsupportedInnings}
		}

		no := 1
		if inn.Target != nil {
			no = 2
		}
		if prev, ok := seen[no]; ok {
			return nil, &ValidationError{
				Field:  path,
				Reason: fmt.Sprintf("innings[%d] and innings[%d] both number as innings %d", prev, i, no),
				Err:    ErrUnsupportedInnings,
			}
		}
		seen[no] = i
		numbers[i] = no
	}
	return numbers, nil
}

// PlayerNames lists every player referenced anywhere in the document, in
// first-seen order and without duplicates.
func (d *Document) PlayerNames() []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	for _, team := range d.Info.Teams {
		for _, name := range d.Info.Players[team] {
			add(name)
		}
	}
	for _, name := range d.Info.PlayerOfMatch {
		add(name)
	}
	for _, inn := range d.Innings {
		for _, over := range inn.Overs {
			for _, del := range over.Deliveries {
				add(del.Batter)
				add(del.Bowler)
				add(del.NonStriker)
				for _, w := range del.Wickets {
					add(w.PlayerOut)
					for _, f := range w.Fielders {
						add(f.Name)
					}
				}
			}
		}
	}
	return names
}

func (d *Document) isMatchTeam(name string) bool {
	return name == d.Info.Teams[0] || name == d.Info.Teams[1]
}
