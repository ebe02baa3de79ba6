package cricsheet

import "fmt"

// Summary holds the derived totals stored on an innings row.
type Summary struct {
	Runs    int `json:"runs"`
	Wickets int `json:"wickets"`
	// Overs is the highest over index that has a delivery. It is a coarse
	// proxy for overs bowled: 19.4 overs is reported as 19.
	Overs int `json:"overs"`
}

// Summarize walks an innings once. A delivery with any wickets counts as one
// wicket. An innings without deliveries summarizes to zeros.
func Summarize(inn *Innings) (Summary, error) {
	var s Summary
	for o, over := range inn.Overs {
		if over.Over == nil {
			return Summary{}, invalid(fmt.Sprintf("overs[%d].over", o), "required")
		}
		for b, del := range over.Deliveries {
			path := fmt.Sprintf("overs[%d].deliveries[%d].runs", o, b)
			if del.Runs == nil {
				return Summary{}, invalid(path, "required")
			}
			if del.Runs.Total == nil {
				return Summary{}, invalid(path+".total", "required")
			}

			s.Runs += *del.Runs.Total
			if len(del.Wickets) > 0 {
				s.Wickets++
			}
			if *over.Over > s.Overs {
				s.Overs = *over.Over
			}
		}
	}
	return s, nil
}
