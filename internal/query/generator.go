package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultModel = "gpt-4o-mini"

// SchemaPrompt describes the tables a generated query may read.
const SchemaPrompt = `Tables:
teams(team_id, team_name)
players(player_id, player_name)
matches(match_id, season, match_date, city, venue, event_name, match_number, match_type, gender,
        overs_per_side, team1, team2, toss_winner, toss_decision, match_winner, win_by_runs,
        win_by_wkts, result, player_of_match)
innings(match_id, innings_no, batting_team, runs, wickets, overs)
powerplays(match_id, innings_no, pp_type, from_over, to_over)
deliveries(match_id, innings_no, over_no, ball_no, batting_team, bowling_team, batter_id,
           bowler_id, non_striker_id, runs_batter, runs_extras, wicket_type, player_out_id, fielder_id)
team1, team2, toss_winner, match_winner, batting_team and bowling_team reference teams.
player_of_match, batter_id, bowler_id, non_striker_id, player_out_id and fielder_id reference players.
over_no is 0-based; ball_no is 1-based within the over.`

// HTTPGenerator asks an OpenAI-compatible chat completions endpoint for SQL.
// The reply becomes a single-step trace.
type HTTPGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	dialect    string
	httpClient *http.Client
}

// NewHTTPGenerator creates a generator for baseURL, e.g.
// https://api.openai.com/v1. dialect names the SQL flavour to ask for.
func NewHTTPGenerator(baseURL, apiKey, model, dialect string) *HTTPGenerator {
	if model == "" {
		model = defaultModel
	}
	return &HTTPGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		dialect: dialect,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *HTTPGenerator) systemPrompt() string {
	return fmt.Sprintf(`You are a %s expert. Given a question about cricket matches, write one syntactically correct read-only %s query that answers it.
Reply in exactly this format and nothing else:
SQLQuery: <the query>

%s`, g.dialect, g.dialect, SchemaPrompt)
}

// GenerateSQL implements Generator.
func (g *HTTPGenerator) GenerateSQL(ctx context.Context, question string) (*Trace, error) {
	body, err := json.Marshal(chatRequest{
		Model:       g.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: g.systemPrompt()},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var decoded chatResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw[:min(len(raw), 200)]))
		if decodeErr == nil && decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return nil, fmt.Errorf("generator returned status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %w", decodeErr)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("generator returned no choices")
	}

	return &Trace{Steps: []any{
		map[string]any{
			"input":   question,
			"sql_cmd": decoded.Choices[0].Message.Content,
		},
	}}, nil
}
