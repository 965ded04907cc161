package features

import (
	"errors"
	"math"
	"testing"

	"github.com/cdobratz/nfl-sentiment-analyzer/internal/games"
)

func TestSchemaWidth(t *testing.T) {
	t.Parallel()

	if len(Names) != Count {
		t.Fatalf("Schema has %d names but Count is %d", len(Names), Count)
	}
	seen := make(map[string]bool, Count)
	for _, name := range Names {
		if seen[name] {
			t.Errorf("Duplicate feature name %q", name)
		}
		seen[name] = true
	}
}

func TestSchemaOrder(t *testing.T) {
	t.Parallel()

	want := []string{
		"home_win_rate",
		"away_win_rate",
		"home_points_scored_avg",
		"away_points_scored_avg",
		"home_points_allowed_avg",
		"away_points_allowed_avg",
		"home_yards_per_play",
		"away_yards_per_play",
		"home_turnover_diff",
		"away_turnover_diff",
		"home_sentiment_score",
		"away_sentiment_score",
		"analyst_confidence_home",
		"analyst_confidence_away",
		"is_division_game",
		"is_primetime",
		"home_rest_days",
		"away_rest_days",
	}
	for i, name := range want {
		if Names[i] != name {
			t.Fatalf("Names[%d] = %q, want %q", i, Names[i], name)
		}
	}
}

func TestBuild_Defaults(t *testing.T) {
	t.Parallel()

	// No history, no sentiment, no rest days: every feature defaults.
	rec := games.Record{
		HomeTeam: games.Team{ID: "KC"},
		AwayTeam: games.Team{ID: "BUF"},
	}

	vec, err := Build(&rec, nil, 5)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	named := vec.Named()
	if got := named["home_rest_days"]; got != 7 {
		t.Errorf("home_rest_days = %v, want default 7", got)
	}
	if got := named["away_rest_days"]; got != 7 {
		t.Errorf("away_rest_days = %v, want default 7", got)
	}
	for _, name := range Names {
		if name == "home_rest_days" || name == "away_rest_days" {
			continue
		}
		if named[name] != 0 {
			t.Errorf("%s = %v, want 0 with no history or sentiment", name, named[name])
		}
	}
}

func TestBuild_FullRecord(t *testing.T) {
	t.Parallel()

	history := []games.Record{
		{
			HomeTeam: games.Team{ID: "KC", Score: 24},
			AwayTeam: games.Team{ID: "BUF", Score: 17},
			Stats: games.Stats{
				HomeYardsTotal: 360,
				AwayYardsTotal: 300,
				HomeTurnovers:  1,
				AwayTurnovers:  2,
			},
			Winner: games.WinnerHome,
		},
	}

	three := 3.0
	rec := games.Record{
		HomeTeam:       games.Team{ID: "KC"},
		AwayTeam:       games.Team{ID: "BUF"},
		IsPrimetime:    true,
		IsDivisionGame: true,
		HomeRestDays:   &three,
		Sentiment: games.SentimentPayload{
			Tweets: games.Tweets{
				HomeTeam: []games.TweetSentiment{{SentimentScore: 0.4}, {SentimentScore: 0.6}},
			},
			AnalystOpinions: []games.AnalystOpinion{
				{Pick: "home", Confidence: 0.8},
				{Pick: "away", Confidence: 0.3},
			},
		},
	}

	vec, err := Build(&rec, history, 5)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	named := vec.Named()

	checks := map[string]float64{
		"home_win_rate":           1,
		"away_win_rate":           0,
		"home_points_scored_avg":  24,
		"away_points_scored_avg":  17,
		"home_points_allowed_avg": 17,
		"away_points_allowed_avg": 24,
		"home_yards_per_play":     360.0 / 60,
		"away_yards_per_play":     300.0 / 60,
		"home_turnover_diff":      1,
		"away_turnover_diff":      2,
		"home_sentiment_score":    0.5,
		"away_sentiment_score":    0,
		"analyst_confidence_home": 0.8,
		"analyst_confidence_away": 0.3,
		"is_division_game":        1,
		"is_primetime":            1,
		"home_rest_days":          3,
		"away_rest_days":          7,
	}
	for name, want := range checks {
		if got := named[name]; math.Abs(got-want) > eps {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestBuild_ValuesMatchSchemaOrder(t *testing.T) {
	t.Parallel()

	three := 3.0
	nine := 9.0
	rec := games.Record{
		HomeTeam:     games.Team{ID: "KC"},
		AwayTeam:     games.Team{ID: "BUF"},
		HomeRestDays: &three,
		AwayRestDays: &nine,
	}

	vec, err := Build(&rec, nil, 5)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	values := vec.Values()
	if len(values) != Count {
		t.Fatalf("Values() length = %d, want %d", len(values), Count)
	}
	named := vec.Named()
	for i, name := range Names {
		if values[i] != named[name] {
			t.Errorf("Values()[%d] = %v but Named()[%q] = %v", i, values[i], name, named[name])
		}
	}

	// Values returns a copy; mutating it must not affect the vector.
	values[0] = 123
	if vec.Values()[0] == 123 {
		t.Error("Values() returned a mutable reference to vector internals")
	}
}

func TestBuild_ContractError(t *testing.T) {
	t.Parallel()

	rec := games.Record{AwayTeam: games.Team{ID: "BUF"}}
	_, err := Build(&rec, nil, 5)
	if err == nil {
		t.Fatal("Expected contract error for record missing home team id")
	}
	var ce *games.ContractError
	if !errors.As(err, &ce) {
		t.Errorf("Expected ContractError, got %T: %v", err, err)
	}
}
