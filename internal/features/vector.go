// Package features derives the numeric inputs of the game predictor: rolling
// team form, aggregated sentiment signals, and the canonical ordered feature
// vector that forms the data contract with the model.
package features

import (
	"fmt"

	"github.com/cdobratz/nfl-sentiment-analyzer/internal/games"
)

// Names is the canonical feature schema. The order is part of the model
// contract: scaling parameters, classifier state, and importance scores are
// all positional, so reordering this list invalidates every persisted model.
var Names = []string{
	// team performance
	"home_win_rate",
	"away_win_rate",
	"home_points_scored_avg",
	"away_points_scored_avg",
	"home_points_allowed_avg",
	"away_points_allowed_avg",
	// advanced stats
	"home_yards_per_play",
	"away_yards_per_play",
	"home_turnover_diff",
	"away_turnover_diff",
	// sentiment
	"home_sentiment_score",
	"away_sentiment_score",
	"analyst_confidence_home",
	"analyst_confidence_away",
	// game context
	"is_division_game",
	"is_primetime",
	"home_rest_days",
	"away_rest_days",
}

// Count is the fixed width of every feature vector.
const Count = 18

const (
	// playsPerGame approximates offensive plays per NFL game and converts
	// total yards to yards per play. Documented assumption, not a measured
	// value.
	playsPerGame = 60

	// defaultRestDays is used when a record does not carry rest-day counts.
	defaultRestDays = 7
)

// Vector is an ordered, immutable-once-built feature vector for one game.
type Vector struct {
	values [Count]float64
}

// Values returns a copy of the vector in schema order.
func (v Vector) Values() []float64 {
	out := make([]float64, Count)
	copy(out, v.values[:])
	return out
}

// FromValues wraps raw values already in schema order.
func FromValues(values []float64) (Vector, error) {
	if len(values) != Count {
		return Vector{}, fmt.Errorf("expected %d features, got %d", Count, len(values))
	}
	var v Vector
	copy(v.values[:], values)
	return v, nil
}

// Named maps feature names to values in schema order.
func (v Vector) Named() map[string]float64 {
	m := make(map[string]float64, Count)
	for i, name := range Names {
		m[name] = v.values[i]
	}
	return m
}

// Build assembles the canonical feature vector for record from its historical
// window. Historical games must be chronologically ordered per team. Missing
// team ids surface a contract error; missing optional fields default.
func Build(record *games.Record, historical []games.Record, window int) (Vector, error) {
	if err := record.Validate(); err != nil {
		return Vector{}, err
	}

	homeStats, err := ComputeTeamStats(historical, record.HomeTeam.ID, window)
	if err != nil {
		return Vector{}, err
	}
	awayStats, err := ComputeTeamStats(historical, record.AwayTeam.ID, window)
	if err != nil {
		return Vector{}, err
	}

	sent := ExtractSentiment(record.Sentiment)

	var v Vector
	v.values = [Count]float64{
		homeStats.WinRate,
		awayStats.WinRate,
		homeStats.PointsScoredAvg,
		awayStats.PointsScoredAvg,
		homeStats.PointsAllowedAvg,
		awayStats.PointsAllowedAvg,
		homeStats.YardsPerGame / playsPerGame,
		awayStats.YardsPerGame / playsPerGame,
		homeStats.TurnoverDiff,
		awayStats.TurnoverDiff,
		sent.HomeSentimentScore,
		sent.AwaySentimentScore,
		sent.AnalystConfidenceHome,
		sent.AnalystConfidenceAway,
		boolFeature(record.IsDivisionGame),
		boolFeature(record.IsPrimetime),
		restDays(record.HomeRestDays),
		restDays(record.AwayRestDays),
	}

	return v, nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func restDays(d *float64) float64 {
	if d == nil {
		return defaultRestDays
	}
	return *d
}
