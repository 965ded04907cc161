// Package games defines the game-record data contract shared by the
// collector, the feature pipeline, and the training worker. Records arriving
// from upstream collectors are validated here, at the edge, so the aggregation
// and model code can assume structurally sound input.
package games

import (
	"time"
)

// Winner identifies which side won a completed game.
type Winner string

const (
	WinnerHome    Winner = "home"
	WinnerAway    Winner = "away"
	WinnerUnknown Winner = ""
)

// DateLayout is the wire format for game dates.
const DateLayout = "2006-01-02"

// Team is one side of a game. ID is required; Score is zero until the game
// completes.
type Team struct {
	ID    string  `json:"id"`
	Name  string  `json:"name,omitempty"`
	Score float64 `json:"score"`
}

// Stats carries the per-side yardage and turnover numbers. All fields are
// optional upstream and default to zero.
type Stats struct {
	HomeYardsTotal float64 `json:"home_yards_total"`
	AwayYardsTotal float64 `json:"away_yards_total"`
	HomeTurnovers  float64 `json:"home_turnovers"`
	AwayTurnovers  float64 `json:"away_turnovers"`
}

// TweetSentiment is a single scored tweet from the sentiment pipeline.
type TweetSentiment struct {
	SentimentScore float64 `json:"sentiment_score"`
	Text           string  `json:"text,omitempty"`
}

// AnalystOpinion is one analyst's pick with a stated confidence. Any pick
// other than "home" counts toward the away side.
type AnalystOpinion struct {
	Pick       string  `json:"pick"`
	Confidence float64 `json:"confidence"`
}

// Tweets groups tweet sentiment by the side it refers to.
type Tweets struct {
	HomeTeam []TweetSentiment `json:"home_team"`
	AwayTeam []TweetSentiment `json:"away_team"`
}

// SentimentPayload is the per-game sentiment bundle supplied by the external
// sentiment pipeline.
type SentimentPayload struct {
	Tweets          Tweets           `json:"tweets"`
	AnalystOpinions []AnalystOpinion `json:"analyst_opinions"`
}

// Record is one historical or upcoming game. HomeTeam.ID and AwayTeam.ID are
// required; everything else is optional. Rest days are pointers so that
// "absent" is distinguishable from zero and can default downstream.
type Record struct {
	GameID         string           `json:"game_id,omitempty"`
	HomeTeam       Team             `json:"homeTeam"`
	AwayTeam       Team             `json:"awayTeam"`
	Stats          Stats            `json:"stats"`
	Winner         Winner           `json:"winner,omitempty"`
	Date           string           `json:"date"`
	IsPrimetime    bool             `json:"is_primetime"`
	IsDivisionGame bool             `json:"is_division_game"`
	HomeRestDays   *float64         `json:"home_rest_days,omitempty"`
	AwayRestDays   *float64         `json:"away_rest_days,omitempty"`
	Sentiment      SentimentPayload `json:"sentiment_data"`
}

// Validate checks the structural contract: both team ids present and, when a
// date is set, parseable. Missing optional fields are fine.
func (r *Record) Validate() error {
	if r.HomeTeam.ID == "" {
		return &ContractError{Field: "homeTeam.id", Reason: "missing team id"}
	}
	if r.AwayTeam.ID == "" {
		return &ContractError{Field: "awayTeam.id", Reason: "missing team id"}
	}
	if r.Date != "" {
		if _, err := time.Parse(DateLayout, r.Date); err != nil {
			return &ContractError{Field: "date", Reason: "malformed date, want " + DateLayout}
		}
	}
	return nil
}

// HomeWon reports whether the home side won. Second return is false when the
// outcome is unknown.
func (r *Record) HomeWon() (bool, bool) {
	switch r.Winner {
	case WinnerHome:
		return true, true
	case WinnerAway:
		return false, true
	default:
		return false, false
	}
}

// Label returns the training label (1 = home win, 0 otherwise), matching the
// convention used when assembling training datasets.
func (r *Record) Label() int {
	if won, ok := r.HomeWon(); ok && won {
		return 1
	}
	return 0
}
