// Package collector implements the upstream historical-game data source: a
// REST client that pages season schedules into local storage and a websocket
// subscriber that streams live score updates. Records are validated at this
// boundary; anything structurally invalid is counted and dropped before it
// can reach the feature pipeline.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/cdobratz/nfl-sentiment-analyzer/internal/games"
)

// MetricsSink receives collector telemetry. A nil sink disables tracking.
type MetricsSink interface {
	GamesFetchedAdd(n int)
	GamesDiscardedInc()
	StreamReconnectInc()
}

type Client struct {
	base    string
	rest    *resty.Client
	metrics MetricsSink
}

// NewClient creates a REST client for the games API.
func NewClient(base string, timeout time.Duration, metrics MetricsSink) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second) // default fallback
	}
	return &Client{base: base, rest: r, metrics: metrics}
}

type gamesResponse struct {
	Games []games.Record `json:"games"`
}

// FetchSeason retrieves all game records for one season, chronologically
// ordered by the upstream API. Structurally invalid records are dropped with
// a warning rather than failing the fetch.
func (c *Client) FetchSeason(ctx context.Context, season string) ([]games.Record, error) {
	path := "/api/v1/games"

	var payload gamesResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("season", season).
		SetResult(&payload).
		Get(c.base + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("games API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	valid := make([]games.Record, 0, len(payload.Games))
	for i := range payload.Games {
		rec := payload.Games[i]
		if err := rec.Validate(); err != nil {
			log.Warn().Err(err).Str("season", season).Msg("dropping malformed game record")
			if c.metrics != nil {
				c.metrics.GamesDiscardedInc()
			}
			continue
		}
		valid = append(valid, rec)
	}

	if c.metrics != nil {
		c.metrics.GamesFetchedAdd(len(valid))
	}
	log.Info().Str("season", season).Int("games", len(valid)).Msg("season fetched")

	return valid, nil
}

// FetchTeamGames retrieves the recent games of one team, chronologically
// ordered, limited to the most recent limit records.
func (c *Client) FetchTeamGames(ctx context.Context, teamID string, limit int) ([]games.Record, error) {
	path := "/api/v1/teams/" + teamID + "/games"

	var payload gamesResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetResult(&payload).
		Get(c.base + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("games API error: status %d", resp.StatusCode())
	}

	valid := make([]games.Record, 0, len(payload.Games))
	for i := range payload.Games {
		rec := payload.Games[i]
		if err := rec.Validate(); err != nil {
			if c.metrics != nil {
				c.metrics.GamesDiscardedInc()
			}
			continue
		}
		valid = append(valid, rec)
	}
	if c.metrics != nil {
		c.metrics.GamesFetchedAdd(len(valid))
	}

	return valid, nil
}
