package features

import (
	"github.com/cdobratz/nfl-sentiment-analyzer/internal/games"
)

// DefaultWindow is the number of recent games used for rolling team form.
const DefaultWindow = 5

// TeamStats is a team's rolling performance over its recent games. It is
// recomputed per request from the historical window and never persisted.
type TeamStats struct {
	WinRate          float64 `json:"win_rate"`
	PointsScoredAvg  float64 `json:"points_scored_avg"`
	PointsAllowedAvg float64 `json:"points_allowed_avg"`
	YardsPerGame     float64 `json:"yards_per_game"`
	TurnoverDiff     float64 `json:"turnover_diff"`
}

// teamView is one game seen from the perspective of a single team.
type teamView struct {
	isHome        bool
	pointsScored  float64
	pointsAllowed float64
	yards         float64
	turnovers     float64
	won           bool
}

// ComputeTeamStats derives rolling statistics for teamID from historical
// games. Callers pass games in chronological order; the last window entries
// matching the team are averaged, no re-sorting happens here. A team with no
// matching games yields the zero-valued stats, not an error. Records missing
// a team id surface a contract error.
func ComputeTeamStats(historical []games.Record, teamID string, window int) (TeamStats, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	var views []teamView
	for i := range historical {
		g := &historical[i]
		if err := g.Validate(); err != nil {
			return TeamStats{}, err
		}

		switch teamID {
		case g.HomeTeam.ID:
			views = append(views, teamView{
				isHome:        true,
				pointsScored:  g.HomeTeam.Score,
				pointsAllowed: g.AwayTeam.Score,
				yards:         g.Stats.HomeYardsTotal,
				turnovers:     g.Stats.HomeTurnovers,
				won:           g.Winner == games.WinnerHome,
			})
		case g.AwayTeam.ID:
			views = append(views, teamView{
				isHome:        false,
				pointsScored:  g.AwayTeam.Score,
				pointsAllowed: g.HomeTeam.Score,
				yards:         g.Stats.AwayYardsTotal,
				turnovers:     g.Stats.AwayTurnovers,
				won:           g.Winner == games.WinnerAway,
			})
		}
	}

	if len(views) > window {
		views = views[len(views)-window:]
	}
	if len(views) == 0 {
		return TeamStats{}, nil
	}

	var stats TeamStats
	n := float64(len(views))
	for _, v := range views {
		if v.won {
			stats.WinRate++
		}
		stats.PointsScoredAvg += v.pointsScored
		stats.PointsAllowedAvg += v.pointsAllowed
		stats.YardsPerGame += v.yards
		stats.TurnoverDiff += v.turnovers
	}
	stats.WinRate /= n
	stats.PointsScoredAvg /= n
	stats.PointsAllowedAvg /= n
	stats.YardsPerGame /= n
	stats.TurnoverDiff /= n

	return stats, nil
}
