package features

import (
	"github.com/cdobratz/nfl-sentiment-analyzer/internal/games"
)

// SentimentFeatures are the per-game scalar signals derived from tweet
// sentiment and analyst opinions. Confidence totals are sums, not means:
// accumulating analyst volume is intentional signal, and downstream scaling
// absorbs the magnitude difference.
type SentimentFeatures struct {
	HomeSentimentScore    float64 `json:"home_sentiment_score"`
	AwaySentimentScore    float64 `json:"away_sentiment_score"`
	AnalystConfidenceHome float64 `json:"analyst_confidence_home"`
	AnalystConfidenceAway float64 `json:"analyst_confidence_away"`
}

// ExtractSentiment aggregates a game's sentiment payload. Empty tweet lists
// yield zero scores; an opinion whose pick is anything but "home" counts
// toward the away side.
func ExtractSentiment(p games.SentimentPayload) SentimentFeatures {
	var f SentimentFeatures

	f.HomeSentimentScore = meanSentiment(p.Tweets.HomeTeam)
	f.AwaySentimentScore = meanSentiment(p.Tweets.AwayTeam)

	for _, op := range p.AnalystOpinions {
		if op.Pick == "home" {
			f.AnalystConfidenceHome += op.Confidence
		} else {
			f.AnalystConfidenceAway += op.Confidence
		}
	}

	return f
}

func meanSentiment(tweets []games.TweetSentiment) float64 {
	if len(tweets) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tweets {
		sum += t.SentimentScore
	}
	return sum / float64(len(tweets))
}
