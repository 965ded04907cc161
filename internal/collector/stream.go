package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cdobratz/nfl-sentiment-analyzer/internal/games"
)

// ScoreStream subscribes to live game updates over a websocket feed and
// delivers validated records into a channel.
type ScoreStream struct {
	url     string
	metrics MetricsSink
}

func NewScoreStream(url string, metrics MetricsSink) *ScoreStream {
	return &ScoreStream{url: url, metrics: metrics}
}

// streamMessage is the feed envelope. Only game_update messages carry a
// record; everything else is control traffic.
type streamMessage struct {
	Type string        `json:"type"`
	Game *games.Record `json:"game,omitempty"`
}

// Stream maintains the subscription until ctx is cancelled, reconnecting
// with exponential backoff on failure. Updates are dropped when the channel
// is full rather than blocking the read loop.
func (s *ScoreStream) Stream(ctx context.Context, updates chan<- games.Record, errs chan<- error) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.streamOnce(ctx, updates); err != nil {
				log.Warn().Err(err).Dur("backoff", backoff).Msg("score stream disconnected, reconnecting")
				if s.metrics != nil {
					s.metrics.StreamReconnectInc()
				}
				select {
				case errs <- fmt.Errorf("score stream reconnect: %w", err):
				default:
				}

				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return ctx.Err()
				}

				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = time.Second
		}
	}
}

func (s *ScoreStream) streamOnce(ctx context.Context, updates chan<- games.Record) error {
	log.Info().Str("url", s.url).Msg("connecting to score stream")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	if err := conn.WriteJSON(map[string]any{"op": "subscribe", "channel": "game_updates"}); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-pingTicker.C:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message failed: %w", err)
		}

		var m streamMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			log.Debug().Err(err).Str("message", string(msg)).Msg("failed to parse stream message")
			continue
		}
		if m.Type != "game_update" || m.Game == nil {
			continue
		}

		if err := m.Game.Validate(); err != nil {
			log.Warn().Err(err).Msg("dropping malformed game update")
			if s.metrics != nil {
				s.metrics.GamesDiscardedInc()
			}
			continue
		}

		select {
		case updates <- *m.Game:
		default:
			log.Warn().Str("game_id", m.Game.GameID).Msg("update channel full, dropping message")
		}
	}
}
