package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cdobratz/nfl-sentiment-analyzer/internal/features"
	"github.com/cdobratz/nfl-sentiment-analyzer/internal/games"
)

// GameSource yields the stored game history in chronological order.
// Implemented by the storage package.
type GameSource interface {
	Games() ([]games.Record, error)
}

// BuildDataset turns completed games into labeled examples. Each game's
// feature vector uses the full history as its rolling-stat context; games
// without a known winner are skipped. Contract errors from the feature
// pipeline are surfaced, not skipped.
func BuildDataset(history []games.Record, window int) (Dataset, error) {
	ds := make(Dataset, 0, len(history))
	for i := range history {
		g := &history[i]
		if _, known := g.HomeWon(); !known {
			continue
		}
		vec, err := features.Build(g, history, window)
		if err != nil {
			return nil, fmt.Errorf("game %s on %s: %w", g.GameID, g.Date, err)
		}
		ds = append(ds, Example{Vector: vec, Label: g.Label()})
	}
	return ds, nil
}

// Worker retrains the predictor off the prediction path. It serializes train
// requests through a single goroutine so concurrent predicts stay lock-free
// and low-latency while a fit is running.
type Worker struct {
	pred     *Predictor
	source   GameSource
	window   int
	interval time.Duration
	trigger  chan struct{}
}

// NewWorker creates a training worker. interval <= 0 disables periodic
// retraining; Trigger still works.
func NewWorker(pred *Predictor, source GameSource, window int, interval time.Duration) *Worker {
	return &Worker{
		pred:     pred,
		source:   source,
		window:   window,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a retrain. Coalesces with an already-pending request.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run processes retrain requests until ctx is cancelled. A cancelled or
// failed run leaves the predictor's previous model serving.
func (w *Worker) Run(ctx context.Context) {
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.trigger:
		case <-tick:
		}

		if err := w.TrainOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Warn().Err(err).Msg("retrain skipped")
		}
	}
}

// TrainOnce builds a dataset from the stored history and runs one training
// pass.
func (w *Worker) TrainOnce(ctx context.Context) error {
	history, err := w.source.Games()
	if err != nil {
		return fmt.Errorf("load game history: %w", err)
	}

	ds, err := BuildDataset(history, w.window)
	if err != nil {
		if w.pred.metrics != nil {
			w.pred.metrics.FeatureErrorsInc()
		}
		return fmt.Errorf("build dataset: %w", err)
	}
	if w.pred.metrics != nil {
		w.pred.metrics.FeatureBuildsAdd(len(ds))
	}
	if len(ds) == 0 {
		return fmt.Errorf("no completed games in history: %w", ErrNoTrainingData)
	}

	report, err := w.pred.Train(ctx, ds)
	if err != nil {
		// A report alongside the error means the fit succeeded and only
		// persistence failed; the new model is live and serving.
		if report == nil {
			return err
		}
		log.Warn().Err(err).Msg("retrained model is live but was not persisted")
	}

	log.Info().
		Int("examples", len(ds)).
		Float64("accuracy", report.Accuracy).
		Msg("background retrain complete")
	return nil
}
