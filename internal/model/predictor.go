// Package model owns the classifier capability, the scaling state and the
// feature schema, and exposes the train / predict / persist / reload /
// explain lifecycle around them. The live model is an immutable snapshot
// behind an atomic pointer: training and reloading swap it whole, predictions
// read it lock-free.
package model

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cdobratz/nfl-sentiment-analyzer/internal/features"
)

const (
	// splitSeed fixes the train/test shuffle so runs are reproducible.
	splitSeed = 42

	// testRatio is the held-out share of the dataset.
	testRatio = 0.2
)

// Example is one labeled training row. Label 1 means the home team won.
type Example struct {
	Vector features.Vector
	Label  int
}

// Dataset is an ordered collection of labeled examples, built once per
// training invocation and discarded afterwards.
type Dataset []Example

// Prediction is the outcome estimate for one game.
type Prediction struct {
	HomeWinProbability float64 `json:"home_team_win_probability"`
	AwayWinProbability float64 `json:"away_team_win_probability"`
	PredictedWinner    string  `json:"predicted_winner"`
	Confidence         float64 `json:"confidence"`
}

// Store is the persistence boundary the predictor crosses on explicit
// save/load. Implemented by the storage package.
type Store interface {
	SaveModel(a *Artifact) error
	LoadModel() (*Artifact, error)
}

// MetricsSink receives prediction and training telemetry. All methods must be
// safe for concurrent use; a nil sink disables tracking.
type MetricsSink interface {
	PredictionsInc()
	PredictionFailuresInc()
	PredictionLatencyObserve(float64)
	PredictionScoreObserve(float64)
	TrainingRunsInc()
	TrainingFailuresInc()
	TrainingDurationObserve(float64)
	ModelAccuracySet(float64)
	ModelAgeSet(float64)
	FeatureBuildsAdd(int)
	FeatureErrorsInc()
}

// Predictor is the model lifecycle handle. Zero or one snapshot is live at a
// time; predict and explain read it, train and reload replace it atomically.
type Predictor struct {
	store    Store
	metrics  MetricsSink
	current  atomic.Pointer[snapshot]
	training atomic.Bool
}

// NewPredictor creates an untrained predictor backed by store. metrics may be
// nil.
func NewPredictor(store Store, metrics MetricsSink) *Predictor {
	return &Predictor{store: store, metrics: metrics}
}

// Ready reports whether a model snapshot is held in memory.
func (p *Predictor) Ready() bool {
	return p.current.Load() != nil
}

// Train fits a new model on ds: fixed 80/20 split with a fixed seed, scaler
// fit on the train partition only, evaluation on the held-out partition. On
// success the in-memory snapshot is replaced atomically and the new artifact
// is persisted before returning. A persistence failure is returned alongside
// the report; the freshly trained model stays live in memory either way. Any
// earlier failure (empty or single-class dataset, cancelled fit) leaves a
// prior Ready snapshot untouched.
func (p *Predictor) Train(ctx context.Context, ds Dataset) (*Report, error) {
	if len(ds) == 0 {
		return nil, ErrNoTrainingData
	}
	if !p.training.CompareAndSwap(false, true) {
		return nil, ErrTrainingInProgress
	}
	defer p.training.Store(false)

	start := time.Now()
	report, err := p.train(ctx, ds)

	if p.metrics != nil {
		p.metrics.TrainingRunsInc()
		p.metrics.TrainingDurationObserve(time.Since(start).Seconds())
		if report == nil {
			p.metrics.TrainingFailuresInc()
		} else {
			p.metrics.ModelAccuracySet(report.Accuracy)
			p.metrics.ModelAgeSet(0)
		}
	}

	return report, err
}

func (p *Predictor) train(ctx context.Context, ds Dataset) (*Report, error) {
	positives := 0
	for _, ex := range ds {
		positives += ex.Label
	}
	if positives == 0 || positives == len(ds) {
		return nil, ErrDegenerateLabels
	}

	xTrain, yTrain, xTest, yTest := split(ds)

	scaler := FitScaler(xTrain)
	xTrainScaled, err := scaler.TransformMatrix(xTrain)
	if err != nil {
		return nil, fmt.Errorf("scale train partition: %w", err)
	}

	clf := NewGradientBoosting()
	if err := clf.Fit(ctx, xTrainScaled, yTrain); err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	// Tiny datasets can leave the held-out partition empty; fall back to
	// reporting on the train partition rather than dividing by zero.
	evalX, evalY := xTest, yTest
	if len(evalX) == 0 {
		evalX, evalY = xTrain, yTrain
	}
	preds := make([]int, len(evalX))
	for i, row := range evalX {
		scaled, err := scaler.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("scale eval row %d: %w", i, err)
		}
		probs, err := clf.PredictProba(scaled)
		if err != nil {
			return nil, fmt.Errorf("evaluate row %d: %w", i, err)
		}
		if probs[1] > probs[0] {
			preds[i] = 1
		}
	}
	report := evaluate(evalY, preds)
	report.TrainSamples = len(xTrain)
	report.TestSamples = len(xTest)

	snap := newSnapshot(clf, scaler, features.Names, &report)
	p.current.Store(snap)

	log.Info().
		Int("train_samples", report.TrainSamples).
		Int("test_samples", report.TestSamples).
		Float64("accuracy", report.Accuracy).
		Msg("model trained")

	if err := p.persist(snap); err != nil {
		log.Error().Err(err).Msg("trained model could not be persisted, serving from memory")
		return &report, fmt.Errorf("persist model: %w", err)
	}

	return &report, nil
}

// split shuffles ds with the fixed seed and carves off the test share.
func split(ds Dataset) (xTrain [][]float64, yTrain []int, xTest [][]float64, yTest []int) {
	rnd := rand.New(rand.NewSource(splitSeed))
	order := rnd.Perm(len(ds))

	testN := int(float64(len(ds)) * testRatio)
	trainN := len(ds) - testN

	for i, idx := range order {
		ex := ds[idx]
		if i < trainN {
			xTrain = append(xTrain, ex.Vector.Values())
			yTrain = append(yTrain, ex.Label)
		} else {
			xTest = append(xTest, ex.Vector.Values())
			yTest = append(yTest, ex.Label)
		}
	}
	return xTrain, yTrain, xTest, yTest
}

// Predict estimates the outcome of one game from its feature vector. An
// untrained predictor attempts a store load first; if none is available the
// call fails with ErrNotReady.
func (p *Predictor) Predict(vec features.Vector) (*Prediction, error) {
	start := time.Now()
	pred, err := p.predict(vec)

	if p.metrics != nil {
		p.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
		if err != nil {
			p.metrics.PredictionFailuresInc()
		} else {
			p.metrics.PredictionsInc()
			p.metrics.PredictionScoreObserve(pred.Confidence)
		}
	}

	return pred, err
}

func (p *Predictor) predict(vec features.Vector) (*Prediction, error) {
	snap := p.current.Load()
	if snap == nil {
		if err := p.Reload(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
		}
		snap = p.current.Load()
	}

	scaled, err := snap.scaler.Transform(vec.Values())
	if err != nil {
		return nil, fmt.Errorf("scale features: %w", err)
	}

	probs, err := snap.classifier.PredictProba(scaled)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	away, home := probs[0], probs[1]
	pred := &Prediction{
		HomeWinProbability: home,
		AwayWinProbability: away,
		PredictedWinner:    "away",
		Confidence:         away,
	}
	if home > away {
		pred.PredictedWinner = "home"
		pred.Confidence = home
	}
	return pred, nil
}

// FeatureImportances pairs the classifier's importance scores with the schema
// names. The pairing is positional, so the lengths are asserted at runtime
// rather than trusted.
func (p *Predictor) FeatureImportances() (map[string]float64, error) {
	snap := p.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}

	scores := snap.classifier.FeatureImportances()
	if len(scores) != len(snap.schema) {
		return nil, fmt.Errorf("classifier returned %d importance scores for %d schema features",
			len(scores), len(snap.schema))
	}

	out := make(map[string]float64, len(scores))
	for i, name := range snap.schema {
		out[name] = scores[i]
	}
	return out, nil
}

// Report returns the training report of the live snapshot, or nil when
// untrained.
func (p *Predictor) Report() *Report {
	if snap := p.current.Load(); snap != nil {
		return snap.report
	}
	return nil
}

// Persist writes the live snapshot to the store.
func (p *Predictor) Persist() error {
	snap := p.current.Load()
	if snap == nil {
		return ErrNotReady
	}
	return p.persist(snap)
}

func (p *Predictor) persist(snap *snapshot) error {
	art, err := snap.toArtifact()
	if err != nil {
		return err
	}
	return p.store.SaveModel(art)
}

// Reload replaces the in-memory snapshot with the store's current artifact.
// On any failure the existing snapshot stays live.
func (p *Predictor) Reload() error {
	art, err := p.store.LoadModel()
	if err != nil {
		return err
	}
	snap, err := hydrate(art)
	if err != nil {
		return fmt.Errorf("hydrate artifact: %w", err)
	}
	p.current.Store(snap)

	if p.metrics != nil && !snap.createdAt.IsZero() {
		p.metrics.ModelAgeSet(time.Since(snap.createdAt).Seconds())
	}
	log.Info().Str("version", art.Version).Time("created_at", art.CreatedAt).Msg("model reloaded from store")
	return nil
}
