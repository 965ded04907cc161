package model

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cdobratz/nfl-sentiment-analyzer/internal/features"
)

// memStore is an in-memory Store for testing.
type memStore struct {
	artifact *Artifact
	saveErr  error
	loadErr  error
	saves    int
}

func (m *memStore) SaveModel(a *Artifact) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.artifact = a
	m.saves++
	return nil
}

func (m *memStore) LoadModel() (*Artifact, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.artifact == nil {
		return nil, errors.New("no model stored")
	}
	return m.artifact, nil
}

// mockSink records metric calls for testing.
type mockSink struct {
	predictions        int
	predictionFailures int
	scores             []float64
	trainingRuns       int
	trainingFailures   int
	featureBuilds      int
	featureErrors      int
	accuracy           float64
}

func (m *mockSink) PredictionsInc()                  { m.predictions++ }
func (m *mockSink) PredictionFailuresInc()           { m.predictionFailures++ }
func (m *mockSink) PredictionLatencyObserve(float64) {}
func (m *mockSink) PredictionScoreObserve(v float64) { m.scores = append(m.scores, v) }
func (m *mockSink) TrainingRunsInc()                 { m.trainingRuns++ }
func (m *mockSink) TrainingFailuresInc()             { m.trainingFailures++ }
func (m *mockSink) TrainingDurationObserve(float64)  {}
func (m *mockSink) ModelAccuracySet(v float64)       { m.accuracy = v }
func (m *mockSink) ModelAgeSet(float64)              {}
func (m *mockSink) FeatureBuildsAdd(n int)           { m.featureBuilds += n }
func (m *mockSink) FeatureErrorsInc()                { m.featureErrors++ }

// makeDataset builds n examples whose first feature determines the label.
func makeDataset(t *testing.T, n int) Dataset {
	t.Helper()

	ds := make(Dataset, 0, n)
	for i := 0; i < n; i++ {
		raw := make([]float64, features.Count)
		signal := float64(i%10) - 4.5
		raw[0] = signal
		raw[1] = float64(i % 4)
		vec, err := features.FromValues(raw)
		if err != nil {
			t.Fatalf("FromValues failed: %v", err)
		}
		label := 0
		if signal > 0 {
			label = 1
		}
		ds = append(ds, Example{Vector: vec, Label: label})
	}
	return ds
}

func TestPredictorTrain(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	p := NewPredictor(store, nil)
	ds := makeDataset(t, 50)

	report, err := p.Train(context.Background(), ds)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if report == nil {
		t.Fatal("Train returned nil report")
	}
	if report.Accuracy < 0 || report.Accuracy > 1 {
		t.Errorf("Accuracy %v out of [0, 1]", report.Accuracy)
	}
	if report.TrainSamples+report.TestSamples != len(ds) {
		t.Errorf("Train %d + test %d != dataset %d",
			report.TrainSamples, report.TestSamples, len(ds))
	}
	if want := len(ds) - int(float64(len(ds))*0.2); report.TrainSamples != want {
		t.Errorf("TrainSamples = %d, want %d for an 80/20 split", report.TrainSamples, want)
	}
	if !p.Ready() {
		t.Error("Predictor not ready after successful training")
	}
	if store.artifact == nil {
		t.Error("Trained model was not persisted")
	}
	if got := p.Report(); got == nil || got.Accuracy != report.Accuracy {
		t.Errorf("Report() = %+v, want the training report", got)
	}
}

func TestPredictorTrain_Deterministic(t *testing.T) {
	t.Parallel()

	ds := makeDataset(t, 50)

	a := NewPredictor(&memStore{}, nil)
	b := NewPredictor(&memStore{}, nil)

	ra, err := a.Train(context.Background(), ds)
	if err != nil {
		t.Fatalf("First train failed: %v", err)
	}
	rb, err := b.Train(context.Background(), ds)
	if err != nil {
		t.Fatalf("Second train failed: %v", err)
	}
	if ra.Accuracy != rb.Accuracy {
		t.Errorf("Two trains on the same data disagree: %v vs %v", ra.Accuracy, rb.Accuracy)
	}
}

func TestPredictorTrain_EmptyDataset(t *testing.T) {
	t.Parallel()

	p := NewPredictor(&memStore{}, nil)
	if _, err := p.Train(context.Background(), nil); !errors.Is(err, ErrNoTrainingData) {
		t.Errorf("Expected ErrNoTrainingData, got %v", err)
	}
}

func TestPredictorTrain_DegenerateLabelsKeepPriorModel(t *testing.T) {
	t.Parallel()

	p := NewPredictor(&memStore{}, nil)
	if _, err := p.Train(context.Background(), makeDataset(t, 50)); err != nil {
		t.Fatalf("Initial train failed: %v", err)
	}

	vec, err := features.FromValues(make([]float64, features.Count))
	if err != nil {
		t.Fatalf("FromValues failed: %v", err)
	}
	before, err := p.Predict(vec)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	degenerate := makeDataset(t, 10)
	for i := range degenerate {
		degenerate[i].Label = 1
	}
	if _, err := p.Train(context.Background(), degenerate); !errors.Is(err, ErrDegenerateLabels) {
		t.Fatalf("Expected ErrDegenerateLabels, got %v", err)
	}

	if !p.Ready() {
		t.Fatal("Prior model was discarded after failed training")
	}
	after, err := p.Predict(vec)
	if err != nil {
		t.Fatalf("Predict failed after failed training: %v", err)
	}
	if before.HomeWinProbability != after.HomeWinProbability {
		t.Errorf("Prediction changed after failed training: %v vs %v",
			before.HomeWinProbability, after.HomeWinProbability)
	}
}

func TestPredictorTrain_PersistFailureKeepsModelLive(t *testing.T) {
	t.Parallel()

	store := &memStore{saveErr: errors.New("disk full")}
	p := NewPredictor(store, nil)

	report, err := p.Train(context.Background(), makeDataset(t, 50))
	if err == nil {
		t.Fatal("Expected persist error to surface")
	}
	if report == nil {
		t.Fatal("Expected the report alongside the persist error")
	}
	if !p.Ready() {
		t.Error("Model should serve from memory despite the persist failure")
	}

	vec, _ := features.FromValues(make([]float64, features.Count))
	if _, err := p.Predict(vec); err != nil {
		t.Errorf("Predict failed after persist failure: %v", err)
	}
}

func TestPredictorPredict(t *testing.T) {
	t.Parallel()

	p := NewPredictor(&memStore{}, nil)
	if _, err := p.Train(context.Background(), makeDataset(t, 50)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	raw := make([]float64, features.Count)
	raw[0] = 4 // strong home signal in the synthetic data
	vec, err := features.FromValues(raw)
	if err != nil {
		t.Fatalf("FromValues failed: %v", err)
	}

	pred, err := p.Predict(vec)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if math.Abs(pred.HomeWinProbability+pred.AwayWinProbability-1) > 1e-9 {
		t.Errorf("Probabilities sum to %v, want 1",
			pred.HomeWinProbability+pred.AwayWinProbability)
	}
	wantWinner, wantConf := "away", pred.AwayWinProbability
	if pred.HomeWinProbability > pred.AwayWinProbability {
		wantWinner, wantConf = "home", pred.HomeWinProbability
	}
	if pred.PredictedWinner != wantWinner {
		t.Errorf("PredictedWinner = %q, want %q", pred.PredictedWinner, wantWinner)
	}
	if pred.Confidence != wantConf {
		t.Errorf("Confidence = %v, want the larger probability %v", pred.Confidence, wantConf)
	}
	if pred.PredictedWinner != "home" {
		t.Errorf("Expected home prediction for a strong home signal, got %q", pred.PredictedWinner)
	}
}

func TestPredictorPredict_ObservesConfidence(t *testing.T) {
	t.Parallel()

	sink := &mockSink{}
	p := NewPredictor(&memStore{}, sink)
	if _, err := p.Train(context.Background(), makeDataset(t, 50)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	vec, _ := features.FromValues(make([]float64, features.Count))
	pred, err := p.Predict(vec)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if sink.predictions != 1 {
		t.Errorf("predictions counter = %d, want 1", sink.predictions)
	}
	if len(sink.scores) != 1 {
		t.Fatalf("Expected 1 confidence observation, got %d", len(sink.scores))
	}
	if sink.scores[0] != pred.Confidence {
		t.Errorf("Observed score %v, want the prediction confidence %v",
			sink.scores[0], pred.Confidence)
	}

	// A failed predict counts a failure and observes no score.
	untrained := NewPredictor(&memStore{}, sink)
	if _, err := untrained.Predict(vec); err == nil {
		t.Fatal("Expected predict on untrained to fail")
	}
	if sink.predictionFailures != 1 {
		t.Errorf("prediction failures = %d, want 1", sink.predictionFailures)
	}
	if len(sink.scores) != 1 {
		t.Errorf("Failed predict observed a score: %v", sink.scores)
	}
}

func TestPredictorPredict_NotReady(t *testing.T) {
	t.Parallel()

	p := NewPredictor(&memStore{}, nil)
	vec, _ := features.FromValues(make([]float64, features.Count))

	_, err := p.Predict(vec)
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady, got %v", err)
	}
}

func TestPredictorPredict_LazyLoadFromStore(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	trainer := NewPredictor(store, nil)
	if _, err := trainer.Train(context.Background(), makeDataset(t, 50)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	// A fresh predictor sharing the store loads the artifact on first use.
	fresh := NewPredictor(store, nil)
	vec, _ := features.FromValues(make([]float64, features.Count))

	want, err := trainer.Predict(vec)
	if err != nil {
		t.Fatalf("Predict on trainer failed: %v", err)
	}
	got, err := fresh.Predict(vec)
	if err != nil {
		t.Fatalf("Predict on fresh predictor failed: %v", err)
	}
	if got.HomeWinProbability != want.HomeWinProbability {
		t.Errorf("Loaded model predicts %v, trained model %v",
			got.HomeWinProbability, want.HomeWinProbability)
	}
}

func TestPredictorFeatureImportances(t *testing.T) {
	t.Parallel()

	p := NewPredictor(&memStore{}, nil)

	if _, err := p.FeatureImportances(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady before training, got %v", err)
	}

	if _, err := p.Train(context.Background(), makeDataset(t, 50)); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	imp, err := p.FeatureImportances()
	if err != nil {
		t.Fatalf("FeatureImportances failed: %v", err)
	}
	if len(imp) != features.Count {
		t.Fatalf("Expected %d importances, got %d", features.Count, len(imp))
	}
	for _, name := range features.Names {
		score, ok := imp[name]
		if !ok {
			t.Errorf("Missing importance for feature %q", name)
			continue
		}
		if score < 0 {
			t.Errorf("Importance for %q is negative: %v", name, score)
		}
	}
	if imp[features.Names[0]] == 0 {
		t.Errorf("Feature %q determines the label but scored 0", features.Names[0])
	}

	// Repeated calls without an intervening train or reload return the same
	// mapping.
	again, err := p.FeatureImportances()
	if err != nil {
		t.Fatalf("Second FeatureImportances failed: %v", err)
	}
	if len(again) != len(imp) {
		t.Fatalf("Second call returned %d entries, first %d", len(again), len(imp))
	}
	for name, score := range imp {
		if again[name] != score {
			t.Errorf("Importance for %q changed between calls: %v vs %v",
				name, score, again[name])
		}
	}
}

func TestPredictorReload_Corruption(t *testing.T) {
	t.Parallel()

	store := &memStore{
		artifact: &Artifact{
			Version: "v1",
			Schema:  []string{"a", "b"},
			Scaler:  &Scaler{Mean: []float64{0}, Scale: []float64{1}},
		},
	}
	p := NewPredictor(store, nil)

	if err := p.Reload(); err == nil {
		t.Error("Expected error for scaler narrower than schema")
	}
	if p.Ready() {
		t.Error("Corrupt artifact must not become the live model")
	}
}

func TestPredictorPersist_NotReady(t *testing.T) {
	t.Parallel()

	p := NewPredictor(&memStore{}, nil)
	if err := p.Persist(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady, got %v", err)
	}
}
