package model

import (
	"context"
	"encoding/json"
	"fmt"
)

// Classifier is the black-box classification capability owned by the
// predictor. The concrete algorithm is swappable as long as it can fit a
// binary target, emit class probabilities ordered [away, home], expose one
// non-negative importance score per input feature, and round-trip its state
// through JSON for persistence.
type Classifier interface {
	// Fit trains on the scaled feature matrix. It checks ctx between
	// iterations so a long fit can be cancelled.
	Fit(ctx context.Context, x [][]float64, y []int) error

	// PredictProba returns probabilities for class 0 (away win) and class 1
	// (home win), summing to 1.
	PredictProba(x []float64) ([]float64, error)

	// FeatureImportances returns one non-negative score per feature, in
	// feature order.
	FeatureImportances() []float64

	// StateType names the classifier implementation for artifact hydration.
	StateType() string

	// MarshalState serializes the fitted state.
	MarshalState() ([]byte, error)
}

// NewClassifier hydrates a classifier from its persisted state.
func NewClassifier(stateType string, state json.RawMessage) (Classifier, error) {
	switch stateType {
	case gradientBoostingType:
		var gb GradientBoosting
		if err := json.Unmarshal(state, &gb); err != nil {
			return nil, fmt.Errorf("unmarshal %s state: %w", stateType, err)
		}
		return &gb, nil
	default:
		return nil, fmt.Errorf("unknown classifier type %q", stateType)
	}
}
