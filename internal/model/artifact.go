package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Artifact is the persisted model bundle. Classifier state, scaling state and
// the feature schema travel as one unit; loading any of them without the
// others would break the positional contract between them.
type Artifact struct {
	Version         string          `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	Schema          []string        `json:"schema"`
	Scaler          *Scaler         `json:"scaler"`
	ClassifierType  string          `json:"classifier_type"`
	ClassifierState json.RawMessage `json:"classifier_state"`
	Report          *Report         `json:"report,omitempty"`
}

// snapshot is the in-memory, hydrated form of an artifact. It is immutable
// after construction and swapped whole, so concurrent readers never observe a
// scaler from one model paired with a classifier from another.
type snapshot struct {
	classifier Classifier
	scaler     *Scaler
	schema     []string
	createdAt  time.Time
	report     *Report
}

func newSnapshot(clf Classifier, scaler *Scaler, schema []string, report *Report) *snapshot {
	return &snapshot{
		classifier: clf,
		scaler:     scaler,
		schema:     schema,
		createdAt:  time.Now().UTC(),
		report:     report,
	}
}

// toArtifact serializes the snapshot for the store.
func (s *snapshot) toArtifact() (*Artifact, error) {
	state, err := s.classifier.MarshalState()
	if err != nil {
		return nil, fmt.Errorf("marshal classifier state: %w", err)
	}
	return &Artifact{
		CreatedAt:       s.createdAt,
		Schema:          s.schema,
		Scaler:          s.scaler,
		ClassifierType:  s.classifier.StateType(),
		ClassifierState: state,
		Report:          s.report,
	}, nil
}

// hydrate rebuilds the in-memory snapshot from a stored artifact.
func hydrate(a *Artifact) (*snapshot, error) {
	if a.Scaler == nil {
		return nil, fmt.Errorf("artifact %s has no scaling state", a.Version)
	}
	if len(a.Schema) == 0 {
		return nil, fmt.Errorf("artifact %s has no feature schema", a.Version)
	}
	if len(a.Scaler.Mean) != len(a.Schema) {
		return nil, fmt.Errorf("artifact %s: scaler width %d does not match schema width %d",
			a.Version, len(a.Scaler.Mean), len(a.Schema))
	}
	clf, err := NewClassifier(a.ClassifierType, a.ClassifierState)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", a.Version, err)
	}
	return &snapshot{
		classifier: clf,
		scaler:     a.Scaler,
		schema:     a.Schema,
		createdAt:  a.CreatedAt,
		report:     a.Report,
	}, nil
}
