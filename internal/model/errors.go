package model

import "errors"

var (
	// ErrNotReady means predict or explain was called with no artifact in
	// memory and none loadable from the store. Fatal to that call only.
	ErrNotReady = errors.New("model not trained or loaded")

	// ErrNoTrainingData means train was called with an empty dataset.
	ErrNoTrainingData = errors.New("training dataset is empty")

	// ErrDegenerateLabels means every training label belongs to one class,
	// so no meaningful train/test split exists. Training on such a set would
	// produce a model that always predicts the same side.
	ErrDegenerateLabels = errors.New("training labels contain a single class")

	// ErrTrainingInProgress means a fit is already executing; train is not
	// re-entrant.
	ErrTrainingInProgress = errors.New("training already in progress")
)
