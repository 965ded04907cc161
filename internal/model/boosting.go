package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

const gradientBoostingType = "gradient_boosting"

const (
	defaultRounds       = 100
	defaultLearningRate = 0.1

	// Leaf values are clamped so a pure leaf cannot push the raw score to
	// infinity on small datasets.
	maxLeafValue = 4.0
)

// Stump is a depth-1 regression tree: samples with feature <= threshold fall
// in the left leaf, the rest in the right.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// GradientBoosting is a gradient-boosted ensemble of regression stumps
// trained on logistic loss. Fitting is fully deterministic: no subsampling,
// no randomized splits, so the same dataset always yields the same model.
type GradientBoosting struct {
	Rounds       int       `json:"rounds"`
	LearningRate float64   `json:"learning_rate"`
	Bias         float64   `json:"bias"`
	Stumps       []Stump   `json:"stumps"`
	Gains        []float64 `json:"gains"`
	NumFeatures  int       `json:"num_features"`
}

// NewGradientBoosting returns an unfitted ensemble with the default
// hyperparameters (100 rounds, learning rate 0.1).
func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		Rounds:       defaultRounds,
		LearningRate: defaultLearningRate,
	}
}

// Fit trains the ensemble on x (scaled feature matrix) against binary labels
// y. ctx is checked once per boosting round; cancellation aborts the fit and
// leaves the receiver unusable, so callers fit into a fresh value.
func (g *GradientBoosting) Fit(ctx context.Context, x [][]float64, y []int) error {
	n := len(x)
	if n == 0 {
		return ErrNoTrainingData
	}
	if len(y) != n {
		return fmt.Errorf("feature matrix has %d rows but %d labels", n, len(y))
	}
	numFeatures := len(x[0])
	for i, row := range x {
		if len(row) != numFeatures {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), numFeatures)
		}
	}

	var positives int
	for _, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("label must be 0 or 1, got %d", label)
		}
		positives += label
	}
	if positives == 0 || positives == n {
		return ErrDegenerateLabels
	}

	g.NumFeatures = numFeatures
	g.Stumps = make([]Stump, 0, g.Rounds)
	g.Gains = make([]float64, numFeatures)

	// Start from the base rate in log-odds.
	p := float64(positives) / float64(n)
	g.Bias = math.Log(p / (1 - p))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = g.Bias
	}

	grad := make([]float64, n)
	hess := make([]float64, n)

	for round := 0; round < g.Rounds; round++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("training cancelled at round %d: %w", round, ctx.Err())
		default:
		}

		for i := range x {
			pi := sigmoid(scores[i])
			grad[i] = float64(y[i]) - pi
			hess[i] = pi * (1 - pi)
		}

		stump, gain := fitStump(x, grad, hess)
		g.Stumps = append(g.Stumps, stump)
		if gain > 0 {
			g.Gains[stump.Feature] += gain
		}

		for i, row := range x {
			scores[i] += g.LearningRate * stump.eval(row)
		}
	}

	return nil
}

// PredictProba returns [P(away win), P(home win)] for a scaled feature vector.
func (g *GradientBoosting) PredictProba(x []float64) ([]float64, error) {
	if len(g.Stumps) == 0 {
		return nil, ErrNotReady
	}
	if len(x) != g.NumFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", g.NumFeatures, len(x))
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("feature %d is not finite", i)
		}
	}

	score := g.Bias
	for _, s := range g.Stumps {
		score += g.LearningRate * s.eval(x)
	}

	home := sigmoid(score)
	return []float64{1 - home, home}, nil
}

// FeatureImportances returns per-feature gain totals normalized to sum to 1.
// Features never chosen by any stump score 0.
func (g *GradientBoosting) FeatureImportances() []float64 {
	out := make([]float64, len(g.Gains))
	var total float64
	for _, gain := range g.Gains {
		total += gain
	}
	if total == 0 {
		return out
	}
	for i, gain := range g.Gains {
		out[i] = gain / total
	}
	return out
}

func (g *GradientBoosting) StateType() string { return gradientBoostingType }

func (g *GradientBoosting) MarshalState() ([]byte, error) {
	return json.Marshal(g)
}

func (s Stump) eval(x []float64) float64 {
	if x[s.Feature] <= s.Threshold {
		return s.Left
	}
	return s.Right
}

// fitStump finds the single split over all features that best fits the
// current gradients, scored by the usual squared-gradient gain. Leaf values
// are Newton steps (sum grad / sum hess). When no feature admits a split the
// stump degenerates to a single global leaf.
func fitStump(x [][]float64, grad, hess []float64) (Stump, float64) {
	n := len(x)
	numFeatures := len(x[0])

	var sumGrad, sumHess float64
	for i := 0; i < n; i++ {
		sumGrad += grad[i]
		sumHess += hess[i]
	}

	rootScore := sumGrad * sumGrad / (sumHess + 1e-12)

	best := Stump{Feature: 0, Threshold: math.Inf(1)}
	bestGain := 0.0
	global := newtonLeaf(sumGrad, sumHess)
	best.Left, best.Right = global, global

	order := make([]int, n)
	for f := 0; f < numFeatures; f++ {
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		var leftGrad, leftHess float64
		for k := 0; k < n-1; k++ {
			i := order[k]
			leftGrad += grad[i]
			leftHess += hess[i]

			// Only split between distinct values.
			if x[order[k]][f] == x[order[k+1]][f] {
				continue
			}

			rightGrad := sumGrad - leftGrad
			rightHess := sumHess - leftHess

			gain := leftGrad*leftGrad/(leftHess+1e-12) +
				rightGrad*rightGrad/(rightHess+1e-12) -
				rootScore
			if gain > bestGain {
				bestGain = gain
				best = Stump{
					Feature:   f,
					Threshold: (x[order[k]][f] + x[order[k+1]][f]) / 2,
					Left:      newtonLeaf(leftGrad, leftHess),
					Right:     newtonLeaf(rightGrad, rightHess),
				}
			}
		}
	}

	return best, bestGain
}

func newtonLeaf(grad, hess float64) float64 {
	v := grad / (hess + 1e-12)
	if v > maxLeafValue {
		return maxLeafValue
	}
	if v < -maxLeafValue {
		return -maxLeafValue
	}
	return v
}

func sigmoid(z float64) float64 {
	if z > 20 {
		return 1
	}
	if z < -20 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
