package metrics

// Wrapper adapts Metrics to the narrow sink interfaces consumed by the model
// and collector packages, avoiding import cycles between them and the
// Prometheus types.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc()                    { w.m.PredictionsTotal.Inc() }
func (w *Wrapper) PredictionFailuresInc()             { w.m.PredictionFailures.Inc() }
func (w *Wrapper) PredictionLatencyObserve(v float64) { w.m.PredictionLatency.Observe(v) }
func (w *Wrapper) PredictionScoreObserve(v float64)   { w.m.PredictionScores.Observe(v) }

func (w *Wrapper) TrainingRunsInc()                  { w.m.TrainingRuns.Inc() }
func (w *Wrapper) TrainingFailuresInc()              { w.m.TrainingFailures.Inc() }
func (w *Wrapper) TrainingDurationObserve(v float64) { w.m.TrainingDuration.Observe(v) }
func (w *Wrapper) ModelAccuracySet(v float64)        { w.m.ModelAccuracy.Set(v) }
func (w *Wrapper) ModelAgeSet(v float64)             { w.m.ModelAge.Set(v) }

func (w *Wrapper) FeatureBuildsAdd(n int) { w.m.FeatureBuilds.Add(float64(n)) }
func (w *Wrapper) FeatureErrorsInc()      { w.m.FeatureErrors.Inc() }

func (w *Wrapper) GamesFetchedAdd(n int) { w.m.GamesFetched.Add(float64(n)) }
func (w *Wrapper) GamesDiscardedInc()    { w.m.GamesDiscarded.Inc() }
func (w *Wrapper) StreamReconnectInc()   { w.m.StreamReconnect.Inc() }
func (w *Wrapper) StoreErrorsInc()       { w.m.StoreErrors.Inc() }
