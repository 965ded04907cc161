package model

// ClassReport carries precision, recall and F1 for one class on the held-out
// partition.
type ClassReport struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarizes a training run. Classes is keyed "0" (away win) and
// "1" (home win).
type Report struct {
	Accuracy     float64                `json:"accuracy"`
	Classes      map[string]ClassReport `json:"classes"`
	TrainSamples int                    `json:"train_samples"`
	TestSamples  int                    `json:"test_samples"`
}

// evaluate computes accuracy and a per-class precision/recall/F1 breakdown.
func evaluate(yTrue, yPred []int) Report {
	r := Report{Classes: make(map[string]ClassReport, 2)}
	if len(yTrue) == 0 {
		return r
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	r.Accuracy = float64(correct) / float64(len(yTrue))

	for _, class := range []int{0, 1} {
		var tp, fp, fn, support int
		for i := range yTrue {
			switch {
			case yTrue[i] == class && yPred[i] == class:
				tp++
			case yTrue[i] != class && yPred[i] == class:
				fp++
			case yTrue[i] == class && yPred[i] != class:
				fn++
			}
			if yTrue[i] == class {
				support++
			}
		}

		var cr ClassReport
		cr.Support = support
		if tp+fp > 0 {
			cr.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			cr.Recall = float64(tp) / float64(tp+fn)
		}
		if cr.Precision+cr.Recall > 0 {
			cr.F1 = 2 * cr.Precision * cr.Recall / (cr.Precision + cr.Recall)
		}
		r.Classes[classKey(class)] = cr
	}

	return r
}

func classKey(class int) string {
	if class == 1 {
		return "1"
	}
	return "0"
}
