package predictive

import "sort"

// SequentialPredictor predicts from first-order co-occurrence: for each time
// the current key appears in the history, the key accessed immediately after
// it is a candidate. Candidates are ranked by how often they follow the
// current key.
type SequentialPredictor struct {
	confidence float64
	limit      int
}

// NewSequentialPredictor returns a predictor with confidence 0.7 per
// candidate and the top 5 candidates.
func NewSequentialPredictor() *SequentialPredictor {
	return &SequentialPredictor{confidence: 0.7, limit: 5}
}

// Predict implements Predictor.
func (p *SequentialPredictor) Predict(current string, history []Access) []Prediction {
	if len(history) < 2 {
		return nil
	}

	followers := make(map[string]int)
	for i := 0; i < len(history)-1; i++ {
		if history[i].Key == current && history[i+1].Key != current {
			followers[history[i+1].Key]++
		}
	}
	if len(followers) == 0 {
		return nil
	}

	keys := make([]string, 0, len(followers))
	for key := range followers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if followers[keys[i]] != followers[keys[j]] {
			return followers[keys[i]] > followers[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > p.limit {
		keys = keys[:p.limit]
	}

	predictions := make([]Prediction, 0, len(keys))
	for _, key := range keys {
		predictions = append(predictions, Prediction{Key: key, Confidence: p.confidence})
	}
	return predictions
}
