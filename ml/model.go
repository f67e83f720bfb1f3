package ml

// Classifier maps a prepared feature vector to a class id and the model's
// confidence in it.
type Classifier interface {
	Predict(features []float64) (int, float64, error)
}

// ProbabilisticClassifier also exposes the per-class distribution.
type ProbabilisticClassifier interface {
	Classifier
	PredictProba(features []float64) ([]float64, error)
}
