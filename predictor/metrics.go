package predictor

import (
	"context"
	"errors"

	"obesitycheck/ml"
	"obesitycheck/monitoring"
)

const (
	MetricPredictions    = "obesity_predictions_total"
	MetricCacheHits      = "obesity_cache_hits_total"
	MetricRejections     = "obesity_rejections_total"
	MetricPrepareSeconds = "obesity_prepare_seconds"
	MetricPredictSeconds = "obesity_predict_seconds"
)

// Rejection reasons used as the "reason" label.
const (
	ReasonValidation      = "validation"
	ReasonUnknownCategory = "unknown_category"
	ReasonMissingArtifact = "missing_artifact"
	ReasonUnknownLabel    = "unknown_label"
	ReasonCanceled        = "canceled"
	ReasonError           = "error"
)

func describeMetrics(m *monitoring.MetricsCollector) {
	m.Describe(MetricPredictions, "Predictions served, by label")
	m.Describe(MetricCacheHits, "Predictions answered from the result cache")
	m.Describe(MetricRejections, "Submissions that produced no prediction, by reason")
	m.Describe(MetricPrepareSeconds, "Time spent encoding and scaling a record")
	m.Describe(MetricPredictSeconds, "Time spent in the classifier")
}

// RejectionReason classifies err for the rejection counter.
func RejectionReason(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return ReasonValidation
	case errors.Is(err, ml.ErrUnknownCategory):
		return ReasonUnknownCategory
	case errors.Is(err, ml.ErrMissingArtifact):
		return ReasonMissingArtifact
	case errors.Is(err, ml.ErrUnknownLabel):
		return ReasonUnknownLabel
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return ReasonError
	}
}
