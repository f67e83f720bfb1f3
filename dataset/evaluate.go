package dataset

import (
	"context"
	"errors"

	"obesitycheck/ml"
	"obesitycheck/predictor"
)

// PredictFunc predicts one form. *predictor.Service.Preview satisfies it.
type PredictFunc func(ctx context.Context, f predictor.Form) (predictor.Result, error)

// ScoreFunc classifies an encoded row. *predictor.Service.Score satisfies it.
type ScoreFunc func(ctx context.Context, row ml.Row) (predictor.Result, error)

// ClassStats counts outcomes for one category.
type ClassStats struct {
	ClassID       int
	Label         string
	Support       int
	Predicted     int
	TruePositives int
}

func (c ClassStats) Precision() float64 {
	if c.Predicted == 0 {
		return 0
	}
	return float64(c.TruePositives) / float64(c.Predicted)
}

func (c ClassStats) Recall() float64 {
	if c.Support == 0 {
		return 0
	}
	return float64(c.TruePositives) / float64(c.Support)
}

// Report summarises an evaluation run.
type Report struct {
	Total     int
	Evaluated int
	Correct   int
	// Skipped counts samples that could not be scored or carry no known label.
	Skipped int
	Classes []ClassStats
}

func (r Report) Accuracy() float64 {
	if r.Evaluated == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Evaluated)
}

// Evaluate predicts every labelled sample through the form, so rows the
// form would reject are skipped. Missing artifacts abort the run.
func Evaluate(ctx context.Context, predict PredictFunc, samples []Sample) (Report, error) {
	return evaluate(ctx, samples, func(ctx context.Context, s Sample) (predictor.Result, error) {
		return predict(ctx, s.Form)
	})
}

// EvaluateRows scores the values as written in the CSV. Fractional answers
// and out-of-range numbers are kept; only samples with a value outside the
// encoding tables are skipped.
func EvaluateRows(ctx context.Context, score ScoreFunc, samples []Sample) (Report, error) {
	return evaluate(ctx, samples, func(ctx context.Context, s Sample) (predictor.Result, error) {
		row, err := s.Row()
		if err != nil {
			return predictor.Result{}, err
		}
		return score(ctx, row)
	})
}

func evaluate(ctx context.Context, samples []Sample, predict func(context.Context, Sample) (predictor.Result, error)) (Report, error) {
	report := Report{Total: len(samples), Classes: make([]ClassStats, ml.ClassCount)}
	for id, label := range ml.Labels() {
		report.Classes[id] = ClassStats{ClassID: id, Label: label}
	}

	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		want, ok := LabelID(s.Label)
		if !ok {
			report.Skipped++
			continue
		}
		result, err := predict(ctx, s)
		if err != nil {
			if errors.Is(err, ml.ErrMissingArtifact) || errors.Is(err, ml.ErrUnknownLabel) {
				return report, err
			}
			report.Skipped++
			continue
		}

		report.Evaluated++
		report.Classes[want].Support++
		if result.ClassID >= 0 && result.ClassID < ml.ClassCount {
			report.Classes[result.ClassID].Predicted++
		}
		if result.ClassID == want {
			report.Correct++
			report.Classes[want].TruePositives++
		}
	}
	return report, nil
}
