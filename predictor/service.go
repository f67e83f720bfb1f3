// Package predictor runs one user submission through validation, the
// preprocessor, the classifier and the label resolver.
package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"obesitycheck/artifacts"
	"obesitycheck/db"
	"obesitycheck/ml"
	"obesitycheck/monitoring"
)

var ErrHistoryDisabled = errors.New("prediction history disabled")

// HistoryStore persists predictions. *db.Store satisfies it.
type HistoryStore interface {
	SavePrediction(ctx context.Context, rec db.PredictionRecord) (int64, error)
	RecentPredictions(ctx context.Context, limit int) ([]db.PredictionRecord, error)
}

// Result is a resolved prediction.
type Result struct {
	ClassID    int                `json:"class_id"`
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Message    string             `json:"message"`
	Features   map[string]float64 `json:"features"`
	Cached     bool               `json:"cached"`
	CreatedAt  time.Time          `json:"created_at"`

	Vector ml.FeatureVector `json:"-"`
}

// Message is the single line shown to the user.
func Message(label string) string {
	return "Predicted obesity level: " + label
}

// Encoding shows a record before and after scaling.
type Encoding struct {
	Encoded  map[string]float64 `json:"encoded"`
	Features map[string]float64 `json:"features"`
	Order    []string           `json:"order"`
	Vector   ml.FeatureVector   `json:"-"`
}

type Option func(*Service)

func WithHistory(store HistoryStore) Option {
	return func(s *Service) { s.history = store }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithCacheSize(size int) Option {
	return func(s *Service) { s.cacheSize = size }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics shares a collector with other components. Without it the
// service keeps its own.
func WithMetrics(m *monitoring.MetricsCollector) Option {
	return func(s *Service) { s.metrics = m }
}

type Service struct {
	source    artifacts.Source
	history   HistoryStore
	logger    *zap.Logger
	validator *Validator
	cache     *resultCache
	cacheSize int
	now       func() time.Time
	metrics   *monitoring.MetricsCollector
}

func New(source artifacts.Source, opts ...Option) (*Service, error) {
	s := &Service{
		source:    source,
		logger:    zap.NewNop(),
		validator: NewValidator(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = monitoring.NewMetricsCollector()
	}
	describeMetrics(s.metrics)
	cache, err := newResultCache(s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("prediction cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Ready reports why prediction is disabled, or nil when it is available.
func (s *Service) Ready() error {
	return s.source.Current().Ready()
}

// Validate normalizes and checks f without touching the artifacts.
func (s *Service) Validate(f Form) (Form, error) {
	f = Normalize(f)
	if err := s.validator.Check(f); err != nil {
		return f, err
	}
	return f, nil
}

// Predict runs the full chain for one submission and records it in the
// history when a store is configured.
func (s *Service) Predict(ctx context.Context, f Form) (Result, error) {
	return s.predict(ctx, f, true)
}

// Preview predicts like Predict without recording history. It backs the
// live preview, which fires on every edit.
func (s *Service) Preview(ctx context.Context, f Form) (Result, error) {
	return s.predict(ctx, f, false)
}

func (s *Service) predict(ctx context.Context, f Form, persist bool) (Result, error) {
	result, err := s.run(ctx, f, persist)
	if err != nil {
		s.metrics.IncrCounter(MetricRejections, 1, map[string]string{"reason": RejectionReason(err)})
		return Result{}, err
	}
	s.metrics.IncrCounter(MetricPredictions, 1, map[string]string{"label": result.Label})
	if result.Cached {
		s.metrics.IncrCounter(MetricCacheHits, 1, nil)
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, f Form, persist bool) (Result, error) {
	f, err := s.Validate(f)
	if err != nil {
		return Result{}, err
	}

	bundle := s.source.Current()
	if err := bundle.Ready(); err != nil {
		return Result{}, err
	}
	record := f.Record()

	key := cacheKey(bundle, record)
	if cached, ok := s.cache.get(key); ok {
		cached.Cached = true
		cached.CreatedAt = s.now()
		if persist {
			s.record(ctx, f, cached)
		}
		return cached, nil
	}

	start := time.Now()
	vector, err := bundle.Preprocessor().Prepare(record)
	s.metrics.ObserveDuration(MetricPrepareSeconds, start, nil)
	if err != nil {
		return Result{}, fmt.Errorf("prepare: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start = time.Now()
	classID, confidence, err := bundle.Classifier().Predict(vector.Slice())
	s.metrics.ObserveDuration(MetricPredictSeconds, start, nil)
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}
	label, err := ml.ResolveLabel(classID)
	if err != nil {
		s.logger.Error("classifier returned an unknown class", zap.Int("class_id", classID), zap.Error(err))
		return Result{}, err
	}

	result := Result{
		ClassID:    classID,
		Label:      label,
		Confidence: confidence,
		Message:    Message(label),
		Features:   vector.Map(),
		CreatedAt:  s.now(),
		Vector:     vector,
	}
	s.cache.add(key, result)
	s.logger.Info("prediction",
		zap.Int("class_id", classID),
		zap.String("label", label),
		zap.Float64("confidence", confidence))

	if persist {
		s.record(ctx, f, result)
	}
	return result, nil
}

func (s *Service) record(ctx context.Context, f Form, r Result) {
	if s.history == nil || ctx.Err() != nil {
		return
	}
	input, err := json.Marshal(f)
	if err != nil {
		s.logger.Warn("encode prediction input", zap.Error(err))
		return
	}
	if _, err := s.history.SavePrediction(ctx, db.PredictionRecord{
		ClassID:    r.ClassID,
		Label:      r.Label,
		Confidence: r.Confidence,
		Input:      input,
		Features:   r.Features,
		CreatedAt:  r.CreatedAt,
	}); err != nil {
		s.logger.Warn("save prediction", zap.Error(err))
	}
}

// Score classifies an already encoded row. It skips form validation, the
// cache and the history, so rows from the survey CSV with fractional
// answers score as they are.
func (s *Service) Score(ctx context.Context, row ml.Row) (Result, error) {
	bundle := s.source.Current()
	if err := bundle.Ready(); err != nil {
		return Result{}, err
	}
	vector, err := bundle.Preprocessor().Scale(row)
	if err != nil {
		return Result{}, fmt.Errorf("prepare: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	classID, confidence, err := bundle.Classifier().Predict(vector.Slice())
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}
	label, err := ml.ResolveLabel(classID)
	if err != nil {
		return Result{}, err
	}
	return Result{
		ClassID:    classID,
		Label:      label,
		Confidence: confidence,
		Message:    Message(label),
		Features:   vector.Map(),
		CreatedAt:  s.now(),
		Vector:     vector,
	}, nil
}

// Encode shows how f is encoded and scaled, without predicting.
func (s *Service) Encode(ctx context.Context, f Form) (Encoding, error) {
	f, err := s.Validate(f)
	if err != nil {
		return Encoding{}, err
	}
	pre := s.source.Current().Preprocessor()
	if pre == nil {
		return Encoding{}, &ml.MissingArtifactError{Name: "scaler"}
	}
	record := f.Record()
	encoded, err := pre.Encode(record)
	if err != nil {
		return Encoding{}, err
	}
	vector, err := pre.Prepare(record)
	if err != nil {
		return Encoding{}, err
	}
	return Encoding{
		Encoded:  encoded,
		Features: vector.Map(),
		Order:    ml.FeatureOrder(),
		Vector:   vector,
	}, ctx.Err()
}

// History returns recent predictions, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]db.PredictionRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.RecentPredictions(ctx, limit)
}

func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// Metrics returns the collector the service records into.
func (s *Service) Metrics() *monitoring.MetricsCollector {
	return s.metrics
}

// Purge drops cached results.
func (s *Service) Purge() {
	s.cache.purge()
}
