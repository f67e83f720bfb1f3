// Package artifacts loads the pretrained scaler and classifier into an
// immutable Bundle shared by every prediction.
package artifacts

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"obesitycheck/ml"
)

// Settings locate the artifacts on disk.
type Settings struct {
	ScalerPath      string
	ModelType       string
	ModelPath       string
	ONNXLibraryPath string
}

// Bundle is never modified after Load returns. Reloading builds a new one.
type Bundle struct {
	scaler       ml.Scaler
	classifier   ml.Classifier
	preprocessor *ml.Preprocessor
	err          error
	loadedAt     time.Time
}

// NewBundle assembles a bundle from already loaded artifacts. A nil
// artifact is reported by Ready as missing.
func NewBundle(scaler ml.Scaler, classifier ml.Classifier) *Bundle {
	b := &Bundle{
		scaler:     scaler,
		classifier: classifier,
		loadedAt:   time.Now(),
	}
	var errs []error
	if scaler == nil {
		errs = append(errs, &ml.MissingArtifactError{Name: "scaler"})
	} else {
		b.preprocessor = ml.NewPreprocessor(scaler)
	}
	if classifier == nil {
		errs = append(errs, &ml.MissingArtifactError{Name: "classifier"})
	}
	b.err = errors.Join(errs...)
	return b
}

// Load reads both artifacts. Failures do not abort: the returned bundle
// records them and Ready reports them, so callers can keep serving with
// prediction disabled.
func Load(s Settings, logger *zap.Logger) *Bundle {
	if logger == nil {
		logger = zap.NewNop()
	}
	var errs []error

	scaler, err := ml.LoadScaler(s.ScalerPath)
	if err != nil {
		logger.Warn("scaler unavailable", zap.String("path", s.ScalerPath), zap.Error(err))
		errs = append(errs, err)
		scaler = nil
	}

	classifier, err := ml.LoadModel(s.ModelType, s.ModelPath, ml.LoadOptions{ONNXLibraryPath: s.ONNXLibraryPath})
	if err != nil {
		logger.Warn("classifier unavailable",
			zap.String("type", s.ModelType), zap.String("path", s.ModelPath), zap.Error(err))
		errs = append(errs, err)
		classifier = nil
	}

	b := &Bundle{
		scaler:     scaler,
		classifier: classifier,
		err:        errors.Join(errs...),
		loadedAt:   time.Now(),
	}
	if scaler != nil {
		b.preprocessor = ml.NewPreprocessor(scaler)
	}
	if b.err == nil {
		logger.Info("artifacts loaded",
			zap.String("scaler", s.ScalerPath),
			zap.String("model_type", s.ModelType),
			zap.String("model", s.ModelPath))
	}
	return b
}

// Ready returns nil when both artifacts are loaded.
func (b *Bundle) Ready() error {
	if b == nil {
		return fmt.Errorf("artifacts: %w", &ml.MissingArtifactError{Name: "bundle"})
	}
	return b.err
}

func (b *Bundle) Preprocessor() *ml.Preprocessor {
	if b == nil {
		return nil
	}
	return b.preprocessor
}

func (b *Bundle) Classifier() ml.Classifier {
	if b == nil {
		return nil
	}
	return b.classifier
}

func (b *Bundle) LoadedAt() time.Time {
	if b == nil {
		return time.Time{}
	}
	return b.loadedAt
}

// Close releases classifier resources held outside the Go heap.
func (b *Bundle) Close() error {
	if b == nil {
		return nil
	}
	if c, ok := b.classifier.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Source hands out the bundle current at the time of the call.
type Source interface {
	Current() *Bundle
}

// Static always returns the same bundle.
type Static struct {
	bundle *Bundle
}

func NewStatic(b *Bundle) *Static {
	return &Static{bundle: b}
}

func (s *Static) Current() *Bundle {
	return s.bundle
}
