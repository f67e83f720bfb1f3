package artifacts

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"obesitycheck/ml"
	"obesitycheck/ml/mltest"
)

func TestLoadReady(t *testing.T) {
	dir := t.TempDir()
	scalerPath, modelPath := mltest.WriteArtifacts(t, dir)

	b := Load(Settings{ScalerPath: scalerPath, ModelType: ml.ModelRandomForest, ModelPath: modelPath}, zap.NewNop())
	require.NoError(t, b.Ready())
	require.NotNil(t, b.Preprocessor())
	require.NotNil(t, b.Classifier())
	assert.False(t, b.LoadedAt().IsZero())

	vector, err := b.Preprocessor().Prepare(mltest.Record())
	require.NoError(t, err)
	label, _, err := b.Classifier().Predict(vector.Slice())
	require.NoError(t, err)
	assert.Equal(t, 0, label)
}

func TestLoadMissingScaler(t *testing.T) {
	dir := t.TempDir()
	modelPath := mltest.WriteModel(t, dir)

	b := Load(Settings{
		ScalerPath: filepath.Join(dir, mltest.ScalerFile),
		ModelType:  ml.ModelRandomForest,
		ModelPath:  modelPath,
	}, zap.NewNop())

	err := b.Ready()
	require.ErrorIs(t, err, ml.ErrMissingArtifact)
	assert.Contains(t, err.Error(), mltest.ScalerFile)
	assert.Nil(t, b.Preprocessor())
	assert.NotNil(t, b.Classifier())
}

func TestLoadMissingBoth(t *testing.T) {
	dir := t.TempDir()
	b := Load(Settings{
		ScalerPath: filepath.Join(dir, "a.json"),
		ModelType:  ml.ModelDecisionTree,
		ModelPath:  filepath.Join(dir, "b.json"),
	}, zap.NewNop())

	err := b.Ready()
	require.ErrorIs(t, err, ml.ErrMissingArtifact)
	assert.Contains(t, err.Error(), "a.json")
	assert.Contains(t, err.Error(), "b.json")
	assert.Nil(t, b.Classifier())
}

func TestNilBundle(t *testing.T) {
	var b *Bundle
	assert.ErrorIs(t, b.Ready(), ml.ErrMissingArtifact)
	assert.Nil(t, b.Preprocessor())
	assert.Nil(t, b.Classifier())
	assert.NoError(t, b.Close())
}

func TestNewBundle(t *testing.T) {
	b := NewBundle(mltest.Scaler(), nil)
	assert.ErrorIs(t, b.Ready(), ml.ErrMissingArtifact)

	b = NewBundle(mltest.Scaler(), mltest.Forest())
	assert.NoError(t, b.Ready())
	assert.Same(t, b, NewStatic(b).Current())
	assert.NoError(t, b.Close())
}
