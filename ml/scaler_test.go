package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScalerTransform(t *testing.T) {
	s, err := NewStandardScaler([]string{"a", "b"}, []float64{10, 0}, []float64{2, 0})
	require.NoError(t, err)

	out, err := s.Transform([][]float64{{14, 3}, {10, -1}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2, 3}, {0, -1}}, out)

	_, err = s.Transform([][]float64{{1}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestMinMaxScalerTransform(t *testing.T) {
	s, err := NewMinMaxScaler([]string{"a", "b"}, []float64{0, 5}, []float64{10, 5})
	require.NoError(t, err)

	out, err := s.Transform([][]float64{{5, 5}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 0}}, out)
}

func TestNewScalerShapeMismatch(t *testing.T) {
	_, err := NewStandardScaler([]string{"a"}, []float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = NewMinMaxScaler([]string{"a"}, nil, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestScalerFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preprocessing_objects.json")
	require.NoError(t, SaveScaler(path, constantScaler(1, 2)))

	loaded, err := LoadScaler(path)
	require.NoError(t, err)
	assert.Equal(t, NumericalColumns(), loaded.Columns())

	out, err := loaded.Transform([][]float64{make([]float64, 12)})
	require.NoError(t, err)
	assert.InDelta(t, -0.5, out[0][0], 1e-12)
}

func TestLoadScalerMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	_, err := LoadScaler(path)
	require.ErrorIs(t, err, ErrMissingArtifact)
	assert.Contains(t, err.Error(), path)
}

func TestLoadScalerRejectsWrongColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaler.json")
	payload := `{"scaler":{"kind":"standard","columns":["Age"],"mean":[0],"scale":[1]}}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	_, err := LoadScaler(path)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestLoadScalerRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaler.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := LoadScaler(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingArtifact)

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	_, err = LoadScaler(path)
	assert.Error(t, err)
}

func TestFitStandardScaler(t *testing.T) {
	s, err := FitStandardScaler([]string{"a", "b"}, [][]float64{{1, 4}, {3, 4}, {5, 4}})
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 4}, s.mean)
	assert.InDelta(t, 1.632993, s.scale[0], 1e-6)
	assert.Equal(t, 1.0, s.scale[1])

	_, err = FitStandardScaler([]string{"a"}, nil)
	assert.Error(t, err)
	_, err = FitStandardScaler([]string{"a"}, [][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
