package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// Scaler is a fitted column transform. Rows and columns keep their order.
type Scaler interface {
	Transform(rows [][]float64) ([][]float64, error)
	Columns() []string
}

// StandardScaler applies (x - mean) / scale per column.
type StandardScaler struct {
	columns []string
	mean    []float64
	scale   []float64
}

func NewStandardScaler(columns []string, mean, scale []float64) (*StandardScaler, error) {
	if len(columns) != len(mean) || len(columns) != len(scale) {
		return nil, fmt.Errorf("standard scaler columns/mean/scale: %w", ErrShapeMismatch)
	}
	return &StandardScaler{columns: columns, mean: mean, scale: scale}, nil
}

func (s *StandardScaler) Columns() []string {
	return append([]string(nil), s.columns...)
}

func (s *StandardScaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.mean) {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), len(s.mean), ErrShapeMismatch)
		}
		scaled := make([]float64, len(row))
		for j, value := range row {
			scale := s.scale[j]
			// a zero-variance column is left centred but unscaled
			if scale == 0 {
				scale = 1
			}
			scaled[j] = (value - s.mean[j]) / scale
		}
		out[i] = scaled
	}
	return out, nil
}

// FitStandardScaler computes per-column mean and population standard
// deviation over rows.
func FitStandardScaler(columns []string, rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("fit standard scaler: no rows")
	}
	n := float64(len(rows))
	mean := make([]float64, len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), len(columns), ErrShapeMismatch)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	scale := make([]float64, len(columns))
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	return NewStandardScaler(append([]string(nil), columns...), mean, scale)
}

// MinMaxScaler maps each column onto [0, 1] using the fitted range.
type MinMaxScaler struct {
	columns []string
	mins    []float64
	maxs    []float64
}

func NewMinMaxScaler(columns []string, mins, maxs []float64) (*MinMaxScaler, error) {
	if len(columns) != len(mins) || len(columns) != len(maxs) {
		return nil, fmt.Errorf("minmax scaler columns/min/max: %w", ErrShapeMismatch)
	}
	return &MinMaxScaler{columns: columns, mins: mins, maxs: maxs}, nil
}

func (s *MinMaxScaler) Columns() []string {
	return append([]string(nil), s.columns...)
}

func (s *MinMaxScaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := NormalizeVector(row, s.mins, s.maxs)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}

func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}

func NormalizeVector(values []float64, mins []float64, maxs []float64) ([]float64, error) {
	if len(values) != len(mins) || len(values) != len(maxs) {
		return nil, fmt.Errorf("values/mins/maxs length: %w", ErrShapeMismatch)
	}
	result := make([]float64, len(values))
	for i := range values {
		result[i] = NormalizeFeature(values[i], mins[i], maxs[i])
	}
	return result, nil
}

type scalerFile struct {
	Scaler *scalerSpec `json:"scaler"`
}

type scalerSpec struct {
	Kind    string    `json:"kind"`
	Columns []string  `json:"columns"`
	Mean    []float64 `json:"mean,omitempty"`
	Scale   []float64 `json:"scale,omitempty"`
	DataMin []float64 `json:"data_min,omitempty"`
	DataMax []float64 `json:"data_max,omitempty"`
}

// LoadScaler reads the preprocessing bundle at path and returns its scaler.
// The scaler columns must equal NumericalColumns.
func LoadScaler(path string) (Scaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingArtifactError{Name: "scaler", Path: path}
		}
		return nil, err
	}
	var file scalerFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", path, err)
	}
	if file.Scaler == nil {
		return nil, fmt.Errorf("decode scaler %s: no scaler entry", path)
	}
	return file.Scaler.build()
}

func (s *scalerSpec) build() (Scaler, error) {
	if err := checkColumns(s.Columns); err != nil {
		return nil, err
	}
	switch s.Kind {
	case "", ScalerStandard:
		return NewStandardScaler(s.Columns, s.Mean, s.Scale)
	case ScalerMinMax:
		return NewMinMaxScaler(s.Columns, s.DataMin, s.DataMax)
	default:
		return nil, fmt.Errorf("unsupported scaler kind %q", s.Kind)
	}
}

func checkColumns(columns []string) error {
	want := NumericalColumns()
	if len(columns) != len(want) {
		return fmt.Errorf("scaler has %d columns, want %d: %w", len(columns), len(want), ErrShapeMismatch)
	}
	for i, name := range want {
		if columns[i] != name {
			return fmt.Errorf("scaler column %d is %s, want %s: %w", i, columns[i], name, ErrShapeMismatch)
		}
	}
	return nil
}

// SaveScaler writes s in the format LoadScaler reads.
func SaveScaler(path string, s Scaler) error {
	spec := &scalerSpec{Columns: s.Columns()}
	switch v := s.(type) {
	case *StandardScaler:
		spec.Kind = ScalerStandard
		spec.Mean = v.mean
		spec.Scale = v.scale
	case *MinMaxScaler:
		spec.Kind = ScalerMinMax
		spec.DataMin = v.mins
		spec.DataMax = v.maxs
	default:
		return fmt.Errorf("unsupported scaler type %T", s)
	}
	payload, err := json.MarshalIndent(scalerFile{Scaler: spec}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
