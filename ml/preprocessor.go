package ml

import (
	"fmt"
)

// Preprocessor turns raw records into classifier input. The scaler was fit
// on encoded values, so encoding always runs before scaling.
type Preprocessor struct {
	scaler Scaler
}

func NewPreprocessor(scaler Scaler) *Preprocessor {
	return &Preprocessor{scaler: scaler}
}

// Encode wraps the record as a row and replaces every categorical value
// with its code. Nothing is scaled.
func (p *Preprocessor) Encode(record Record) (Row, error) {
	row := Row{
		ColAge:    float64(record.Age),
		ColHeight: record.Height,
		ColWeight: record.Weight,
		ColFCVC:   record.FCVC,
		ColNCP:    record.NCP,
		ColCH2O:   record.CH2O,
		ColFAF:    record.FAF,
		ColTUE:    record.TUE,
	}

	categorical := []struct {
		column string
		value  string
		table  CodeTable
	}{
		{ColGender, record.Gender, GenderCodes},
		{ColCAEC, record.CAEC, SnackCodes},
		{ColCALC, record.CALC, AlcoholCodes},
		{ColMTRANS, record.MTRANS, TransportCodes},
		{ColFamilyHistory, record.FamilyHistory, YesNoCodes},
		{ColFAVC, record.FAVC, YesNoCodes},
		{ColSMOKE, record.SMOKE, YesNoCodes},
		{ColSCC, record.SCC, YesNoCodes},
	}
	for _, c := range categorical {
		code, err := c.table.Encode(c.column, c.value)
		if err != nil {
			return nil, err
		}
		row[c.column] = float64(code)
	}
	return row, nil
}

// Prepare encodes the record, scales the numerical columns and returns the
// row in FeatureOrder.
func (p *Preprocessor) Prepare(record Record) (FeatureVector, error) {
	if p == nil || p.scaler == nil {
		return FeatureVector{}, &MissingArtifactError{Name: "scaler"}
	}
	row, err := p.Encode(record)
	if err != nil {
		return FeatureVector{}, err
	}
	return p.Scale(row)
}

// Scale scales the numerical columns of an encoded row and returns it in
// FeatureOrder. The row is not modified.
func (p *Preprocessor) Scale(row Row) (FeatureVector, error) {
	if p == nil || p.scaler == nil {
		return FeatureVector{}, &MissingArtifactError{Name: "scaler"}
	}

	numeric := NumericalColumns()
	selected := make([]float64, len(numeric))
	for i, name := range numeric {
		selected[i] = row[name]
	}
	scaled, err := p.scaler.Transform([][]float64{selected})
	if err != nil {
		return FeatureVector{}, fmt.Errorf("scale: %w", err)
	}
	if len(scaled) != 1 || len(scaled[0]) != len(numeric) {
		return FeatureVector{}, fmt.Errorf("scaler returned %d rows: %w", len(scaled), ErrShapeMismatch)
	}
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	for i, name := range numeric {
		out[name] = scaled[0][i]
	}
	return NewFeatureVector(out)
}
