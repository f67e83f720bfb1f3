package ml

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ColGender        = "Gender"
	ColAge           = "Age"
	ColHeight        = "Height"
	ColWeight        = "Weight"
	ColFamilyHistory = "family_history_with_overweight"
	ColFAVC          = "FAVC"
	ColFCVC          = "FCVC"
	ColNCP           = "NCP"
	ColCAEC          = "CAEC"
	ColSMOKE         = "SMOKE"
	ColCH2O          = "CH2O"
	ColSCC           = "SCC"
	ColFAF           = "FAF"
	ColTUE           = "TUE"
	ColCALC          = "CALC"
	ColMTRANS        = "MTRANS"
)

// FeatureCount is the width of the classifier input.
const FeatureCount = 16

// Record is one raw answer set from the form.
type Record struct {
	Age           int     `json:"Age"`
	Gender        string  `json:"Gender"`
	Height        float64 `json:"Height"`
	Weight        float64 `json:"Weight"`
	FamilyHistory string  `json:"family_history_with_overweight"`
	FAVC          string  `json:"FAVC"`
	FCVC          float64 `json:"FCVC"`
	NCP           float64 `json:"NCP"`
	CAEC          string  `json:"CAEC"`
	SMOKE         string  `json:"SMOKE"`
	CH2O          float64 `json:"CH2O"`
	SCC           string  `json:"SCC"`
	FAF           float64 `json:"FAF"`
	TUE           float64 `json:"TUE"`
	CALC          string  `json:"CALC"`
	MTRANS        string  `json:"MTRANS"`
}

// Key is a stable identity for the record, used for caching.
func (r Record) Key() string {
	parts := []string{
		strconv.Itoa(r.Age),
		r.Gender,
		strconv.FormatFloat(r.Height, 'g', -1, 64),
		strconv.FormatFloat(r.Weight, 'g', -1, 64),
		r.FamilyHistory,
		r.FAVC,
		strconv.FormatFloat(r.FCVC, 'g', -1, 64),
		strconv.FormatFloat(r.NCP, 'g', -1, 64),
		r.CAEC,
		r.SMOKE,
		strconv.FormatFloat(r.CH2O, 'g', -1, 64),
		r.SCC,
		strconv.FormatFloat(r.FAF, 'g', -1, 64),
		strconv.FormatFloat(r.TUE, 'g', -1, 64),
		r.CALC,
		r.MTRANS,
	}
	return strings.Join(parts, "|")
}

// FeatureOrder is the column sequence the classifier was trained on.
func FeatureOrder() []string {
	return []string{
		ColGender,
		ColAge,
		ColHeight,
		ColWeight,
		ColFamilyHistory,
		ColFAVC,
		ColFCVC,
		ColNCP,
		ColCAEC,
		ColSMOKE,
		ColCH2O,
		ColSCC,
		ColFAF,
		ColTUE,
		ColCALC,
		ColMTRANS,
	}
}

// NumericalColumns are the columns passed through the scaler, in the order
// the scaler was fit on. The encoded yes/no columns are included.
func NumericalColumns() []string {
	return []string{
		ColAge,
		ColHeight,
		ColWeight,
		ColFamilyHistory,
		ColFAVC,
		ColFCVC,
		ColNCP,
		ColSMOKE,
		ColCH2O,
		ColSCC,
		ColFAF,
		ColTUE,
	}
}

// Row is a single table row keyed by column name.
type Row map[string]float64

// FeatureVector is a prepared classifier input in FeatureOrder.
type FeatureVector [FeatureCount]float64

// NewFeatureVector reorders row into FeatureOrder. Every column must be present.
func NewFeatureVector(row Row) (FeatureVector, error) {
	var v FeatureVector
	for i, name := range FeatureOrder() {
		value, ok := row[name]
		if !ok {
			return v, fmt.Errorf("column %s: %w", name, ErrShapeMismatch)
		}
		v[i] = value
	}
	return v, nil
}

func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, v[:])
	return out
}

// Get returns the value of the named column.
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, col := range FeatureOrder() {
		if col == name {
			return v[i], true
		}
	}
	return 0, false
}

func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, FeatureCount)
	for i, col := range FeatureOrder() {
		m[col] = v[i]
	}
	return m
}
