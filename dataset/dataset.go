// Package dataset reads the labelled obesity survey CSV, fits the scaler
// and scores a classifier against it.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"obesitycheck/ml"
	"obesitycheck/predictor"
)

// LabelColumn holds the obesity category in the published dataset.
const LabelColumn = "NObeyesdad"

// Sample is one labelled survey answer. Form carries the age rounded to
// whole years; Age keeps the value as written.
type Sample struct {
	Line  int
	Form  predictor.Form
	Age   float64
	Label string
}

// Row encodes the sample with its unrounded age. Only the encoding tables
// are checked, not the form's domains.
func (s Sample) Row() (ml.Row, error) {
	row, err := ml.NewPreprocessor(nil).Encode(s.Form.Record())
	if err != nil {
		return nil, err
	}
	row[ml.ColAge] = s.Age
	return row, nil
}

// ReadFile reads the CSV at path.
func ReadFile(path string) ([]Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}

// Read parses a CSV whose header names the sixteen feature columns and,
// optionally, LabelColumn. Column order is free. Categorical values are
// normalized, so "no" and "No" are the same answer.
func Read(r io.Reader) ([]Sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, err
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range ml.FeatureOrder() {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("dataset header lacks column %s", name)
		}
	}

	var samples []Sample
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		sample, err := parseSample(index, record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		sample.Line = line
		samples = append(samples, sample)
	}
	return samples, nil
}

func parseSample(index map[string]int, record []string) (Sample, error) {
	get := func(name string) string { return strings.TrimSpace(record[index[name]]) }
	num := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(get(name), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	var s Sample
	f := &s.Form
	age, err := num(ml.ColAge)
	if err != nil {
		return s, err
	}
	s.Age = age
	f.Age = int(math.Round(age))

	floats := []struct {
		name string
		dst  *float64
	}{
		{ml.ColHeight, &f.Height},
		{ml.ColWeight, &f.Weight},
		{ml.ColFCVC, &f.FCVC},
		{ml.ColNCP, &f.NCP},
		{ml.ColCH2O, &f.CH2O},
		{ml.ColFAF, &f.FAF},
		{ml.ColTUE, &f.TUE},
	}
	for _, c := range floats {
		if *c.dst, err = num(c.name); err != nil {
			return s, err
		}
	}

	f.Gender = get(ml.ColGender)
	f.FamilyHistory = get(ml.ColFamilyHistory)
	f.FAVC = get(ml.ColFAVC)
	f.CAEC = get(ml.ColCAEC)
	f.SMOKE = get(ml.ColSMOKE)
	f.SCC = get(ml.ColSCC)
	f.CALC = get(ml.ColCALC)
	f.MTRANS = get(ml.ColMTRANS)
	s.Form = predictor.Normalize(*f)

	if i, ok := index[LabelColumn]; ok {
		s.Label = strings.TrimSpace(record[i])
	}
	return s, nil
}

// LabelID resolves a dataset label such as "Overweight_Level_I".
func LabelID(label string) (int, bool) {
	return ml.LabelID(strings.ReplaceAll(label, "_", " "))
}

// FitScaler fits a standard scaler on the encoded numerical columns. Rows
// with a value outside the encoding tables are skipped and counted.
func FitScaler(samples []Sample) (*ml.StandardScaler, int, error) {
	columns := ml.NumericalColumns()
	rows := make([][]float64, 0, len(samples))
	skipped := 0
	for _, s := range samples {
		encoded, err := s.Row()
		if err != nil {
			skipped++
			continue
		}
		row := make([]float64, len(columns))
		for i, name := range columns {
			row[i] = encoded[name]
		}
		rows = append(rows, row)
	}
	scaler, err := ml.FitStandardScaler(columns, rows)
	return scaler, skipped, err
}
