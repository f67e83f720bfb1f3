package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obesitycheck/ml"
	"obesitycheck/ml/mltest"
	"obesitycheck/predictor"
)

type harness struct {
	dir    string
	scaler string
	model  string
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	scaler, model := mltest.WriteArtifacts(t, dir)
	return &harness{dir: dir, scaler: scaler, model: model}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	base := []string{
		"--config", filepath.Join(h.dir, "config.yaml"),
		"--scaler", h.scaler,
		"--model", h.model,
		"--no-color",
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(base, args...))
	err := root.Execute()
	return out.String(), err
}

func TestPredictText(t *testing.T) {
	out, err := newHarness(t).run(t, "", "predict")
	require.NoError(t, err)
	assert.Contains(t, out, "Predicted obesity level: Normal Weight")
	assert.Contains(t, out, "confidence 0.90")
}

func TestPredictJSON(t *testing.T) {
	out, err := newHarness(t).run(t, "", "predict", "--weight", "130", "--gender", "female", "-o", "json")
	require.NoError(t, err)

	var result predictor.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.ClassID)
	assert.Equal(t, "Obesity Type I", result.Label)
	assert.Equal(t, 0.0, result.Features[ml.ColGender])
}

func TestPredictTable(t *testing.T) {
	out, err := newHarness(t).run(t, "", "predict", "--weight", "90", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Overweight Level I")
}

func TestPredictInteractive(t *testing.T) {
	// keep age, pick option 2 (Female), keep height, then 120 kg
	out, err := newHarness(t).run(t, "\n2\n\n120\n", "predict", "-i", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "Age (years)")
	assert.Contains(t, out, "1=Male, 2=Female")

	start := strings.Index(out, "{")
	require.GreaterOrEqual(t, start, 0)
	var result predictor.Result
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &result))
	assert.Equal(t, "Obesity Type I", result.Label)
	assert.Equal(t, 0.0, result.Features[ml.ColGender])
}

func TestPredictErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "predict", "--mtrans", "Rocket")
	assert.ErrorIs(t, err, ml.ErrUnknownCategory)

	_, err = h.run(t, "", "predict", "--age", "abc")
	var verr *predictor.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = h.run(t, "", "predict", "-o", "yaml")
	assert.ErrorContains(t, err, "unknown output format")

	require.NoError(t, os.Remove(h.model))
	_, err = h.run(t, "", "predict")
	assert.ErrorIs(t, err, ml.ErrMissingArtifact)
}

func TestEncodeTable(t *testing.T) {
	out, err := newHarness(t).run(t, "", "encode", "--caec", "always")
	require.NoError(t, err)
	for _, name := range ml.FeatureOrder() {
		assert.Contains(t, out, name)
	}
}

func TestEncodeJSON(t *testing.T) {
	out, err := newHarness(t).run(t, "", "encode", "--caec", "always", "-o", "json")
	require.NoError(t, err)
	var enc predictor.Encoding
	require.NoError(t, json.Unmarshal([]byte(out), &enc))
	assert.Equal(t, 0.0, enc.Encoded[ml.ColCAEC])
	assert.Equal(t, 0.0, enc.Features[ml.ColCAEC])
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	dbPath := filepath.Join(h.dir, "history.db")

	_, err := h.run(t, "", "history")
	assert.ErrorIs(t, err, errNoHistory)

	_, err = h.run(t, "", "--db", dbPath, "predict")
	require.NoError(t, err)
	_, err = h.run(t, "", "--db", dbPath, "predict", "--weight", "150")
	require.NoError(t, err)

	out, err := h.run(t, "", "--db", dbPath, "history", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Obesity Type I")
	assert.NotContains(t, out, "Normal Weight")

	out, err = h.run(t, "", "--db", dbPath, "history", "--stats", "-o", "json")
	require.NoError(t, err)
	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &counts))
	assert.Equal(t, map[string]int{"Normal Weight": 1, "Obesity Type I": 1}, counts)
}

func TestLabels(t *testing.T) {
	out, err := newHarness(t).run(t, "", "labels")
	require.NoError(t, err)
	for _, label := range ml.Labels() {
		assert.Contains(t, out, label)
	}
}

const trainingCSV = `Gender,Age,Height,Weight,family_history_with_overweight,FAVC,FCVC,NCP,CAEC,SMOKE,CH2O,SCC,FAF,TUE,CALC,MTRANS,NObeyesdad
Female,21,1.62,64,yes,no,2,3,Sometimes,no,2,no,0,1,no,Public_Transportation,Normal_Weight
Male,27,1.8,87,no,no,3,3,Sometimes,no,2,no,2,0,Frequently,Walking,Overweight_Level_I
Male,30,1.75,140,yes,yes,2,3,Sometimes,no,2,no,0,1,Sometimes,Automobile,Obesity_Type_I
Female,26.4,1.64,111.9,yes,yes,3,3,Sometimes,no,2.6,no,0,0.4,Sometimes,Public_Transportation,Obesity_Type_I
`

func TestEvaluateAndFitScaler(t *testing.T) {
	h := newHarness(t)
	data := filepath.Join(h.dir, "obesity.csv")
	require.NoError(t, os.WriteFile(data, []byte(trainingCSV), 0o600))

	out, err := h.run(t, "", "evaluate", "--data", data, "-o", "json")
	require.NoError(t, err)
	type summary struct {
		Total     int
		Evaluated int
		Correct   int
		Skipped   int
	}
	var report summary
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, summary{Total: 4, Evaluated: 4, Correct: 4}, report)

	// TUE=0.4 is not a whole number, so the form rejects the last row
	out, err = h.run(t, "", "evaluate", "--data", data, "--strict", "-o", "json")
	require.NoError(t, err)
	report = summary{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, summary{Total: 4, Evaluated: 3, Correct: 3, Skipped: 1}, report)

	fitted := filepath.Join(h.dir, "fitted", mltest.ScalerFile)
	out, err = h.run(t, "", "fit-scaler", "--data", data, "--out", fitted)
	require.NoError(t, err)
	assert.Contains(t, out, "scaler fitted on 4 rows (0 skipped)")

	scaler, err := ml.LoadScaler(fitted)
	require.NoError(t, err)
	assert.Equal(t, ml.NumericalColumns(), scaler.Columns())

	_, err = h.run(t, "", "evaluate")
	assert.Error(t, err)
}
