// Package mltest writes small artifact files for tests.
package mltest

import (
	"path/filepath"
	"testing"

	"obesitycheck/ml"
)

const (
	ScalerFile = "preprocessing_objects.json"
	ModelFile  = "random_forest_obesity_model.json"
)

// Record is the sample answer set shown as the form default.
func Record() ml.Record {
	return ml.Record{
		Age:           25,
		Gender:        "Male",
		Height:        1.75,
		Weight:        70.0,
		FamilyHistory: "Yes",
		FAVC:          "Yes",
		FCVC:          2.0,
		NCP:           3.0,
		CAEC:          "Sometimes",
		SMOKE:         "No",
		CH2O:          2.0,
		SCC:           "No",
		FAF:           1.0,
		TUE:           1.0,
		CALC:          "Sometimes",
		MTRANS:        "Public_Transportation",
	}
}

// Scaler is a standard scaler with roughly the statistics of the public
// obesity levels dataset.
func Scaler() *ml.StandardScaler {
	s, err := ml.NewStandardScaler(ml.NumericalColumns(),
		[]float64{24.3, 1.70, 86.6, 0.82, 0.88, 2.42, 2.69, 0.02, 2.01, 0.045, 1.01, 0.66},
		[]float64{6.3, 0.093, 26.2, 0.38, 0.32, 0.53, 0.78, 0.14, 0.61, 0.21, 0.85, 0.61},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// Forest classifies on scaled weight alone: at most 73.5 kg is Normal
// Weight, at most 99.7 kg is Overweight Level I, anything heavier is
// Obesity Type I.
func Forest() *ml.RandomForest {
	tree, err := ml.NewDecisionTree([]ml.TreeNode{
		{FeatureIdx: 3, Threshold: -0.5, LeftChild: 1, RightChild: 2},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 0, IsLeaf: true, Value: []float64{9, 1, 0, 0, 0, 0, 0}},
		{FeatureIdx: 3, Threshold: 0.5, LeftChild: 3, RightChild: 4},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 5, IsLeaf: true},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, ClassLabel: 2, IsLeaf: true},
	})
	if err != nil {
		panic(err)
	}
	forest, err := ml.NewRandomForest([]*ml.DecisionTree{tree}, ml.ClassCount)
	if err != nil {
		panic(err)
	}
	return forest
}

// WriteScaler writes the scaler bundle into dir and returns its path.
func WriteScaler(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, ScalerFile)
	if err := ml.SaveScaler(path, Scaler()); err != nil {
		t.Fatalf("write scaler: %v", err)
	}
	return path
}

// WriteModel writes the forest into dir and returns its path.
func WriteModel(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, ModelFile)
	if err := Forest().Save(path); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

// WriteArtifacts writes both artifacts into dir.
func WriteArtifacts(t testing.TB, dir string) (scalerPath, modelPath string) {
	t.Helper()
	return WriteScaler(t, dir), WriteModel(t, dir)
}
