package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// RandomForest averages the class distributions of its trees and predicts
// the most probable class. Ties go to the lowest class id.
type RandomForest struct {
	trees    []*DecisionTree
	nClasses int
}

type forestFile struct {
	NClasses int          `json:"n_classes"`
	Trees    [][]TreeNode `json:"trees"`
}

func NewRandomForest(trees []*DecisionTree, nClasses int) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	if nClasses <= 0 || nClasses > ClassCount {
		nClasses = ClassCount
	}
	for i, tree := range trees {
		if err := tree.checkClasses(nClasses); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &RandomForest{trees: trees, nClasses: nClasses}, nil
}

func (f *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, errors.New("model not loaded")
	}
	avg := make([]float64, f.nClasses)
	for i, tree := range f.trees {
		leaf, err := tree.leaf(features)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		for class, p := range leafDistribution(leaf, f.nClasses) {
			avg[class] += p
		}
	}
	for class := range avg {
		avg[class] /= float64(len(f.trees))
	}
	return avg, nil
}

func (f *RandomForest) Predict(features []float64) (int, float64, error) {
	proba, err := f.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	best := 0
	for class := 1; class < len(proba); class++ {
		if proba[class] > proba[best] {
			best = class
		}
	}
	return best, proba[best], nil
}

func (f *RandomForest) Size() int {
	return len(f.trees)
}

func (f *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &MissingArtifactError{Name: "classifier", Path: path}
		}
		return err
	}
	var file forestFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return fmt.Errorf("decode forest %s: %w", path, err)
	}
	trees := make([]*DecisionTree, 0, len(file.Trees))
	for i, nodes := range file.Trees {
		tree, err := NewDecisionTree(nodes)
		if err != nil {
			return fmt.Errorf("forest %s tree %d: %w", path, i, err)
		}
		trees = append(trees, tree)
	}
	loaded, err := NewRandomForest(trees, file.NClasses)
	if err != nil {
		return fmt.Errorf("forest %s: %w", path, err)
	}
	*f = *loaded
	return nil
}

func (f *RandomForest) Save(path string) error {
	if len(f.trees) == 0 {
		return errors.New("model not loaded")
	}
	file := forestFile{NClasses: f.nClasses, Trees: make([][]TreeNode, len(f.trees))}
	for i, tree := range f.trees {
		file.Trees[i] = tree.nodes
	}
	payload, err := json.Marshal(file)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
