package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// DecisionTree is a fitted tree stored as a flat node array. Node 0 is the
// root; a sample goes left when features[FeatureIdx] <= Threshold.
type DecisionTree struct {
	nodes []TreeNode
}

type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	ClassLabel int       `json:"class_label"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value,omitempty"`
}

func NewDecisionTree(nodes []TreeNode) (*DecisionTree, error) {
	if err := validateNodes(nodes); err != nil {
		return nil, err
	}
	return &DecisionTree{nodes: nodes}, nil
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, 0, err
	}
	return leaf.ClassLabel, leafConfidence(leaf), nil
}

// PredictProba returns the leaf class distribution, normalised to sum to 1.
// Leaves without counts put all mass on their label.
func (dt *DecisionTree) PredictProba(features []float64) ([]float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return nil, err
	}
	return leafDistribution(leaf, ClassCount), nil
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, errors.New("model not loaded")
	}
	idx := 0
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
	return TreeNode{}, errors.New("tree contains a cycle")
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.nodes) == 0 {
		return errors.New("model not loaded")
	}
	payload, err := json.Marshal(dt.nodes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &MissingArtifactError{Name: "classifier", Path: path}
		}
		return err
	}
	var nodes []TreeNode
	if err := json.Unmarshal(payload, &nodes); err != nil {
		return fmt.Errorf("decode tree %s: %w", path, err)
	}
	if err := validateNodes(nodes); err != nil {
		return fmt.Errorf("tree %s: %w", path, err)
	}
	dt.nodes = nodes
	return nil
}

func validateNodes(nodes []TreeNode) error {
	if len(nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if node.ClassLabel < 0 || node.ClassLabel >= ClassCount {
				return fmt.Errorf("node %d: class %d: %w", i, node.ClassLabel, ErrUnknownLabel)
			}
			if len(node.Value) > ClassCount {
				return fmt.Errorf("node %d: %d class counts for %d classes", i, len(node.Value), ClassCount)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= FeatureCount {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

// checkClasses rejects leaves that name a class outside the first n.
func (dt *DecisionTree) checkClasses(n int) error {
	if dt == nil {
		return errors.New("nil tree")
	}
	for i, node := range dt.nodes {
		if !node.IsLeaf {
			continue
		}
		if node.ClassLabel >= n {
			return fmt.Errorf("node %d: class %d outside %d classes: %w", i, node.ClassLabel, n, ErrUnknownLabel)
		}
		if len(node.Value) > n {
			return fmt.Errorf("node %d: %d class counts for %d classes", i, len(node.Value), n)
		}
	}
	return nil
}

func leafDistribution(leaf TreeNode, classes int) []float64 {
	dist := make([]float64, classes)
	total := 0.0
	for i, count := range leaf.Value {
		if i < classes {
			total += count
		}
	}
	if total <= 0 {
		dist[leaf.ClassLabel] = 1
		return dist
	}
	for i, count := range leaf.Value {
		if i < classes {
			dist[i] = count / total
		}
	}
	return dist
}

func leafConfidence(leaf TreeNode) float64 {
	return leafDistribution(leaf, ClassCount)[leaf.ClassLabel]
}
