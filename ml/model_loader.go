package ml

import (
	"fmt"
)

const (
	ModelRandomForest = "random_forest"
	ModelDecisionTree = "decision_tree"
	ModelONNX         = "onnx"
)

// LoadOptions carries backend specific settings.
type LoadOptions struct {
	// ONNXLibraryPath points at libonnxruntime; empty uses the runtime default.
	ONNXLibraryPath string
}

func LoadModel(modelType, path string, opts LoadOptions) (Classifier, error) {
	switch modelType {
	case "", ModelRandomForest:
		model := &RandomForest{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	case ModelDecisionTree:
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	case ModelONNX:
		model, err := NewONNXClassifier(path, opts.ONNXLibraryPath)
		if err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}
