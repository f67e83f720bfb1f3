package ml

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv is the process-wide ONNX Runtime environment.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXClassifier runs a classifier exported to ONNX (for example with
// skl2onnx, zipmap disabled). The model takes one float input of shape
// [N, 16]; the first output holds int64 labels and an optional second
// output holds [N, classes] probabilities.
type ONNXClassifier struct {
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	inputName   string
	labelName   string
	probaName   string
	probaWidth  int64
	featureSize int64
}

func NewONNXClassifier(modelPath, libPath string) (*ONNXClassifier, error) {
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingArtifactError{Name: "classifier", Path: modelPath}
		}
		return nil, err
	}
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, got %d", len(inputs))
	}
	if dims := inputs[0].Dimensions; len(dims) != 2 || (dims[1] > 0 && dims[1] != FeatureCount) {
		return nil, fmt.Errorf("onnx: expected input shape [N, %d], got %v", FeatureCount, dims)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}

	c := &ONNXClassifier{
		inputName:   inputs[0].Name,
		labelName:   outputs[0].Name,
		featureSize: FeatureCount,
	}
	outputNames := []string{c.labelName}
	if len(outputs) > 1 && outputs[1].OrtValueType == ort.ONNXTypeTensor && len(outputs[1].Dimensions) == 2 {
		c.probaName = outputs[1].Name
		c.probaWidth = outputs[1].Dimensions[1]
		if c.probaWidth <= 0 {
			c.probaWidth = ClassCount
		}
		outputNames = append(outputNames, c.probaName)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("onnx: failed to set thread count: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{c.inputName}, outputNames, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}
	c.session = session
	return c, nil
}

func (c *ONNXClassifier) Predict(features []float64) (int, float64, error) {
	if int64(len(features)) != c.featureSize {
		return 0, 0, fmt.Errorf("onnx: got %d features, want %d: %w", len(features), c.featureSize, ErrShapeMismatch)
	}
	input := make([]float32, len(features))
	for i, v := range features {
		input[i] = float32(v)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tIn, err := ort.NewTensor(ort.NewShape(1, c.featureSize), input)
	if err != nil {
		return 0, 0, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer tIn.Destroy()

	tLabel, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return 0, 0, fmt.Errorf("onnx: failed to create label tensor: %w", err)
	}
	defer tLabel.Destroy()

	outputs := []ort.Value{tLabel}
	var tProba *ort.Tensor[float32]
	if c.probaName != "" {
		tProba, err = ort.NewEmptyTensor[float32](ort.NewShape(1, c.probaWidth))
		if err != nil {
			return 0, 0, fmt.Errorf("onnx: failed to create probability tensor: %w", err)
		}
		defer tProba.Destroy()
		outputs = append(outputs, tProba)
	}

	if err := c.session.Run([]ort.Value{tIn}, outputs); err != nil {
		return 0, 0, fmt.Errorf("onnx: inference failed: %w", err)
	}

	label := int(tLabel.GetData()[0])
	confidence := 1.0
	if tProba != nil {
		proba := tProba.GetData()
		if label >= 0 && label < len(proba) {
			confidence = float64(proba[label])
		}
	}
	return label, confidence, nil
}

func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Destroy()
	c.session = nil
	return err
}
