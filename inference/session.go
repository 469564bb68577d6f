// Package inference runs exported proposal models with ONNX Runtime.
package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Tensor names of the exported proposal model.
const (
	inputFeatures   = "features"  // float32 [1, T, D]
	inputParams     = "params"    // float32 [1, 5]
	outputProposals = "proposals" // float32 [N, 2], frame indices
	outputScores    = "scores"    // float32 [N]
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes ONNX Runtime environment once.
func initORT() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Output is the raw model output for one video.
type Output struct {
	Proposals []float32 // row-major [N, 2]
	Scores    []float32
}

// runner is the part of a Session the pool and generator depend on.
type runner interface {
	Infer(ctx context.Context, features []float32, frames, dim int, params [5]float32) (Output, error)
	Close() error
}

// Session wraps an ONNX Runtime session for proposal inference.
type Session struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
	closed  bool
}

// NewSession creates a new ONNX session from a model file.
func NewSession(modelPath string, intraOpThreads int) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	if intraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(intraOpThreads); err != nil {
			return nil, fmt.Errorf("setting intra-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputFeatures, inputParams},
		[]string{outputProposals, outputScores},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session}, nil
}

// Infer runs the model on a row-major [frames, dim] feature matrix.
func (s *Session) Infer(ctx context.Context, features []float32, frames, dim int, params [5]float32) (Output, error) {
	select {
	case <-ctx.Done():
		return Output{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Output{}, ErrSessionClosed
	}

	featTensor, err := ort.NewTensor(ort.NewShape(1, int64(frames), int64(dim)), features)
	if err != nil {
		return Output{}, fmt.Errorf("creating features tensor: %w", err)
	}
	defer func() { _ = featTensor.Destroy() }()

	paramTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(params))), params[:])
	if err != nil {
		return Output{}, fmt.Errorf("creating params tensor: %w", err)
	}
	defer func() { _ = paramTensor.Destroy() }()

	// nil outputs are allocated by Run, the proposal count is data dependent.
	outputs := []ort.Value{nil, nil}
	if err := s.session.Run([]ort.Value{featTensor, paramTensor}, outputs); err != nil {
		return Output{}, fmt.Errorf("running inference: %w", err)
	}
	for _, o := range outputs {
		if o != nil {
			defer func(v ort.Value) { _ = v.Destroy() }(o)
		}
	}

	props, err := float32Data(outputs[0], outputProposals)
	if err != nil {
		return Output{}, err
	}
	scores, err := float32Data(outputs[1], outputScores)
	if err != nil {
		return Output{}, err
	}

	return Output{Proposals: props, Scores: scores}, nil
}

// float32Data copies the contents of a float32 output tensor.
func float32Data(v ort.Value, name string) ([]float32, error) {
	if v == nil {
		return nil, fmt.Errorf("no %s output produced", name)
	}
	t, ok := v.(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected %s tensor type", name)
	}
	data := t.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
