package inference

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uap "github.com/jamesainslie/go-uap"
)

const testModelPath = "../testdata/svc_rp.onnx"

func TestGenerator_Generate(t *testing.T) {
	pool, made := fakePool(t, 1)
	made[0].out = Output{
		Proposals: []float32{0, 10, 4, 8},
		Scores:    []float32{0.5, 0.25},
	}
	gen := &Generator{pool: pool}
	defer func() { _ = gen.Close() }()

	segs, scores, err := gen.Generate(context.Background(), [][]float32{{1, 2}, {3, 4}}, uap.Params{InitN: 256, N: 128, C: 0.5, ErrThreshold: 0.25, RPThreshold: 0.75})
	require.NoError(t, err)
	assert.Equal(t, []uap.Segment{{Start: 0, End: 10}, {Start: 4, End: 8}}, segs)
	assert.Equal(t, []float64{0.5, 0.25}, scores)
	assert.Equal(t, [5]float32{256, 128, 0.5, 0.25, 0.75}, made[0].last)
}

func TestGenerator_EmptyFeatures(t *testing.T) {
	pool, made := fakePool(t, 1)
	gen := &Generator{pool: pool}
	defer func() { _ = gen.Close() }()

	segs, scores, err := gen.Generate(context.Background(), nil, uap.Params{})
	require.NoError(t, err)
	assert.Empty(t, segs)
	assert.Empty(t, scores)
	assert.Zero(t, made[0].calls.Load())
}

func TestGenerator_RaggedFeatures(t *testing.T) {
	pool, _ := fakePool(t, 1)
	gen := &Generator{pool: pool}
	defer func() { _ = gen.Close() }()

	_, _, err := gen.Generate(context.Background(), [][]float32{{1, 2}, {3}}, uap.Params{})
	assert.ErrorIs(t, err, ErrRaggedFeatures)
}

func TestDecodeOutput_Mismatch(t *testing.T) {
	tests := []Output{
		{Proposals: []float32{0, 1, 2}, Scores: []float32{1}},
		{Proposals: []float32{0, 1}, Scores: []float32{1, 2}},
	}
	for _, out := range tests {
		_, _, err := decodeOutput(out)
		assert.ErrorIs(t, err, uap.ErrInvalidProposals)
	}
}

func TestNewGenerator_Model(t *testing.T) {
	if _, err := os.Stat(testModelPath); err != nil {
		t.Skipf("Skipping: model not available at %s", testModelPath)
	}

	gen, err := NewGenerator(testModelPath, 1, 1)
	if err != nil {
		if isORTUnavailableError(err) {
			t.Skipf("Skipping: ONNX runtime not available: %v", err)
		}
		t.Fatalf("NewGenerator failed: %v", err)
	}
	defer func() { _ = gen.Close() }()

	features := make([][]float32, 64)
	for i := range features {
		features[i] = make([]float32, 500)
	}
	segs, scores, err := gen.Generate(context.Background(), features, uap.Params{InitN: 16, N: 16, C: 0.019306, ErrThreshold: 0.2, RPThreshold: 0.8})
	require.NoError(t, err)
	assert.Len(t, scores, len(segs))
}

// isORTUnavailableError checks if the error indicates ONNX runtime is not available.
func isORTUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "onnxruntime") ||
		strings.Contains(errStr, "shared library") ||
		strings.Contains(errStr, "dylib") ||
		strings.Contains(errStr, ".so") ||
		strings.Contains(errStr, ".dll") ||
		strings.Contains(errStr, "cannot open") ||
		strings.Contains(errStr, "initializing ONNX runtime")
}
