package inference

import (
	"context"
	"fmt"

	uap "github.com/jamesainslie/go-uap"
)

// Generator is a uap.Generator backed by an exported ONNX proposal model.
// It is safe for concurrent use.
type Generator struct {
	pool *Pool
}

var _ uap.Generator = (*Generator)(nil)

// NewGenerator loads modelPath into a pool of poolSize sessions.
func NewGenerator(modelPath string, poolSize, intraOpThreads int) (*Generator, error) {
	pool, err := NewPool(modelPath, poolSize, intraOpThreads)
	if err != nil {
		return nil, err
	}
	return &Generator{pool: pool}, nil
}

// Generate runs the model on one video's features.
func (g *Generator) Generate(ctx context.Context, features [][]float32, p uap.Params) ([]uap.Segment, []float64, error) {
	flat, dim, err := flatten(features)
	if err != nil {
		return nil, nil, err
	}
	if len(features) == 0 {
		return nil, nil, nil
	}

	s, err := g.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer g.pool.Release(s)

	out, err := s.Infer(ctx, flat, len(features), dim, packParams(p))
	if err != nil {
		return nil, nil, err
	}
	return decodeOutput(out)
}

// Close releases the session pool.
func (g *Generator) Close() error {
	return g.pool.Close()
}

func flatten(features [][]float32) ([]float32, int, error) {
	if len(features) == 0 {
		return nil, 0, nil
	}
	dim := len(features[0])
	flat := make([]float32, 0, len(features)*dim)
	for i, row := range features {
		if len(row) != dim {
			return nil, 0, fmt.Errorf("%w: row %d has %d values, want %d", ErrRaggedFeatures, i, len(row), dim)
		}
		flat = append(flat, row...)
	}
	return flat, dim, nil
}

func packParams(p uap.Params) [5]float32 {
	return [5]float32{
		float32(p.InitN),
		float32(p.N),
		float32(p.C),
		float32(p.ErrThreshold),
		float32(p.RPThreshold),
	}
}

func decodeOutput(out Output) ([]uap.Segment, []float64, error) {
	if len(out.Proposals)%2 != 0 || len(out.Proposals)/2 != len(out.Scores) {
		return nil, nil, fmt.Errorf("%w: %d proposal values, %d scores", uap.ErrInvalidProposals, len(out.Proposals), len(out.Scores))
	}

	segs := make([]uap.Segment, len(out.Scores))
	scores := make([]float64, len(out.Scores))
	for i := range segs {
		segs[i] = uap.Segment{
			Start: float64(out.Proposals[2*i]),
			End:   float64(out.Proposals[2*i+1]),
		}
		scores[i] = float64(out.Scores[i])
	}
	return segs, scores, nil
}
