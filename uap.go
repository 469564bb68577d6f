package uap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Params are the hyperparameters handed to a Generator for one grid point.
type Params struct {
	InitN        int     // samples taken when starting a proposal
	N            int     // samples added while growing a proposal
	C            float64 // linear SVM regularization constant
	ErrThreshold float64 // classification error rate threshold
	RPThreshold  float64 // rank-pooling threshold
}

// Generator produces frame-index proposals and their scores for one video.
// The two returned slices must have the same length.
type Generator interface {
	Generate(ctx context.Context, features [][]float32, p Params) ([]Segment, []float64, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, features [][]float32, p Params) ([]Segment, []float64, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, features [][]float32, p Params) ([]Segment, []float64, error) {
	return f(ctx, features, p)
}

// FeatureSource returns per-frame feature vectors and the frame rate of a video.
type FeatureSource interface {
	Features(ctx context.Context, videoID string) ([][]float32, float64, error)
}

// FeatureSourceFunc adapts a function to the FeatureSource interface.
type FeatureSourceFunc func(ctx context.Context, videoID string) ([][]float32, float64, error)

// Features calls f.
func (f FeatureSourceFunc) Features(ctx context.Context, videoID string) ([][]float32, float64, error) {
	return f(ctx, videoID)
}

// Aggregator runs a Generator over a list of videos and collects the
// time-aligned proposals into a ResultSet.
type Aggregator struct {
	gen    Generator
	src    FeatureSource
	conv   Convention
	logger *slog.Logger
}

// NewAggregator creates an Aggregator using conv for frame-to-time conversion.
func NewAggregator(gen Generator, src FeatureSource, conv Convention, opts ...Option) *Aggregator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Aggregator{
		gen:    gen,
		src:    src,
		conv:   conv,
		logger: cfg.logger,
	}
}

// Run processes videoIDs in the given order. After each video a progress
// line is written to progress. Any failure aborts the run with a *VideoError.
func (a *Aggregator) Run(ctx context.Context, videoIDs []string, p Params, progress io.Writer) (*ResultSet, error) {
	rs := NewResultSet()

	for idx, vid := range videoIDs {
		if err := ctx.Err(); err != nil {
			return nil, &VideoError{Index: idx, VideoID: vid, Err: err}
		}
		a.logger.Debug("processing video", "index", idx, "total", len(videoIDs), "video", vid)

		props, err := a.video(ctx, vid, p)
		if err != nil {
			return nil, &VideoError{Index: idx, VideoID: vid, Err: err}
		}
		rs.Results[vid] = props

		// The last video is logged as a count with the done flag set.
		done := idx == len(videoIDs)-1
		n := idx
		if done {
			n = idx + 1
		}
		if err := WriteProgress(progress, n, vid, len(props), done); err != nil {
			return nil, &VideoError{Index: idx, VideoID: vid, Err: fmt.Errorf("writing progress: %w", err)}
		}
	}

	a.logger.Info("aggregation finished", "videos", len(videoIDs), "proposals", rs.NumProposals())
	return rs, nil
}

func (a *Aggregator) video(ctx context.Context, vid string, p Params) ([]Proposal, error) {
	features, fps, err := a.src.Features(ctx, vid)
	if err != nil {
		return nil, fmt.Errorf("loading features: %w", err)
	}

	frames, scores, err := a.gen.Generate(ctx, features, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneratorFailed, err)
	}
	if len(frames) != len(scores) {
		return nil, fmt.Errorf("%w: %d segments, %d scores", ErrInvalidProposals, len(frames), len(scores))
	}

	times, err := a.conv.ToTime(frames, fps)
	if err != nil {
		return nil, err
	}

	props := make([]Proposal, len(times))
	for i, seg := range times {
		props[i] = Proposal{Score: scores[i], Segment: seg}
	}
	return props, nil
}

// WriteProgress appends one aggregation progress line:
// index, video id, proposal count and done flag (0 or 1), tab separated.
func WriteProgress(w io.Writer, index int, videoID string, numProposals int, done bool) error {
	flag := 0
	if done {
		flag = 1
	}
	_, err := fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", index, videoID, numProposals, flag)
	return err
}
