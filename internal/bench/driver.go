package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	uap "github.com/jamesainslie/go-uap"
	"github.com/jamesainslie/go-uap/internal/dataset"
	"github.com/jamesainslie/go-uap/internal/resultstore"
)

// ErrResultMissing indicates a grid point has no ResultSet file to score.
var ErrResultMissing = errors.New("bench: result file missing")

// SkipError reports a grid point that was skipped without failing the sweep.
type SkipError struct {
	Point GridPoint
	Path  string
	Err   error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped %s: %v", e.Path, e.Err)
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// DriverConfig holds everything a sweep needs besides its collaborators.
type DriverConfig struct {
	Dataset    string
	Subset     string
	Convention uap.Convention
	InitN      int
	N          int
	BaseC      float64

	ResultDir    string
	LogDir       string
	CurveDir     string
	ProgressName string // progress log base name, "_part_<n>" is appended
	ScoreName    string // score log base name, "_part_<n>.txt" is appended
	Format       resultstore.Format

	// Generate runs the aggregator for each grid point. When false only
	// existing ResultSet files are scored.
	Generate bool
	Eval     EvalConfig
}

// Summary counts the outcomes of a partition run.
type Summary struct {
	Partition int
	Points    int
	Scored    int
	Skipped   int
}

// Driver runs grid-search partitions. The ground truth is shared read-only
// between partitions.
type Driver struct {
	cfg    DriverConfig
	truth  *dataset.Dataset
	index  Index
	gen    uap.Generator
	src    uap.FeatureSource
	logger *slog.Logger
	out    io.Writer
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithDriverLogger sets the logger (default: slog.Default()).
func WithDriverLogger(l *slog.Logger) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithOutput sets where skip diagnostics are printed (default: os.Stdout).
func WithOutput(w io.Writer) DriverOption {
	return func(d *Driver) {
		if w != nil {
			d.out = w
		}
	}
}

// NewDriver creates a Driver. truth is the evaluation ground truth used for
// AR-AN; index is the annotation ground truth used for tIoU scoring. gen and
// src may be nil when cfg.Generate is false.
func NewDriver(cfg DriverConfig, truth *dataset.Dataset, index Index, gen uap.Generator, src uap.FeatureSource, opts ...DriverOption) (*Driver, error) {
	if truth == nil || index == nil {
		return nil, errors.New("bench: driver needs both ground truths")
	}
	if cfg.Generate && (gen == nil || src == nil) {
		return nil, errors.New("bench: generation needs a generator and a feature source")
	}
	if cfg.Format == "" {
		cfg.Format = resultstore.JSON
	}
	if len(cfg.Eval.TIoUThresholds) == 0 {
		cfg.Eval = DefaultEvalConfig()
	}

	d := &Driver{
		cfg:    cfg,
		truth:  truth,
		index:  index,
		gen:    gen,
		src:    src,
		logger: slog.Default(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.out = &lockedWriter{w: d.out}
	return d, nil
}

// ResultPath returns the ResultSet file of a grid point.
func (d *Driver) ResultPath(gp GridPoint) string {
	return filepath.Join(d.cfg.ResultDir, ResultName(d.cfg.Dataset, d.cfg.Subset, gp, d.cfg.Format.Ext()))
}

// ProgressPath returns the aggregation progress log of a partition.
func (d *Driver) ProgressPath(partition int) string {
	return filepath.Join(d.cfg.LogDir, fmt.Sprintf("%s_part_%d", d.cfg.ProgressName, partition))
}

// ScorePath returns the score log of a partition.
func (d *Driver) ScorePath(partition int) string {
	return filepath.Join(d.cfg.LogDir, fmt.Sprintf("%s_part_%d.txt", d.cfg.ScoreName, partition))
}

// CurvePath returns where the AR-AN curve of a result file is written.
func (d *Driver) CurvePath(resultPath string) string {
	base := strings.TrimSuffix(filepath.Base(resultPath), filepath.Ext(resultPath))
	return filepath.Join(d.cfg.CurveDir, base+"_ar-an.tsv")
}

// EnsureDirs creates the output directories. It is idempotent.
func (d *Driver) EnsureDirs() error {
	for _, dir := range []string{d.cfg.ResultDir, d.cfg.LogDir, d.cfg.CurveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// RunPartitions runs several partitions side by side. They share no
// mutable state: each writes its own logs and result files.
func (d *Driver) RunPartitions(ctx context.Context, partitions []int) ([]Summary, error) {
	if err := d.EnsureDirs(); err != nil {
		return nil, err
	}

	summaries := make([]Summary, len(partitions))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range partitions {
		g.Go(func() error {
			s, err := d.RunPartition(ctx, p)
			summaries[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return summaries, err
	}
	return summaries, nil
}

// RunPartition sweeps every grid point of one partition, appending one
// ScoreRecord per scored point. Skipped points are reported and the sweep
// continues; any other error stops the partition.
func (d *Driver) RunPartition(ctx context.Context, partition int) (Summary, error) {
	points, err := Grid(partition, d.cfg.BaseC)
	if err != nil {
		return Summary{}, err
	}
	if err := d.EnsureDirs(); err != nil {
		return Summary{}, err
	}

	summary := Summary{Partition: partition, Points: len(points)}
	progressPath := d.ProgressPath(partition)
	scorePath := d.ScorePath(partition)
	logger := d.logger.With("partition", partition)

	for i, gp := range points {
		logger.Info("grid point", "index", i, "total", len(points),
			"rpth", gp.RPThreshold, "th", gp.ErrThreshold, "c", gp.C)

		rec, err := d.RunPoint(ctx, gp, progressPath)
		var skip *SkipError
		if errors.As(err, &skip) {
			summary.Skipped++
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("partition %d, %s: %w", partition, d.ResultPath(gp), err)
		}

		if err := AppendScore(scorePath, rec); err != nil {
			return summary, err
		}
		summary.Scored++
	}

	logger.Info("partition finished", "scored", summary.Scored, "skipped", summary.Skipped)
	return summary, nil
}

// RunPoint generates (when enabled) and scores one grid point.
// A missing ResultSet file yields a *SkipError.
func (d *Driver) RunPoint(ctx context.Context, gp GridPoint, progressPath string) (ScoreRecord, error) {
	resultPath := d.ResultPath(gp)

	if d.cfg.Generate {
		if err := d.generate(ctx, gp, resultPath, progressPath); err != nil {
			return ScoreRecord{}, err
		}
	}

	if !resultstore.Exists(resultPath) {
		fmt.Fprintf(d.out, "%s: No such file or directory.\n", resultPath)
		d.logger.Warn("skipping grid point", "result", resultPath)
		return ScoreRecord{}, &SkipError{Point: gp, Path: resultPath, Err: ErrResultMissing}
	}

	rec, curve, err := d.Score(resultPath)
	if err != nil {
		return ScoreRecord{}, err
	}
	if d.cfg.CurveDir != "" {
		if err := writeCurveFile(d.CurvePath(resultPath), curve); err != nil {
			return ScoreRecord{}, err
		}
	}
	return rec, nil
}

func (d *Driver) generate(ctx context.Context, gp GridPoint, resultPath, progressPath string) error {
	progress, err := os.OpenFile(progressPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open progress log: %w", err)
	}
	defer func() { _ = progress.Close() }()

	params := uap.Params{
		InitN:        d.cfg.InitN,
		N:            d.cfg.N,
		C:            gp.C,
		ErrThreshold: gp.ErrThreshold,
		RPThreshold:  gp.RPThreshold,
	}
	if err := writeProgressHeader(progress, d.cfg.Subset, params); err != nil {
		return fmt.Errorf("write progress header: %w", err)
	}

	videos := d.truth.Videos(d.cfg.Subset)
	agg := uap.NewAggregator(d.gen, d.src, d.cfg.Convention, uap.WithLogger(d.logger))

	start := time.Now()
	rs, err := agg.Run(ctx, videos, params, progress)
	if err != nil {
		return err
	}
	d.logger.Info("proposals generated", "videos", len(videos), "elapsed", time.Since(start))

	return resultstore.Write(resultPath, rs)
}

// Score evaluates an existing ResultSet file: AR-AN against the evaluation
// ground truth and tIoU against the annotation index.
func (d *Driver) Score(resultPath string) (ScoreRecord, Curve, error) {
	rs, err := resultstore.Read(resultPath)
	if err != nil {
		return ScoreRecord{}, Curve{}, err
	}

	curve, err := EvaluateARAN(d.truth.GroundTruth(d.cfg.Subset), rs, d.cfg.Eval)
	if err != nil {
		return ScoreRecord{}, Curve{}, fmt.Errorf("AR-AN: %w", err)
	}

	rank1, gtAligned, err := ScoreTIoU(rs, d.index, d.index.Keys()).Means()
	if err != nil {
		return ScoreRecord{}, Curve{}, fmt.Errorf("tIoU: %w", err)
	}

	return ScoreRecord{
		ResultPath:   resultPath,
		Rank1MeanIoU: rank1,
		GTMeanIoU:    gtAligned,
		AUC:          curve.AUC,
		NumProposals: curve.NumProposals,
	}, curve, nil
}

func writeProgressHeader(w io.Writer, subset string, p uap.Params) error {
	_, err := fmt.Fprintf(w, "# run %s %s\n# subset=%s init_n=%d n=%d th=%s c=%s rpth=%s\n",
		uuid.New(), time.Now().Format(time.RFC3339), subset, p.InitN, p.N,
		FormatFloat(p.ErrThreshold), FormatFloat(p.C), FormatFloat(p.RPThreshold))
	return err
}

func writeCurveFile(path string, c Curve) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create curve file: %w", err)
	}
	if err := WriteCurve(f, c); err != nil {
		_ = f.Close()
		return fmt.Errorf("write curve: %w", err)
	}
	return f.Close()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
