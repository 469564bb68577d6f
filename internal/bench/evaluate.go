package bench

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	uap "github.com/jamesainslie/go-uap"
)

// ErrNoProposals indicates there is nothing to evaluate.
var ErrNoProposals = errors.New("bench: no proposals to evaluate")

// recallSteps is the number of points on the AR-AN curve.
const recallSteps = 100

// EvalConfig holds AR-AN evaluation parameters.
type EvalConfig struct {
	TIoUThresholds  []float64
	MaxAvgProposals float64 // 0 uses the observed average
}

// DefaultEvalConfig returns the ActivityNet proposal protocol settings:
// tIoU 0.5:0.05:0.95 and at most 100 proposals per video on average.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		TIoUThresholds:  Linspace(0.5, 0.95, 10),
		MaxAvgProposals: 100,
	}
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Curve is the average recall versus average number of proposals curve.
type Curve struct {
	Recall          [][]float64 // [threshold][step]
	AvgRecall       []float64
	AvgNumProposals []float64
	// AUC is the area under AvgRecall over AvgNumProposals, normalized by
	// the largest AN and expressed as a percentage.
	AUC float64
	// NumProposals is the number of proposals that entered the curve.
	NumProposals int
}

// EvaluateARAN computes the AR-AN curve of rs against ground truth.
// Ground-truth videos without proposals count with zero recall.
func EvaluateARAN(gt map[string][]uap.Segment, rs *uap.ResultSet, cfg EvalConfig) (Curve, error) {
	videos := make([]string, 0, len(gt))
	for vid, segs := range gt {
		if len(segs) > 0 {
			videos = append(videos, vid)
		}
	}
	slices.Sort(videos)
	if len(videos) == 0 {
		return Curve{}, fmt.Errorf("%w: empty ground truth", ErrNoProposals)
	}

	totalProposals := rs.NumProposals()
	if totalProposals == 0 {
		return Curve{}, ErrNoProposals
	}
	maxAvg := cfg.MaxAvgProposals
	if maxAvg <= 0 {
		maxAvg = float64(totalProposals) / float64(len(videos))
	}
	ratio := maxAvg * float64(len(videos)) / float64(totalProposals)

	// iou[v][g][p] for ground-truth g and the score-ranked proposal p.
	iou := make([][][]float64, len(videos))
	used := 0
	numTruth := 0
	for i, vid := range videos {
		truth := gt[vid]
		numTruth += len(truth)

		props := rankProposals(rs.Results[vid])
		keep := min(int(float64(len(props))*ratio), len(props))
		props = props[:keep]
		used += keep

		iou[i] = make([][]float64, len(truth))
		for g, seg := range truth {
			row := make([]float64, len(props))
			for p, prop := range props {
				row[p] = uap.IoU(seg, prop.Segment)
			}
			iou[i][g] = row
		}
	}
	if used == 0 {
		return Curve{}, ErrNoProposals
	}

	pcn := make([]float64, recallSteps)
	for j := range pcn {
		pcn[j] = float64(j+1) / recallSteps * (maxAvg * float64(len(videos)) / float64(used))
	}

	curve := Curve{
		Recall:          make([][]float64, len(cfg.TIoUThresholds)),
		AvgRecall:       make([]float64, recallSteps),
		AvgNumProposals: make([]float64, recallSteps),
		NumProposals:    used,
	}
	for r, th := range cfg.TIoUThresholds {
		matches := make([]int, recallSteps)
		for _, video := range iou {
			for _, row := range video {
				// first rank at which this ground truth is recalled
				first := slices.IndexFunc(row, func(v float64) bool { return v >= th })
				if first < 0 {
					continue
				}
				for j, frac := range pcn {
					if first < min(int(float64(len(row))*frac), len(row)) {
						matches[j]++
					}
				}
			}
		}
		curve.Recall[r] = make([]float64, recallSteps)
		for j := range matches {
			curve.Recall[r][j] = float64(matches[j]) / float64(numTruth)
		}
	}

	for j := range curve.AvgRecall {
		var sum float64
		for r := range curve.Recall {
			sum += curve.Recall[r][j]
		}
		if len(curve.Recall) > 0 {
			curve.AvgRecall[j] = sum / float64(len(curve.Recall))
		}
		curve.AvgNumProposals[j] = pcn[j] * float64(used) / float64(len(videos))
	}

	last := curve.AvgNumProposals[recallSteps-1]
	curve.AUC = 100 * trapz(curve.AvgRecall, curve.AvgNumProposals) / last
	return curve, nil
}

// rankProposals returns a copy of props ordered by descending score.
func rankProposals(props []uap.Proposal) []uap.Proposal {
	ranked := slices.Clone(props)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// trapz integrates y over x with the trapezoidal rule.
func trapz(y, x []float64) float64 {
	var area float64
	for i := 1; i < len(x) && i < len(y); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return area
}

// WriteCurve writes the AR-AN curve as tab-separated AN, AR rows.
func WriteCurve(w io.Writer, c Curve) error {
	if _, err := fmt.Fprintf(w, "avg_num_proposals\tavg_recall\n"); err != nil {
		return err
	}
	for i := range c.AvgNumProposals {
		if _, err := fmt.Fprintf(w, "%g\t%g\n", c.AvgNumProposals[i], c.AvgRecall[i]); err != nil {
			return err
		}
	}
	return nil
}
