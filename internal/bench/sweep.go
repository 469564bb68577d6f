package bench

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPartition indicates a partition outside 1..4.
var ErrInvalidPartition = errors.New("bench: invalid partition")

// GridPoint is one assignment of the three swept hyperparameters.
type GridPoint struct {
	RPThreshold  float64
	ErrThreshold float64
	C            float64
}

// Grid layout. Thresholds are integer percents; each partition is a square
// block on the diagonal of the (rank-pooling, error) threshold plane.
const (
	gridStep    = 5
	numSVMScale = 6 // C divided by 10^0, 10^2, ..., 10^10
)

var partitionPercents = [...][2]int{
	{1, 25},
	{25, 50},
	{50, 75},
	{75, 101},
}

// Partitions returns the valid partition numbers.
func Partitions() []int {
	parts := make([]int, len(partitionPercents))
	for i := range parts {
		parts[i] = i + 1
	}
	return parts
}

// ThresholdValues returns the threshold values covered by a partition.
func ThresholdValues(partition int) ([]float64, error) {
	if partition < 1 || partition > len(partitionPercents) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPartition, partition)
	}
	r := partitionPercents[partition-1]

	var vals []float64
	for pct := r[0]; pct < r[1]; pct += gridStep {
		vals = append(vals, float64(pct)/100)
	}
	return vals, nil
}

// SVMConstants returns baseC scaled by 10^-k for k = 0, 2, ..., 10.
func SVMConstants(baseC float64) []float64 {
	cs := make([]float64, numSVMScale)
	for i := range cs {
		div := 1.0
		for range 2 * i {
			div *= 10
		}
		cs[i] = baseC / div
	}
	return cs
}

// Grid enumerates a partition's grid points, ordered by rank-pooling
// threshold, then error threshold, then C.
func Grid(partition int, baseC float64) ([]GridPoint, error) {
	vals, err := ThresholdValues(partition)
	if err != nil {
		return nil, err
	}
	cs := SVMConstants(baseC)

	points := make([]GridPoint, 0, len(vals)*len(vals)*len(cs))
	for _, rp := range vals {
		for _, th := range vals {
			for _, c := range cs {
				points = append(points, GridPoint{RPThreshold: rp, ErrThreshold: th, C: c})
			}
		}
	}
	return points, nil
}

// ResultName returns the file name of a grid point's ResultSet, e.g.
// "Charades_training_c_0.019306_result_rpth_0.01_th_0.06.json".
func ResultName(dataset, subset string, gp GridPoint, ext string) string {
	return fmt.Sprintf("%s_%s_c_%s_result_rpth_%s_th_%s%s",
		dataset, subset, FormatFloat(gp.C), FormatFloat(gp.RPThreshold), FormatFloat(gp.ErrThreshold), ext)
}

// FormatFloat renders f as the shortest round-trip decimal. Integral
// values keep a trailing ".0", and exponent notation is used only below
// 1e-4 or from 1e16, so existing result file names stay stable.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil {
		return sci
	}
	if f != 0 && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
