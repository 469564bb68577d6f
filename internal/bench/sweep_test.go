package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdValues(t *testing.T) {
	tests := []struct {
		partition int
		want      []float64
	}{
		{1, []float64{0.01, 0.06, 0.11, 0.16, 0.21}},
		{2, []float64{0.25, 0.3, 0.35, 0.4, 0.45}},
		{3, []float64{0.5, 0.55, 0.6, 0.65, 0.7}},
		{4, []float64{0.75, 0.8, 0.85, 0.9, 0.95, 1}},
	}

	for _, tt := range tests {
		got, err := ThresholdValues(tt.partition)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "partition %d", tt.partition)
	}

	for _, p := range []int{0, 5, -1} {
		_, err := ThresholdValues(p)
		assert.ErrorIs(t, err, ErrInvalidPartition)
	}
}

func TestSVMConstants(t *testing.T) {
	cs := SVMConstants(1.9306)
	require.Len(t, cs, 6)
	assert.Equal(t, 1.9306, cs[0])
	assert.Equal(t, 1.9306/100, cs[1])
	assert.Equal(t, 1.9306/1e10, cs[5])
}

func TestGrid_PartitionsAreDisjoint(t *testing.T) {
	seen := make(map[GridPoint]int)
	sizes := make(map[int]int)

	for _, p := range Partitions() {
		points, err := Grid(p, 1.9306)
		require.NoError(t, err)
		sizes[p] = len(points)
		for _, gp := range points {
			prev, dup := seen[gp]
			assert.False(t, dup, "point %+v in partitions %d and %d", gp, prev, p)
			seen[gp] = p
		}
	}

	assert.Equal(t, map[int]int{1: 150, 2: 150, 3: 150, 4: 216}, sizes)
}

func TestGrid_Order(t *testing.T) {
	points, err := Grid(1, 1)
	require.NoError(t, err)

	assert.Equal(t, GridPoint{RPThreshold: 0.01, ErrThreshold: 0.01, C: 1}, points[0])
	assert.Equal(t, GridPoint{RPThreshold: 0.01, ErrThreshold: 0.01, C: 0.01}, points[1])
	assert.Equal(t, GridPoint{RPThreshold: 0.01, ErrThreshold: 0.06, C: 1}, points[6])
	assert.Equal(t, GridPoint{RPThreshold: 0.06, ErrThreshold: 0.01, C: 1}, points[30])

	_, err = Grid(9, 1)
	assert.ErrorIs(t, err, ErrInvalidPartition)
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{100, "100.0"},
		{0.01, "0.01"},
		{0.3, "0.3"},
		{1.9306, "1.9306"},
		{0.019306, "0.019306"},
		{0.0001, "0.0001"},
		{1e-05, "1e-05"},
		{1.9306e-10, "1.9306e-10"},
		{-2.5, "-2.5"},
		{1e16, "1e+16"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFloat(tt.in), "FormatFloat(%v)", tt.in)
	}
}

func TestResultName(t *testing.T) {
	gp := GridPoint{RPThreshold: 0.01, ErrThreshold: 0.06, C: 0.019306}
	assert.Equal(t,
		"Charades_training_c_0.019306_result_rpth_0.01_th_0.06.json",
		ResultName("Charades", "training", gp, ".json"))

	gp = GridPoint{RPThreshold: 1, ErrThreshold: 0.75, C: 1e-08}
	assert.Equal(t,
		"Thumos14_validation_c_1e-08_result_rpth_1.0_th_0.75.pb",
		ResultName("Thumos14", "validation", gp, ".pb"))
}
