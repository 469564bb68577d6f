package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreRecord_String(t *testing.T) {
	r := ScoreRecord{
		ResultPath:   "results/a.json",
		Rank1MeanIoU: 0.5,
		GTMeanIoU:    0.75,
		AUC:          99,
		NumProposals: 12,
	}
	assert.Equal(t,
		"results/a.json\trank1 mIoU : 0.5\tdirect comp with GT : 0.75\tarea under ar vs an: 99.0\tnum of proposals: 12\n",
		r.String())

	parsed, err := ParseScoreRecord(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, parsed)
}

func TestParseScoreRecord_Errors(t *testing.T) {
	tests := []string{
		"",
		"a.json\trank1 mIoU : 0.5",
		"a.json\trank1: 0.5\tdirect comp with GT : 0.75\tarea under ar vs an: 1.0\tnum of proposals: 1",
		"a.json\trank1 mIoU : x\tdirect comp with GT : 0.75\tarea under ar vs an: 1.0\tnum of proposals: 1",
		"a.json\trank1 mIoU : 0.5\tdirect comp with GT : 0.75\tarea under ar vs an: 1.0\tnum of proposals: 1.5",
	}
	for _, line := range tests {
		_, err := ParseScoreRecord(line)
		assert.Error(t, err, "line %q", line)
	}
}

func TestAppendAndReadScores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores_part_1.txt")
	records := []ScoreRecord{
		{ResultPath: "a.json", Rank1MeanIoU: 0.2, GTMeanIoU: 0.3, AUC: 10, NumProposals: 4},
		{ResultPath: "b.json", Rank1MeanIoU: 0.4, GTMeanIoU: 0.1, AUC: 20, NumProposals: 8},
	}
	for _, r := range records {
		require.NoError(t, AppendScore(path, r))
	}

	got, err := ReadScores(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	require.NoError(t, os.WriteFile(path, []byte("not a record\n"), 0o644))
	_, err = ReadScores(path)
	assert.Error(t, err)
}

func TestRankScores(t *testing.T) {
	records := []ScoreRecord{
		{ResultPath: "low", Rank1MeanIoU: 0.1},
		{ResultPath: "tie-auc", Rank1MeanIoU: 0.5, GTMeanIoU: 0.2, AUC: 30},
		{ResultPath: "tie-gt", Rank1MeanIoU: 0.5, GTMeanIoU: 0.4},
		{ResultPath: "tie-auc-high", Rank1MeanIoU: 0.5, GTMeanIoU: 0.2, AUC: 60},
	}
	RankScores(records)

	var order []string
	for _, r := range records {
		order = append(order, r.ResultPath)
	}
	assert.Equal(t, []string{"tie-gt", "tie-auc-high", "tie-auc", "low"}, order)
}
