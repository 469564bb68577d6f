package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-uap/internal/bench"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--env", ""))
	err := root.Execute()
	return out.String(), err
}

func TestRootCmd_ShortFlagC(t *testing.T) {
	root := newRootCmd()
	assert.Nil(t, root.PersistentFlags().ShorthandLookup("c"), "-c must not mean --config")

	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, run.Flags().Lookup("c"))
}

func TestGridCmd(t *testing.T) {
	out, err := execute(t, "grid", "--partition", "4")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1+216)
	assert.Equal(t, []string{"RPTH", "TH", "C", "RESULT"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{
		"0.75", "0.75", "0.019306",
		filepath.Join("res", "Charades_training_c_0.019306_result_rpth_0.75_th_0.75.json"),
	}, strings.Fields(lines[1]))
	assert.Contains(t, lines[216], "_result_rpth_1.0_th_1.0.json")

	_, err = execute(t, "grid", "--partition", "5")
	assert.ErrorIs(t, err, bench.ErrInvalidPartition)
}

func TestBestCmd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("UAP_LOG_DIR", dir)
	t.Setenv("UAP_SCORE_NAME", "scores")

	part1 := []bench.ScoreRecord{
		{ResultPath: "a.json", Rank1MeanIoU: 0.2, GTMeanIoU: 0.3, AUC: 10, NumProposals: 4},
		{ResultPath: "b.json", Rank1MeanIoU: 0.6, GTMeanIoU: 0.1, AUC: 20, NumProposals: 8},
	}
	part2 := []bench.ScoreRecord{
		{ResultPath: "c.json", Rank1MeanIoU: 0.4, GTMeanIoU: 0.5, AUC: 30, NumProposals: 2},
	}
	for _, r := range part1 {
		require.NoError(t, bench.AppendScore(filepath.Join(dir, "scores_part_1.txt"), r))
	}
	for _, r := range part2 {
		require.NoError(t, bench.AppendScore(filepath.Join(dir, "scores_part_2.txt"), r))
	}

	out, err := execute(t, "best", "--partitions", "1,2,3", "--top", "2")
	require.NoError(t, err)
	assert.Equal(t, part1[1].String()+part2[0].String(), out)

	t.Setenv("UAP_SCORE_NAME", "absent")
	_, err = execute(t, "best")
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "uap-bench dev\n"))
}
