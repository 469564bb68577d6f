package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uap "github.com/jamesainslie/go-uap"
)

const sampleDB = `{
  "version": "VERSION 1.3",
  "taxonomy": [{"nodeId": 1}],
  "database": {
    "zz9": {"subset": "training", "duration": 30.0, "annotations": [{"segment": [1.0, 5.0], "label": "open door"}]},
    "aa1": {"subset": "testing", "duration": 12.5, "annotations": []},
    "mm4": {"subset": "training", "duration": 8.0, "fps": 24, "annotations": [
      {"segment": [0.0, 2.0], "label": "sit"}, {"segment": [3.0, 7.5], "label": "stand"}]},
    "bb2": {"subset": "training", "duration": 9.0, "annotations": []}
  }
}`

func TestParse(t *testing.T) {
	ds, err := Parse(strings.NewReader(sampleDB))
	require.NoError(t, err)

	assert.Equal(t, "VERSION 1.3", ds.Version)
	assert.Equal(t, 4, ds.Len())

	// Document order, not sorted.
	assert.Equal(t, []string{"zz9", "mm4", "bb2"}, ds.Videos("training"))
	assert.Equal(t, []string{"aa1"}, ds.Videos("testing"))
	assert.Empty(t, ds.Videos("validation"))

	v, ok := ds.Video("mm4")
	require.True(t, ok)
	assert.Equal(t, 24.0, v.FPS)
	assert.Equal(t, "stand", v.Annotations[1].Label)

	_, ok = ds.Video("missing")
	assert.False(t, ok)

	assert.Equal(t, 24.0, ds.FPS("mm4"))
	assert.Zero(t, ds.FPS("zz9"))
	assert.Zero(t, ds.FPS("missing"))
}

func TestGroundTruth(t *testing.T) {
	ds, err := Parse(strings.NewReader(sampleDB))
	require.NoError(t, err)

	gt := ds.GroundTruth("training")
	assert.Equal(t, map[string][]uap.Segment{
		"zz9": {{Start: 1, End: 5}},
		"mm4": {{Start: 0, End: 2}, {Start: 3, End: 7.5}},
	}, gt)
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		`[]`,
		`{"database": []}`,
		`{"database": {"a": {"annotations": [{"segment": [1]}]}}}`,
		`{"version": "x"`,
	}
	for _, doc := range tests {
		_, err := Parse(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDB), 0o644))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
