package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uap "github.com/jamesainslie/go-uap"
)

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantID  string
		want    uap.Segment
		wantErr bool
	}{
		{
			name:   "charades sta line",
			line:   "3MSZA 24.3 30.4##person turn a light on.",
			wantID: "3MSZA",
			want:   uap.Segment{Start: 24.3, End: 30.4},
		},
		{
			name:   "no description",
			line:   "AO8RW 0 6.9",
			wantID: "AO8RW",
			want:   uap.Segment{Start: 0, End: 6.9},
		},
		{
			name:   "extra spaces",
			line:   "  X1  1.5   2.5 ##  text",
			wantID: "X1",
			want:   uap.Segment{Start: 1.5, End: 2.5},
		},
		{name: "missing end", line: "X1 1.5##text", wantErr: true},
		{name: "non numeric", line: "X1 a 2##text", wantErr: true},
		{name: "description only", line: "##text with 1 2 3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, seg, err := ParseAnnotation(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedAnnotation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.want, seg)
		})
	}
}

func TestBuildIndex(t *testing.T) {
	lines := []string{
		"B 5 15##second for B",
		"A 1 2##only A",
		"B 0 10##first for B",
		"",
	}

	idx, err := BuildIndex(lines)
	require.NoError(t, err)
	assert.Equal(t, Index{
		"A": {{Start: 1, End: 2}},
		"B": {{Start: 0, End: 10}, {Start: 5, End: 15}},
	}, idx)
	assert.Equal(t, []string{"A", "B"}, idx.Keys())

	// The input slice is left untouched.
	assert.Equal(t, "B 5 15##second for B", lines[0])
}

func TestBuildIndex_Idempotent(t *testing.T) {
	lines := []string{"v2 3 4##x", "v1 0 1##y", "v1 0.5 2##z", "v3 9 10##w"}

	first, err := BuildIndex(lines)
	require.NoError(t, err)
	second, err := BuildIndex(lines)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildIndex_MalformedIsFatal(t *testing.T) {
	idx, err := BuildIndex([]string{"v1 0 1##ok", "v2 zero 1##bad"})
	assert.ErrorIs(t, err, ErrMalformedAnnotation)
	assert.Nil(t, idx)
}

func TestLoadIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charades_sta_train.txt")
	content := "3MSZA 24.3 30.4##person turn a light on.\r\n3MSZA 0 4.2##person opens the door.\nAO8RW 0 6.9##a person is putting a book on a shelf.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	idx, err := LoadIndex(path)
	require.NoError(t, err)
	assert.Len(t, idx, 2)
	assert.Equal(t, []uap.Segment{{Start: 0, End: 4.2}, {Start: 24.3, End: 30.4}}, idx["3MSZA"])

	_, err = LoadIndex(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
