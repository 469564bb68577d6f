// Package bench scores proposal result sets and drives hyperparameter sweeps.
package bench

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	uap "github.com/jamesainslie/go-uap"
)

// ErrMalformedAnnotation indicates an annotation line that cannot be parsed.
var ErrMalformedAnnotation = errors.New("bench: malformed annotation line")

// annotationSep separates the interval fields from the free-text description.
const annotationSep = "##"

// Index maps a video id to its ground-truth segments. A video with no
// annotation line never appears as a key.
type Index map[string][]uap.Segment

// ParseAnnotation parses one "<video_id> <start> <end>##<text>" line.
func ParseAnnotation(line string) (string, uap.Segment, error) {
	head, _, _ := strings.Cut(line, annotationSep)
	fields := strings.Fields(head)
	if len(fields) < 3 {
		return "", uap.Segment{}, fmt.Errorf("%w: %q", ErrMalformedAnnotation, line)
	}

	start, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return "", uap.Segment{}, fmt.Errorf("%w: start %q: %w", ErrMalformedAnnotation, fields[1], err)
	}
	end, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return "", uap.Segment{}, fmt.Errorf("%w: end %q: %w", ErrMalformedAnnotation, fields[2], err)
	}
	return fields[0], uap.Segment{Start: start, End: end}, nil
}

// BuildIndex builds an Index from annotation lines. Lines are processed in
// lexicographic order, so each video's segments come out in a deterministic
// order. Blank lines are ignored; any other unparsable line fails the whole
// build.
func BuildIndex(lines []string) (Index, error) {
	sorted := slices.Clone(lines)
	slices.Sort(sorted)

	idx := make(Index)
	for i, line := range sorted {
		if strings.TrimSpace(line) == "" {
			continue
		}
		vid, seg, err := ParseAnnotation(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		idx[vid] = append(idx[vid], seg)
	}
	return idx, nil
}

// LoadIndex reads an annotation file and builds its Index.
func LoadIndex(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotations: %w", err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	idx, err := BuildIndex(lines)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return idx, nil
}

// Keys returns the indexed video ids in sorted order.
func (idx Index) Keys() []string {
	keys := lo.Keys(map[string][]uap.Segment(idx))
	slices.Sort(keys)
	return keys
}
