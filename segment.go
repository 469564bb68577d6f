package uap

import (
	"encoding/json"
	"fmt"
)

// ResultVersion is the version tag written into every ResultSet.
const ResultVersion = "VERSION 1.3"

// Segment is a closed interval in frames or seconds. Start <= End is
// expected but not enforced.
type Segment struct {
	Start float64
	End   float64
}

// Len returns End - Start, which is negative for inverted segments.
func (s Segment) Len() float64 {
	return s.End - s.Start
}

// MarshalJSON encodes the segment as a two-element array.
func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{s.Start, s.End})
}

// UnmarshalJSON decodes a two-element array.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("segment: want 2 values, got %d", len(pair))
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// IoU returns the temporal intersection over union of a and b.
//
// Disjoint segments score 0. A zero (or negative) union, which only occurs
// for degenerate segments, also scores 0 instead of dividing by zero.
func IoU(a, b Segment) float64 {
	union := max(a.End, b.End) - min(a.Start, b.Start)
	inter := min(a.End, b.End) - max(a.Start, b.Start)
	if inter < 0 || union <= 0 {
		return 0
	}
	return inter / union
}

// Proposal is a scored candidate action interval.
type Proposal struct {
	Score   float64 `json:"score"`
	Segment Segment `json:"segment"`
}

// ResultSet is the corpus-level proposal artifact, laid out like an
// ActivityNet proposal submission.
type ResultSet struct {
	Results      map[string][]Proposal `json:"results"`
	Version      string                `json:"version"`
	ExternalData map[string]any        `json:"external_data"`
}

// NewResultSet returns an empty ResultSet with the current version tag.
func NewResultSet() *ResultSet {
	return &ResultSet{
		Results:      make(map[string][]Proposal),
		Version:      ResultVersion,
		ExternalData: make(map[string]any),
	}
}

// NumProposals returns the number of proposals across all videos.
func (rs *ResultSet) NumProposals() int {
	n := 0
	for _, props := range rs.Results {
		n += len(props)
	}
	return n
}
