// Package dataset loads evaluation ground truth in the ActivityNet JSON
// layout:
//
//	{"version": "...", "database": {"<video>": {"subset": "...", "duration": 30.1,
//	  "annotations": [{"segment": [1.2, 5.0], "label": "..."}]}}}
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	uap "github.com/jamesainslie/go-uap"
)

// Annotation is one labelled ground-truth interval in seconds.
type Annotation struct {
	Segment uap.Segment `json:"segment"`
	Label   string      `json:"label"`
}

// Video is one database entry.
type Video struct {
	ID          string       `json:"-"`
	Subset      string       `json:"subset"`
	Duration    float64      `json:"duration"`
	FPS         float64      `json:"fps,omitempty"`
	Annotations []Annotation `json:"annotations"`
}

// Dataset is an ordered ground-truth database.
type Dataset struct {
	Version string
	videos  []Video
	index   map[string]int
}

// Load reads a dataset file.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ds, nil
}

// Parse decodes a dataset, keeping database entries in document order.
func Parse(r io.Reader) (*Dataset, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	ds := &Dataset{index: make(map[string]int)}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "version":
			if err := dec.Decode(&ds.Version); err != nil {
				return nil, fmt.Errorf("version: %w", err)
			}
		case "database":
			if err := ds.parseDatabase(dec); err != nil {
				return nil, err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return ds, nil
}

func (ds *Dataset) parseDatabase(dec *json.Decoder) error {
	if err := expectDelim(dec, '{'); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	for dec.More() {
		id, err := stringToken(dec)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		var v Video
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("database entry %s: %w", id, err)
		}
		v.ID = id
		if i, ok := ds.index[id]; ok {
			ds.videos[i] = v
			continue
		}
		ds.index[id] = len(ds.videos)
		ds.videos = append(ds.videos, v)
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", errors.New("expected object key")
	}
	return s, nil
}

// Len returns the number of videos in the database.
func (ds *Dataset) Len() int {
	return len(ds.videos)
}

// Video looks up a database entry.
func (ds *Dataset) Video(id string) (Video, bool) {
	i, ok := ds.index[id]
	if !ok {
		return Video{}, false
	}
	return ds.videos[i], true
}

// FPS returns the frame rate recorded for a video, or 0 when the entry is
// missing or carries none.
func (ds *Dataset) FPS(id string) float64 {
	v, ok := ds.Video(id)
	if !ok {
		return 0
	}
	return v.FPS
}

// Videos returns the ids of the videos in subset, in document order.
func (ds *Dataset) Videos(subset string) []string {
	var ids []string
	for _, v := range ds.videos {
		if v.Subset == subset {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// GroundTruth returns the annotated segments of subset, keyed by video id.
// Videos without annotations are left out.
func (ds *Dataset) GroundTruth(subset string) map[string][]uap.Segment {
	gt := make(map[string][]uap.Segment)
	for _, v := range ds.videos {
		if v.Subset != subset || len(v.Annotations) == 0 {
			continue
		}
		segs := make([]uap.Segment, len(v.Annotations))
		for i, a := range v.Annotations {
			segs[i] = a.Segment
		}
		gt[v.ID] = segs
	}
	return gt
}
