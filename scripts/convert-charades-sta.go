//go:build ignore

// Convert Charades-STA annotation files into the ActivityNet JSON layout used
// as evaluation ground truth.
// Usage: go run ./scripts/convert-charades-sta.go [subset=file ...] > gt/charades_sta.json
// Default: training=gt/charades_sta_train.txt testing=gt/charades_sta_test.txt
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	uap "github.com/jamesainslie/go-uap"
	"github.com/jamesainslie/go-uap/internal/bench"
)

type annotation struct {
	Segment uap.Segment `json:"segment"`
	Label   string      `json:"label"`
}

type video struct {
	Subset      string       `json:"subset"`
	Duration    float64      `json:"duration"`
	Annotations []annotation `json:"annotations"`
}

type database struct {
	Version  string           `json:"version"`
	Database map[string]video `json:"database"`
}

func main() {
	inputs := os.Args[1:]
	if len(inputs) == 0 {
		inputs = []string{
			"training=gt/charades_sta_train.txt",
			"testing=gt/charades_sta_test.txt",
		}
	}

	db := database{Version: uap.ResultVersion, Database: make(map[string]video)}
	for _, in := range inputs {
		subset, path, ok := strings.Cut(in, "=")
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: expected subset=file, got %q\n", in)
			os.Exit(1)
		}

		idx, err := bench.LoadIndex(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", path, err)
			os.Exit(1)
		}

		for _, id := range idx.Keys() {
			v := video{Subset: subset}
			for _, seg := range idx[id] {
				v.Annotations = append(v.Annotations, annotation{Segment: seg, Label: "action"})
				// Charades-STA carries no durations; the last annotated
				// second is the best available bound.
				v.Duration = max(v.Duration, seg.End)
			}
			db.Database[id] = v
		}
		fmt.Fprintf(os.Stderr, "%s: %d videos from %s\n", subset, len(idx), path)
	}

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(db); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
		os.Exit(1)
	}
}
