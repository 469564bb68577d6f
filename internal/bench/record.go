package bench

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Score log field labels.
const (
	labelRank1 = "rank1 mIoU : "
	labelGT    = "direct comp with GT : "
	labelAUC   = "area under ar vs an: "
	labelNum   = "num of proposals: "
)

// ScoreRecord is one line of a partition's score log.
type ScoreRecord struct {
	ResultPath   string
	Rank1MeanIoU float64
	GTMeanIoU    float64
	AUC          float64
	NumProposals int
}

// String formats the record as a score log line, newline included.
func (r ScoreRecord) String() string {
	return r.ResultPath +
		"\t" + labelRank1 + FormatFloat(r.Rank1MeanIoU) +
		"\t" + labelGT + FormatFloat(r.GTMeanIoU) +
		"\t" + labelAUC + FormatFloat(r.AUC) +
		"\t" + labelNum + strconv.Itoa(r.NumProposals) + "\n"
}

// ParseScoreRecord parses a line produced by ScoreRecord.String.
func ParseScoreRecord(line string) (ScoreRecord, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) != 5 {
		return ScoreRecord{}, fmt.Errorf("score record: want 5 fields, got %d", len(fields))
	}

	r := ScoreRecord{ResultPath: fields[0]}
	floats := []struct {
		label string
		dst   *float64
		field string
	}{
		{labelRank1, &r.Rank1MeanIoU, fields[1]},
		{labelGT, &r.GTMeanIoU, fields[2]},
		{labelAUC, &r.AUC, fields[3]},
	}
	for _, f := range floats {
		v, ok := strings.CutPrefix(f.field, f.label)
		if !ok {
			return ScoreRecord{}, fmt.Errorf("score record: expected %q in %q", f.label, f.field)
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ScoreRecord{}, fmt.Errorf("score record: %w", err)
		}
		*f.dst = x
	}

	v, ok := strings.CutPrefix(fields[4], labelNum)
	if !ok {
		return ScoreRecord{}, fmt.Errorf("score record: expected %q in %q", labelNum, fields[4])
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return ScoreRecord{}, fmt.Errorf("score record: %w", err)
	}
	r.NumProposals = n
	return r, nil
}

// AppendScore appends r to the score log at path, creating it if needed.
// The file is opened per record so completed grid points survive a crash.
func AppendScore(path string, r ScoreRecord) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open score log: %w", err)
	}
	if _, err := f.WriteString(r.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append score: %w", err)
	}
	return f.Close()
}

// ReadScores parses every non-empty line of a score log.
func ReadScores(path string) ([]ScoreRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read score log: %w", err)
	}

	var records []ScoreRecord
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := ParseScoreRecord(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, i+1, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// RankScores sorts records by descending rank-1 mean IoU, breaking ties by
// ground-truth-aligned IoU and then AUC.
func RankScores(records []ScoreRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Rank1MeanIoU != b.Rank1MeanIoU {
			return a.Rank1MeanIoU > b.Rank1MeanIoU
		}
		if a.GTMeanIoU != b.GTMeanIoU {
			return a.GTMeanIoU > b.GTMeanIoU
		}
		return a.AUC > b.AUC
	})
}
