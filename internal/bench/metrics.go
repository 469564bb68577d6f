package bench

import (
	"errors"
	"slices"

	"github.com/samber/lo"

	uap "github.com/jamesainslie/go-uap"
)

// ErrNoScoredVideos indicates an empty accumulator, which has no mean.
var ErrNoScoredVideos = errors.New("bench: no videos scored")

// TIoUScores holds the per-sample IoU accumulators of one scoring pass.
type TIoUScores struct {
	// Rank1 has one entry per scored video: the best IoU of the last
	// ground-truth segment processed for that video.
	Rank1 []float64
	// GTAligned has one entry per (video, ground-truth segment) pair.
	GTAligned []float64
}

// ScoreTIoU matches every ground-truth segment of the videos in evalIDs
// against all proposals of that video and records the best IoU.
//
// Videos absent from rs, or without ground truth in idx, are skipped and
// contribute to neither accumulator. Videos are visited in sorted id order
// so that the means are bit-for-bit reproducible.
func ScoreTIoU(rs *uap.ResultSet, idx Index, evalIDs []string) TIoUScores {
	ids := lo.Uniq(evalIDs)
	slices.Sort(ids)

	var scores TIoUScores
	for _, vid := range ids {
		props, ok := rs.Results[vid]
		if !ok {
			continue
		}
		truth := idx[vid]
		if len(truth) == 0 {
			continue
		}

		var best float64
		for _, g := range truth {
			best = BestIoU(g, props)
			scores.GTAligned = append(scores.GTAligned, best)
		}
		// Only the last ground-truth segment counts toward rank-1. Prior
		// sweep logs were produced this way.
		scores.Rank1 = append(scores.Rank1, best)
	}
	return scores
}

// BestIoU returns the highest IoU between g and any proposal, or 0 when
// there are none.
func BestIoU(g uap.Segment, props []uap.Proposal) float64 {
	var best float64
	for _, p := range props {
		if iou := uap.IoU(g, p.Segment); iou > best {
			best = iou
		}
	}
	return best
}

// Means returns the rank-1 and ground-truth-aligned mean IoU.
func (s TIoUScores) Means() (rank1, gtAligned float64, err error) {
	if len(s.Rank1) == 0 || len(s.GTAligned) == 0 {
		return 0, 0, ErrNoScoredVideos
	}
	return mean(s.Rank1), mean(s.GTAligned), nil
}

func mean(xs []float64) float64 {
	return lo.Sum(xs) / float64(len(xs))
}
