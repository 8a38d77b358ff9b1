// Package intervals provides the single-pass primitives behind monologue,
// silence and interruption detection: merging adjacent spans, finding gaps
// and counting cross-speaker overlaps.
//
// All functions expect their input sorted ascending by StartMs and run in
// O(n) after that sort. They do not mutate the input.
package intervals

import (
	"sort"

	"lesson-insights-go/internal/types"
)

// Interval is a derived time span.
type Interval struct {
	StartMs    int64
	EndMs      int64
	DurationMs int64
}

// SortByStart returns a copy of utts ordered ascending by start time.
func SortByStart(utts []types.Utterance) []types.Utterance {
	sorted := make([]types.Utterance, len(utts))
	copy(sorted, utts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartMs < sorted[j].StartMs
	})
	return sorted
}

// MergeAdjacent scans sorted utterances and merges consecutive ones whose
// gap is at most gapThresholdMs into a single interval. A gap above the
// threshold closes the running interval and starts a new one.
func MergeAdjacent(sorted []types.Utterance, gapThresholdMs int64) []Interval {
	if len(sorted) == 0 {
		return nil
	}

	merged := make([]Interval, 0, len(sorted))
	cur := Interval{StartMs: sorted[0].StartMs, EndMs: sorted[0].EndMs}

	for _, u := range sorted[1:] {
		if u.StartMs-cur.EndMs <= gapThresholdMs {
			cur.EndMs = u.EndMs
			continue
		}
		cur.DurationMs = cur.EndMs - cur.StartMs
		merged = append(merged, cur)
		cur = Interval{StartMs: u.StartMs, EndMs: u.EndMs}
	}

	cur.DurationMs = cur.EndMs - cur.StartMs
	return append(merged, cur)
}

// DetectGaps emits an interval for every pair of temporally adjacent
// utterances whose gap is at least minGapMs. Pairs are checked independently
// of speaker and gaps are never merged across more than two utterances.
func DetectGaps(sorted []types.Utterance, minGapMs int64) []Interval {
	var gaps []Interval
	for i := 0; i+1 < len(sorted); i++ {
		gap := sorted[i+1].StartMs - sorted[i].EndMs
		if gap >= minGapMs {
			gaps = append(gaps, Interval{
				StartMs:    sorted[i].EndMs,
				EndMs:      sorted[i+1].StartMs,
				DurationMs: gap,
			})
		}
	}
	return gaps
}

// OverlapCounts holds directional interruption counts.
type OverlapCounts struct {
	TutorOverStudent int
	StudentOverTutor int
}

// DetectOverlaps counts adjacent pairs where the next utterance starts more
// than minOverlapMs before the current one ends and the speakers differ.
// Same-speaker overlaps are self-correction, not interruption, and are
// ignored.
func DetectOverlaps(sorted []types.Utterance, minOverlapMs int64) OverlapCounts {
	var counts OverlapCounts
	for i := 0; i+1 < len(sorted); i++ {
		cur, next := sorted[i], sorted[i+1]
		overlap := cur.EndMs - next.StartMs
		if overlap <= minOverlapMs {
			continue
		}
		switch {
		case cur.Speaker == types.RoleStudent && next.Speaker == types.RoleTutor:
			counts.TutorOverStudent++
		case cur.Speaker == types.RoleTutor && next.Speaker == types.RoleStudent:
			counts.StudentOverTutor++
		}
	}
	return counts
}
