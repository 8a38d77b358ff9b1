package intervals

import (
	"testing"

	"lesson-insights-go/internal/types"
)

func utt(start, end int64, role types.SpeakerRole) types.Utterance {
	return types.Utterance{StartMs: start, EndMs: end, Speaker: role}
}

func TestMergeAdjacentEmptyAndSingle(t *testing.T) {
	if got := MergeAdjacent(nil, 1000); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}

	got := MergeAdjacent([]types.Utterance{utt(100, 500, types.RoleTutor)}, 1000)
	if len(got) != 1 {
		t.Fatalf("expected one interval, got %d", len(got))
	}
	if got[0].StartMs != 100 || got[0].EndMs != 500 || got[0].DurationMs != 400 {
		t.Fatalf("unexpected interval: %+v", got[0])
	}
}

func TestMergeAdjacentMergesWithinThreshold(t *testing.T) {
	utts := []types.Utterance{
		utt(0, 5000, types.RoleTutor),
		utt(5000, 65000, types.RoleTutor),  // gap 0, merges
		utt(67000, 70000, types.RoleTutor), // gap 2000, new interval
	}
	got := MergeAdjacent(utts, 1000)
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals, got %d: %v", len(got), got)
	}
	if got[0].StartMs != 0 || got[0].EndMs != 65000 || got[0].DurationMs != 65000 {
		t.Fatalf("unexpected first interval: %+v", got[0])
	}
	if got[1].StartMs != 67000 || got[1].EndMs != 70000 {
		t.Fatalf("unexpected second interval: %+v", got[1])
	}
}

// Merging already-merged intervals with the same threshold must not change
// the result.
func TestMergeAdjacentIdempotent(t *testing.T) {
	utts := []types.Utterance{
		utt(0, 1000, types.RoleTutor),
		utt(1500, 3000, types.RoleTutor),
		utt(10000, 12000, types.RoleTutor),
		utt(15000, 16000, types.RoleTutor),
	}
	first := MergeAdjacent(utts, 1000)

	asUtts := make([]types.Utterance, len(first))
	for i, iv := range first {
		asUtts[i] = utt(iv.StartMs, iv.EndMs, types.RoleTutor)
	}
	second := MergeAdjacent(asUtts, 1000)

	if len(first) != len(second) {
		t.Fatalf("idempotence broken: %d vs %d intervals", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("interval %d changed: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDetectGapsPairwise(t *testing.T) {
	utts := []types.Utterance{
		utt(0, 1000, types.RoleTutor),
		utt(1500, 2000, types.RoleStudent), // gap 500, below threshold
		utt(4000, 5000, types.RoleTutor),   // gap 2000
		utt(25000, 26000, types.RoleStudent), // gap 20000
	}
	gaps := DetectGaps(utts, 1000)
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d: %v", len(gaps), gaps)
	}
	if gaps[0].StartMs != 2000 || gaps[0].EndMs != 4000 || gaps[0].DurationMs != 2000 {
		t.Fatalf("unexpected first gap: %+v", gaps[0])
	}
	if gaps[1].DurationMs != 20000 {
		t.Fatalf("unexpected second gap: %+v", gaps[1])
	}
}

func TestDetectGapsIgnoresSpeaker(t *testing.T) {
	// Same speaker on both sides still counts as a silence.
	utts := []types.Utterance{
		utt(0, 1000, types.RoleTutor),
		utt(5000, 6000, types.RoleTutor),
	}
	if gaps := DetectGaps(utts, 1000); len(gaps) != 1 {
		t.Fatalf("expected same-speaker gap to be detected, got %v", gaps)
	}
}

func TestDetectOverlapsDirections(t *testing.T) {
	utts := []types.Utterance{
		utt(0, 2000, types.RoleStudent),
		utt(1500, 3000, types.RoleTutor), // tutor starts 500ms before student ends
		utt(2900, 5000, types.RoleStudent), // overlap 100ms, below threshold
		utt(4000, 7000, types.RoleStudent), // same speaker, ignored
	}
	counts := DetectOverlaps(utts, 300)
	if counts.TutorOverStudent != 1 {
		t.Fatalf("expected 1 tutor-over-student, got %d", counts.TutorOverStudent)
	}
	if counts.StudentOverTutor != 0 {
		t.Fatalf("expected 0 student-over-tutor, got %d", counts.StudentOverTutor)
	}
}

func TestDetectOverlapsNeverCountsSameSpeaker(t *testing.T) {
	utts := []types.Utterance{
		utt(0, 5000, types.RoleTutor),
		utt(1000, 6000, types.RoleTutor),
		utt(2000, 7000, types.RoleTutor),
	}
	counts := DetectOverlaps(utts, 300)
	if counts.TutorOverStudent != 0 || counts.StudentOverTutor != 0 {
		t.Fatalf("same-speaker overlaps must be ignored, got %+v", counts)
	}
}

func TestSortByStartDoesNotMutateInput(t *testing.T) {
	utts := []types.Utterance{
		utt(5000, 6000, types.RoleTutor),
		utt(0, 1000, types.RoleStudent),
	}
	sorted := SortByStart(utts)
	if sorted[0].StartMs != 0 || sorted[1].StartMs != 5000 {
		t.Fatalf("not sorted: %v", sorted)
	}
	if utts[0].StartMs != 5000 {
		t.Fatalf("input mutated: %v", utts)
	}
}
