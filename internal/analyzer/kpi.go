// Package analyzer derives per-lesson conversational KPIs from diarized
// utterances: speaking time and talk ratio, tutor monologues, student
// participation, long silences, interruptions and the resulting alerts.
package analyzer

import (
	"fmt"
	"math"
	"strings"

	"lesson-insights-go/internal/intervals"
	"lesson-insights-go/internal/logger"
	"lesson-insights-go/internal/types"
)

// Analyze computes all KPIs for one lesson. The input does not need to be
// sorted. It returns an error only for malformed utterances (end before
// start), which signals an upstream contract violation; an empty input
// yields zeroed KPIs and is the caller's job to flag as a transcription
// failure.
func Analyze(utterances []types.Utterance, totalDurationSec int) (types.KPIResult, error) {
	log := logger.New().WithField("module", "analyzer")

	for i, u := range utterances {
		if u.EndMs < u.StartMs {
			return types.KPIResult{}, fmt.Errorf("utterance %d: end_ms %d before start_ms %d", i, u.EndMs, u.StartMs)
		}
	}

	sorted := intervals.SortByStart(utterances)

	var tutorUtts, studentUtts []types.Utterance
	for _, u := range sorted {
		switch u.Speaker {
		case types.RoleTutor:
			tutorUtts = append(tutorUtts, u)
		case types.RoleStudent:
			studentUtts = append(studentUtts, u)
		}
	}

	var tutorSpeakingMs, studentSpeakingMs int64
	for _, u := range tutorUtts {
		tutorSpeakingMs += u.DurationMs()
	}
	for _, u := range studentUtts {
		studentSpeakingMs += u.DurationMs()
	}

	totalSpeakingMs := tutorSpeakingMs + studentSpeakingMs
	talkRatio := 0.0
	if totalSpeakingMs > 0 {
		talkRatio = float64(tutorSpeakingMs) / float64(totalSpeakingMs)
	}

	monologues := intervals.MergeAdjacent(tutorUtts, MonologueGapMs)
	var maxMonologueMs int64
	over3Min, over5Min := 0, 0
	for _, m := range monologues {
		if m.DurationMs > maxMonologueMs {
			maxMonologueMs = m.DurationMs
		}
		if m.DurationMs >= MonologueOver3MinMs {
			over3Min++
		}
		if m.DurationMs >= MonologueOver5MinMs {
			over5Min++
		}
	}

	studentTurns := len(studentUtts)
	var avgStudentTurnMs int64
	if studentTurns > 0 {
		avgStudentTurnMs = int64(math.Round(float64(studentSpeakingMs) / float64(studentTurns)))
	}

	longSilences := 0
	for _, s := range intervals.DetectGaps(sorted, SilenceMinGapMs) {
		if s.DurationMs >= LongSilenceMs {
			longSilences++
		}
	}

	overlaps := intervals.DetectOverlaps(sorted, InterruptionOverlapMs)

	result := types.KPIResult{
		TutorSpeakingMs:               tutorSpeakingMs,
		StudentSpeakingMs:             studentSpeakingMs,
		TalkRatioTutor:                round3(talkRatio),
		MaxTutorMonologueMs:           maxMonologueMs,
		MonologueOver3MinCount:        over3Min,
		MonologueOver5MinCount:        over5Min,
		StudentTurns:                  studentTurns,
		AvgStudentTurnMs:              avgStudentTurnMs,
		StudentSilenceOver15sCount:    longSilences,
		InterruptionsTutorOverStudent: overlaps.TutorOverStudent,
		InterruptionsStudentOverTutor: overlaps.StudentOverTutor,
	}
	result.Alerts = deriveAlerts(result)

	log.WithField("utterances", len(utterances)).
		WithField("talk_ratio", result.TalkRatioTutor).
		WithField("alerts", result.Alerts).
		Info("kpi analysis complete")

	return result, nil
}

// deriveAlerts applies the alert policy in its documented order.
func deriveAlerts(k types.KPIResult) string {
	var alerts []string

	if k.TalkRatioTutor >= TalkRatioHighThreshold {
		alerts = append(alerts, AlertTutorTalkTooMuch)
	} else if k.TalkRatioTutor >= TalkRatioSlightlyHighThreshold {
		alerts = append(alerts, AlertTutorTalkSlightlyHigh)
	}

	if k.MaxTutorMonologueMs >= MonologueOver5MinMs {
		alerts = append(alerts, AlertLongMonologue)
	}

	if k.InterruptionsTutorOverStudent >= FrequentInterruptionsThreshold {
		alerts = append(alerts, AlertFrequentTutorInterruptions)
	}

	if k.StudentSilenceOver15sCount >= FrequentLongSilencesThreshold {
		alerts = append(alerts, AlertFrequentLongSilences)
	}

	return strings.Join(alerts, "; ")
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
