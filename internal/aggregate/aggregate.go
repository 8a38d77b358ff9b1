// Package aggregate turns a batch of per-lesson records into per-tutor
// period summaries: daily and monthly averages plus the rule-based weekly
// score. ERROR rows are excluded from every aggregate; a tutor with no OK
// lessons in the period produces no summary row at all.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"lesson-insights-go/internal/types"
)

// groupByTutor buckets OK-status lessons per tutor, preserving first-seen
// tutor order for stable output.
func groupByTutor(lessons []types.LessonRecord) ([]string, map[string][]types.LessonRecord) {
	var order []string
	groups := map[string][]types.LessonRecord{}
	for _, l := range lessons {
		if l.Status == types.StatusError {
			continue
		}
		if _, seen := groups[l.TutorName]; !seen {
			order = append(order, l.TutorName)
		}
		groups[l.TutorName] = append(groups[l.TutorName], l)
	}
	return order, groups
}

// DailyTutors aggregates one day of lesson records into per-tutor rows.
func DailyTutors(lessons []types.LessonRecord, dateJST string) []types.DailyTutorRow {
	order, groups := groupByTutor(lessons)

	var rows []types.DailyTutorRow
	for _, tutor := range order {
		ls := groups[tutor]
		n := float64(len(ls))

		var talkRatio, maxMonologue, confusion, stress float64
		interruptions := 0
		var alerts []string
		for _, l := range ls {
			talkRatio += l.TalkRatioTutor
			maxMonologue += float64(l.MaxTutorMonologueSec)
			confusion += l.ConfusionRatioEst
			stress += l.StressRatioEst
			interruptions += l.InterruptionsTutorOverStudent
			if l.Alerts != "" {
				alerts = append(alerts, l.Alerts)
			}
		}

		rows = append(rows, types.DailyTutorRow{
			DateJST:                       dateJST,
			TutorName:                     tutor,
			LessonsCount:                  len(ls),
			AvgTalkRatioTutor:             round3(talkRatio / n),
			AvgMaxTutorMonologueSec:       int(math.Round(maxMonologue / n)),
			TotalInterruptionsTutorOverSt: interruptions,
			AvgConfusionRatioEst:          round3(confusion / n),
			AvgStressRatioEst:             round3(stress / n),
			Alerts:                        strings.Join(alerts, "; "),
		})
	}
	return rows
}

// MonthlyTutors aggregates one month of lesson records into per-tutor rows.
func MonthlyTutors(lessons []types.LessonRecord, monthJST string) []types.MonthlyTutorRow {
	order, groups := groupByTutor(lessons)

	var rows []types.MonthlyTutorRow
	for _, tutor := range order {
		ls := groups[tutor]
		n := float64(len(ls))

		var talkRatio, silences float64
		totalDurationSec := 0
		for _, l := range ls {
			talkRatio += l.TalkRatioTutor
			silences += float64(l.StudentSilenceOver15sCount)
			totalDurationSec += l.DurationSec
		}

		rows = append(rows, types.MonthlyTutorRow{
			MonthJST:           monthJST,
			TutorName:          tutor,
			LessonsCount:       len(ls),
			AvgTutorTalkRatio:  round3(talkRatio / n),
			AvgSilence15sCount: round1(silences / n),
			TotalDurationMin:   round1(float64(totalDurationSec) / 60),
		})
	}
	return rows
}

// WeeklySummaries aggregates one week of lesson records into per-tutor rows
// with score, breakdown, findings and recommended actions. Output is sorted
// by tutor name.
func WeeklySummaries(lessons []types.LessonRecord, weekStartJST, weekEndJST string) []types.WeeklyTutorRow {
	order, groups := groupByTutor(lessons)
	sort.Strings(order)

	var rows []types.WeeklyTutorRow
	for _, tutor := range order {
		ls := groups[tutor]
		score, breakdown := WeeklyScore(ls)
		rows = append(rows, types.WeeklyTutorRow{
			WeekStartJST:   weekStartJST,
			WeekEndJST:     weekEndJST,
			TutorName:      tutor,
			LessonsCount:   len(ls),
			WeeklyScore:    score,
			ScoreBreakdown: breakdown,
			KeyFindings:    WeeklyFindings(ls, tutor),
			ActionsTop3:    WeeklyActions(ls, score),
		})
	}
	return rows
}

// weeklyAverages are the per-tutor weekly means the score and action rules
// read from.
type weeklyAverages struct {
	talkRatio     float64
	maxMonologue  float64 // seconds
	interruptions float64 // tutor over student
	studentTurns  float64
	confusion     float64
	stress        float64
}

func averages(lessons []types.LessonRecord) weeklyAverages {
	n := float64(len(lessons))
	var a weeklyAverages
	for _, l := range lessons {
		a.talkRatio += l.TalkRatioTutor
		a.maxMonologue += float64(l.MaxTutorMonologueSec)
		a.interruptions += float64(l.InterruptionsTutorOverStudent)
		a.studentTurns += float64(l.StudentTurns)
		a.confusion += l.ConfusionRatioEst
		a.stress += l.StressRatioEst
	}
	a.talkRatio /= n
	a.maxMonologue /= n
	a.interruptions /= n
	a.studentTurns /= n
	a.confusion /= n
	a.stress /= n
	return a
}

// WeeklyScore applies the deduction table to a tutor's week of lessons.
// It starts at 100, applies every deduction whose condition holds and
// floors the result at 0. The thresholds and amounts are agreed business
// policy; changing them breaks comparability with historical scores.
func WeeklyScore(lessons []types.LessonRecord) (int, string) {
	if len(lessons) == 0 {
		return 0, ""
	}

	a := averages(lessons)
	score := 100
	var breakdown []string

	deduct := func(points int, label string) {
		score -= points
		breakdown = append(breakdown, fmt.Sprintf("%s(-%d)", label, points))
	}

	switch {
	case a.talkRatio >= 0.70:
		deduct(30, "発話比率高")
	case a.talkRatio >= 0.60:
		deduct(15, "発話比率やや高")
	}

	switch {
	case a.maxMonologue >= 300:
		deduct(20, "長時間モノローグ")
	case a.maxMonologue >= 180:
		deduct(10, "モノローグやや長")
	}

	switch {
	case a.interruptions >= 5:
		deduct(15, "割り込み頻繁")
	case a.interruptions >= 3:
		deduct(8, "割り込みやや多")
	}

	switch {
	case a.studentTurns < 10:
		deduct(20, "生徒発話少")
	case a.studentTurns < 20:
		deduct(10, "生徒発話やや少")
	}

	switch {
	case a.confusion >= 0.3 || a.stress >= 0.3:
		deduct(15, "困惑/ストレス高")
	case a.confusion >= 0.2 || a.stress >= 0.2:
		deduct(8, "困惑/ストレスやや高")
	}

	if score < 0 {
		score = 0
	}
	if len(breakdown) == 0 {
		return score, "良好"
	}
	return score, strings.Join(breakdown, "; ")
}

// WeeklyFindings builds the deterministic weekly summary sentence.
func WeeklyFindings(lessons []types.LessonRecord, tutorName string) string {
	if len(lessons) == 0 {
		return ""
	}
	a := averages(lessons)
	return fmt.Sprintf("%s先生は今週%dレッスンを実施。平均発話比率%.0f%%、最長連続発話%.0f秒、生徒発話ターン%.0f回。",
		tutorName, len(lessons), a.talkRatio*100, math.Round(a.maxMonologue), math.Round(a.studentTurns))
}

// WeeklyActions derives up to three recommended actions from the weekly
// averages, newline-joined.
func WeeklyActions(lessons []types.LessonRecord, score int) string {
	if len(lessons) == 0 {
		return ""
	}
	a := averages(lessons)

	var actions []string
	if a.talkRatio >= 0.60 {
		actions = append(actions, "講師発話を減らし、生徒に要約や言い換えを依頼する時間を増やす")
	}
	if a.maxMonologue >= 180 {
		actions = append(actions, "3分ごとに理解確認の質問を挟み、生徒のアウトプット機会を作る")
	}
	if a.interruptions >= 3 {
		actions = append(actions, "生徒の発話を最後まで聞き、間を十分に取ってから応答する")
	}

	if len(actions) == 0 && score >= 80 {
		actions = append(actions, "現在の対話バランスを維持しつつ、生徒の自発的発話をさらに促す")
	}
	if len(actions) == 0 {
		actions = append(actions, "生徒の発話機会を増やすため、オープンクエスチョンを活用する")
	}

	if len(actions) > 3 {
		actions = actions[:3]
	}
	return strings.Join(actions, "\n")
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
