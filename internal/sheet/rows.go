// Package sheet owns the tabular-store schema: the header order of every
// sheet and the conversion between named records and positional rows.
// Positional access happens only here; everything else works with the
// records in the types package.
package sheet

import (
	"fmt"
	"math"
	"strconv"

	"lesson-insights-go/internal/types"
)

// Sheet names in the workbook.
const (
	TutorsSheet        = "tutors"
	DailyLessonsSheet  = "daily_lessons"
	DailyTutorsSheet   = "daily_tutors"
	WeeklyTutorsSheet  = "weekly_tutors"
	MonthlyTutorsSheet = "monthly_tutors"
)

// LessonHeaders is the wire contract of the daily_lessons sheet. Order is
// load-bearing: existing stored data is addressed by these names in this
// order.
var LessonHeaders = []string{
	"date_jst",
	"tutor_name",
	"source_folder_url",
	"drive_file_id",
	"drive_file_name",
	"created_time_jst",
	"duration_sec",
	"talk_ratio_tutor",
	"tutor_speaking_sec",
	"student_speaking_sec",
	"max_tutor_monologue_sec",
	"monologue_over_3min_count",
	"monologue_over_5min_count",
	"student_turns",
	"student_silence_over_15s_count",
	"interruptions_tutor_over_student",
	"interruptions_student_over_tutor",
	"confusion_ratio_est",
	"stress_ratio_est",
	"positive_ratio_est",
	"confusion_top3",
	"stress_top3",
	"positive_top3",
	"improvement_advice",
	"recommended_actions",
	"status",
	"error_message",
}

var TutorsHeaders = []string{"tutor_name", "folder_url"}

var DailyTutorHeaders = []string{
	"date_jst",
	"tutor_name",
	"lessons_count",
	"avg_talk_ratio_tutor",
	"avg_max_tutor_monologue_sec",
	"total_interruptions_tutor_over_student",
	"avg_confusion_ratio_est",
	"avg_stress_ratio_est",
	"alerts",
}

var WeeklyTutorHeaders = []string{
	"week_start_jst",
	"week_end_jst",
	"tutor_name",
	"lessons_count",
	"weekly_score_total",
	"score_breakdown",
	"weekly_key_findings",
	"weekly_actions_top3",
}

var MonthlyTutorHeaders = []string{
	"date_jst",
	"tutor_name",
	"lessons_count",
	"avg_tutor_talk_ratio",
	"avg_silence_15s_count",
	"total_duration_min",
}

// LessonIdentity is everything about a lesson known before analysis.
type LessonIdentity struct {
	DateJST        string
	TutorName      string
	FolderURL      string
	FileID         string
	FileName       string
	CreatedTimeJST string
	DurationSec    int
}

// NewLessonRecord combines identity, KPIs and narrative output into an OK
// lesson record. Millisecond KPIs are rounded to whole seconds here; the
// record is the rounding boundary.
func NewLessonRecord(id LessonIdentity, kpis types.KPIResult, emotions types.EmotionResult, report types.ReportResult) types.LessonRecord {
	return types.LessonRecord{
		DateJST:         id.DateJST,
		TutorName:       id.TutorName,
		SourceFolderURL: id.FolderURL,
		DriveFileID:     id.FileID,
		DriveFileName:   id.FileName,
		CreatedTimeJST:  id.CreatedTimeJST,
		DurationSec:     id.DurationSec,

		TalkRatioTutor:                kpis.TalkRatioTutor,
		TutorSpeakingSec:              msToSec(kpis.TutorSpeakingMs),
		StudentSpeakingSec:            msToSec(kpis.StudentSpeakingMs),
		MaxTutorMonologueSec:          msToSec(kpis.MaxTutorMonologueMs),
		MonologueOver3MinCount:        kpis.MonologueOver3MinCount,
		MonologueOver5MinCount:        kpis.MonologueOver5MinCount,
		StudentTurns:                  kpis.StudentTurns,
		StudentSilenceOver15sCount:    kpis.StudentSilenceOver15sCount,
		InterruptionsTutorOverStudent: kpis.InterruptionsTutorOverStudent,
		InterruptionsStudentOverTutor: kpis.InterruptionsStudentOverTutor,

		ConfusionRatioEst: emotions.ConfusionRatioEst,
		StressRatioEst:    emotions.StressRatioEst,
		PositiveRatioEst:  emotions.PositiveRatioEst,
		ConfusionTop3:     emotions.ConfusionTop3,
		StressTop3:        emotions.StressTop3,
		PositiveTop3:      emotions.PositiveTop3,

		ImprovementAdvice:  report.ImprovementAdvice,
		RecommendedActions: report.RecommendedActions,

		Status: types.StatusOK,
		Alerts: kpis.Alerts,
	}
}

// NewErrorRecord builds the zero-filled ERROR row written when a lesson
// could not be processed.
func NewErrorRecord(id LessonIdentity, errorMessage string) types.LessonRecord {
	return types.LessonRecord{
		DateJST:         id.DateJST,
		TutorName:       id.TutorName,
		SourceFolderURL: id.FolderURL,
		DriveFileID:     id.FileID,
		DriveFileName:   id.FileName,
		CreatedTimeJST:  id.CreatedTimeJST,
		Status:          types.StatusError,
		ErrorMessage:    errorMessage,
	}
}

// LessonRow serializes a record in LessonHeaders order.
func LessonRow(r types.LessonRecord) []interface{} {
	return []interface{}{
		r.DateJST,
		r.TutorName,
		r.SourceFolderURL,
		r.DriveFileID,
		r.DriveFileName,
		r.CreatedTimeJST,
		r.DurationSec,
		r.TalkRatioTutor,
		r.TutorSpeakingSec,
		r.StudentSpeakingSec,
		r.MaxTutorMonologueSec,
		r.MonologueOver3MinCount,
		r.MonologueOver5MinCount,
		r.StudentTurns,
		r.StudentSilenceOver15sCount,
		r.InterruptionsTutorOverStudent,
		r.InterruptionsStudentOverTutor,
		r.ConfusionRatioEst,
		r.StressRatioEst,
		r.PositiveRatioEst,
		r.ConfusionTop3,
		r.StressTop3,
		r.PositiveTop3,
		r.ImprovementAdvice,
		r.RecommendedActions,
		r.Status,
		r.ErrorMessage,
	}
}

// ParseLessonRows converts a raw sheet read-back (header row first) into
// records, addressing columns by header name so column drift fails loudly
// instead of silently corrupting aggregates.
func ParseLessonRows(rows [][]string) ([]types.LessonRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[h] = i
	}
	for _, required := range LessonHeaders {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("daily_lessons sheet missing column %q", required)
		}
	}

	records := make([]types.LessonRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cell := func(name string) string {
			i := idx[name]
			if i >= len(row) {
				return ""
			}
			return row[i]
		}
		records = append(records, types.LessonRecord{
			DateJST:         cell("date_jst"),
			TutorName:       cell("tutor_name"),
			SourceFolderURL: cell("source_folder_url"),
			DriveFileID:     cell("drive_file_id"),
			DriveFileName:   cell("drive_file_name"),
			CreatedTimeJST:  cell("created_time_jst"),
			DurationSec:     parseInt(cell("duration_sec")),

			TalkRatioTutor:                parseFloat(cell("talk_ratio_tutor")),
			TutorSpeakingSec:              parseInt(cell("tutor_speaking_sec")),
			StudentSpeakingSec:            parseInt(cell("student_speaking_sec")),
			MaxTutorMonologueSec:          parseInt(cell("max_tutor_monologue_sec")),
			MonologueOver3MinCount:        parseInt(cell("monologue_over_3min_count")),
			MonologueOver5MinCount:        parseInt(cell("monologue_over_5min_count")),
			StudentTurns:                  parseInt(cell("student_turns")),
			StudentSilenceOver15sCount:    parseInt(cell("student_silence_over_15s_count")),
			InterruptionsTutorOverStudent: parseInt(cell("interruptions_tutor_over_student")),
			InterruptionsStudentOverTutor: parseInt(cell("interruptions_student_over_tutor")),

			ConfusionRatioEst: parseFloat(cell("confusion_ratio_est")),
			StressRatioEst:    parseFloat(cell("stress_ratio_est")),
			PositiveRatioEst:  parseFloat(cell("positive_ratio_est")),
			ConfusionTop3:     cell("confusion_top3"),
			StressTop3:        cell("stress_top3"),
			PositiveTop3:      cell("positive_top3"),

			ImprovementAdvice:  cell("improvement_advice"),
			RecommendedActions: cell("recommended_actions"),

			Status:       cell("status"),
			ErrorMessage: cell("error_message"),
		})
	}
	return records, nil
}

// DailyTutorRow serializes a daily tutor summary in DailyTutorHeaders order.
func DailyTutorRow(r types.DailyTutorRow) []interface{} {
	return []interface{}{
		r.DateJST,
		r.TutorName,
		r.LessonsCount,
		r.AvgTalkRatioTutor,
		r.AvgMaxTutorMonologueSec,
		r.TotalInterruptionsTutorOverSt,
		r.AvgConfusionRatioEst,
		r.AvgStressRatioEst,
		r.Alerts,
	}
}

// WeeklyTutorRow serializes a weekly tutor summary in WeeklyTutorHeaders order.
func WeeklyTutorRow(r types.WeeklyTutorRow) []interface{} {
	return []interface{}{
		r.WeekStartJST,
		r.WeekEndJST,
		r.TutorName,
		r.LessonsCount,
		r.WeeklyScore,
		r.ScoreBreakdown,
		r.KeyFindings,
		r.ActionsTop3,
	}
}

// MonthlyTutorRow serializes a monthly tutor summary in MonthlyTutorHeaders order.
func MonthlyTutorRow(r types.MonthlyTutorRow) []interface{} {
	return []interface{}{
		r.MonthJST,
		r.TutorName,
		r.LessonsCount,
		r.AvgTutorTalkRatio,
		r.AvgSilence15sCount,
		r.TotalDurationMin,
	}
}

func msToSec(ms int64) int {
	return int(math.Round(float64(ms) / 1000))
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
