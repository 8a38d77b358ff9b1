package types

import "time"

// SpeakerRole identifies which side of the lesson spoke an utterance.
type SpeakerRole string

const (
	RoleTutor   SpeakerRole = "Tutor"
	RoleStudent SpeakerRole = "Student"
)

// Utterance is one contiguous diarized speech segment produced by the
// transcription service. Start/end are milliseconds from lesson start.
type Utterance struct {
	StartMs int64       `json:"start_ms"`
	EndMs   int64       `json:"end_ms"`
	Speaker SpeakerRole `json:"speaker_role"`
	Text    string      `json:"text"`
}

func (u Utterance) DurationMs() int64 {
	return u.EndMs - u.StartMs
}

// KPIResult holds the per-lesson conversational metrics.
type KPIResult struct {
	TutorSpeakingMs   int64   `json:"tutor_speaking_ms"`
	StudentSpeakingMs int64   `json:"student_speaking_ms"`
	TalkRatioTutor    float64 `json:"talk_ratio_tutor"`

	MaxTutorMonologueMs    int64 `json:"max_tutor_monologue_ms"`
	MonologueOver3MinCount int   `json:"monologue_over_3min_count"`
	MonologueOver5MinCount int   `json:"monologue_over_5min_count"`

	StudentTurns               int   `json:"student_turns"`
	AvgStudentTurnMs           int64 `json:"avg_student_turn_ms"`
	StudentSilenceOver15sCount int   `json:"student_silence_over_15s_count"`

	InterruptionsTutorOverStudent int `json:"interruptions_tutor_over_student"`
	InterruptionsStudentOverTutor int `json:"interruptions_student_over_tutor"`

	// Alerts is a semicolon-joined list of fired alert tags.
	Alerts string `json:"alerts"`
}

// EmotionResult is the normalized output of the narrative generator's
// emotional-signal analysis. Ratios are always within [0,1].
type EmotionResult struct {
	ConfusionRatioEst float64 `json:"confusion_ratio_est"`
	StressRatioEst    float64 `json:"stress_ratio_est"`
	PositiveRatioEst  float64 `json:"positive_ratio_est"`
	ConfusionTop3     string  `json:"confusion_top3"`
	StressTop3        string  `json:"stress_top3"`
	PositiveTop3      string  `json:"positive_top3"`
}

// ReportResult is the normalized output of the narrative generator's
// improvement report.
type ReportResult struct {
	ImprovementAdvice  string `json:"improvement_advice"`
	RecommendedActions string `json:"recommended_actions"`
}

// Lesson row status values.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// LessonRecord is one processed lesson, the unit persisted to the
// daily_lessons sheet. Field order of the persisted row is defined in the
// sheet package; everything in-process goes through this named record.
type LessonRecord struct {
	DateJST         string `json:"date_jst"`
	TutorName       string `json:"tutor_name"`
	SourceFolderURL string `json:"source_folder_url"`
	DriveFileID     string `json:"drive_file_id"`
	DriveFileName   string `json:"drive_file_name"`
	CreatedTimeJST  string `json:"created_time_jst"`
	DurationSec     int    `json:"duration_sec"`

	TalkRatioTutor                float64 `json:"talk_ratio_tutor"`
	TutorSpeakingSec              int     `json:"tutor_speaking_sec"`
	StudentSpeakingSec            int     `json:"student_speaking_sec"`
	MaxTutorMonologueSec          int     `json:"max_tutor_monologue_sec"`
	MonologueOver3MinCount        int     `json:"monologue_over_3min_count"`
	MonologueOver5MinCount        int     `json:"monologue_over_5min_count"`
	StudentTurns                  int     `json:"student_turns"`
	StudentSilenceOver15sCount    int     `json:"student_silence_over_15s_count"`
	InterruptionsTutorOverStudent int     `json:"interruptions_tutor_over_student"`
	InterruptionsStudentOverTutor int     `json:"interruptions_student_over_tutor"`

	ConfusionRatioEst float64 `json:"confusion_ratio_est"`
	StressRatioEst    float64 `json:"stress_ratio_est"`
	PositiveRatioEst  float64 `json:"positive_ratio_est"`
	ConfusionTop3     string  `json:"confusion_top3"`
	StressTop3        string  `json:"stress_top3"`
	PositiveTop3      string  `json:"positive_top3"`

	ImprovementAdvice  string `json:"improvement_advice"`
	RecommendedActions string `json:"recommended_actions"`

	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`

	// Alerts is carried in memory for same-run aggregation only; it is not
	// part of the persisted lesson row.
	Alerts string `json:"alerts,omitempty"`
}

// DailyTutorRow is one tutor's summary for a single day.
type DailyTutorRow struct {
	DateJST                       string  `json:"date_jst"`
	TutorName                     string  `json:"tutor_name"`
	LessonsCount                  int     `json:"lessons_count"`
	AvgTalkRatioTutor             float64 `json:"avg_talk_ratio_tutor"`
	AvgMaxTutorMonologueSec       int     `json:"avg_max_tutor_monologue_sec"`
	TotalInterruptionsTutorOverSt int     `json:"total_interruptions_tutor_over_student"`
	AvgConfusionRatioEst          float64 `json:"avg_confusion_ratio_est"`
	AvgStressRatioEst             float64 `json:"avg_stress_ratio_est"`
	Alerts                        string  `json:"alerts"`
}

// WeeklyTutorRow is one tutor's summary for a Monday-to-Sunday week,
// including the rule-based weekly score.
type WeeklyTutorRow struct {
	WeekStartJST    string `json:"week_start_jst"`
	WeekEndJST      string `json:"week_end_jst"`
	TutorName       string `json:"tutor_name"`
	LessonsCount    int    `json:"lessons_count"`
	WeeklyScore     int    `json:"weekly_score_total"`
	ScoreBreakdown  string `json:"score_breakdown"`
	KeyFindings     string `json:"weekly_key_findings"`
	ActionsTop3     string `json:"weekly_actions_top3"`
}

// MonthlyTutorRow is one tutor's summary for a calendar month.
type MonthlyTutorRow struct {
	MonthJST            string  `json:"date_jst"`
	TutorName           string  `json:"tutor_name"`
	LessonsCount        int     `json:"lessons_count"`
	AvgTutorTalkRatio   float64 `json:"avg_tutor_talk_ratio"`
	AvgSilence15sCount  float64 `json:"avg_silence_15s_count"`
	TotalDurationMin    float64 `json:"total_duration_min"`
}

// VideoFile is a recording listed by the file store.
type VideoFile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedTime time.Time `json:"created_time"`
	SizeBytes   int64     `json:"size_bytes"`
}

// TutorRecord is one row of the tutors input sheet.
type TutorRecord struct {
	TutorName string `json:"tutor_name"`
	FolderURL string `json:"folder_url"`
}
