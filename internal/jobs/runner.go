// Package jobs drives the batch pipeline end to end: the daily job
// processes yesterday's recordings into lesson rows and daily tutor
// summaries; the weekly and monthly jobs aggregate stored lesson rows into
// period summaries.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lesson-insights-go/internal/aggregate"
	"lesson-insights-go/internal/config"
	"lesson-insights-go/internal/dates"
	"lesson-insights-go/internal/logger"
	"lesson-insights-go/internal/parallel"
	"lesson-insights-go/internal/processor"
	"lesson-insights-go/internal/sheet"
	"lesson-insights-go/internal/store"
	"lesson-insights-go/internal/types"
)

// Job names, also used as lock names.
const (
	DailyJob   = "daily-job"
	WeeklyJob  = "weekly-job"
	MonthlyJob = "monthly-job"
)

type Runner struct {
	cfg  config.Config
	proc *processor.Processor
	log  *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewRunner(cfg config.Config, proc *processor.Processor) *Runner {
	return &Runner{
		cfg:  cfg,
		proc: proc,
		log:  logger.New(),
		now:  time.Now,
	}
}

// RunDaily processes the previous day's recordings for every tutor in the
// input sheet and writes lesson rows plus per-tutor daily summaries.
func (r *Runner) RunDaily(ctx context.Context) (err error) {
	log := r.log.ForJob(DailyJob)
	started := time.Now()

	window, dateStr := dates.DailyRange(r.now())
	log.WithField("date", dateStr).Info("starting daily job")

	wb, err := store.Open(r.cfg.WorkbookPath)
	if err != nil {
		return err
	}
	// Appended rows only reach disk in Close; a failed save fails the run.
	defer func() {
		if cerr := wb.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	tutors, err := wb.Tutors()
	if err != nil {
		return fmt.Errorf("read tutors sheet: %w", err)
	}
	if len(tutors) == 0 {
		log.Warn("no tutor records found in input sheet")
		return nil
	}

	processedIDs, err := wb.ProcessedFileIDs()
	if err != nil {
		return fmt.Errorf("read processed file ids: %w", err)
	}
	log.WithField("tutors", len(tutors)).
		WithField("already_processed", len(processedIDs)).
		Info("input loaded")

	if err := wb.EnsureSheet(sheet.DailyLessonsSheet, sheet.LessonHeaders); err != nil {
		return err
	}

	lessons := r.processTutors(ctx, log, tutors, window, dateStr, processedIDs)

	if len(lessons) == 0 {
		log.Info("no new lessons to write")
		return nil
	}

	lessonRows := make([][]interface{}, len(lessons))
	for i, rec := range lessons {
		lessonRows[i] = sheet.LessonRow(rec)
	}
	if err := wb.AppendRows(sheet.DailyLessonsSheet, lessonRows); err != nil {
		return err
	}

	if err := wb.EnsureSheet(sheet.DailyTutorsSheet, sheet.DailyTutorHeaders); err != nil {
		return err
	}
	summary := aggregate.DailyTutors(lessons, dateStr)
	if len(summary) > 0 {
		rows := make([][]interface{}, len(summary))
		for i, s := range summary {
			rows[i] = sheet.DailyTutorRow(s)
		}
		if err := wb.AppendRows(sheet.DailyTutorsSheet, rows); err != nil {
			return err
		}
	}

	log.WithField("lessons", len(lessons)).
		WithField("tutor_summaries", len(summary)).
		WithField("duration_sec", time.Since(started).Seconds()).
		Info("daily job complete")
	return nil
}

// processTutors fans out folder processing per tutor with bounded
// concurrency; one tutor's failure never blocks the others.
func (r *Runner) processTutors(ctx context.Context, log *logrus.Entry, tutors []types.TutorRecord, window dates.Range, dateStr string, processedIDs map[string]struct{}) []types.LessonRecord {
	concurrency := parallel.OptimalConcurrency(len(tutors), r.cfg.MaxConcurrency)

	batches, failures := parallel.Process(tutors, concurrency, func(t types.TutorRecord) ([]types.LessonRecord, error) {
		if t.TutorName == "" || t.FolderURL == "" {
			return nil, fmt.Errorf("invalid tutor record: name=%q folder=%q", t.TutorName, t.FolderURL)
		}
		return r.proc.ProcessTutorFolder(ctx, processor.FolderRequest{
			TutorName:    t.TutorName,
			FolderURL:    t.FolderURL,
			DateJST:      dateStr,
			Window:       window,
			ProcessedIDs: processedIDs,
		}), nil
	})

	for _, f := range failures {
		log.WithField("tutor", f.Item.TutorName).WithError(f.Err).Warn("tutor skipped")
	}

	var lessons []types.LessonRecord
	for _, batch := range batches {
		lessons = append(lessons, batch...)
	}
	return lessons
}

// RunWeekly aggregates the previous Monday-to-Sunday week of stored lesson
// rows into per-tutor weekly summaries with scores.
func (r *Runner) RunWeekly(ctx context.Context) (err error) {
	log := r.log.ForJob(WeeklyJob)
	started := time.Now()

	_, weekStart, weekEnd := dates.WeeklyRange(r.now())
	log.WithField("week_start", weekStart).WithField("week_end", weekEnd).Info("starting weekly job")

	wb, err := store.Open(r.cfg.WorkbookPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wb.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	lessons, err := wb.Lessons()
	if err != nil {
		return fmt.Errorf("read daily_lessons: %w", err)
	}

	var week []types.LessonRecord
	for _, l := range lessons {
		if l.Status == types.StatusError {
			continue
		}
		if l.DateJST >= weekStart && l.DateJST <= weekEnd {
			week = append(week, l)
		}
	}
	if len(week) == 0 {
		log.Info("no lessons to aggregate for this week")
		return nil
	}

	summaries := aggregate.WeeklySummaries(week, weekStart, weekEnd)

	if err := wb.EnsureSheet(sheet.WeeklyTutorsSheet, sheet.WeeklyTutorHeaders); err != nil {
		return err
	}
	rows := make([][]interface{}, len(summaries))
	for i, s := range summaries {
		rows[i] = sheet.WeeklyTutorRow(s)
	}
	if err := wb.AppendRows(sheet.WeeklyTutorsSheet, rows); err != nil {
		return err
	}

	log.WithField("lessons", len(week)).
		WithField("tutors", len(summaries)).
		WithField("duration_sec", time.Since(started).Seconds()).
		Info("weekly job complete")
	return nil
}

// RunMonthly aggregates the previous calendar month of stored lesson rows
// into per-tutor monthly summaries.
func (r *Runner) RunMonthly(ctx context.Context) (err error) {
	log := r.log.ForJob(MonthlyJob)
	started := time.Now()

	_, monthStr := dates.MonthlyRange(r.now())
	log.WithField("month", monthStr).Info("starting monthly job")

	wb, err := store.Open(r.cfg.WorkbookPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wb.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	lessons, err := wb.Lessons()
	if err != nil {
		return fmt.Errorf("read daily_lessons: %w", err)
	}

	var month []types.LessonRecord
	for _, l := range lessons {
		if l.Status == types.StatusError {
			continue
		}
		if len(l.DateJST) >= len(monthStr) && l.DateJST[:len(monthStr)] == monthStr {
			month = append(month, l)
		}
	}
	if len(month) == 0 {
		log.Info("no lessons to aggregate for this month")
		return nil
	}

	summaries := aggregate.MonthlyTutors(month, monthStr)

	if err := wb.EnsureSheet(sheet.MonthlyTutorsSheet, sheet.MonthlyTutorHeaders); err != nil {
		return err
	}
	rows := make([][]interface{}, len(summaries))
	for i, s := range summaries {
		rows[i] = sheet.MonthlyTutorRow(s)
	}
	if err := wb.AppendRows(sheet.MonthlyTutorsSheet, rows); err != nil {
		return err
	}

	log.WithField("lessons", len(month)).
		WithField("tutors", len(summaries)).
		WithField("duration_sec", time.Since(started).Seconds()).
		Info("monthly job complete")
	return nil
}
