// Package processor runs the per-lesson pipeline: download the recording,
// extract audio, transcribe, analyze KPIs, generate narrative output and
// shape it into a lesson record. Each lesson fails in isolation: any error
// becomes an ERROR record, never an aborted batch.
package processor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"lesson-insights-go/internal/analyzer"
	"lesson-insights-go/internal/dates"
	"lesson-insights-go/internal/drive"
	"lesson-insights-go/internal/logger"
	"lesson-insights-go/internal/sheet"
	"lesson-insights-go/internal/types"
)

// FileStore lists and downloads lesson recordings.
type FileStore interface {
	ListVideos(ctx context.Context, folderID string, start, end time.Time) ([]types.VideoFile, error)
	Download(ctx context.Context, fileID, fileName string) (string, error)
}

// MediaTransform turns a video into normalized audio plus duration seconds.
type MediaTransform interface {
	ProcessVideo(ctx context.Context, videoPath, fileID string) (string, int, error)
}

// Transcriber produces diarized utterances from an audio file.
type Transcriber interface {
	TranscribeAndDiarize(ctx context.Context, audioPath string) ([]types.Utterance, error)
}

// Narrative is the emotion/report generator. Both methods degrade to safe
// defaults internally and never fail a lesson.
type Narrative interface {
	AnalyzeEmotions(ctx context.Context, utterances []types.Utterance) types.EmotionResult
	GenerateReport(ctx context.Context, kpis types.KPIResult, emotions types.EmotionResult) types.ReportResult
}

// Processor wires the collaborators for lesson processing. Construct once
// per process and pass into the jobs; no package-level singletons.
type Processor struct {
	Files      FileStore
	Media      MediaTransform
	Transcribe Transcriber
	Narrative  Narrative

	log *logrus.Entry
}

func New(files FileStore, media MediaTransform, transcribe Transcriber, narrative Narrative) *Processor {
	return &Processor{
		Files:      files,
		Media:      media,
		Transcribe: transcribe,
		Narrative:  narrative,
		log:        logger.New().WithField("module", "processor"),
	}
}

// LessonRequest identifies one recording to process.
type LessonRequest struct {
	TutorName string
	FolderURL string
	File      types.VideoFile
	DateJST   string
}

// ProcessLesson runs the pipeline for one recording. It always returns a
// record; ok reports whether it is an OK row.
func (p *Processor) ProcessLesson(ctx context.Context, req LessonRequest) (record types.LessonRecord, ok bool) {
	log := p.log.WithField("tutor", req.TutorName).WithField("file", req.File.Name)
	log.Info("processing lesson")

	identity := sheet.LessonIdentity{
		DateJST:        req.DateJST,
		TutorName:      req.TutorName,
		FolderURL:      req.FolderURL,
		FileID:         req.File.ID,
		FileName:       req.File.Name,
		CreatedTimeJST: dates.ToJSTString(req.File.CreatedTime),
	}

	var videoPath, audioPath string
	defer func() { cleanup(log, videoPath, audioPath) }()

	videoPath, err := p.Files.Download(ctx, req.File.ID, req.File.Name)
	if err != nil {
		log.WithError(err).Error("download failed")
		return sheet.NewErrorRecord(identity, fmt.Sprintf("download error: %v", err)), false
	}

	audioPath, duration, err := p.Media.ProcessVideo(ctx, videoPath, req.File.ID)
	if err != nil {
		log.WithError(err).Error("audio extraction failed")
		return sheet.NewErrorRecord(identity, fmt.Sprintf("audio error: %v", err)), false
	}
	identity.DurationSec = duration

	utterances, err := p.Transcribe.TranscribeAndDiarize(ctx, audioPath)
	if err != nil {
		log.WithError(err).Error("transcription failed")
		return sheet.NewErrorRecord(identity, fmt.Sprintf("transcription error: %v", err)), false
	}
	if len(utterances) == 0 {
		log.Error("no utterances detected")
		return sheet.NewErrorRecord(identity, "no utterances detected - audio quality may be too poor"), false
	}

	kpis, err := analyzer.Analyze(utterances, duration)
	if err != nil {
		log.WithError(err).Error("kpi analysis rejected input")
		return sheet.NewErrorRecord(identity, fmt.Sprintf("kpi error: %v", err)), false
	}

	emotions := p.Narrative.AnalyzeEmotions(ctx, utterances)
	report := p.Narrative.GenerateReport(ctx, kpis, emotions)

	log.WithField("talk_ratio", kpis.TalkRatioTutor).Info("lesson processed")
	return sheet.NewLessonRecord(identity, kpis, emotions, report), true
}

// FolderRequest identifies a tutor's folder and the reporting window.
type FolderRequest struct {
	TutorName    string
	FolderURL    string
	DateJST      string
	Window       dates.Range
	ProcessedIDs map[string]struct{}
}

// ProcessTutorFolder lists the tutor's recordings in the window, skips the
// already-processed ones and runs the lesson pipeline over the rest. A
// folder access failure yields a single ERROR record for the tutor.
func (p *Processor) ProcessTutorFolder(ctx context.Context, req FolderRequest) []types.LessonRecord {
	log := p.log.WithField("tutor", req.TutorName)

	identity := sheet.LessonIdentity{
		DateJST:   req.DateJST,
		TutorName: req.TutorName,
		FolderURL: req.FolderURL,
	}

	folderID, err := drive.ExtractFolderID(req.FolderURL)
	if err != nil {
		log.WithError(err).Error("invalid folder url")
		return []types.LessonRecord{sheet.NewErrorRecord(identity, fmt.Sprintf("folder access error: %v", err))}
	}

	files, err := p.Files.ListVideos(ctx, folderID, req.Window.Start, req.Window.End)
	if err != nil {
		log.WithError(err).Error("folder listing failed")
		return []types.LessonRecord{sheet.NewErrorRecord(identity, fmt.Sprintf("folder access error: %v", err))}
	}
	if len(files) == 0 {
		log.Info("no videos in date range")
		return nil
	}

	var rows []types.LessonRecord
	skipped := 0
	for _, f := range files {
		if _, done := req.ProcessedIDs[f.ID]; done {
			skipped++
			continue
		}
		record, _ := p.ProcessLesson(ctx, LessonRequest{
			TutorName: req.TutorName,
			FolderURL: req.FolderURL,
			File:      f,
			DateJST:   req.DateJST,
		})
		rows = append(rows, record)
	}

	log.WithField("processed", len(rows)).WithField("skipped", skipped).Info("folder complete")
	return rows
}

func cleanup(log *logrus.Entry, paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn("failed to clean up temp file")
		}
	}
}
