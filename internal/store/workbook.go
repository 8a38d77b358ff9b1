// Package store persists rows to an xlsx workbook, the system's append-only
// tabular store. Sheets are header-addressed on read; positional layout is
// the sheet package's contract.
package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"lesson-insights-go/internal/logger"
	"lesson-insights-go/internal/sheet"
	"lesson-insights-go/internal/types"
)

type Workbook struct {
	path string
	f    *excelize.File
	log  *logrus.Entry
}

// Open loads the workbook at path, creating a new one if it does not exist.
func Open(path string) (*Workbook, error) {
	log := logger.New().WithField("module", "store")

	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		return &Workbook{path: path, f: f, log: log}, nil
	}

	log.WithField("path", path).Info("creating new workbook")
	return &Workbook{path: path, f: excelize.NewFile(), log: log}, nil
}

// Close flushes the workbook to disk.
func (w *Workbook) Close() error {
	if err := w.f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return w.f.Close()
}

// Discard closes the workbook without writing, for read-only access.
func (w *Workbook) Discard() error {
	return w.f.Close()
}

// EnsureSheet creates the named sheet if missing and writes the header row
// if the sheet is empty. Headers are never rewritten over existing data.
func (w *Workbook) EnsureSheet(name string, headers []string) error {
	idx, err := w.f.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("sheet index %s: %w", name, err)
	}
	if idx < 0 {
		if _, err := w.f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		// Drop the default placeholder sheet once a real one exists.
		if def, _ := w.f.GetSheetIndex("Sheet1"); def >= 0 && name != "Sheet1" {
			_ = w.f.DeleteSheet("Sheet1")
		}
		w.log.WithField("sheet", name).Info("sheet created")
	}

	rows, err := w.f.GetRows(name)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		header := make([]interface{}, len(headers))
		for i, h := range headers {
			header[i] = h
		}
		if err := w.f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("write headers %s: %w", name, err)
		}
	}
	return nil
}

// AppendRows appends rows after the last occupied row of the sheet.
func (w *Workbook) AppendRows(name string, rows [][]interface{}) error {
	existing, err := w.f.GetRows(name)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", name, err)
	}
	next := len(existing) + 1
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("append row to %s: %w", name, err)
		}
	}
	w.log.WithField("sheet", name).WithField("rows", len(rows)).Info("rows appended")
	return nil
}

// Rows returns the raw cells of a sheet, header row included.
func (w *Workbook) Rows(name string) ([][]string, error) {
	idx, err := w.f.GetSheetIndex(name)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, nil
	}
	return w.f.GetRows(name)
}

// Lessons reads back every lesson record stored in daily_lessons.
func (w *Workbook) Lessons() ([]types.LessonRecord, error) {
	rows, err := w.Rows(sheet.DailyLessonsSheet)
	if err != nil {
		return nil, err
	}
	return sheet.ParseLessonRows(rows)
}

// Tutors reads the input sheet mapping tutor names to drive folder URLs.
func (w *Workbook) Tutors() ([]types.TutorRecord, error) {
	rows, err := w.Rows(sheet.TutorsSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	nameIdx, urlIdx := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case "tutor_name":
			nameIdx = i
		case "folder_url":
			urlIdx = i
		}
	}
	if nameIdx < 0 || urlIdx < 0 {
		return nil, fmt.Errorf("tutors sheet missing tutor_name/folder_url columns")
	}

	var tutors []types.TutorRecord
	for _, row := range rows[1:] {
		var rec types.TutorRecord
		if nameIdx < len(row) {
			rec.TutorName = strings.TrimSpace(row[nameIdx])
		}
		if urlIdx < len(row) {
			rec.FolderURL = strings.TrimSpace(row[urlIdx])
		}
		if rec.TutorName == "" && rec.FolderURL == "" {
			continue
		}
		tutors = append(tutors, rec)
	}
	return tutors, nil
}

// ProcessedFileIDs returns the drive file ids already present in
// daily_lessons, used to keep the daily job idempotent.
func (w *Workbook) ProcessedFileIDs() (map[string]struct{}, error) {
	rows, err := w.Rows(sheet.DailyLessonsSheet)
	if err != nil {
		return nil, err
	}
	ids := map[string]struct{}{}
	if len(rows) == 0 {
		return ids, nil
	}

	fileIDIdx := -1
	for i, h := range rows[0] {
		if h == "drive_file_id" {
			fileIDIdx = i
			break
		}
	}
	if fileIDIdx < 0 {
		return ids, nil
	}

	for _, row := range rows[1:] {
		if fileIDIdx < len(row) && row[fileIDIdx] != "" {
			ids[row[fileIDIdx]] = struct{}{}
		}
	}
	return ids, nil
}
