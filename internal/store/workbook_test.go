package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"lesson-insights-go/internal/sheet"
	"lesson-insights-go/internal/types"
)

func openTemp(t *testing.T) (*Workbook, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "insights.xlsx")
	wb, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return wb, path
}

func TestEnsureSheetWritesHeadersOnce(t *testing.T) {
	wb, path := openTemp(t)

	if err := wb.EnsureSheet(sheet.DailyLessonsSheet, sheet.LessonHeaders); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := wb.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Discard()

	// A second EnsureSheet against existing data must not duplicate headers.
	if err := reopened.EnsureSheet(sheet.DailyLessonsSheet, sheet.LessonHeaders); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}
	rows, err := reopened.Rows(sheet.DailyLessonsSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header row only, got %d rows", len(rows))
	}
	if rows[0][0] != "date_jst" {
		t.Fatalf("unexpected first header: %q", rows[0][0])
	}
}

func TestAppendRowsAndReadBackLessons(t *testing.T) {
	wb, path := openTemp(t)

	if err := wb.EnsureSheet(sheet.DailyLessonsSheet, sheet.LessonHeaders); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	rec := types.LessonRecord{
		DateJST:        "2026-08-27",
		TutorName:      "Sato",
		DriveFileID:    "file-1",
		DriveFileName:  "lesson.mp4",
		DurationSec:    3600,
		TalkRatioTutor: 0.642,
		StudentTurns:   18,
		Status:         types.StatusOK,
	}
	if err := wb.AppendRows(sheet.DailyLessonsSheet, [][]interface{}{sheet.LessonRow(rec)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := wb.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Discard()

	lessons, err := reopened.Lessons()
	if err != nil {
		t.Fatalf("lessons: %v", err)
	}
	if len(lessons) != 1 {
		t.Fatalf("expected 1 lesson, got %d", len(lessons))
	}
	got := lessons[0]
	if got.TutorName != "Sato" || got.DriveFileID != "file-1" || got.TalkRatioTutor != 0.642 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestAppendRowsAppendsAfterExisting(t *testing.T) {
	wb, _ := openTemp(t)
	defer wb.Discard()

	if err := wb.EnsureSheet(sheet.DailyTutorsSheet, sheet.DailyTutorHeaders); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	for i := 0; i < 3; i++ {
		row := sheet.DailyTutorRow(types.DailyTutorRow{DateJST: "2026-08-27", TutorName: fmt.Sprintf("tutor-%d", i)})
		if err := wb.AppendRows(sheet.DailyTutorsSheet, [][]interface{}{row}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	rows, err := wb.Rows(sheet.DailyTutorsSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[3][1] != "tutor-2" {
		t.Fatalf("expected last row tutor-2, got %q", rows[3][1])
	}
}

func TestTutors(t *testing.T) {
	wb, _ := openTemp(t)
	defer wb.Discard()

	if err := wb.EnsureSheet(sheet.TutorsSheet, sheet.TutorsHeaders); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	rows := [][]interface{}{
		{"Sato", "https://files.example.com/folders/abc123"},
		{"  Suzuki  ", "https://files.example.com/folders/def456"},
		{"", ""}, // blank row, skipped
	}
	if err := wb.AppendRows(sheet.TutorsSheet, rows); err != nil {
		t.Fatalf("append: %v", err)
	}

	tutors, err := wb.Tutors()
	if err != nil {
		t.Fatalf("tutors: %v", err)
	}
	if len(tutors) != 2 {
		t.Fatalf("expected 2 tutors, got %d: %v", len(tutors), tutors)
	}
	if tutors[1].TutorName != "Suzuki" {
		t.Fatalf("expected trimmed name, got %q", tutors[1].TutorName)
	}
}

func TestProcessedFileIDs(t *testing.T) {
	wb, _ := openTemp(t)
	defer wb.Discard()

	if err := wb.EnsureSheet(sheet.DailyLessonsSheet, sheet.LessonHeaders); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	recs := []types.LessonRecord{
		{DateJST: "2026-08-27", TutorName: "Sato", DriveFileID: "file-1", Status: types.StatusOK},
		{DateJST: "2026-08-27", TutorName: "Sato", DriveFileID: "file-2", Status: types.StatusError},
		{DateJST: "2026-08-27", TutorName: "Sato", Status: types.StatusError}, // folder-level error, no id
	}
	var cells [][]interface{}
	for _, r := range recs {
		cells = append(cells, sheet.LessonRow(r))
	}
	if err := wb.AppendRows(sheet.DailyLessonsSheet, cells); err != nil {
		t.Fatalf("append: %v", err)
	}

	ids, err := wb.ProcessedFileIDs()
	if err != nil {
		t.Fatalf("processed ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
	if _, ok := ids["file-1"]; !ok {
		t.Fatal("file-1 missing")
	}
	if _, ok := ids["file-2"]; !ok {
		t.Fatal("file-2 missing")
	}
}

func TestRowsMissingSheetReturnsNil(t *testing.T) {
	wb, _ := openTemp(t)
	defer wb.Discard()

	rows, err := wb.Rows("never_created")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != nil {
		t.Fatalf("expected nil for missing sheet, got %v", rows)
	}
}
