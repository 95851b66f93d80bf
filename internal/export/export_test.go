package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/shelfscan/internal/models"
)

func sampleResult() *models.ScanResult {
	return &models.ScanResult{
		ScanID:         "3f0c1f7e-1111-4c5e-9a55-0d2a7e1b9c01",
		Folder:         "Espana Ct Office",
		Provider:       "gemini",
		Model:          "gemini-2.5-pro",
		ImageCount:     3,
		ProcessedCount: 2,
		Skipped:        []models.SkippedImage{{Filename: "c.heic", Stage: "transcode", Reason: "bad box"}},
		Books: []models.BookDetection{
			{Title: "Book A", Author: "J. Doe", Sources: []string{"shelf1.jpg", "shelf2.jpg"}},
			{Title: "Untitled Atlas", Author: "", Sources: []string{"shelf2.jpg"}},
		},
		CreatedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"out/scan.json":   FormatJSON,
		"scan.YAML":       FormatYAML,
		"scan.yml":        FormatYAML,
		"scan.csv":        FormatCSV,
		"scans/a.parquet": FormatParquet,
	}
	for path, expected := range tests {
		got, err := FormatFromPath(path)
		if err != nil {
			t.Errorf("FormatFromPath(%s) failed: %v", path, err)
			continue
		}
		if got != expected {
			t.Errorf("FormatFromPath(%s) = %s, expected %s", path, got, expected)
		}
	}

	if _, err := FormatFromPath("scan.xml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, name := range []string{"scan.json", "scan.yaml", "scan.parquet"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			want := sampleResult()

			if err := WriteFile(path, "", want); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}

			if got.ScanID != want.ScanID || got.Folder != want.Folder || got.Model != want.Model {
				t.Errorf("Metadata mismatch: %+v", got)
			}
			if got.ImageCount != 3 || got.ProcessedCount != 2 {
				t.Errorf("Counts mismatch: %d/%d", got.ImageCount, got.ProcessedCount)
			}
			if !got.CreatedAt.Equal(want.CreatedAt) {
				t.Errorf("Expected %v, got %v", want.CreatedAt, got.CreatedAt)
			}
			if !reflect.DeepEqual(got.Books, want.Books) {
				t.Errorf("Books mismatch:\nexpected %+v\ngot      %+v", want.Books, got.Books)
			}
		})
	}
}

func TestWriteCSV(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := Write(buf, FormatCSV, sampleResult()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "title" || records[0][2] != "sources" {
		t.Errorf("Unexpected header: %v", records[0])
	}
	if records[1][2] != "shelf1.jpg;shelf2.jpg" {
		t.Errorf("Expected joined sources, got %q", records[1][2])
	}
	if records[2][1] != "" || records[2][3] != "Espana Ct Office" {
		t.Errorf("Unexpected row: %v", records[2])
	}
}

func TestWriteUnsupported(t *testing.T) {
	if err := Write(new(bytes.Buffer), "xml", sampleResult()); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "scan.csv")
	if err := WriteFile(path, "", sampleResult()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := ReadFile(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected csv read back to be rejected, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResult())
	if s.Books != 2 || s.Authors != 1 || s.MultiImage != 1 || s.Skipped != 1 {
		t.Errorf("Unexpected summary: %+v", s)
	}
	if s.Images != 3 || s.Processed != 2 {
		t.Errorf("Unexpected image counts: %+v", s)
	}
}
