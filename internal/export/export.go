package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/shelfscan/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// sourcesSeparator joins a detection's filenames into one CSV cell
const sourcesSeparator = ";"

var ErrUnsupportedFormat = errors.New("unsupported format")

// detectionRow is one parquet row: a detected book plus the scan it came from
type detectionRow struct {
	ScanID         string   `parquet:"scan_id"`
	Folder         string   `parquet:"folder"`
	Provider       string   `parquet:"provider"`
	Model          string   `parquet:"model"`
	ImageCount     int64    `parquet:"image_count"`
	ProcessedCount int64    `parquet:"processed_count"`
	CreatedAtMs    int64    `parquet:"created_at_ms"`
	Title          string   `parquet:"title"`
	Author         string   `parquet:"author"`
	Sources        []string `parquet:"sources,list"`
}

// FormatFromPath guesses the format from a file extension
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("%w: %s (supported: .json, .yaml, .csv, .parquet)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Write encodes result to w in the given format
func Write(w io.Writer, format string, result *models.ScanResult) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, result)
	case FormatParquet:
		return writeParquet(w, result)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WriteFile writes result to path. An empty format is taken from the extension.
func WriteFile(path, format string, result *models.ScanResult) error {
	if format == "" {
		var err error
		if format, err = FormatFromPath(path); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := Write(file, format, result); err != nil {
		return err
	}

	slog.Info("Scan result saved", "path", path, "format", format, "books", len(result.Books))
	return nil
}

func writeCSV(w io.Writer, result *models.ScanResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"title", "author", "sources", "folder", "scan_id"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, b := range result.Books {
		record := []string{b.Title, b.Author, strings.Join(b.Sources, sourcesSeparator), result.Folder, result.ScanID}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeParquet(w io.Writer, result *models.ScanResult) error {
	rows := make([]detectionRow, 0, len(result.Books))
	for _, b := range result.Books {
		sources := b.Sources
		if sources == nil {
			sources = []string{}
		}
		rows = append(rows, detectionRow{
			ScanID:         result.ScanID,
			Folder:         result.Folder,
			Provider:       result.Provider,
			Model:          result.Model,
			ImageCount:     int64(result.ImageCount),
			ProcessedCount: int64(result.ProcessedCount),
			CreatedAtMs:    result.CreatedAt.UnixMilli(),
			Title:          b.Title,
			Author:         b.Author,
			Sources:        sources,
		})
	}

	writer := parquet.NewGenericWriter[detectionRow](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// ReadFile loads a scan result previously written as json, yaml or parquet.
// Parquet files hold detections only, so skipped images do not survive.
func ReadFile(path string) (*models.ScanResult, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON, FormatYAML:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var result models.ScanResult
		if format == FormatJSON {
			err = json.Unmarshal(data, &result)
		} else {
			err = yaml.Unmarshal(data, &result)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return &result, nil
	case FormatParquet:
		return readParquet(path)
	default:
		return nil, fmt.Errorf("%w: cannot read %s back", ErrUnsupportedFormat, format)
	}
}

func readParquet(path string) (*models.ScanResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[detectionRow](pf)
	defer reader.Close()

	result := &models.ScanResult{Books: []models.BookDetection{}}
	rows := make([]detectionRow, 128)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			if result.ScanID == "" {
				result.ScanID = row.ScanID
				result.Folder = row.Folder
				result.Provider = row.Provider
				result.Model = row.Model
				result.ImageCount = int(row.ImageCount)
				result.ProcessedCount = int(row.ProcessedCount)
				result.CreatedAt = time.UnixMilli(row.CreatedAtMs)
			}
			sources := append([]string{}, row.Sources...)
			result.Books = append(result.Books, models.BookDetection{Title: row.Title, Author: row.Author, Sources: sources})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Read parquet scan", "path", path, "rows", len(result.Books))
	return result, nil
}

// Summary is a flat description of a saved scan for reports
type Summary struct {
	ScanID     string
	Folder     string
	Books      int
	Authors    int
	Images     int
	Processed  int
	Skipped    int
	MultiImage int
}

// Summarize counts the detections in result
func Summarize(result *models.ScanResult) Summary {
	authors := make(map[string]bool)
	s := Summary{
		ScanID:    result.ScanID,
		Folder:    result.Folder,
		Books:     len(result.Books),
		Images:    result.ImageCount,
		Processed: result.ProcessedCount,
		Skipped:   len(result.Skipped),
	}
	for _, b := range result.Books {
		if b.Author != "" {
			authors[b.Author] = true
		}
		if len(b.Sources) > 1 {
			s.MultiImage++
		}
	}
	s.Authors = len(authors)
	return s
}
