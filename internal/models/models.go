package models

import (
	"encoding/json"
	"time"
)

// SourceImage is one photograph read from a scan folder
type SourceImage struct {
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
	Format   string `json:"format"` // lower-cased extension, e.g. ".heic"
}

// NormalizedImage is a SourceImage after transcoding, downsampling and re-encoding
type NormalizedImage struct {
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// SkippedImage records a file that was excluded from the batch
type SkippedImage struct {
	Filename string `json:"filename"`
	Stage    string `json:"stage"` // "transcode", "decode", "encode"
	Reason   string `json:"reason"`
}

// BookDetection is one book reported by the model, with the files it was seen in
type BookDetection struct {
	Title   string   `json:"title" yaml:"title"`
	Author  string   `json:"author" yaml:"author"`
	Sources []string `json:"sources" yaml:"sources"`
}

// MarshalJSON keeps sources as an array even when no file was attributed
func (b BookDetection) MarshalJSON() ([]byte, error) {
	type alias BookDetection
	out := alias(b)
	if out.Sources == nil {
		out.Sources = []string{}
	}
	return json.Marshal(out)
}

// ScanResult is the outcome of one scan
type ScanResult struct {
	ScanID         string          `json:"scanId" yaml:"scan_id"`
	Folder         string          `json:"folder" yaml:"folder"`
	Provider       string          `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model          string          `json:"model,omitempty" yaml:"model,omitempty"`
	ImageCount     int             `json:"imageCount" yaml:"image_count"`
	ProcessedCount int             `json:"processedCount" yaml:"processed_count"`
	Skipped        []SkippedImage  `json:"skipped" yaml:"skipped,omitempty"`
	Books          []BookDetection `json:"books" yaml:"books"`
	CreatedAt      time.Time       `json:"createdAt" yaml:"created_at"`
}

// GPSData holds the location tags of a single image
type GPSData struct {
	FileName  string `json:"fileName"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Altitude  string `json:"altitude,omitempty"`
	DateStamp string `json:"dateStamp,omitempty"`
	TimeStamp string `json:"timeStamp,omitempty"`
}

// BookDetails is the best-effort enrichment record for a detected title
type BookDetails struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle,omitempty"`
	Authors         string `json:"authors"`
	ISBN            string `json:"isbn"`
	Publisher       string `json:"publisher"`
	PublicationDate string `json:"publicationDate"`
	Edition         string `json:"edition"`
	Source          string `json:"source,omitempty"` // "google_books" or "open_library"
	Error           string `json:"error,omitempty"`
}
