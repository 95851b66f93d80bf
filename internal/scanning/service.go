package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/shelfscan/internal/images"
	"github.com/lehigh-university-libraries/shelfscan/internal/library"
	"github.com/lehigh-university-libraries/shelfscan/internal/models"
	"github.com/lehigh-university-libraries/shelfscan/internal/providers"
)

var (
	// ErrNoImages is returned when a scan has no recognized images to work with
	ErrNoImages = library.ErrNoImages
	// ErrInference wraps any failure of the model call
	ErrInference = errors.New("inference failure")
)

// SourceLoader supplies the ordered images of a folder
type SourceLoader interface {
	Load(ctx context.Context, folder string) ([]models.SourceImage, error)
	Lock(ctx context.Context, folder string) (func(), error)
}

// Options configures a Service
type Options struct {
	ProviderName string
	Model        string
	Temperature  float64
	Concurrency  int
	LockFolders  bool
}

// Service runs the scan pipeline: normalize, assemble, invoke, reduce
type Service struct {
	provider   providers.Provider
	normalizer *images.Normalizer
	loader     SourceLoader
	opts       Options
}

// NewService wires a scan service. loader may be nil when only Scan is used.
func NewService(provider providers.Provider, normalizer *images.Normalizer, loader SourceLoader, opts Options) *Service {
	if normalizer == nil {
		normalizer = images.NewNormalizer(0, 0)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Service{
		provider:   provider,
		normalizer: normalizer,
		loader:     loader,
		opts:       opts,
	}
}

// ScanRequest is one folder's worth of source images
type ScanRequest struct {
	Folder string
	Images []models.SourceImage
}

// ScanFolder loads folder through the loader and scans it
func (s *Service) ScanFolder(ctx context.Context, folder string) (*models.ScanResult, error) {
	if s.loader == nil {
		return nil, errors.New("scan service has no folder loader")
	}

	if s.opts.LockFolders {
		unlock, err := s.loader.Lock(ctx, folder)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	sources, err := s.loader.Load(ctx, folder)
	if err != nil {
		return nil, err
	}

	return s.Scan(ctx, ScanRequest{Folder: folder, Images: sources})
}

// Scan runs the pipeline over the request's images. Per-file normalization
// failures are recorded in the result; model and parse failures abort the scan.
func (s *Service) Scan(ctx context.Context, req ScanRequest) (*models.ScanResult, error) {
	if len(req.Images) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoImages, req.Folder)
	}

	start := time.Now()
	scanID := uuid.NewString()
	slog.Info("Starting scan", "scan_id", scanID, "folder", req.Folder, "images", len(req.Images), "provider", s.opts.ProviderName, "model", s.opts.Model)

	normalized, skipped, err := s.normalizer.NormalizeAll(ctx, req.Images, s.opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize images: %w", err)
	}
	if len(normalized) == 0 {
		slog.Warn("No images survived normalization, sending instruction only", "scan_id", scanID, "folder", req.Folder)
	}

	batch := AssembleBatch(Instruction, normalized)
	slog.Debug("Assembled batch", "scan_id", scanID, "files", batch.Filenames())

	raw, err := s.provider.ExtractText(ctx, providers.Config{
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		Parts:       batch.Parts,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	books, err := ReduceResponse(raw)
	if err != nil {
		slog.Error("Failed to parse model response", "scan_id", scanID, "err", err, "raw", raw)
		return nil, err
	}

	result := &models.ScanResult{
		ScanID:         scanID,
		Folder:         req.Folder,
		Provider:       s.opts.ProviderName,
		Model:          s.opts.Model,
		ImageCount:     len(req.Images),
		ProcessedCount: len(normalized),
		Skipped:        skipped,
		Books:          books,
		CreatedAt:      time.Now(),
	}

	slog.Info("Scan complete", "scan_id", scanID, "folder", req.Folder, "books", len(books), "processed", len(normalized), "skipped", len(skipped), "duration", time.Since(start))
	return result, nil
}
