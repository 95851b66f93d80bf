package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/shelfscan/internal/models"
)

func encodeTestImage(t *testing.T, format string, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 90, 255})
		}
	}

	buf := new(bytes.Buffer)
	var err error
	switch format {
	case "png":
		err = png.Encode(buf, img)
	case "jpeg":
		err = jpeg.Encode(buf, img, nil)
	default:
		t.Fatalf("unsupported format: %s", format)
	}
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		filename string
		expected bool
	}{
		{"shelf.jpg", true},
		{"shelf.JPEG", true},
		{"IMG_0001.HEIC", true},
		{"scan.png", true},
		{"scan.webp", true},
		{"notes.txt", false},
		{"photo.gif", false},
		{"noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := IsSupported(tt.filename); got != tt.expected {
				t.Errorf("IsSupported(%q) = %v, expected %v", tt.filename, got, tt.expected)
			}
		})
	}
}

func TestNormalizeWidthCap(t *testing.T) {
	n := NewNormalizer(1024, 80)

	tests := []struct {
		name           string
		format         string
		ext            string
		width, height  int
		expectedWidth  int
		expectedHeight int
	}{
		{name: "wide png is downscaled", format: "png", ext: ".png", width: 2048, height: 1000, expectedWidth: 1024, expectedHeight: 500},
		{name: "wide jpeg is downscaled", format: "jpeg", ext: ".jpg", width: 1500, height: 3000, expectedWidth: 1024, expectedHeight: 2048},
		{name: "small image is not enlarged", format: "png", ext: ".png", width: 300, height: 200, expectedWidth: 300, expectedHeight: 200},
		{name: "image at the cap is untouched", format: "jpeg", ext: ".jpeg", width: 1024, height: 10, expectedWidth: 1024, expectedHeight: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := models.SourceImage{
				Filename: "shelf" + tt.ext,
				Data:     encodeTestImage(t, tt.format, tt.width, tt.height),
				Format:   tt.ext,
			}

			out, err := n.Normalize(src)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}

			if out.Width != tt.expectedWidth || out.Height != tt.expectedHeight {
				t.Errorf("Expected %dx%d, got %dx%d", tt.expectedWidth, tt.expectedHeight, out.Width, out.Height)
			}
			if out.MIMEType != "image/jpeg" {
				t.Errorf("Expected image/jpeg, got %s", out.MIMEType)
			}

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
			if err != nil {
				t.Fatalf("failed to decode output: %v", err)
			}
			if format != "jpeg" {
				t.Errorf("Expected jpeg output, got %s", format)
			}
			if cfg.Width > n.MaxWidth {
				t.Errorf("Output width %d exceeds cap %d", cfg.Width, n.MaxWidth)
			}
			if cfg.Width != out.Width {
				t.Errorf("Reported width %d does not match encoded width %d", out.Width, cfg.Width)
			}
		})
	}
}

func TestNormalizeFixtures(t *testing.T) {
	tests := []struct {
		name           string
		file           string
		maxWidth       int
		expectedWidth  int
		expectedHeight int
	}{
		{name: "lossy webp is downscaled", file: "shelf.lossy.webp", maxWidth: 256, expectedWidth: 256, expectedHeight: 171},
		{name: "lossy webp is not enlarged", file: "shelf.lossy.webp", maxWidth: 1024, expectedWidth: 600, expectedHeight: 400},
		{name: "lossless webp is not enlarged", file: "spine.lossless.webp", maxWidth: 1024, expectedWidth: 75, expectedHeight: 100},
		{name: "heic is downscaled", file: "shelf.heic", maxWidth: 256, expectedWidth: 256, expectedHeight: 256},
		{name: "heic is not enlarged", file: "shelf.heic", maxWidth: 1024, expectedWidth: 512, expectedHeight: 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("testdata", tt.file))
			if err != nil {
				t.Fatalf("failed to read fixture: %v", err)
			}

			n := NewNormalizer(tt.maxWidth, 80)
			out, err := n.Normalize(models.SourceImage{Filename: tt.file, Data: data, Format: filepath.Ext(tt.file)})
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if out.Width != tt.expectedWidth || out.Height != tt.expectedHeight {
				t.Errorf("Expected %dx%d, got %dx%d", tt.expectedWidth, tt.expectedHeight, out.Width, out.Height)
			}

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
			if err != nil {
				t.Fatalf("failed to decode output: %v", err)
			}
			if format != "jpeg" || cfg.Width != out.Width {
				t.Errorf("Expected %d wide jpeg, got %d wide %s", out.Width, cfg.Width, format)
			}
		})
	}
}

func TestNormalizeFailures(t *testing.T) {
	n := NewNormalizer(0, 0)

	_, err := n.Normalize(models.SourceImage{Filename: "c.heic", Data: []byte("not a heic file"), Format: ".heic"})
	if !errors.Is(err, ErrTranscode) {
		t.Errorf("Expected ErrTranscode, got %v", err)
	}

	_, err = n.Normalize(models.SourceImage{Filename: "d.jpg", Data: []byte("garbage"), Format: ".jpg"})
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}
}

func TestNewNormalizerDefaults(t *testing.T) {
	n := NewNormalizer(-1, 101)
	if n.MaxWidth != DefaultMaxWidth {
		t.Errorf("Expected MaxWidth %d, got %d", DefaultMaxWidth, n.MaxWidth)
	}
	if n.Quality != DefaultQuality {
		t.Errorf("Expected Quality %d, got %d", DefaultQuality, n.Quality)
	}
}

func TestNormalizeAllKeepsOrder(t *testing.T) {
	n := NewNormalizer(64, 80)
	sources := []models.SourceImage{
		{Filename: "a.jpg", Data: encodeTestImage(t, "jpeg", 100, 50), Format: ".jpg"},
		{Filename: "b.png", Data: encodeTestImage(t, "png", 40, 40), Format: ".png"},
		{Filename: "c.heic", Data: []byte("broken"), Format: ".heic"},
		{Filename: "d.png", Data: encodeTestImage(t, "png", 200, 100), Format: ".png"},
	}

	succeeded, skipped, err := n.NormalizeAll(context.Background(), sources, 3)
	if err != nil {
		t.Fatalf("NormalizeAll failed: %v", err)
	}

	expected := []string{"a.jpg", "b.png", "d.png"}
	if len(succeeded) != len(expected) {
		t.Fatalf("Expected %d normalized images, got %d", len(expected), len(succeeded))
	}
	for i, name := range expected {
		if succeeded[i].Filename != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, succeeded[i].Filename)
		}
	}

	if len(skipped) != 1 {
		t.Fatalf("Expected 1 skipped image, got %d", len(skipped))
	}
	if skipped[0].Filename != "c.heic" || skipped[0].Stage != "transcode" {
		t.Errorf("Unexpected skipped entry: %+v", skipped[0])
	}
}

func TestNormalizeAllCanceled(t *testing.T) {
	n := NewNormalizer(64, 80)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sources := []models.SourceImage{
		{Filename: "a.png", Data: encodeTestImage(t, "png", 10, 10), Format: ".png"},
	}
	if _, _, err := n.NormalizeAll(ctx, sources, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
