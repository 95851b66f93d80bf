package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gen2brain/heic"
	"github.com/lehigh-university-libraries/shelfscan/internal/models"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxWidth = 1024
	DefaultQuality  = 80
	outputMIMEType  = "image/jpeg"
)

var (
	ErrTranscode = errors.New("transcode failed")
	ErrDecode    = errors.New("decode failed")
	ErrEncode    = errors.New("encode failed")
)

// SupportedExtensions is the allow-list of scannable image formats
var SupportedExtensions = []string{".heic", ".jpg", ".jpeg", ".png", ".webp"}

// IsSupported reports whether filename has a recognized image extension
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Normalizer converts source photographs into bounded-size JPEGs for the model
type Normalizer struct {
	MaxWidth int
	Quality  int
}

// NewNormalizer returns a Normalizer, falling back to defaults for non-positive values
func NewNormalizer(maxWidth, quality int) *Normalizer {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Normalizer{MaxWidth: maxWidth, Quality: quality}
}

// Normalize decodes one source image, downsamples it to MaxWidth and re-encodes it as JPEG
func (n *Normalizer) Normalize(src models.SourceImage) (models.NormalizedImage, error) {
	format := src.Format
	if format == "" {
		format = strings.ToLower(filepath.Ext(src.Filename))
	}

	if len(src.Data) == 0 {
		return models.NormalizedImage{}, fmt.Errorf("%w: %s: empty file", ErrDecode, src.Filename)
	}

	var (
		img image.Image
		err error
	)
	if format == ".heic" {
		// HEIC goes through a full-fidelity raster first; quality loss happens at encode time
		img, err = heic.Decode(bytes.NewReader(src.Data))
		if err != nil {
			return models.NormalizedImage{}, fmt.Errorf("%w: %s: %w", ErrTranscode, src.Filename, err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(src.Data))
		if err != nil {
			return models.NormalizedImage{}, fmt.Errorf("%w: %s: %w", ErrDecode, src.Filename, err)
		}
	}

	resized := Resize(img, n.MaxWidth)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, resized, &jpeg.Options{Quality: n.Quality}); err != nil {
		return models.NormalizedImage{}, fmt.Errorf("%w: %s: %w", ErrEncode, src.Filename, err)
	}

	b := resized.Bounds()
	return models.NormalizedImage{
		Filename: src.Filename,
		Data:     buf.Bytes(),
		MIMEType: outputMIMEType,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// Resize scales img down so its width is at most maxWidth, keeping the aspect ratio.
// Images already within the limit are returned unchanged.
func Resize(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxWidth <= 0 || w <= maxWidth {
		return img
	}

	newH := int(float64(h)*float64(maxWidth)/float64(w) + 0.5)
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// NormalizeAll normalizes every source image, using up to concurrency workers.
// The returned slices keep the order of sources; failed files land in skipped
// and never abort the rest of the batch.
func (n *Normalizer) NormalizeAll(ctx context.Context, sources []models.SourceImage, concurrency int) ([]models.NormalizedImage, []models.SkippedImage, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	type outcome struct {
		img models.NormalizedImage
		err error
	}
	outcomes := make([]outcome, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := n.Normalize(src)
			outcomes[i] = outcome{img: img, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	succeeded := make([]models.NormalizedImage, 0, len(sources))
	skipped := make([]models.SkippedImage, 0)
	for i, o := range outcomes {
		if o.err != nil {
			slog.Warn("Skipping image", "file", sources[i].Filename, "err", o.err)
			skipped = append(skipped, models.SkippedImage{
				Filename: sources[i].Filename,
				Stage:    stageOf(o.err),
				Reason:   o.err.Error(),
			})
			continue
		}
		succeeded = append(succeeded, o.img)
	}

	return succeeded, skipped, nil
}

func stageOf(err error) string {
	switch {
	case errors.Is(err, ErrTranscode):
		return "transcode"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrEncode):
		return "encode"
	default:
		return "unknown"
	}
}
