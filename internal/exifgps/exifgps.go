package exifgps

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lehigh-university-libraries/shelfscan/internal/models"
	"github.com/rwcarlsen/goexif/exif"
)

var (
	// ErrNoExif is returned when an image carries no EXIF block
	ErrNoExif = errors.New("no exif data")
	// ErrNoLocation is returned when the EXIF block has no usable coordinates
	ErrNoLocation = errors.New("no gps coordinates")
)

var (
	exifHeader  = []byte("Exif\x00\x00")
	tiffHeaders = [][]byte{[]byte("II*\x00"), []byte("MM\x00*")}
)

// Extract reads the GPS tags of one image. JPEG is handed to the decoder as is;
// for HEIC, PNG and WebP the embedded TIFF structure is located first.
func Extract(img models.SourceImage) (*models.GPSData, error) {
	block, err := exifBlock(img)
	if err != nil {
		return nil, err
	}

	x, err := exif.Decode(bytes.NewReader(block))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoExif, img.Filename, err)
	}

	lat, long, err := x.LatLong()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoLocation, img.Filename, err)
	}

	data := &models.GPSData{
		FileName:  img.Filename,
		Latitude:  strconv.FormatFloat(lat, 'f', 6, 64),
		Longitude: strconv.FormatFloat(long, 'f', 6, 64),
		Altitude:  altitude(x),
		DateStamp: stringTag(x, exif.GPSDateStamp),
		TimeStamp: timeStamp(x),
	}
	return data, nil
}

// ExtractFolder returns the location of every image that has both coordinates.
// Images without them, or with unreadable metadata, are logged and left out.
func ExtractFolder(imgs []models.SourceImage) []models.GPSData {
	results := make([]models.GPSData, 0, len(imgs))
	for _, img := range imgs {
		data, err := Extract(img)
		if err != nil {
			slog.Debug("No GPS data", "file", img.Filename, "err", err)
			continue
		}
		results = append(results, *data)
	}
	return results
}

func exifBlock(img models.SourceImage) ([]byte, error) {
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty file", ErrNoExif, img.Filename)
	}

	switch img.Format {
	case ".jpg", ".jpeg":
		return img.Data, nil
	}

	if i := bytes.Index(img.Data, exifHeader); i != -1 {
		return img.Data[i+len(exifHeader):], nil
	}
	// PNG eXIf and some WebP EXIF chunks hold the TIFF structure without the Exif prefix
	for _, h := range tiffHeaders {
		if i := bytes.Index(img.Data, h); i != -1 {
			return img.Data[i:], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoExif, img.Filename)
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}

func altitude(x *exif.Exif) string {
	tag, err := x.Get(exif.GPSAltitude)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return ""
	}
	meters := float64(num) / float64(den)

	// Ref 1 means below sea level
	if ref, err := x.Get(exif.GPSAltitudeRef); err == nil {
		if v, err := ref.Int(0); err == nil && v == 1 {
			meters = -meters
		}
	}

	return strconv.FormatFloat(meters, 'f', -1, 64) + " m"
}

func timeStamp(x *exif.Exif) string {
	tag, err := x.Get(exif.GPSTimeStamp)
	if err != nil {
		return ""
	}

	var parts [3]int64
	for i := range parts {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return ""
		}
		parts[i] = num / den
	}
	return fmt.Sprintf("%02d:%02d:%02d", parts[0], parts[1], parts[2])
}
