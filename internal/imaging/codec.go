// Package imaging decodes downloaded image bytes by content sniffing and
// re-encodes images in the formats the service can serve.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedFormat is returned when no encoder exists for a format.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrTooManyPixels is returned when an image header declares more pixels
	// than the decoder is allowed to allocate.
	ErrTooManyPixels = errors.New("image dimensions exceed pixel limit")
)

// OutputFormats lists the formats Encode can produce, lower-case.
var OutputFormats = []string{"jpeg", "png", "gif", "bmp", "tiff"}

// DefaultQuality is the encoder quality used when none is requested.
const DefaultQuality = 100

var mimeSubtypes = map[string]string{
	"JPEG": "jpeg",
	"PNG":  "png",
	"GIF":  "gif",
	"WEBP": "webp",
	"BMP":  "bmp",
	"TIFF": "tiff",
}

// Decoded is an image decoded from raw bytes together with the metadata
// read from the data itself.
type Decoded struct {
	Image  image.Image
	Format string // upper-case format name reported by the decoder
	Mode   string
	Raw    []byte // bytes the image was decoded from
}

// Width returns the decoded width in pixels.
func (d *Decoded) Width() int { return d.Image.Bounds().Dx() }

// Height returns the decoded height in pixels.
func (d *Decoded) Height() int { return d.Image.Bounds().Dy() }

// Decode identifies the format from the magic bytes of data, never from a
// file name or declared content type.
func Decode(data []byte) (*Decoded, error) {
	return DecodeLimited(data, 0)
}

// DecodeLimited is Decode for untrusted data: the header is read first and
// images declaring more than maxPixels pixels are rejected before any pixel
// buffer is allocated. maxPixels <= 0 disables the check.
func DecodeLimited(data []byte, maxPixels int64) (*Decoded, error) {
	if maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if px := int64(cfg.Width) * int64(cfg.Height); px > maxPixels {
			return nil, fmt.Errorf("%w: %dx%d > %d", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Decoded{
		Image:  img,
		Format: strings.ToUpper(format),
		Mode:   ColorMode(img),
		Raw:    data,
	}, nil
}

// ColorMode names the pixel layout of img using the conventional short
// names ("RGB", "RGBA", "L", "P", "CMYK", "I;16").
func ColorMode(img image.Image) string {
	switch img.(type) {
	case *image.Paletted:
		return "P"
	case *image.Gray:
		return "L"
	case *image.Gray16:
		return "I;16"
	case *image.CMYK:
		return "CMYK"
	case *image.YCbCr:
		return "RGB"
	case *image.NYCbCrA:
		return "RGBA"
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return "RGB"
	}
	return "RGBA"
}

// MIMESubtype returns the subtype of the canonical MIME type for a format,
// e.g. "JPEG" -> "jpeg". Unknown formats map to their lower-case name.
func MIMESubtype(format string) string {
	if sub, ok := mimeSubtypes[strings.ToUpper(format)]; ok {
		return sub
	}
	return strings.ToLower(format)
}

// CanEncode reports whether Encode supports format (case-insensitive).
func CanEncode(format string) bool {
	f := strings.ToLower(format)
	for _, out := range OutputFormats {
		if f == out {
			return true
		}
	}
	return false
}

// Encode writes img to w in the given format. quality only affects JPEG
// and is clamped to 1..100.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	switch strings.ToLower(format) {
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: clampQuality(quality)})
	case "png":
		return png.Encode(w, img)
	case "gif":
		return gif.Encode(w, img, nil)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	}
	return q
}
