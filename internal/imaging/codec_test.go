package imaging

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/image-scraper-service/internal/testutil"
)

func TestDecode_SniffsFormat(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format string
		mode   string
	}{
		{"png", testutil.PNG(t, 40, 30), "PNG", "RGB"},
		{"png with alpha", testutil.TransparentPNG(t, 40, 30), "PNG", "RGBA"},
		{"jpeg", testutil.JPEG(t, 40, 30), "JPEG", "RGB"},
		{"gif", testutil.GIF(t, 40, 30), "GIF", "P"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.format, d.Format)
			assert.Equal(t, tt.mode, d.Mode)
			assert.Equal(t, 40, d.Width())
			assert.Equal(t, 30, d.Height())
			assert.Equal(t, tt.data, d.Raw)
		})
	}
}

func TestDecode_RejectsNonImage(t *testing.T) {
	_, err := Decode([]byte("<html><body>not an image</body></html>"))
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestDecodeLimited(t *testing.T) {
	huge := testutil.PNGHeader(20000, 20000)

	_, err := DecodeLimited(huge, 50_000_000)
	assert.ErrorIs(t, err, ErrTooManyPixels)

	d, err := DecodeLimited(testutil.PNG(t, 40, 30), 40*30)
	require.NoError(t, err)
	assert.Equal(t, 40, d.Width())

	_, err = DecodeLimited(testutil.PNG(t, 40, 30), 40*30-1)
	assert.ErrorIs(t, err, ErrTooManyPixels)

	_, err = DecodeLimited([]byte("not an image"), 100)
	assert.ErrorIs(t, err, image.ErrFormat)
}

func TestColorMode(t *testing.T) {
	r := image.Rect(0, 0, 2, 2)
	assert.Equal(t, "L", ColorMode(image.NewGray(r)))
	assert.Equal(t, "I;16", ColorMode(image.NewGray16(r)))
	assert.Equal(t, "CMYK", ColorMode(image.NewCMYK(r)))
	assert.Equal(t, "RGB", ColorMode(image.NewYCbCr(r, image.YCbCrSubsampleRatio420)))
	assert.Equal(t, "RGBA", ColorMode(image.NewNRGBA(r)))
}

func TestMIMESubtype(t *testing.T) {
	assert.Equal(t, "jpeg", MIMESubtype("JPEG"))
	assert.Equal(t, "png", MIMESubtype("png"))
	assert.Equal(t, "webp", MIMESubtype("WEBP"))
	assert.Equal(t, "xyz", MIMESubtype("XYZ"))
}

func TestEncode_RoundTripsEveryOutputFormat(t *testing.T) {
	src := testutil.Gradient(16, 8)
	for _, format := range OutputFormats {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, src, format, 80))

			d, err := Decode(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, MIMESubtype(d.Format), format)
			assert.Equal(t, 16, d.Width())
			assert.Equal(t, 8, d.Height())
		})
	}
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, testutil.Gradient(2, 2), "webp", 100)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, CanEncode("webp"))
	assert.True(t, CanEncode("JPEG"))
}

func TestEncode_JPEGQualityAffectsSize(t *testing.T) {
	src := testutil.Gradient(64, 64)
	var low, high bytes.Buffer
	require.NoError(t, Encode(&low, src, "jpeg", 5))
	require.NoError(t, Encode(&high, src, "jpeg", 100))
	assert.Less(t, low.Len(), high.Len())
}
