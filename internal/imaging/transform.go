package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// TargetSize computes the output dimensions for a stored width x height
// image. A requested width smaller than the stored width wins; otherwise a
// requested height smaller than the stored height is used. The other side is
// scaled proportionally and floored. Images are never upscaled.
func TargetSize(width, height int, reqWidth, reqHeight *int) (int, int) {
	if reqWidth != nil && *reqWidth > 0 && *reqWidth < width {
		h := int(math.Floor(float64(*reqWidth) / float64(width) * float64(height)))
		return *reqWidth, max(h, 1)
	}
	if reqHeight != nil && *reqHeight > 0 && *reqHeight < height {
		w := int(math.Floor(float64(*reqHeight) / float64(height) * float64(width)))
		return max(w, 1), *reqHeight
	}
	return width, height
}

// Resize downscales src to width x height with Catmull-Rom resampling.
// src is returned as is when it already has the requested size.
func Resize(src image.Image, width, height int) image.Image {
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
