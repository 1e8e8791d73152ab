package entity

import (
	"strings"
	"time"
)

// Image mirrors the `images` PostgreSQL table schema.
// Width, Height, Mode and Format always come from the decoded image data.
type Image struct {
	ID          int64
	ParentID    *int64   // nil once the owning address has been deleted
	Parent      *Address // populated by repository reads when ParentID is set
	Name        string   // generated storage name, e.g. "3f2a...9c.jpeg"
	BlobKey     string   // key in the blob store, "<parent netloc>/<Name>"
	OriginalURL string   // resolved URL the image was fetched from
	Width       int
	Height      int
	Mode        string // "RGB", "RGBA", "L", "P", "CMYK", ...
	Format      string // "JPEG", "PNG", "GIF", ...
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FormatLower returns the image format in lower case, as used in content types.
func (i *Image) FormatLower() string {
	return strings.ToLower(i.Format)
}
