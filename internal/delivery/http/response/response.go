package response

import (
	"fmt"
	"time"

	"github.com/user/image-scraper-service/internal/entity"
)

// ImageResponse is a DTO for a stored image, mirroring entity.Image.
type ImageResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ParentID    *int64    `json:"parent_id"`
	ParentURL   string    `json:"parent_url,omitempty"`
	OriginalURL string    `json:"original_url"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Mode        string    `json:"mode"`
	Format      string    `json:"format"`
	ServeURL    string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ImageListResponse wraps a list of images.
type ImageListResponse struct {
	Count  int             `json:"count"`
	Images []ImageResponse `json:"images"`
}

// ErrorResponse is returned for every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewImageResponse converts an entity into its DTO.
func NewImageResponse(img *entity.Image) ImageResponse {
	resp := ImageResponse{
		ID:          img.ID,
		Name:        img.Name,
		ParentID:    img.ParentID,
		OriginalURL: img.OriginalURL,
		Width:       img.Width,
		Height:      img.Height,
		Mode:        img.Mode,
		Format:      img.Format,
		ServeURL:    fmt.Sprintf("/image/%d", img.ID),
		CreatedAt:   img.CreatedAt,
		UpdatedAt:   img.UpdatedAt,
	}
	if img.Parent != nil {
		resp.ParentURL = img.Parent.URL
	}
	return resp
}

// NewImageListResponse converts a slice of entities.
func NewImageListResponse(images []*entity.Image) ImageListResponse {
	out := ImageListResponse{Count: len(images), Images: make([]ImageResponse, 0, len(images))}
	for _, img := range images {
		out.Images = append(out.Images, NewImageResponse(img))
	}
	return out
}
