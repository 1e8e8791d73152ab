package memory

import (
	"context"
	"sort"
	"time"

	"github.com/user/image-scraper-service/internal/entity"
	"github.com/user/image-scraper-service/internal/repository"
)

// ImageRepoImpl implements repository.ImageRepository on a Store.
type ImageRepoImpl struct {
	s *Store
}

// NewImageRepo creates an ImageRepoImpl backed by s.
func NewImageRepo(s *Store) *ImageRepoImpl {
	return &ImageRepoImpl{s: s}
}

func (r *ImageRepoImpl) Create(ctx context.Context, img *entity.Image) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextImageID++
	now := time.Now().UTC()
	img.ID = r.s.nextImageID
	img.CreatedAt = now
	img.UpdatedAt = now

	stored := *img
	stored.Parent = nil
	if img.ParentID != nil {
		pid := *img.ParentID
		stored.ParentID = &pid
	}
	r.s.images[img.ID] = &stored
	return nil
}

func (r *ImageRepoImpl) FindByID(ctx context.Context, id int64) (*entity.Image, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	img, ok := r.s.images[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.hydrate(img), nil
}

func (r *ImageRepoImpl) FindByParentID(ctx context.Context, parentID int64) ([]*entity.Image, error) {
	return r.filter(func(img *entity.Image) bool {
		return img.ParentID != nil && *img.ParentID == parentID
	}), nil
}

func (r *ImageRepoImpl) FindByParentURL(ctx context.Context, url string) ([]*entity.Image, error) {
	r.s.mu.RLock()
	id, ok := r.s.byURL[url]
	r.s.mu.RUnlock()
	if !ok {
		return []*entity.Image{}, nil
	}
	return r.FindByParentID(ctx, id)
}

func (r *ImageRepoImpl) FindByOriginalURL(ctx context.Context, url string) ([]*entity.Image, error) {
	return r.filter(func(img *entity.Image) bool { return img.OriginalURL == url }), nil
}

func (r *ImageRepoImpl) ListAll(ctx context.Context) ([]*entity.Image, error) {
	return r.filter(func(*entity.Image) bool { return true }), nil
}

func (r *ImageRepoImpl) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.images[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.images, id)
	return nil
}

func (r *ImageRepoImpl) filter(keep func(*entity.Image) bool) []*entity.Image {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*entity.Image{}
	for _, img := range r.s.images {
		if keep(img) {
			out = append(out, r.s.hydrate(img))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// hydrate returns a copy of img with Parent filled in. Callers hold s.mu.
func (s *Store) hydrate(img *entity.Image) *entity.Image {
	out := *img
	if img.ParentID != nil {
		pid := *img.ParentID
		out.ParentID = &pid
		if a, ok := s.addresses[pid]; ok {
			parent := *a
			out.Parent = &parent
		}
	}
	return &out
}
