// Package memory provides in-process implementations of the repository
// interfaces for single-instance deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/user/image-scraper-service/internal/entity"
	"github.com/user/image-scraper-service/internal/repository"
)

// Store holds addresses and images together so that deleting an address can
// orphan its images the way the relational schema does.
type Store struct {
	mu          sync.RWMutex
	nextAddrID  int64
	nextImageID int64
	addresses   map[int64]*entity.Address
	byURL       map[string]int64
	images      map[int64]*entity.Image
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		addresses: make(map[int64]*entity.Address),
		byURL:     make(map[string]int64),
		images:    make(map[int64]*entity.Image),
	}
}

// AddressRepoImpl implements repository.AddressRepository on a Store.
type AddressRepoImpl struct {
	s *Store
}

// NewAddressRepo creates an AddressRepoImpl backed by s.
func NewAddressRepo(s *Store) *AddressRepoImpl {
	return &AddressRepoImpl{s: s}
}

func (r *AddressRepoImpl) GetOrCreate(ctx context.Context, url string) (*entity.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if id, ok := r.s.byURL[url]; ok {
		a := *r.s.addresses[id]
		return &a, nil
	}

	r.s.nextAddrID++
	now := time.Now().UTC()
	a := &entity.Address{ID: r.s.nextAddrID, URL: url, CreatedAt: now, UpdatedAt: now}
	r.s.addresses[a.ID] = a
	r.s.byURL[url] = a.ID

	out := *a
	return &out, nil
}

func (r *AddressRepoImpl) FindByID(ctx context.Context, id int64) (*entity.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.addresses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (r *AddressRepoImpl) FindByURL(ctx context.Context, url string) (*entity.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byURL[url]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a := *r.s.addresses[id]
	return &a, nil
}

func (r *AddressRepoImpl) List(ctx context.Context) ([]*entity.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entity.Address, 0, len(r.s.addresses))
	for _, a := range r.s.addresses {
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete removes the address and sets ParentID to nil on the images it owned.
func (r *AddressRepoImpl) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.addresses[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.s.byURL, a.URL)
	delete(r.s.addresses, id)

	for _, img := range r.s.images {
		if img.ParentID != nil && *img.ParentID == id {
			img.ParentID = nil
		}
	}
	return nil
}
