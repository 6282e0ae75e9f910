package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
)

var _ DescriptorRepository = (*inMemoryStorage)(nil)

type inMemoryStorage struct {
	sync.Mutex

	data map[int64]fl.ModelDescriptor
}

func NewInMemoryStorage() DescriptorRepository {
	return &inMemoryStorage{
		data: make(map[int64]fl.ModelDescriptor),
	}
}

func (s *inMemoryStorage) Save(_ context.Context, desc fl.ModelDescriptor) error {
	if err := validate(desc); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	s.data[desc.Version()] = desc

	return nil
}

func (s *inMemoryStorage) Get(_ context.Context, version int64) (fl.ModelDescriptor, error) {
	s.Lock()
	defer s.Unlock()

	if desc, ok := s.data[version]; ok {
		return desc, nil
	}

	return fl.ModelDescriptor{}, errors.ErrNotFound
}

func (s *inMemoryStorage) Latest(_ context.Context) (fl.ModelDescriptor, error) {
	s.Lock()
	defer s.Unlock()

	versions := s.versions()
	if len(versions) == 0 {
		return fl.ModelDescriptor{}, errors.ErrNotFound
	}

	return s.data[versions[len(versions)-1]], nil
}

func (s *inMemoryStorage) List(_ context.Context, offset, limit uint64) (DescriptorPage, error) {
	s.Lock()
	defer s.Unlock()

	return page(s.versions(), offset, limit), nil
}

func (s *inMemoryStorage) Prune(_ context.Context, keep int) error {
	if keep < 0 {
		return fmt.Errorf("%w: keep %d", ErrInvalidVersion, keep)
	}

	s.Lock()
	defer s.Unlock()

	versions := s.versions()
	for _, v := range versions[:max(len(versions)-keep, 0)] {
		delete(s.data, v)
	}

	return nil
}

func (s *inMemoryStorage) Close() error {
	return nil
}

func (s *inMemoryStorage) versions() []int64 {
	versions := make([]int64, 0, len(s.data))
	for v := range s.data {
		versions = append(versions, v)
	}
	slices.Sort(versions)

	return versions
}

func validate(desc fl.ModelDescriptor) error {
	if desc.IsZero() {
		return fmt.Errorf("%w: empty descriptor", errors.ErrInvalidData)
	}
	if desc.Version() < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, desc.Version())
	}

	return nil
}

func page(versions []int64, offset, limit uint64) DescriptorPage {
	total := uint64(len(versions))
	p := DescriptorPage{
		Offset:   offset,
		Limit:    limit,
		Total:    total,
		Versions: []int64{},
	}
	if offset >= total {
		return p
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}
	p.Versions = append(p.Versions, versions[offset:end]...)

	return p
}
