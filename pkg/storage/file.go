package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
)

const (
	filePrefix = "model_v"
	fileExt    = ".cbor"
)

var _ DescriptorRepository = (*fileStorage)(nil)

// fileStorage keeps one CBOR file per version in a directory.
type fileStorage struct {
	dir string
	mu  sync.RWMutex
}

func NewFileStorage(dir string) (DescriptorRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create models directory: %w", ErrDBConnection, err)
	}

	return &fileStorage{dir: dir}, nil
}

func (fs *fileStorage) path(version int64) string {
	return filepath.Join(fs.dir, fmt.Sprintf("%s%020d%s", filePrefix, version, fileExt))
}

func (fs *fileStorage) Save(_ context.Context, desc fl.ModelDescriptor) error {
	if err := validate(desc); err != nil {
		return err
	}
	data, err := fl.EncodeDescriptor(desc)
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	// Write then rename so a crash never leaves a truncated model file.
	tmp, err := os.CreateTemp(fs.dir, ".tmp-"+filePrefix)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()

		return fmt.Errorf("%w: %w", ErrCreate, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}
	if err := os.Rename(tmp.Name(), fs.path(desc.Version())); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (fs *fileStorage) Get(_ context.Context, version int64) (fl.ModelDescriptor, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.read(version)
}

func (fs *fileStorage) Latest(_ context.Context) (fl.ModelDescriptor, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	versions, err := fs.versions()
	if err != nil {
		return fl.ModelDescriptor{}, err
	}
	if len(versions) == 0 {
		return fl.ModelDescriptor{}, errors.ErrNotFound
	}

	return fs.read(versions[len(versions)-1])
}

func (fs *fileStorage) List(_ context.Context, offset, limit uint64) (DescriptorPage, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	versions, err := fs.versions()
	if err != nil {
		return DescriptorPage{}, err
	}

	return page(versions, offset, limit), nil
}

func (fs *fileStorage) Prune(_ context.Context, keep int) error {
	if keep < 0 {
		return fmt.Errorf("%w: keep %d", ErrInvalidVersion, keep)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	versions, err := fs.versions()
	if err != nil {
		return err
	}
	for _, v := range versions[:max(len(versions)-keep, 0)] {
		if err := os.Remove(fs.path(v)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: %w", ErrDelete, err)
		}
	}

	return nil
}

func (fs *fileStorage) Close() error {
	return nil
}

func (fs *fileStorage) read(version int64) (fl.ModelDescriptor, error) {
	data, err := os.ReadFile(fs.path(version))
	if err != nil {
		if os.IsNotExist(err) {
			return fl.ModelDescriptor{}, fmt.Errorf("%w: descriptor version %d", errors.ErrNotFound, version)
		}

		return fl.ModelDescriptor{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return fl.DecodeDescriptor(data)
}

func (fs *fileStorage) versions() ([]int64, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	var versions []int64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		var version int64
		if _, err := fmt.Sscanf(strings.TrimSuffix(name, fileExt), filePrefix+"%d", &version); err == nil {
			versions = append(versions, version)
		}
	}
	slices.Sort(versions)

	return versions, nil
}
