package storage

import (
	"context"
	"fmt"

	"github.com/absmach/fedasync/pkg/fl"
	"github.com/absmach/fedasync/pkg/storage/badger"
)

type Config struct {
	Type string `env:"WORKER_STORAGE_TYPE" envDefault:"memory"`

	BadgerPath string `env:"WORKER_BADGER_PATH" envDefault:"./data/badger"`

	FilePath string `env:"WORKER_FILE_STORAGE_PATH" envDefault:"./data/models"`

	// Retain is how many descriptors survive a prune. Zero disables pruning.
	Retain int `env:"WORKER_STORAGE_RETAIN" envDefault:"10"`
}

func NewDescriptorRepository(cfg Config) (DescriptorRepository, error) {
	switch cfg.Type {
	case "badger":
		return newBadgerRepository(cfg)
	case "file":
		return NewFileStorage(cfg.FilePath)
	case "memory":
		return NewInMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func newBadgerRepository(cfg Config) (DescriptorRepository, error) {
	db, err := badger.NewDatabase(cfg.BadgerPath)
	if err != nil {
		return nil, err
	}

	return NewBadgerAdapter(badger.NewDescriptorRepository(db)), nil
}

type badgerAdapter struct {
	repo *badger.DescriptorRepository
}

func NewBadgerAdapter(repo *badger.DescriptorRepository) DescriptorRepository {
	return &badgerAdapter{repo: repo}
}

func (a *badgerAdapter) Save(ctx context.Context, desc fl.ModelDescriptor) error {
	return a.repo.Save(ctx, desc)
}

func (a *badgerAdapter) Get(ctx context.Context, version int64) (fl.ModelDescriptor, error) {
	return a.repo.Get(ctx, version)
}

func (a *badgerAdapter) Latest(ctx context.Context) (fl.ModelDescriptor, error) {
	return a.repo.Latest(ctx)
}

func (a *badgerAdapter) List(ctx context.Context, offset, limit uint64) (DescriptorPage, error) {
	versions, total, err := a.repo.List(ctx, offset, limit)
	if err != nil {
		return DescriptorPage{}, err
	}

	return DescriptorPage{
		Offset:   offset,
		Limit:    limit,
		Total:    total,
		Versions: versions,
	}, nil
}

func (a *badgerAdapter) Prune(ctx context.Context, keep int) error {
	return a.repo.Prune(ctx, keep)
}

func (a *badgerAdapter) Close() error {
	return a.repo.Close()
}
