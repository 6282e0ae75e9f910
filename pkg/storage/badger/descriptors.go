package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
)

var descriptorPrefix = []byte("descriptor:")

type DescriptorRepository struct {
	db *Database
}

func NewDescriptorRepository(db *Database) *DescriptorRepository {
	return &DescriptorRepository{db: db}
}

// Versions are stored big-endian so key order is version order.
func descriptorKey(version int64) []byte {
	key := make([]byte, len(descriptorPrefix)+8)
	copy(key, descriptorPrefix)
	binary.BigEndian.PutUint64(key[len(descriptorPrefix):], uint64(version))

	return key
}

func versionOf(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(descriptorPrefix):]))
}

func (r *DescriptorRepository) Save(_ context.Context, desc fl.ModelDescriptor) error {
	if desc.IsZero() {
		return fmt.Errorf("%w: empty descriptor", pkgerrors.ErrInvalidData)
	}
	if desc.Version() < 0 {
		return fmt.Errorf("%w: negative version %d", pkgerrors.ErrInvalidData, desc.Version())
	}
	val, err := fl.EncodeDescriptor(desc)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return r.db.set(descriptorKey(desc.Version()), val)
}

func (r *DescriptorRepository) Get(_ context.Context, version int64) (fl.ModelDescriptor, error) {
	val, err := r.db.get(descriptorKey(version))
	if err != nil {
		return fl.ModelDescriptor{}, notFound(err, version)
	}

	return fl.DecodeDescriptor(val)
}

func (r *DescriptorRepository) Latest(_ context.Context) (fl.ModelDescriptor, error) {
	val, err := r.db.last(descriptorPrefix)
	if err != nil {
		return fl.ModelDescriptor{}, notFound(err, -1)
	}

	return fl.DecodeDescriptor(val)
}

func (r *DescriptorRepository) List(_ context.Context, offset, limit uint64) ([]int64, uint64, error) {
	versions, err := r.versions()
	if err != nil {
		return nil, 0, err
	}
	total := uint64(len(versions))
	if offset >= total {
		return []int64{}, total, nil
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}

	return slices.Clone(versions[offset:end]), total, nil
}

func (r *DescriptorRepository) Prune(_ context.Context, keep int) error {
	if keep < 0 {
		return fmt.Errorf("%w: keep %d", pkgerrors.ErrInvalidData, keep)
	}
	keys, err := r.db.keysWithPrefix(descriptorPrefix)
	if err != nil {
		return err
	}
	if len(keys) <= keep {
		return nil
	}

	return r.db.deleteKeys(keys[:len(keys)-keep])
}

func (r *DescriptorRepository) Close() error {
	return r.db.Close()
}

func (r *DescriptorRepository) versions() ([]int64, error) {
	keys, err := r.db.keysWithPrefix(descriptorPrefix)
	if err != nil {
		return nil, err
	}
	versions := make([]int64, len(keys))
	for i, k := range keys {
		versions[i] = versionOf(k)
	}

	return versions, nil
}

func notFound(err error, version int64) error {
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if version < 0 {
		return fmt.Errorf("%w: no descriptors stored", pkgerrors.ErrNotFound)
	}

	return fmt.Errorf("%w: descriptor version %d", pkgerrors.ErrNotFound, version)
}
