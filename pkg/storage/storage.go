package storage

import (
	"context"
	"io"

	"github.com/absmach/fedasync/pkg/fl"
)

// DescriptorPage lists stored versions in ascending order.
type DescriptorPage struct {
	Offset   uint64  `json:"offset"`
	Limit    uint64  `json:"limit"`
	Total    uint64  `json:"total"`
	Versions []int64 `json:"versions"`
}

// DescriptorRepository persists model descriptors keyed by version. Saving a
// version that already exists overwrites it.
type DescriptorRepository interface {
	Save(ctx context.Context, desc fl.ModelDescriptor) error
	Get(ctx context.Context, version int64) (fl.ModelDescriptor, error)
	// Latest returns the descriptor with the highest version.
	Latest(ctx context.Context) (fl.ModelDescriptor, error)
	List(ctx context.Context, offset, limit uint64) (DescriptorPage, error)
	// Prune keeps the keep newest versions and removes the rest.
	Prune(ctx context.Context, keep int) error
	io.Closer
}
