package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
	"github.com/absmach/fedasync/pkg/storage"
	"github.com/absmach/fedasync/pkg/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name string
	open func(t *testing.T) storage.DescriptorRepository
}

var backends = []backend{
	{
		name: "memory",
		open: func(*testing.T) storage.DescriptorRepository {
			return storage.NewInMemoryStorage()
		},
	},
	{
		name: "file",
		open: func(t *testing.T) storage.DescriptorRepository {
			repo, err := storage.NewFileStorage(filepath.Join(t.TempDir(), "models"))
			require.NoError(t, err)

			return repo
		},
	},
	{
		name: "badger",
		open: func(t *testing.T) storage.DescriptorRepository {
			db, err := badger.NewInMemoryDatabase()
			require.NoError(t, err)

			return storage.NewBadgerAdapter(badger.NewDescriptorRepository(db))
		},
	},
}

func desc(version int64) fl.ModelDescriptor {
	return fl.NewModelDescriptor([]byte{byte(version), 0xab, 0xcd}, version)
}

func TestSaveAndGet(t *testing.T) {
	t.Parallel()

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			repo := b.open(t)
			defer repo.Close()

			cases := []struct {
				desc string
				save fl.ModelDescriptor
				err  error
			}{
				{desc: "version zero", save: desc(0)},
				{desc: "later version", save: desc(7)},
				{desc: "empty payload", save: fl.NewModelDescriptor(nil, 3), err: pkgerrors.ErrInvalidData},
			}

			for _, tc := range cases {
				t.Run(tc.desc, func(t *testing.T) {
					err := repo.Save(ctx, tc.save)
					if tc.err != nil {
						assert.ErrorIs(t, err, tc.err)

						return
					}
					require.NoError(t, err)

					got, err := repo.Get(ctx, tc.save.Version())
					require.NoError(t, err)
					assert.Equal(t, tc.save.Version(), got.Version())
					assert.Equal(t, tc.save.Binary(), got.Binary())
				})
			}

			_, err := repo.Get(ctx, 42)
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

			// Saving an existing version replaces it.
			require.NoError(t, repo.Save(ctx, fl.NewModelDescriptor([]byte("new"), 7)))
			got, err := repo.Get(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, []byte("new"), got.Binary())
		})
	}
}

func TestLatestListPrune(t *testing.T) {
	t.Parallel()

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			repo := b.open(t)
			defer repo.Close()

			_, err := repo.Latest(ctx)
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

			for _, v := range []int64{3, 1, 300, 20, 2} {
				require.NoError(t, repo.Save(ctx, desc(v)))
			}

			latest, err := repo.Latest(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(300), latest.Version())

			cases := []struct {
				desc     string
				offset   uint64
				limit    uint64
				versions []int64
			}{
				{desc: "all", offset: 0, limit: 10, versions: []int64{1, 2, 3, 20, 300}},
				{desc: "middle page", offset: 1, limit: 2, versions: []int64{2, 3}},
				{desc: "past the end", offset: 9, limit: 2, versions: []int64{}},
				{desc: "unbounded limit", offset: 3, limit: ^uint64(0), versions: []int64{20, 300}},
			}
			for _, tc := range cases {
				t.Run(tc.desc, func(t *testing.T) {
					p, err := repo.List(ctx, tc.offset, tc.limit)
					require.NoError(t, err)
					assert.Equal(t, uint64(5), p.Total)
					assert.Equal(t, tc.versions, p.Versions)
				})
			}

			require.NoError(t, repo.Prune(ctx, 2))
			p, err := repo.List(ctx, 0, 10)
			require.NoError(t, err)
			assert.Equal(t, []int64{20, 300}, p.Versions)

			_, err = repo.Get(ctx, 3)
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
			assert.Error(t, repo.Prune(ctx, -1))
		})
	}
}

func TestFileStorageIgnoresForeignFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	repo, err := storage.NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, desc(4)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "model_v9.cbor"), 0o755))

	p, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, p.Versions)

	// A second handle on the same directory sees what the first wrote.
	again, err := storage.NewFileStorage(dir)
	require.NoError(t, err)
	latest, err := again.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), latest.Version())
}

func TestNewDescriptorRepository(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc string
		cfg  storage.Config
		err  bool
	}{
		{desc: "memory", cfg: storage.Config{Type: "memory"}},
		{desc: "file", cfg: storage.Config{Type: "file", FilePath: t.TempDir()}},
		{desc: "badger", cfg: storage.Config{Type: "badger", BadgerPath: t.TempDir()}},
		{desc: "unknown", cfg: storage.Config{Type: "postgres"}, err: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			repo, err := storage.NewDescriptorRepository(tc.cfg)
			if tc.err {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			require.NoError(t, repo.Close())
		})
	}
}
