package index

import (
	"path"
	"testing"

	"github.com/jobala/petro/buffer"
	"github.com/jobala/petro/storage/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRootsTestPool(t *testing.T) *buffer.PoolManager {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")
	dm, err := disk.NewManager(dbFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	sched := disk.NewScheduler(dm)
	return buffer.NewPoolManager(8, dm, sched)
}

func TestIndexRoots(t *testing.T) {
	t.Run("loading an unrecorded index reports invalid", func(t *testing.T) {
		bpm := newRootsTestPool(t)
		root, err := LoadRoot(bpm, 1)
		require.NoError(t, err)
		assert.Equal(t, disk.InvalidPageId, root)
	})

	t.Run("save then load round trips a root page id", func(t *testing.T) {
		bpm := newRootsTestPool(t)
		require.NoError(t, SaveRoot(bpm, 1, 42))

		root, err := LoadRoot(bpm, 1)
		require.NoError(t, err)
		assert.Equal(t, disk.PageId(42), root)
	})

	t.Run("save keeps distinct indexes independent", func(t *testing.T) {
		bpm := newRootsTestPool(t)
		require.NoError(t, SaveRoot(bpm, 1, 10))
		require.NoError(t, SaveRoot(bpm, 2, 20))

		root1, err := LoadRoot(bpm, 1)
		require.NoError(t, err)
		assert.Equal(t, disk.PageId(10), root1)

		root2, err := LoadRoot(bpm, 2)
		require.NoError(t, err)
		assert.Equal(t, disk.PageId(20), root2)
	})

	t.Run("delete root removes the entry", func(t *testing.T) {
		bpm := newRootsTestPool(t)
		require.NoError(t, SaveRoot(bpm, 1, 42))
		require.NoError(t, DeleteRoot(bpm, 1))

		root, err := LoadRoot(bpm, 1)
		require.NoError(t, err)
		assert.Equal(t, disk.InvalidPageId, root)
	})
}
