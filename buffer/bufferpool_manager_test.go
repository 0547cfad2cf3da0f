package buffer

import (
	"bytes"
	"path"
	"testing"

	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, poolSize int) (*PoolManager, *disk.Manager) {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")
	dm, err := disk.NewManager(dbFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	sched := disk.NewScheduler(dm)
	return NewPoolManager(poolSize, dm, sched), dm
}

func TestPoolManager(t *testing.T) {
	t.Run("new page is pinned, zeroed, and mutable through its write guard", func(t *testing.T) {
		bp, _ := newTestPool(t, 5)

		id, guard, err := bp.NewPage()
		require.NoError(t, err)
		copy(guard.Data(), []byte("hello, world!"))
		require.NoError(t, guard.Drop())

		fetched, err := bp.FetchPage(id)
		require.NoError(t, err)
		assert.Equal(t, "hello, world!", string(bytes.Trim(fetched.Data(), "\x00")))
		require.NoError(t, fetched.Drop())
	})

	t.Run("evicts the least-recently-unpinned frame when the pool is full", func(t *testing.T) {
		bp, _ := newTestPool(t, 2)

		var ids []disk.PageId
		for _, content := range []string{"1", "2", "3"} {
			id, guard, err := bp.NewPage()
			require.NoError(t, err)
			copy(guard.Data(), []byte(content))
			require.NoError(t, guard.Drop())
			ids = append(ids, id)
		}

		// page 0 (content "1") was unpinned first, so it was evicted when
		// page 2 (content "3") needed a frame.
		_, ok := bp.pageTable[ids[0]]
		assert.False(t, ok)

		g, err := bp.FetchPage(ids[2])
		require.NoError(t, err)
		assert.Equal(t, "3", string(bytes.Trim(g.Data(), "\x00")))
		require.NoError(t, g.Drop())
	})

	t.Run("dirty evicted frames are flushed to disk before reuse", func(t *testing.T) {
		bp, dm := newTestPool(t, 1)

		id1, g1, err := bp.NewPage()
		require.NoError(t, err)
		copy(g1.Data(), []byte("first"))
		require.NoError(t, g1.Drop())

		_, g2, err := bp.NewPage()
		require.NoError(t, err)
		copy(g2.Data(), []byte("second"))
		require.NoError(t, g2.Drop())

		out := make([]byte, disk.PageSize)
		require.NoError(t, dm.ReadPage(id1, out))
		assert.Equal(t, "first", string(bytes.Trim(out, "\x00")))
	})

	t.Run("pinned pages cannot be evicted and FetchPage still serves from cache", func(t *testing.T) {
		bp, _ := newTestPool(t, 1)

		id, guard, err := bp.NewPage()
		require.NoError(t, err)
		copy(guard.Data(), []byte("pinned"))
		// guard stays pinned (no Drop) — pool is now full and can't evict it.

		_, _, err = bp.NewPage()
		assert.ErrorIs(t, err, util.ErrBufferPoolExhausted)

		again, err := bp.FetchPage(id)
		require.NoError(t, err)
		assert.Equal(t, guard.Data(), again.Data())
		require.NoError(t, again.Drop())
		require.NoError(t, guard.Drop())
	})

	t.Run("UnpinPage never clears an already-dirty frame", func(t *testing.T) {
		bp, dm := newTestPool(t, 1)

		id, guard, err := bp.NewPage()
		require.NoError(t, err)
		copy(guard.Data(), []byte("dirty"))
		require.NoError(t, guard.Drop()) // WritePageGuard.Drop marks dirty=true

		// a redundant unpin with isDirty=false must not clear the flag set above.
		require.NoError(t, bp.UnpinPage(id, false))
		assert.True(t, bp.frames[bp.pageTable[id]].IsDirty())

		require.NoError(t, bp.FlushPage(id))
		out := make([]byte, disk.PageSize)
		require.NoError(t, dm.ReadPage(id, out))
		assert.Equal(t, "dirty", string(bytes.Trim(out, "\x00")))
	})

	t.Run("DeletePage refuses a pinned page and succeeds once unpinned", func(t *testing.T) {
		bp, _ := newTestPool(t, 2)

		id, guard, err := bp.NewPage()
		require.NoError(t, err)

		ok, err := bp.DeletePage(id)
		assert.False(t, ok)
		assert.Error(t, err)

		require.NoError(t, guard.Drop())
		ok, err = bp.DeletePage(id)
		require.NoError(t, err)
		assert.True(t, ok)

		_, ok = bp.pageTable[id]
		assert.False(t, ok)
	})

	t.Run("FlushAll persists every resident dirty page", func(t *testing.T) {
		bp, dm := newTestPool(t, 3)

		var ids []disk.PageId
		for _, content := range []string{"a", "b", "c"} {
			id, guard, err := bp.NewPage()
			require.NoError(t, err)
			copy(guard.Data(), []byte(content))
			require.NoError(t, guard.Drop())
			ids = append(ids, id)
		}

		require.NoError(t, bp.FlushAll())

		for i, content := range []string{"a", "b", "c"} {
			out := make([]byte, disk.PageSize)
			require.NoError(t, dm.ReadPage(ids[i], out))
			assert.Equal(t, content, string(bytes.Trim(out, "\x00")))
		}
	})
}
