package disk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler(t *testing.T) {
	t.Run("writes then reads back a data page", func(t *testing.T) {
		dm, err := NewManager(dbPath(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = dm.Close() })

		sched := NewScheduler(dm)
		id, err := dm.AllocatePage()
		require.NoError(t, err)

		data := make([]byte, PageSize)
		copy(data, []byte("scheduled write"))

		writeResp := <-sched.Schedule(NewWriteRequest(id, data))
		require.True(t, writeResp.Success)

		readResp := <-sched.Schedule(NewReadRequest(id))
		require.True(t, readResp.Success)
		assert.Equal(t, data, readResp.Data)
	})

	t.Run("routes reserved ids to the meta-page path, not the bitmap path", func(t *testing.T) {
		dm, err := NewManager(dbPath(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = dm.Close() })

		sched := NewScheduler(dm)
		data := make([]byte, PageSize)
		copy(data, []byte("catalog bytes"))

		writeResp := <-sched.Schedule(NewWriteRequest(CatalogMetaPageId, data))
		require.True(t, writeResp.Success)

		readResp := <-sched.Schedule(NewReadRequest(CatalogMetaPageId))
		require.True(t, readResp.Success)
		assert.Equal(t, data, readResp.Data)

		// the same id read through the ordinary data-page path would land on
		// a different physical page, so this directly exercises the routing.
		direct := make([]byte, PageSize)
		require.NoError(t, dm.ReadMetaPage(CatalogMetaPageId, direct))
		assert.Equal(t, data, direct)
	})
}
