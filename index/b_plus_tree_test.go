package index

import (
	"path"
	"testing"

	"github.com/jobala/petro/buffer"
	"github.com/jobala/petro/record"
	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treeTestSchema() *types.Schema {
	return types.NewSchema([]*types.Column{types.NewIntColumn("id", 0, false, true)})
}

func newTestTree(t *testing.T, poolSize int) *Tree {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")
	dm, err := disk.NewManager(dbFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	sched := disk.NewScheduler(dm)
	bpm := buffer.NewPoolManager(poolSize, dm, sched)
	return NewTree(bpm, NewKeyManager(treeTestSchema()))
}

func newTestTreeWithMaxSize(t *testing.T, poolSize int, maxSize int32) *Tree {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")
	dm, err := disk.NewManager(dbFile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	sched := disk.NewScheduler(dm)
	bpm := buffer.NewPoolManager(poolSize, dm, sched)
	return NewTreeWithMaxSize(bpm, NewKeyManager(treeTestSchema()), maxSize)
}

func treeKey(i int32) *record.Row {
	return record.NewRow([]types.Value{types.NewInt(i)})
}

// leafChain walks the leaf-level sibling chain left to right, returning each
// leaf's keys so a test can assert the exact shape of a split.
func leafChain(t *testing.T, tree *Tree) [][]int32 {
	t.Helper()
	it, err := tree.Begin()
	require.NoError(t, err)

	var chain [][]int32
	for leaf := it.leaf; leaf != nil; {
		keys := make([]int32, leaf.Size)
		for i := range keys {
			keys[i] = leaf.keyAt(i).Fields[0].Int
		}
		chain = append(chain, keys)

		if leaf.Next == disk.InvalidPageId {
			break
		}
		next, err := tree.fetchLeaf(leaf.Next)
		require.NoError(t, err)
		leaf = next
	}
	return chain
}

func TestTreeInsertAndGetValue(t *testing.T) {
	t.Run("a fresh tree is empty", func(t *testing.T) {
		tree := newTestTree(t, 16)
		assert.True(t, tree.IsEmpty())
	})

	t.Run("insert then get value round trips", func(t *testing.T) {
		tree := newTestTree(t, 16)
		rid := record.RowId{PageId: 1, SlotNum: 2}
		require.NoError(t, tree.Insert(treeKey(5), rid, nil))

		got, ok, err := tree.GetValue(treeKey(5), nil)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, rid, got)
	})

	t.Run("get value on a missing key reports absent", func(t *testing.T) {
		tree := newTestTree(t, 16)
		require.NoError(t, tree.Insert(treeKey(1), record.RowId{SlotNum: 1}, nil))

		_, ok, err := tree.GetValue(treeKey(2), nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("inserting a duplicate key is an error", func(t *testing.T) {
		tree := newTestTree(t, 16)
		require.NoError(t, tree.Insert(treeKey(1), record.RowId{SlotNum: 1}, nil))
		assert.Error(t, tree.Insert(treeKey(1), record.RowId{SlotNum: 2}, nil))
	})

	t.Run("inserting past a single leaf's capacity splits it", func(t *testing.T) {
		tree := newTestTree(t, 16)
		for i := int32(0); i < 200; i++ {
			require.NoError(t, tree.Insert(treeKey(i), record.RowId{SlotNum: uint32(i)}, nil))
		}
		assert.False(t, tree.IsEmpty())

		for i := int32(0); i < 200; i++ {
			rid, ok, err := tree.GetValue(treeKey(i), nil)
			require.NoError(t, err)
			require.True(t, ok, "expected key %d to be found", i)
			assert.Equal(t, uint32(i), rid.SlotNum)
		}
	})

	t.Run("a max size of 4 splits {1..10} into five leaves of two", func(t *testing.T) {
		tree := newTestTreeWithMaxSize(t, 16, 4)
		for i := int32(1); i <= 10; i++ {
			require.NoError(t, tree.Insert(treeKey(i), record.RowId{SlotNum: uint32(i)}, nil))
		}

		want := [][]int32{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {9, 10}}
		assert.Equal(t, want, leafChain(t, tree))
	})
}

func TestTreeDelete(t *testing.T) {
	t.Run("deleting the only key empties the tree", func(t *testing.T) {
		tree := newTestTree(t, 16)
		require.NoError(t, tree.Insert(treeKey(1), record.RowId{SlotNum: 1}, nil))
		require.NoError(t, tree.Delete(treeKey(1), nil))
		assert.True(t, tree.IsEmpty())
	})

	t.Run("deleting a missing key is an error", func(t *testing.T) {
		tree := newTestTree(t, 16)
		require.NoError(t, tree.Insert(treeKey(1), record.RowId{SlotNum: 1}, nil))
		assert.Error(t, tree.Delete(treeKey(99), nil))
	})

	t.Run("deleting {5,4,3,2,1} from a max-size-4 tree leaves every step reachable", func(t *testing.T) {
		tree := newTestTreeWithMaxSize(t, 16, 4)
		for i := int32(1); i <= 10; i++ {
			require.NoError(t, tree.Insert(treeKey(i), record.RowId{SlotNum: uint32(i)}, nil))
		}

		deleted := map[int32]bool{}
		for _, key := range []int32{5, 4, 3, 2, 1} {
			require.NoError(t, tree.Delete(treeKey(key), nil))
			deleted[key] = true

			for i := int32(1); i <= 10; i++ {
				_, ok, err := tree.GetValue(treeKey(i), nil)
				require.NoError(t, err)
				if deleted[i] {
					assert.False(t, ok, "expected key %d to be gone after deleting %d", i, key)
				} else {
					assert.True(t, ok, "expected key %d to survive deleting %d", i, key)
				}
			}
		}
	})

	t.Run("deleting across many keys leaves every survivor reachable", func(t *testing.T) {
		tree := newTestTree(t, 16)
		const n = 300
		for i := int32(0); i < n; i++ {
			require.NoError(t, tree.Insert(treeKey(i), record.RowId{SlotNum: uint32(i)}, nil))
		}
		for i := int32(0); i < n; i += 2 {
			require.NoError(t, tree.Delete(treeKey(i), nil))
		}
		for i := int32(0); i < n; i++ {
			_, ok, err := tree.GetValue(treeKey(i), nil)
			require.NoError(t, err)
			if i%2 == 0 {
				assert.False(t, ok, "expected key %d to be deleted", i)
			} else {
				assert.True(t, ok, "expected key %d to survive", i)
			}
		}
	})
}
