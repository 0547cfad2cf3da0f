package index

import (
	"github.com/jobala/petro/buffer"
	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/util"
)

// rootsTable is the on-disk body of the index roots page: every live
// index's current root page id, keyed by index id, so a tree's root
// survives process restarts without scanning the whole catalog.
type rootsTable struct {
	Roots map[uint32]disk.PageId
}

// LoadRoot returns indexId's persisted root page id, or disk.InvalidPageId
// if the page has never recorded one.
func LoadRoot(bpm *buffer.PoolManager, indexId uint32) (disk.PageId, error) {
	guard, err := bpm.FetchPage(disk.IndexRootsPageId)
	if err != nil {
		return disk.InvalidPageId, err
	}
	table, err := decodeRootsTable(guard.Data())
	if dropErr := guard.Drop(); dropErr != nil {
		return disk.InvalidPageId, dropErr
	}
	if err != nil {
		return disk.InvalidPageId, err
	}

	root, ok := table.Roots[indexId]
	if !ok {
		return disk.InvalidPageId, nil
	}
	return root, nil
}

// SaveRoot persists indexId's current root page id.
func SaveRoot(bpm *buffer.PoolManager, indexId uint32, root disk.PageId) error {
	guard, err := bpm.FetchPageForWrite(disk.IndexRootsPageId)
	if err != nil {
		return err
	}
	table, err := decodeRootsTable(guard.Data())
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}

	table.Roots[indexId] = root
	if err := table.encodeInto(guard.Data()); err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}
	return guard.Drop()
}

// DeleteRoot removes indexId's entry entirely (called when an index is
// dropped).
func DeleteRoot(bpm *buffer.PoolManager, indexId uint32) error {
	guard, err := bpm.FetchPageForWrite(disk.IndexRootsPageId)
	if err != nil {
		return err
	}
	table, err := decodeRootsTable(guard.Data())
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}

	delete(table.Roots, indexId)
	if err := table.encodeInto(guard.Data()); err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}
	return guard.Drop()
}

func decodeRootsTable(buf []byte) (*rootsTable, error) {
	allZero := true
	for _, b := range buf {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return &rootsTable{Roots: make(map[uint32]disk.PageId)}, nil
	}

	table, err := util.ToStruct[*rootsTable](buf)
	if err != nil {
		return nil, err
	}
	if table.Roots == nil {
		table.Roots = make(map[uint32]disk.PageId)
	}
	return table, nil
}

func (rt *rootsTable) encodeInto(buf []byte) error {
	data, err := util.ToByteSlice(rt, disk.PageSize)
	if err != nil {
		return err
	}
	copy(buf, data)
	return nil
}
