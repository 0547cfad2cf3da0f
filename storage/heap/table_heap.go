package heap

import (
	"fmt"

	"github.com/jobala/petro/buffer"
	"github.com/jobala/petro/concurrency"
	"github.com/jobala/petro/record"
	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/types"
	"github.com/jobala/petro/util"
)

// TableHeap is a singly linked list of TablePages holding every row of one
// table. Grounded on original_source/src/storage/table_heap.cpp.
type TableHeap struct {
	bpm        *buffer.PoolManager
	schema     *types.Schema
	firstPage  disk.PageId
}

// NewTableHeap creates an empty heap: a single, freshly allocated page.
func NewTableHeap(bpm *buffer.PoolManager, schema *types.Schema) (*TableHeap, error) {
	pageId, guard, err := bpm.NewPage()
	if err != nil {
		return nil, err
	}
	NewTablePage(guard.Data()).Init(pageId, disk.InvalidPageId)
	if err := guard.Drop(); err != nil {
		return nil, err
	}
	return &TableHeap{bpm: bpm, schema: schema, firstPage: pageId}, nil
}

// OpenTableHeap resumes a heap whose first page is already known (e.g. read
// back from the catalog).
func OpenTableHeap(bpm *buffer.PoolManager, schema *types.Schema, firstPage disk.PageId) *TableHeap {
	return &TableHeap{bpm: bpm, schema: schema, firstPage: firstPage}
}

func (h *TableHeap) FirstPageId() disk.PageId { return h.firstPage }

// InsertTuple walks the page chain from the first page, trying each page in
// turn, appending a brand new page at the tail if none has room. txn is
// accepted for interface stability with a future lock/log manager and is
// otherwise unused.
func (h *TableHeap) InsertTuple(row *record.Row, txn *concurrency.Txn) error {
	if row.SerializedSize(h.schema) > SizeMaxRow {
		return fmt.Errorf("%w: row exceeds the maximum tuple size (%d > %d)", util.ErrFailed, row.SerializedSize(h.schema), SizeMaxRow)
	}

	pageId := h.firstPage
	var lastPageId disk.PageId = disk.InvalidPageId

	for pageId != disk.InvalidPageId {
		guard, err := h.bpm.FetchPageForWrite(pageId)
		if err != nil {
			return err
		}
		page := NewTablePage(guard.Data())
		ok, err := page.InsertTuple(row, h.schema)
		if err != nil {
			if dropErr := guard.Drop(); dropErr != nil {
				return dropErr
			}
			return err
		}
		next := page.NextPageId()
		if err := guard.Drop(); err != nil {
			return err
		}
		if ok {
			return nil
		}
		lastPageId = pageId
		pageId = next
	}

	return h.appendPage(lastPageId, row)
}

func (h *TableHeap) appendPage(prevPageId disk.PageId, row *record.Row) error {
	newPageId, guard, err := h.bpm.NewPage()
	if err != nil {
		return err
	}
	page := NewTablePage(guard.Data())
	page.Init(newPageId, prevPageId)
	ok, err := page.InsertTuple(row, h.schema)
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		if _, delErr := h.bpm.DeletePage(newPageId); delErr != nil {
			return delErr
		}
		return err
	}
	if !ok {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		if _, delErr := h.bpm.DeletePage(newPageId); delErr != nil {
			return delErr
		}
		return fmt.Errorf("%w: row too large for an empty page", util.ErrFailed)
	}
	if err := guard.Drop(); err != nil {
		return err
	}

	prevGuard, err := h.bpm.FetchPageForWrite(prevPageId)
	if err != nil {
		return err
	}
	NewTablePage(prevGuard.Data()).SetNextPageId(newPageId)
	return prevGuard.Drop()
}

// GetTuple fills row with the tuple named by rid.
func (h *TableHeap) GetTuple(rid record.RowId, row *record.Row, txn *concurrency.Txn) (bool, error) {
	guard, err := h.bpm.FetchPage(rid.PageId)
	if err != nil {
		return false, err
	}
	page := NewTablePage(guard.Data())
	found, err := page.GetTuple(row, rid.SlotNum, h.schema)
	if dropErr := guard.Drop(); dropErr != nil {
		return false, dropErr
	}
	return found, err
}

// MarkDelete tombstones rid's slot without reclaiming its space.
func (h *TableHeap) MarkDelete(rid record.RowId, txn *concurrency.Txn) error {
	guard, err := h.bpm.FetchPageForWrite(rid.PageId)
	if err != nil {
		return err
	}
	page := NewTablePage(guard.Data())
	ok := page.MarkDelete(rid.SlotNum)
	if err := guard.Drop(); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: row %v already deleted", util.ErrKeyNotFound, rid)
	}
	return nil
}

// RollbackDelete undoes a MarkDelete that has not yet been applied.
func (h *TableHeap) RollbackDelete(rid record.RowId, txn *concurrency.Txn) error {
	guard, err := h.bpm.FetchPageForWrite(rid.PageId)
	if err != nil {
		return err
	}
	NewTablePage(guard.Data()).RollbackDelete(rid.SlotNum)
	return guard.Drop()
}

// ApplyDelete physically reclaims a tombstoned slot's space.
func (h *TableHeap) ApplyDelete(rid record.RowId, txn *concurrency.Txn) error {
	guard, err := h.bpm.FetchPageForWrite(rid.PageId)
	if err != nil {
		return err
	}
	NewTablePage(guard.Data()).ApplyDelete(rid.SlotNum)
	return guard.Drop()
}

// UpdateTuple replaces the tuple at rid with newRow. When the new tuple no
// longer fits on its page it falls back to a mark-delete, apply-delete,
// reinsert sequence, assigning newRow a fresh RowId.
func (h *TableHeap) UpdateTuple(newRow *record.Row, rid record.RowId, txn *concurrency.Txn) error {
	guard, err := h.bpm.FetchPageForWrite(rid.PageId)
	if err != nil {
		return err
	}
	page := NewTablePage(guard.Data())
	oldRow := &record.Row{}
	result, err := page.UpdateTuple(newRow, oldRow, rid.SlotNum, h.schema)
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}
	if err := guard.Drop(); err != nil {
		return err
	}

	switch result {
	case UpdateInPlace:
		return nil
	case UpdateSlotInvalid:
		return fmt.Errorf("%w: row %v", util.ErrKeyNotFound, rid)
	default: // UpdateDoesNotFit
		if err := h.MarkDelete(rid, txn); err != nil {
			return err
		}
		if err := h.ApplyDelete(rid, txn); err != nil {
			return err
		}
		return h.InsertTuple(newRow, txn)
	}
}

// DeleteTable frees every page in the chain and deallocates them on disk.
func (h *TableHeap) DeleteTable() error {
	pageId := h.firstPage
	for pageId != disk.InvalidPageId {
		guard, err := h.bpm.FetchPage(pageId)
		if err != nil {
			return err
		}
		next := NewTablePage(guard.Data()).NextPageId()
		if err := guard.Drop(); err != nil {
			return err
		}
		if _, err := h.bpm.DeletePage(pageId); err != nil {
			return err
		}
		pageId = next
	}
	return nil
}

// Begin returns an iterator positioned at the heap's first live tuple. txn
// is accepted for interface stability and otherwise unused.
func (h *TableHeap) Begin(txn *concurrency.Txn) (*TableIterator, error) {
	it := &TableIterator{heap: h}
	if err := it.advanceToFirst(h.firstPage); err != nil {
		return nil, err
	}
	return it, nil
}

// End returns a sentinel iterator equal to the one returned once iteration
// runs off the end of the chain.
func (h *TableHeap) End() *TableIterator {
	return &TableIterator{heap: h, rid: record.InvalidRowId}
}
