package heap

import (
	"github.com/jobala/petro/record"
	"github.com/jobala/petro/storage/disk"
)

// TableIterator walks a TableHeap's live tuples in page/slot order.
// Grounded on original_source/src/include/storage/table_iterator.h.
type TableIterator struct {
	heap *TableHeap
	rid  record.RowId
}

// advanceToFirst positions the iterator at the first live tuple reachable
// from startPage, scanning forward through the page chain if startPage's
// own slots are all tombstoned or empty.
func (it *TableIterator) advanceToFirst(startPage disk.PageId) error {
	pageId := startPage
	for pageId != disk.InvalidPageId {
		guard, err := it.heap.bpm.FetchPage(pageId)
		if err != nil {
			return err
		}
		page := NewTablePage(guard.Data())
		rid, ok := page.GetFirstTupleRid()
		next := page.NextPageId()
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		if ok {
			it.rid = rid
			return nil
		}
		pageId = next
	}
	it.rid = record.InvalidRowId
	return nil
}

// Valid reports whether the iterator refers to a live tuple.
func (it *TableIterator) Valid() bool { return it.rid.IsValid() }

// Row dereferences the iterator into row.
func (it *TableIterator) Row(row *record.Row) (bool, error) {
	if !it.Valid() {
		return false, nil
	}
	return it.heap.GetTuple(it.rid, row, nil)
}

// RowId returns the current row's identifier.
func (it *TableIterator) RowId() record.RowId { return it.rid }

// Next advances the iterator to the next live tuple, first trying the
// current page, then walking forward through subsequent pages.
func (it *TableIterator) Next() error {
	if !it.Valid() {
		return nil
	}

	guard, err := it.heap.bpm.FetchPage(it.rid.PageId)
	if err != nil {
		return err
	}
	page := NewTablePage(guard.Data())
	rid, ok := page.GetNextTupleRid(it.rid)
	next := page.NextPageId()
	if dropErr := guard.Drop(); dropErr != nil {
		return dropErr
	}
	if ok {
		it.rid = rid
		return nil
	}

	return it.advanceToFirst(next)
}

// Equal reports whether two iterators refer to the same position (used to
// detect end-of-scan: it.Equal(heap.End())).
func (it *TableIterator) Equal(other *TableIterator) bool {
	return it.rid == other.rid
}
