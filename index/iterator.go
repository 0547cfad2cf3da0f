package index

import (
	"github.com/jobala/petro/record"
	"github.com/jobala/petro/storage/disk"
)

// Iterator walks an index's leaves in key order, following the leaf-level
// sibling chain left to right.
type Iterator struct {
	tree *Tree
	leaf *leafPage
	pos  int
}

// Begin returns an iterator positioned at the smallest key in the tree.
func (t *Tree) Begin() (*Iterator, error) {
	if t.IsEmpty() {
		return &Iterator{tree: t}, nil
	}
	pageId := t.rootPageId
	for {
		guard, err := t.bpm.FetchPage(pageId)
		if err != nil {
			return nil, err
		}
		kind := pageKind(guard.Data())
		if kind == leafPageType {
			if err := guard.Drop(); err != nil {
				return nil, err
			}
			break
		}
		internal, err := decodeInternalPage(guard.Data())
		if dropErr := guard.Drop(); dropErr != nil {
			return nil, dropErr
		}
		if err != nil {
			return nil, err
		}
		pageId = internal.valueAt(0)
	}

	leaf, err := t.fetchLeaf(pageId)
	if err != nil {
		return nil, err
	}
	return &Iterator{tree: t, leaf: leaf, pos: 0}, nil
}

// BeginAt returns an iterator positioned at the first key >= key.
func (t *Tree) BeginAt(key *record.Row) (*Iterator, error) {
	if t.IsEmpty() {
		return &Iterator{tree: t}, nil
	}
	leafId, err := t.findLeafPageId(key)
	if err != nil {
		return nil, err
	}
	leaf, err := t.fetchLeaf(leafId)
	if err != nil {
		return nil, err
	}
	idx := leaf.lookupIndex(t.km, key)
	it := &Iterator{tree: t, leaf: leaf, pos: idx}
	it.skipToValid()
	return it, nil
}

// skipToValid advances past an exhausted leaf onto the next non-empty one.
func (it *Iterator) skipToValid() {
	for it.leaf != nil && it.pos >= int(it.leaf.Size) {
		if it.leaf.Next == disk.InvalidPageId {
			it.leaf = nil
			return
		}
		next, err := it.tree.fetchLeaf(it.leaf.Next)
		if err != nil {
			it.leaf = nil
			return
		}
		it.leaf = next
		it.pos = 0
	}
}

// Valid reports whether the iterator refers to an entry.
func (it *Iterator) Valid() bool { return it.leaf != nil && it.pos < int(it.leaf.Size) }

// Key returns the current entry's key.
func (it *Iterator) Key() *record.Row { return it.leaf.keyAt(it.pos) }

// RowId returns the current entry's RowId.
func (it *Iterator) RowId() record.RowId { return it.leaf.rowIdAt(it.pos) }

// Next advances to the next entry in key order.
func (it *Iterator) Next() {
	if !it.Valid() {
		return
	}
	it.pos++
	it.skipToValid()
}
