package index

import (
	"testing"

	"github.com/jobala/petro/record"
	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/types"
)

func pageTestKey(i int32) *record.Row {
	return record.NewRow([]types.Value{types.NewInt(i)})
}

func TestLeafPageRoundTrip(t *testing.T) {
	leaf := newLeafPage(5, disk.InvalidPageId, 64)
	leaf.insertAt(0, pageTestKey(1), record.RowId{PageId: 10, SlotNum: 0})
	leaf.insertAt(1, pageTestKey(2), record.RowId{PageId: 10, SlotNum: 1})

	buf := make([]byte, disk.PageSize)
	if err := leaf.encodeInto(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pageKind(buf) != leafPageType {
		t.Fatalf("expected the page tag to identify a leaf page")
	}

	got, err := decodeLeafPage(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Size != 2 || got.PageId != 5 {
		t.Fatalf("unexpected decoded leaf: %+v", got)
	}
	if got.rowIdAt(1) != (record.RowId{PageId: 10, SlotNum: 1}) {
		t.Fatalf("unexpected row id at index 1: %+v", got.rowIdAt(1))
	}
}

func TestLeafPageInsertAndRemove(t *testing.T) {
	leaf := newLeafPage(1, disk.InvalidPageId, 64)
	leaf.insertAt(0, pageTestKey(1), record.RowId{SlotNum: 1})
	leaf.insertAt(1, pageTestKey(3), record.RowId{SlotNum: 3})
	leaf.insertAt(1, pageTestKey(2), record.RowId{SlotNum: 2})

	if leaf.Size != 3 {
		t.Fatalf("expected size 3, got %d", leaf.Size)
	}
	for i, want := range []int32{1, 2, 3} {
		if leaf.keyAt(i).Fields[0].Int != want {
			t.Fatalf("expected key %d at index %d, got %d", want, i, leaf.keyAt(i).Fields[0].Int)
		}
	}

	leaf.removeAt(1)
	if leaf.Size != 2 || leaf.keyAt(1).Fields[0].Int != 3 {
		t.Fatalf("expected [1,3] after removing index 1, got size=%d", leaf.Size)
	}
}

func TestLeafPageLookupIndex(t *testing.T) {
	km := NewKeyManager(types.NewSchema([]*types.Column{types.NewIntColumn("a", 0, false, false)}))
	leaf := newLeafPage(1, disk.InvalidPageId, 64)
	leaf.insertAt(0, pageTestKey(10), record.RowId{})
	leaf.insertAt(1, pageTestKey(20), record.RowId{})
	leaf.insertAt(2, pageTestKey(30), record.RowId{})

	if idx := leaf.lookupIndex(km, pageTestKey(20)); idx != 1 {
		t.Fatalf("expected lookupIndex to find the exact key at 1, got %d", idx)
	}
	if idx := leaf.lookupIndex(km, pageTestKey(25)); idx != 2 {
		t.Fatalf("expected lookupIndex to find the insertion point 2, got %d", idx)
	}
	if idx := leaf.lookupIndex(km, pageTestKey(99)); idx != 3 {
		t.Fatalf("expected lookupIndex past the end to return 3, got %d", idx)
	}
}

func TestInternalPageRoundTrip(t *testing.T) {
	node := newInternalPage(7, disk.InvalidPageId, 64)
	node.Values = append(node.Values, 100)
	node.Size = 1
	node.insertAt(1, pageTestKey(5), 101)
	node.insertAt(2, pageTestKey(15), 102)

	buf := make([]byte, disk.PageSize)
	if err := node.encodeInto(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pageKind(buf) != internalPageType {
		t.Fatalf("expected the page tag to identify an internal page")
	}

	got, err := decodeInternalPage(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Size != 3 || got.valueAt(0) != 100 || got.valueAt(2) != 102 {
		t.Fatalf("unexpected decoded internal page: %+v", got)
	}
}

func TestInternalPageChildIndex(t *testing.T) {
	km := NewKeyManager(types.NewSchema([]*types.Column{types.NewIntColumn("a", 0, false, false)}))
	node := newInternalPage(1, disk.InvalidPageId, 64)
	node.Values = append(node.Values, 100)
	node.Size = 1
	node.insertAt(1, pageTestKey(10), 101)
	node.insertAt(2, pageTestKey(20), 102)

	if idx := node.childIndex(km, pageTestKey(5)); idx != 0 {
		t.Fatalf("expected a key below the first separator to route to child 0, got %d", idx)
	}
	if idx := node.childIndex(km, pageTestKey(10)); idx != 1 {
		t.Fatalf("expected a key equal to a separator to route right, got %d", idx)
	}
	if idx := node.childIndex(km, pageTestKey(25)); idx != 2 {
		t.Fatalf("expected a key above every separator to route to the last child, got %d", idx)
	}
}

func TestInternalPageIndexOfChild(t *testing.T) {
	node := newInternalPage(1, disk.InvalidPageId, 64)
	node.Values = append(node.Values, 100)
	node.Size = 1
	node.insertAt(1, pageTestKey(10), 101)

	if idx := node.indexOfChild(101); idx != 1 {
		t.Fatalf("expected index 1 for child 101, got %d", idx)
	}
	if idx := node.indexOfChild(999); idx != -1 {
		t.Fatalf("expected -1 for an absent child, got %d", idx)
	}
}
