// Package index implements a disk-resident B+ tree over composite tuple
// keys: internal/leaf pages routed through the buffer pool, split
// propagation on insert, and coalesce-or-redistribute rebalancing on
// delete. Grounded on jobala-petro's index/b_plus_tree.go (insert/split
// path) and original_source/src/index/b_plus_tree.cpp (delete/rebalance
// path, translated into idiomatic Go rather than transliterated).
package index

import (
	"fmt"

	"github.com/jobala/petro/buffer"
	"github.com/jobala/petro/concurrency"
	"github.com/jobala/petro/record"
	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/util"
)

// defaultMaxSize bounds the number of (key, value) entries a page holds
// before it splits. Composite keys vary in size, so this is a conservative
// fan-out rather than a byte-exact fit: it keeps a page of small keys well
// inside PageSize. Occupancy is not re-checked against the encoded size; a
// node whose msgpack encoding exceeds the page makes encodeInto return an
// error, which Insert returns without splitting.
const defaultMaxSize = 32

// Tree is a disk-resident B+ tree index keyed by composite tuple rows,
// rooted at rootPageId (disk.InvalidPageId when empty).
type Tree struct {
	bpm        *buffer.PoolManager
	km         *KeyManager
	rootPageId disk.PageId
	maxSize    int32
}

// NewTree creates an empty tree with the default fan-out. Use SetRoot to
// resume a tree whose root page already exists on disk (as recorded in the
// index roots page).
func NewTree(bpm *buffer.PoolManager, km *KeyManager) *Tree {
	return NewTreeWithMaxSize(bpm, km, defaultMaxSize)
}

// NewTreeWithMaxSize creates an empty tree whose leaf and internal pages
// split once they hold maxSize entries. Exposed mainly so tests can force
// small fan-outs and assert exact split/rebalance structure; production
// callers should prefer NewTree.
func NewTreeWithMaxSize(bpm *buffer.PoolManager, km *KeyManager, maxSize int32) *Tree {
	return &Tree{bpm: bpm, km: km, rootPageId: disk.InvalidPageId, maxSize: maxSize}
}

func (t *Tree) RootPageId() disk.PageId { return t.rootPageId }
func (t *Tree) SetRoot(pageId disk.PageId) { t.rootPageId = pageId }
func (t *Tree) IsEmpty() bool { return t.rootPageId == disk.InvalidPageId }

// GetValue returns the RowId stored for key, if present. txn is accepted
// for interface stability with a future lock manager and is otherwise
// unused.
func (t *Tree) GetValue(key *record.Row, txn *concurrency.Txn) (record.RowId, bool, error) {
	if t.IsEmpty() {
		return record.InvalidRowId, false, nil
	}

	leafId, err := t.findLeafPageId(key)
	if err != nil {
		return record.InvalidRowId, false, err
	}

	guard, err := t.bpm.FetchPage(leafId)
	if err != nil {
		return record.InvalidRowId, false, err
	}
	leaf, err := decodeLeafPage(guard.Data())
	if dropErr := guard.Drop(); dropErr != nil {
		return record.InvalidRowId, false, dropErr
	}
	if err != nil {
		return record.InvalidRowId, false, err
	}

	idx := leaf.lookupIndex(t.km, key)
	if idx >= int(leaf.Size) || t.km.Compare(leaf.keyAt(idx), key) != 0 {
		return record.InvalidRowId, false, nil
	}
	return leaf.rowIdAt(idx), true, nil
}

// findLeafPageId descends from the root to the leaf that would contain
// key.
func (t *Tree) findLeafPageId(key *record.Row) (disk.PageId, error) {
	pageId := t.rootPageId
	for {
		guard, err := t.bpm.FetchPage(pageId)
		if err != nil {
			return disk.InvalidPageId, err
		}
		kind := pageKind(guard.Data())
		if kind == leafPageType {
			if err := guard.Drop(); err != nil {
				return disk.InvalidPageId, err
			}
			return pageId, nil
		}

		internal, err := decodeInternalPage(guard.Data())
		if dropErr := guard.Drop(); dropErr != nil {
			return disk.InvalidPageId, dropErr
		}
		if err != nil {
			return disk.InvalidPageId, err
		}

		pageId = internal.valueAt(internal.childIndex(t.km, key))
	}
}

// Insert adds (key, rid) to the tree, splitting leaves (and propagating
// splits up through ancestors) as needed. txn is accepted for interface
// stability with a future lock/log manager and is otherwise unused.
func (t *Tree) Insert(key *record.Row, rid record.RowId, txn *concurrency.Txn) error {
	if t.IsEmpty() {
		pageId, guard, err := t.bpm.NewPage()
		if err != nil {
			return err
		}
		leaf := newLeafPage(pageId, disk.InvalidPageId, t.maxSize)
		leaf.insertAt(0, key, rid)
		if err := leaf.encodeInto(guard.Data()); err != nil {
			if dropErr := guard.Drop(); dropErr != nil {
				return dropErr
			}
			return err
		}
		if err := guard.Drop(); err != nil {
			return err
		}
		t.rootPageId = pageId
		return nil
	}

	leafId, err := t.findLeafPageId(key)
	if err != nil {
		return err
	}

	guard, err := t.bpm.FetchPageForWrite(leafId)
	if err != nil {
		return err
	}
	leaf, err := decodeLeafPage(guard.Data())
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}

	idx := leaf.lookupIndex(t.km, key)
	if idx < int(leaf.Size) && t.km.Compare(leaf.keyAt(idx), key) == 0 {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return fmt.Errorf("%w: duplicate key in unique index", util.ErrAlreadyExist)
	}
	leaf.insertAt(idx, key, rid)

	if leaf.Size < leaf.MaxSize {
		err = leaf.encodeInto(guard.Data())
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}

	return t.splitLeaf(guard, leaf)
}

// splitLeaf divides an overflowing leaf in two and inserts the new leaf's
// first key into the parent (propagating further splits as needed).
func (t *Tree) splitLeaf(guard *buffer.WritePageGuard, leaf *leafPage) error {
	newId, newGuard, err := t.bpm.NewPage()
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}
	sibling := newLeafPage(newId, leaf.Parent, leaf.MaxSize)

	mid := int(leaf.Size) / 2
	sibling.Keys = append(sibling.Keys, leaf.Keys[mid:]...)
	sibling.Values = append(sibling.Values, leaf.Values[mid:]...)
	sibling.Size = int32(len(sibling.Keys))

	leaf.Keys = leaf.Keys[:mid]
	leaf.Values = leaf.Values[:mid]
	leaf.Size = int32(mid)

	sibling.Next = leaf.Next
	sibling.Prev = leaf.PageId
	leaf.Next = newId

	if sibling.Next != disk.InvalidPageId {
		if err := t.updateSiblingPrev(sibling.Next, newId); err != nil {
			return err
		}
	}

	if err := leaf.encodeInto(guard.Data()); err != nil {
		return err
	}
	if err := guard.Drop(); err != nil {
		return err
	}

	if err := sibling.encodeInto(newGuard.Data()); err != nil {
		return err
	}
	if err := newGuard.Drop(); err != nil {
		return err
	}

	return t.insertIntoParent(leaf.PageId, leaf.Parent, sibling.keyAt(0), newId)
}

func (t *Tree) updateSiblingPrev(pageId, prev disk.PageId) error {
	guard, err := t.bpm.FetchPageForWrite(pageId)
	if err != nil {
		return err
	}
	sib, err := decodeLeafPage(guard.Data())
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}
	sib.Prev = prev
	if err := sib.encodeInto(guard.Data()); err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}
	return guard.Drop()
}

// insertIntoParent inserts (key, rightChild) into leftChild's parent,
// creating a new root if leftChild had none, and recursing if the parent
// itself overflows.
func (t *Tree) insertIntoParent(leftChild, parentId disk.PageId, key *record.Row, rightChild disk.PageId) error {
	if parentId == disk.InvalidPageId {
		newRootId, guard, err := t.bpm.NewPage()
		if err != nil {
			return err
		}
		root := newInternalPage(newRootId, disk.InvalidPageId, t.maxSize)
		root.Keys = append(root.Keys, key)
		root.Values = append(root.Values, leftChild, rightChild)
		root.Size = 2

		if err := root.encodeInto(guard.Data()); err != nil {
			return err
		}
		if err := guard.Drop(); err != nil {
			return err
		}

		t.rootPageId = newRootId
		return t.reparent(leftChild, newRootId, rightChild, newRootId)
	}

	guard, err := t.bpm.FetchPageForWrite(parentId)
	if err != nil {
		return err
	}
	parent, err := decodeInternalPage(guard.Data())
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}

	insertAt := parent.indexOfChild(leftChild) + 1
	parent.insertAt(insertAt, key, rightChild)

	if parent.Size < parent.MaxSize {
		err = parent.encodeInto(guard.Data())
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}

	return t.splitInternal(guard, parent)
}

func (t *Tree) reparent(leftChild, leftParent, rightChild, rightParent disk.PageId) error {
	if err := t.setParent(leftChild, leftParent); err != nil {
		return err
	}
	return t.setParent(rightChild, rightParent)
}

func (t *Tree) setParent(pageId, parent disk.PageId) error {
	guard, err := t.bpm.FetchPageForWrite(pageId)
	if err != nil {
		return err
	}
	kind := pageKind(guard.Data())
	if kind == leafPageType {
		leaf, err := decodeLeafPage(guard.Data())
		if err != nil {
			if dropErr := guard.Drop(); dropErr != nil {
				return dropErr
			}
			return err
		}
		leaf.Parent = parent
		if err := leaf.encodeInto(guard.Data()); err != nil {
			if dropErr := guard.Drop(); dropErr != nil {
				return dropErr
			}
			return err
		}
	} else {
		internal, err := decodeInternalPage(guard.Data())
		if err != nil {
			if dropErr := guard.Drop(); dropErr != nil {
				return dropErr
			}
			return err
		}
		internal.Parent = parent
		if err := internal.encodeInto(guard.Data()); err != nil {
			if dropErr := guard.Drop(); dropErr != nil {
				return dropErr
			}
			return err
		}
	}
	return guard.Drop()
}

func (t *Tree) splitInternal(guard *buffer.WritePageGuard, node *internalPage) error {
	newId, newGuard, err := t.bpm.NewPage()
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}
	sibling := newInternalPage(newId, node.Parent, node.MaxSize)

	mid := int(node.Size) / 2
	pushedUp := node.keyAt(mid)

	// newInternalPage already holds the unused Keys[0] placeholder.
	sibling.Keys = append(sibling.Keys, node.Keys[mid+1:]...)
	sibling.Values = append(sibling.Values, node.Values[mid:]...)
	sibling.Size = int32(len(sibling.Values))

	node.Keys = node.Keys[:mid]
	node.Values = node.Values[:mid]
	node.Size = int32(len(node.Values))

	if err := node.encodeInto(guard.Data()); err != nil {
		return err
	}
	if err := guard.Drop(); err != nil {
		return err
	}

	if err := sibling.encodeInto(newGuard.Data()); err != nil {
		return err
	}
	if err := newGuard.Drop(); err != nil {
		return err
	}

	for _, child := range sibling.Values {
		if err := t.setParent(child, newId); err != nil {
			return err
		}
	}

	return t.insertIntoParent(node.PageId, node.Parent, pushedUp, newId)
}

// Delete removes key from the tree, rebalancing underflowing pages via
// redistribution from a sibling or coalescing into one. txn is accepted for
// interface stability with a future lock/log manager and is otherwise
// unused.
func (t *Tree) Delete(key *record.Row, txn *concurrency.Txn) error {
	if t.IsEmpty() {
		return fmt.Errorf("%w: key not found", util.ErrKeyNotFound)
	}

	leafId, err := t.findLeafPageId(key)
	if err != nil {
		return err
	}
	guard, err := t.bpm.FetchPageForWrite(leafId)
	if err != nil {
		return err
	}
	leaf, err := decodeLeafPage(guard.Data())
	if err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}

	idx := leaf.lookupIndex(t.km, key)
	if idx >= int(leaf.Size) || t.km.Compare(leaf.keyAt(idx), key) != 0 {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return fmt.Errorf("%w: key not found", util.ErrKeyNotFound)
	}
	leaf.removeAt(idx)

	if err := leaf.encodeInto(guard.Data()); err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}
	if err := guard.Drop(); err != nil {
		return err
	}

	return t.coalesceOrRedistributeLeaf(leaf)
}

// minSize is the underflow threshold: a non-root page with fewer entries
// than this must be redistributed or merged.
func minSize(maxSize int32) int32 { return maxSize / 2 }

// writeLeaf re-fetches pageId, overwrites it with leaf's current contents,
// and unpins it dirty.
func (t *Tree) writeLeaf(leaf *leafPage) error {
	guard, err := t.bpm.FetchPageForWrite(leaf.PageId)
	if err != nil {
		return err
	}
	if err := leaf.encodeInto(guard.Data()); err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}
	return guard.Drop()
}

// writeInternal re-fetches pageId, overwrites it with node's current
// contents, and unpins it dirty.
func (t *Tree) writeInternal(node *internalPage) error {
	guard, err := t.bpm.FetchPageForWrite(node.PageId)
	if err != nil {
		return err
	}
	if err := node.encodeInto(guard.Data()); err != nil {
		if dropErr := guard.Drop(); dropErr != nil {
			return dropErr
		}
		return err
	}
	return guard.Drop()
}

func (t *Tree) fetchInternal(pageId disk.PageId) (*internalPage, error) {
	guard, err := t.bpm.FetchPage(pageId)
	if err != nil {
		return nil, err
	}
	node, err := decodeInternalPage(guard.Data())
	if dropErr := guard.Drop(); dropErr != nil {
		return nil, dropErr
	}
	return node, err
}

func (t *Tree) fetchLeaf(pageId disk.PageId) (*leafPage, error) {
	guard, err := t.bpm.FetchPage(pageId)
	if err != nil {
		return nil, err
	}
	leaf, err := decodeLeafPage(guard.Data())
	if dropErr := guard.Drop(); dropErr != nil {
		return nil, dropErr
	}
	return leaf, err
}


// coalesceOrRedistributeLeaf handles an underflowing (or just-emptied root)
// leaf: shrink the tree if it's the root, otherwise borrow an entry from a
// sibling through the parent, or merge with one (always merging the
// right-hand page into the left-hand one), then recurse on the parent.
func (t *Tree) coalesceOrRedistributeLeaf(leaf *leafPage) error {
	if leaf.PageId == t.rootPageId {
		if leaf.Size == 0 {
			t.rootPageId = disk.InvalidPageId
			_, err := t.bpm.DeletePage(leaf.PageId)
			return err
		}
		return nil
	}
	if leaf.Size >= minSize(leaf.MaxSize) {
		return nil
	}

	parent, err := t.fetchInternal(leaf.Parent)
	if err != nil {
		return err
	}
	myIdx := parent.indexOfChild(leaf.PageId)

	siblingIdx := myIdx - 1
	if myIdx == 0 {
		siblingIdx = 1
	}
	sibling, err := t.fetchLeaf(parent.valueAt(siblingIdx))
	if err != nil {
		return err
	}

	leftIdx, rightIdx := myIdx, siblingIdx
	left, right := leaf, sibling
	if siblingIdx < myIdx {
		leftIdx, rightIdx = siblingIdx, myIdx
		left, right = sibling, leaf
	}

	if left.Size+right.Size <= leaf.MaxSize {
		left.Keys = append(left.Keys, right.Keys...)
		left.Values = append(left.Values, right.Values...)
		left.Size += right.Size
		left.Next = right.Next
		if right.Next != disk.InvalidPageId {
			if err := t.updateSiblingPrev(right.Next, left.PageId); err != nil {
				return err
			}
		}
		if err := t.writeLeaf(left); err != nil {
			return err
		}
		if _, err := t.bpm.DeletePage(right.PageId); err != nil {
			return err
		}
		parent.removeAt(rightIdx)
	} else if leftIdx == siblingIdx {
		// borrow sibling's (left's) last entry, prepending it to leaf (right).
		last := int(left.Size) - 1
		leaf.Keys = append([]*record.Row{left.keyAt(last)}, leaf.Keys...)
		leaf.Values = append([]uint64{left.Values[last]}, leaf.Values...)
		leaf.Size++
		left.removeAt(last)
		parent.Keys[myIdx] = leaf.keyAt(0)
		if err := t.writeLeaf(leaf); err != nil {
			return err
		}
		if err := t.writeLeaf(left); err != nil {
			return err
		}
	} else {
		// borrow sibling's (right's) first entry, appending it to leaf (left).
		leaf.Keys = append(leaf.Keys, right.keyAt(0))
		leaf.Values = append(leaf.Values, right.Values[0])
		leaf.Size++
		right.removeAt(0)
		parent.Keys[siblingIdx] = right.keyAt(0)
		if err := t.writeLeaf(leaf); err != nil {
			return err
		}
		if err := t.writeLeaf(right); err != nil {
			return err
		}
	}

	return t.coalesceOrRedistributeInternal(parent)
}

// coalesceOrRedistributeInternal mirrors coalesceOrRedistributeLeaf for
// internal (non-leaf) nodes: collapse the root if it has shrunk to a
// single child, otherwise borrow a key/child from a sibling through the
// parent, or merge two siblings into one.
func (t *Tree) coalesceOrRedistributeInternal(node *internalPage) error {
	if err := t.writeInternal(node); err != nil {
		return err
	}

	if node.PageId == t.rootPageId {
		if node.Size == 1 {
			newRoot := node.valueAt(0)
			t.rootPageId = newRoot
			if err := t.setParent(newRoot, disk.InvalidPageId); err != nil {
				return err
			}
			_, err := t.bpm.DeletePage(node.PageId)
			return err
		}
		return nil
	}
	if node.Size >= minSize(node.MaxSize) {
		return nil
	}

	parent, err := t.fetchInternal(node.Parent)
	if err != nil {
		return err
	}
	myIdx := parent.indexOfChild(node.PageId)

	siblingIdx := myIdx - 1
	if myIdx == 0 {
		siblingIdx = 1
	}
	sibling, err := t.fetchInternal(parent.valueAt(siblingIdx))
	if err != nil {
		return err
	}

	leftIdx, rightIdx := myIdx, siblingIdx
	left, right := node, sibling
	if siblingIdx < myIdx {
		leftIdx, rightIdx = siblingIdx, myIdx
		left, right = sibling, node
	}

	if left.Size+right.Size <= node.MaxSize {
		// the separator key above right's subtree becomes the key that
		// joins left's last child to right's first child.
		separator := parent.keyAt(rightIdx)
		left.Keys = append(left.Keys, separator)
		left.Keys = append(left.Keys, right.Keys[1:]...)
		left.Values = append(left.Values, right.Values...)
		left.Size = int32(len(left.Values))

		for _, child := range right.Values {
			if err := t.setParent(child, left.PageId); err != nil {
				return err
			}
		}

		if err := t.writeInternal(left); err != nil {
			return err
		}
		if _, err := t.bpm.DeletePage(right.PageId); err != nil {
			return err
		}
		parent.removeAt(rightIdx)
	} else if leftIdx == siblingIdx {
		// borrow left's last child, prepending it to node (right).
		last := int(left.Size) - 1
		borrowedChild := left.valueAt(last)
		promotedKey := left.keyAt(last)
		separator := parent.keyAt(myIdx)
		left.removeAt(last)

		node.Keys = append([]*record.Row{nil, separator}, node.Keys[1:]...)
		node.Values = append([]disk.PageId{borrowedChild}, node.Values...)
		node.Size++
		parent.Keys[myIdx] = promotedKey

		if err := t.setParent(borrowedChild, node.PageId); err != nil {
			return err
		}
		if err := t.writeInternal(node); err != nil {
			return err
		}
		if err := t.writeInternal(left); err != nil {
			return err
		}
	} else {
		// borrow right's first child, appending it to node (left).
		borrowedChild := right.valueAt(0)
		separator := parent.keyAt(siblingIdx)
		promoted := right.keyAt(1)
		right.removeAt(0)

		node.Keys = append(node.Keys, separator)
		node.Values = append(node.Values, borrowedChild)
		node.Size++
		parent.Keys[siblingIdx] = promoted

		if err := t.setParent(borrowedChild, node.PageId); err != nil {
			return err
		}
		if err := t.writeInternal(node); err != nil {
			return err
		}
		if err := t.writeInternal(right); err != nil {
			return err
		}
	}

	return t.coalesceOrRedistributeInternal(parent)
}
