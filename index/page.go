package index

import (
	"encoding/binary"

	"github.com/jobala/petro/record"
	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/util"
)

// pageType distinguishes the two page shapes persisted on disk. A 4-byte
// tag precedes the msgpack-encoded page struct so a page can be identified
// without guessing at its shape (internal and leaf pages have no common
// prefix once msgpack-encoded).
type pageType int32

const (
	internalPageType pageType = iota
	leafPageType
)

const pageTagSize = 4

// entryOverhead approximates msgpack's per-key framing. Nothing in the
// package sizes pages from it; a node that encodes past the page is caught
// by util.ToByteSlice, which returns an error.
const entryOverhead = 48

// internalPage routes searches: Values[i] is the i-th child page id, and
// Keys[i] (for i >= 1) is the separator key between Values[i-1] and
// Values[i]. Keys[0] is an unused placeholder, mirroring jobala-petro's own
// internal-node convention.
type internalPage struct {
	PageId   disk.PageId
	Parent   disk.PageId
	Size     int32
	MaxSize  int32
	Keys     []*record.Row
	Values   []disk.PageId
}

// leafPage stores the actual (key, RowId) pairs in sorted order plus a
// forward sibling pointer for range scans.
type leafPage struct {
	PageId  disk.PageId
	Parent  disk.PageId
	Next    disk.PageId
	Prev    disk.PageId
	Size    int32
	MaxSize int32
	Keys    []*record.Row
	Values  []uint64 // packed record.RowId
}

// pageKind reads the 4-byte tag written at the front of a raw page buffer
// by encodeInto, identifying the page's shape without decoding it.
func pageKind(buf []byte) pageType {
	return pageType(int32(binary.LittleEndian.Uint32(buf)))
}

func decodeInternalPage(buf []byte) (*internalPage, error) {
	return util.ToStruct[*internalPage](buf[pageTagSize:])
}

func (p *internalPage) encodeInto(buf []byte) error {
	binary.LittleEndian.PutUint32(buf, uint32(internalPageType))
	data, err := util.ToByteSlice(p, disk.PageSize-pageTagSize)
	if err != nil {
		return err
	}
	copy(buf[pageTagSize:], data)
	return nil
}

func decodeLeafPage(buf []byte) (*leafPage, error) {
	return util.ToStruct[*leafPage](buf[pageTagSize:])
}

func (p *leafPage) encodeInto(buf []byte) error {
	binary.LittleEndian.PutUint32(buf, uint32(leafPageType))
	data, err := util.ToByteSlice(p, disk.PageSize-pageTagSize)
	if err != nil {
		return err
	}
	copy(buf[pageTagSize:], data)
	return nil
}

func newLeafPage(pageId, parent disk.PageId, maxSize int32) *leafPage {
	return &leafPage{
		PageId:  pageId,
		Parent:  parent,
		Next:    disk.InvalidPageId,
		Prev:    disk.InvalidPageId,
		Size:    0,
		MaxSize: maxSize,
		Keys:    nil,
		Values:  nil,
	}
}

func newInternalPage(pageId, parent disk.PageId, maxSize int32) *internalPage {
	return &internalPage{
		PageId:  pageId,
		Parent:  parent,
		Size:    0,
		MaxSize: maxSize,
		Keys:    make([]*record.Row, 1),
		Values:  nil,
	}
}

func (p *leafPage) keyAt(i int) *record.Row   { return p.Keys[i] }
func (p *leafPage) rowIdAt(i int) record.RowId { return record.UnpackRowId(p.Values[i]) }

func (p *internalPage) keyAt(i int) *record.Row { return p.Keys[i] }
func (p *internalPage) valueAt(i int) disk.PageId { return p.Values[i] }

// insertAt inserts (key, rowId) at position i, shifting later entries
// right.
func (p *leafPage) insertAt(i int, key *record.Row, rid record.RowId) {
	p.Keys = append(p.Keys, nil)
	copy(p.Keys[i+1:], p.Keys[i:])
	p.Keys[i] = key

	p.Values = append(p.Values, 0)
	copy(p.Values[i+1:], p.Values[i:])
	p.Values[i] = rid.Pack()

	p.Size++
}

func (p *leafPage) removeAt(i int) {
	p.Keys = append(p.Keys[:i], p.Keys[i+1:]...)
	p.Values = append(p.Values[:i], p.Values[i+1:]...)
	p.Size--
}

// lookupIndex returns the index of the first key >= target (or len(Keys)).
func (p *leafPage) lookupIndex(km *KeyManager, target *record.Row) int {
	lo, hi := 0, int(p.Size)
	for lo < hi {
		mid := (lo + hi) / 2
		if km.Compare(p.Keys[mid], target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// childIndex returns the index of the child to descend into for target:
// the largest i such that Keys[i] <= target (i >= 1), or 0.
func (p *internalPage) childIndex(km *KeyManager, target *record.Row) int {
	idx := 0
	for i := 1; i < int(p.Size); i++ {
		if km.Compare(p.Keys[i], target) <= 0 {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// insertAt inserts a (key, childPageId) pair at position i (i >= 1),
// shifting later entries right.
func (p *internalPage) insertAt(i int, key *record.Row, child disk.PageId) {
	p.Keys = append(p.Keys, nil)
	copy(p.Keys[i+1:], p.Keys[i:])
	p.Keys[i] = key

	p.Values = append(p.Values, 0)
	copy(p.Values[i+1:], p.Values[i:])
	p.Values[i] = child

	p.Size++
}

func (p *internalPage) removeAt(i int) {
	p.Keys = append(p.Keys[:i], p.Keys[i+1:]...)
	p.Values = append(p.Values[:i], p.Values[i+1:]...)
	p.Size--
}

func (p *internalPage) indexOfChild(child disk.PageId) int {
	for i, v := range p.Values {
		if v == child {
			return i
		}
	}
	return -1
}
