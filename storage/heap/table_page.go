// Package heap implements the slotted table-heap storage: table pages
// organized as a singly linked list of pages per table.
// Grounded on original_source/src/include/page/table_page.h and
// storage/table_heap.cpp.
package heap

import (
	"encoding/binary"

	"github.com/jobala/petro/record"
	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/types"
)

const (
	headerSize = 24 // PageId | LSN | PrevPageId | NextPageId | FreeSpacePtr | TupleCount
	slotSize   = 8  // offset:4 | size:4

	offsetPageId    = 0
	offsetLSN       = 4
	offsetPrevPage  = 8
	offsetNextPage  = 12
	offsetFreeSpace = 16
	offsetTupleCnt  = 20
	offsetSlotsBase = headerSize

	deleteMask uint32 = 1 << 31
)

// SizeMaxRow is the largest tuple (serialized) this heap will store.
const SizeMaxRow = disk.PageSize - headerSize - slotSize

// TablePage is a slotted page: header, slot directory growing downward
// from the header, tuples growing upward from the end of the page.
type TablePage struct {
	buf []byte
}

// NewTablePage wraps a raw page buffer (typically a buffer.WritePageGuard's
// Data()) with slotted-page accessors. The caller owns the buffer's
// lifetime; TablePage never retains it beyond the call that constructed it.
func NewTablePage(buf []byte) *TablePage { return &TablePage{buf: buf} }

// Init sets up an empty page's header.
func (p *TablePage) Init(pageId, prevPageId disk.PageId) {
	p.setPageId(pageId)
	p.setLSN(0)
	p.SetPrevPageId(prevPageId)
	p.SetNextPageId(disk.InvalidPageId)
	p.setFreeSpacePointer(disk.PageSize)
	p.setTupleCount(0)
}

func (p *TablePage) setPageId(id disk.PageId) {
	binary.LittleEndian.PutUint32(p.buf[offsetPageId:], uint32(id))
}
func (p *TablePage) PageId() disk.PageId {
	return disk.PageId(int32(binary.LittleEndian.Uint32(p.buf[offsetPageId:])))
}

func (p *TablePage) setLSN(lsn uint32) { binary.LittleEndian.PutUint32(p.buf[offsetLSN:], lsn) }
func (p *TablePage) LSN() uint32       { return binary.LittleEndian.Uint32(p.buf[offsetLSN:]) }

func (p *TablePage) SetPrevPageId(id disk.PageId) {
	binary.LittleEndian.PutUint32(p.buf[offsetPrevPage:], uint32(id))
}
func (p *TablePage) PrevPageId() disk.PageId {
	return disk.PageId(int32(binary.LittleEndian.Uint32(p.buf[offsetPrevPage:])))
}

func (p *TablePage) SetNextPageId(id disk.PageId) {
	binary.LittleEndian.PutUint32(p.buf[offsetNextPage:], uint32(id))
}
func (p *TablePage) NextPageId() disk.PageId {
	return disk.PageId(int32(binary.LittleEndian.Uint32(p.buf[offsetNextPage:])))
}

func (p *TablePage) setFreeSpacePointer(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[offsetFreeSpace:], v)
}
func (p *TablePage) freeSpacePointer() uint32 {
	return binary.LittleEndian.Uint32(p.buf[offsetFreeSpace:])
}

func (p *TablePage) setTupleCount(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[offsetTupleCnt:], v)
}
func (p *TablePage) TupleCount() uint32 {
	return binary.LittleEndian.Uint32(p.buf[offsetTupleCnt:])
}

func (p *TablePage) slotOffset(slot uint32) uint32 {
	return binary.LittleEndian.Uint32(p.buf[offsetSlotsBase+slotSize*slot:])
}
func (p *TablePage) setSlotOffset(slot, v uint32) {
	binary.LittleEndian.PutUint32(p.buf[offsetSlotsBase+slotSize*slot:], v)
}
func (p *TablePage) slotSize(slot uint32) uint32 {
	return binary.LittleEndian.Uint32(p.buf[offsetSlotsBase+4+slotSize*slot:])
}
func (p *TablePage) setSlotSize(slot, v uint32) {
	binary.LittleEndian.PutUint32(p.buf[offsetSlotsBase+4+slotSize*slot:], v)
}

func isDeleted(size uint32) bool  { return size&deleteMask != 0 || size == 0 }
func setDeleted(size uint32) uint32 { return size | deleteMask }
func clearDeleted(size uint32) uint32 { return size &^ deleteMask }

// freeSpaceRemaining is the gap between the end of the slot directory and
// the free-space pointer.
func (p *TablePage) freeSpaceRemaining() uint32 {
	return p.freeSpacePointer() - headerSize - slotSize*p.TupleCount()
}

// InsertTuple serializes row and stores it, reusing a freed slot if one
// exists (never a tombstoned slot, which keeps its size for rollback) or
// else appending a new slot. Records the assigned RowId on row.
func (p *TablePage) InsertTuple(row *record.Row, schema *types.Schema) (bool, error) {
	size := row.SerializedSize(schema)
	if uint32(size)+slotSize > p.freeSpaceRemaining() {
		return false, nil
	}

	buf := make([]byte, size)
	if _, err := row.SerializeTo(buf, schema); err != nil {
		return false, err
	}

	slot := p.TupleCount()
	reused := false
	for i := uint32(0); i < p.TupleCount(); i++ {
		if p.slotSize(i) == 0 {
			slot = i
			reused = true
			break
		}
	}

	newFreeSpacePointer := p.freeSpacePointer() - uint32(size)
	copy(p.buf[newFreeSpacePointer:], buf)
	p.setSlotOffset(slot, newFreeSpacePointer)
	p.setSlotSize(slot, uint32(size))
	p.setFreeSpacePointer(newFreeSpacePointer)
	if !reused {
		p.setTupleCount(slot + 1)
	}

	row.SetRowId(record.RowId{PageId: p.PageId(), SlotNum: slot})
	return true, nil
}

// MarkDelete tombstones a slot. Rejects (returns false) an already-deleted
// or out-of-range slot.
func (p *TablePage) MarkDelete(slot uint32) bool {
	if slot >= p.TupleCount() {
		return false
	}
	size := p.slotSize(slot)
	if isDeleted(size) {
		return false
	}
	p.setSlotSize(slot, setDeleted(size))
	return true
}

// RollbackDelete clears the delete bit on a tombstoned slot.
func (p *TablePage) RollbackDelete(slot uint32) {
	size := p.slotSize(slot)
	p.setSlotSize(slot, clearDeleted(size))
}

// ApplyDelete physically compacts the tuple region: every tuple stored at a
// lower offset than the victim slides up by the victim's size.
func (p *TablePage) ApplyDelete(slot uint32) {
	size := clearDeleted(p.slotSize(slot))
	offset := p.slotOffset(slot)

	for i := uint32(0); i < p.TupleCount(); i++ {
		if i == slot || p.slotSize(i) == 0 {
			continue
		}
		otherOffset := p.slotOffset(i)
		otherSize := clearDeleted(p.slotSize(i))
		if otherOffset < offset {
			copy(p.buf[otherOffset+size:otherOffset+size+otherSize], p.buf[otherOffset:otherOffset+otherSize])
			p.setSlotOffset(i, otherOffset+size)
		}
	}

	p.setFreeSpacePointer(p.freeSpacePointer() + size)
	p.setSlotSize(slot, 0)
	p.setSlotOffset(slot, 0)
}

// UpdateResult is the tri-state result of UpdateTuple.
type UpdateResult int

const (
	UpdateInPlace UpdateResult = iota
	UpdateDoesNotFit
	UpdateSlotInvalid
)

// UpdateTuple writes newRow over the tuple at slot, filling oldRow with the
// prior contents for rollback. If the new row is no larger it is written
// in place; if larger but still fits in the page's remaining free space it
// is written at a fresh offset and the old bytes compacted; otherwise
// returns UpdateDoesNotFit without mutating the page.
func (p *TablePage) UpdateTuple(newRow *record.Row, oldRow *record.Row, slot uint32, schema *types.Schema) (UpdateResult, error) {
	if slot >= p.TupleCount() || isDeleted(p.slotSize(slot)) {
		return UpdateSlotInvalid, nil
	}

	if err := p.readTupleInto(oldRow, slot, schema); err != nil {
		return UpdateSlotInvalid, err
	}
	oldRow.SetRowId(record.RowId{PageId: p.PageId(), SlotNum: slot})

	newSize := newRow.SerializedSize(schema)
	oldOffset := p.slotOffset(slot)
	oldSize := p.slotSize(slot)

	if uint32(newSize) <= oldSize {
		buf := make([]byte, newSize)
		if _, err := newRow.SerializeTo(buf, schema); err != nil {
			return UpdateSlotInvalid, err
		}
		copy(p.buf[oldOffset:], buf)
		p.setSlotSize(slot, uint32(newSize))
		newRow.SetRowId(record.RowId{PageId: p.PageId(), SlotNum: slot})
		return UpdateInPlace, nil
	}

	if uint32(newSize) > p.freeSpaceRemaining() {
		return UpdateDoesNotFit, nil
	}

	// slide every tuple below oldOffset up by oldSize to reclaim the slot's
	// space, exactly as ApplyDelete does, then append the new tuple.
	for i := uint32(0); i < p.TupleCount(); i++ {
		if i == slot || p.slotSize(i) == 0 {
			continue
		}
		otherOffset := p.slotOffset(i)
		otherSize := clearDeleted(p.slotSize(i))
		if otherOffset < oldOffset {
			copy(p.buf[otherOffset+oldSize:otherOffset+oldSize+otherSize], p.buf[otherOffset:otherOffset+otherSize])
			p.setSlotOffset(i, otherOffset+oldSize)
		}
	}
	p.setFreeSpacePointer(p.freeSpacePointer() + oldSize)

	buf := make([]byte, newSize)
	if _, err := newRow.SerializeTo(buf, schema); err != nil {
		return UpdateSlotInvalid, err
	}
	newOffset := p.freeSpacePointer() - uint32(newSize)
	copy(p.buf[newOffset:], buf)
	p.setSlotOffset(slot, newOffset)
	p.setSlotSize(slot, uint32(newSize))
	p.setFreeSpacePointer(newOffset)

	newRow.SetRowId(record.RowId{PageId: p.PageId(), SlotNum: slot})
	return UpdateInPlace, nil
}

func (p *TablePage) readTupleInto(row *record.Row, slot uint32, schema *types.Schema) error {
	offset := p.slotOffset(slot)
	size := clearDeleted(p.slotSize(slot))
	_, err := row.DeserializeFrom(p.buf[offset:offset+size], schema)
	return err
}

// GetTuple fills row from the slot named by rid.SlotNum. Returns false if
// the slot is out of range or tombstoned.
func (p *TablePage) GetTuple(row *record.Row, slot uint32, schema *types.Schema) (bool, error) {
	if slot >= p.TupleCount() || isDeleted(p.slotSize(slot)) {
		return false, nil
	}
	if err := p.readTupleInto(row, slot, schema); err != nil {
		return false, err
	}
	row.SetRowId(record.RowId{PageId: p.PageId(), SlotNum: slot})
	return true, nil
}

// GetFirstTupleRid returns the first live slot's RowId.
func (p *TablePage) GetFirstTupleRid() (record.RowId, bool) {
	for i := uint32(0); i < p.TupleCount(); i++ {
		if !isDeleted(p.slotSize(i)) {
			return record.RowId{PageId: p.PageId(), SlotNum: i}, true
		}
	}
	return record.InvalidRowId, false
}

// GetNextTupleRid returns the next live slot after cur on this page, if
// any.
func (p *TablePage) GetNextTupleRid(cur record.RowId) (record.RowId, bool) {
	for i := cur.SlotNum + 1; i < p.TupleCount(); i++ {
		if !isDeleted(p.slotSize(i)) {
			return record.RowId{PageId: p.PageId(), SlotNum: i}, true
		}
	}
	return record.InvalidRowId, false
}
