package disk

import (
	"fmt"
	"os"

	"github.com/jobala/petro/util"
)

// Manager owns the database file handle exclusively and maps logical
// data-page ids to physical file offsets through a chain of bitmap-page
// extents. Grounded on jobala-petro's storage/disk/disk_manager.go
// (read/write/allocate shape), generalized from a growable-flat-file
// allocator to a bitmap-extent directory.
type Manager struct {
	file       *os.File
	numExtents uint32
}

// NewManager opens (creating if necessary) the database file at path and
// ensures the two reserved pages (catalog meta, index roots) exist.
func NewManager(path string) (*Manager, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening db file %q: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	dm := &Manager{file: file}

	fresh := info.Size() < 2*PageSize
	if fresh {
		if err := dm.writeAt(0, make([]byte, 2*PageSize)); err != nil {
			file.Close()
			return nil, err
		}
	}

	dm.numExtents = dm.countExtents(info.Size())

	// Logical data-page ids 0 and 1 would otherwise numerically collide
	// with CatalogMetaPageId/IndexRootsPageId, which live in a separate
	// reserved address space (see Scheduler.handle). Reserve those two
	// bits in extent 0 up front so AllocatePage never hands them out.
	if fresh || dm.numExtents == 0 {
		bp := &BitmapPage{}
		first, _ := bp.AllocatePage()
		second, _ := bp.AllocatePage()
		if first != 0 || second != 1 {
			file.Close()
			return nil, fmt.Errorf("disk: unexpected bitmap allocation order")
		}
		if err := dm.writeBitmap(0, bp); err != nil {
			file.Close()
			return nil, err
		}
		dm.numExtents = 1
	}

	return dm, nil
}

func (dm *Manager) countExtents(fileSize int64) uint32 {
	remaining := fileSize - 2*PageSize
	if remaining <= 0 {
		return 0
	}
	extentBytes := int64(BitmapCapacity+1) * PageSize
	n := remaining / extentBytes
	if remaining%extentBytes != 0 {
		n++
	}
	return uint32(n)
}

// bitmapPhysicalPage returns the physical page holding extent e's bitmap.
// See DESIGN.md for the offset formula and why it differs from a naive
// extent*capacity stride.
func bitmapPhysicalPage(extent uint32) int64 {
	return 2 + int64(extent)*(BitmapCapacity+1)
}

// physicalPage maps a logical data-page id L to its physical page number.
func physicalPage(logical PageId) int64 {
	l := int64(logical)
	extent := l / BitmapCapacity
	local := l % BitmapCapacity
	return bitmapPhysicalPage(uint32(extent)) + 1 + local
}

func (dm *Manager) readAt(physicalPage int64, buf []byte) error {
	_, err := dm.file.ReadAt(buf, physicalPage*PageSize)
	return err
}

func (dm *Manager) writeAt(physicalPage int64, buf []byte) error {
	_, err := dm.file.WriteAt(buf, physicalPage*PageSize)
	return err
}

func (dm *Manager) readBitmap(extent uint32) (*BitmapPage, error) {
	buf := make([]byte, PageSize)
	if err := dm.readAt(bitmapPhysicalPage(extent), buf); err != nil {
		return nil, fmt.Errorf("reading bitmap for extent %d: %w", extent, err)
	}
	return DecodeBitmapPage(buf), nil
}

func (dm *Manager) writeBitmap(extent uint32, bp *BitmapPage) error {
	buf := make([]byte, PageSize)
	bp.Encode(buf)
	if err := dm.writeAt(bitmapPhysicalPage(extent), buf); err != nil {
		return fmt.Errorf("writing bitmap for extent %d: %w", extent, err)
	}
	return nil
}

// ReadPage copies exactly PageSize bytes from the page's physical offset
// into buf.
func (dm *Manager) ReadPage(id PageId, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("ReadPage: buffer must be %d bytes, got %d", PageSize, len(buf))
	}
	if err := dm.readAt(physicalPage(id), buf); err != nil {
		return fmt.Errorf("reading page %d: %w", id, err)
	}
	return nil
}

// WritePage copies exactly PageSize bytes from buf to the page's physical
// offset.
func (dm *Manager) WritePage(id PageId, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("WritePage: buffer must be %d bytes, got %d", PageSize, len(buf))
	}
	if err := dm.writeAt(physicalPage(id), buf); err != nil {
		return fmt.Errorf("writing page %d: %w", id, err)
	}
	return nil
}

// ReadMetaPage reads one of the two fixed reserved pages (catalog meta,
// index roots) which live outside the extent directory.
func (dm *Manager) ReadMetaPage(id PageId, buf []byte) error {
	if id != CatalogMetaPageId && id != IndexRootsPageId {
		return fmt.Errorf("page %d is not a reserved meta page", id)
	}
	return dm.readAt(int64(id), buf)
}

// WriteMetaPage writes one of the two fixed reserved pages.
func (dm *Manager) WriteMetaPage(id PageId, buf []byte) error {
	if id != CatalogMetaPageId && id != IndexRootsPageId {
		return fmt.Errorf("page %d is not a reserved meta page", id)
	}
	return dm.writeAt(int64(id), buf)
}

// AllocatePage returns the lowest free data page's logical id, scanning
// extents in order and appending a new extent if every existing one is
// full.
func (dm *Manager) AllocatePage() (PageId, error) {
	var extent uint32
	for extent = 0; extent < dm.numExtents; extent++ {
		bp, err := dm.readBitmap(extent)
		if err != nil {
			return InvalidPageId, err
		}

		if offset, ok := bp.AllocatePage(); ok {
			if err := dm.writeBitmap(extent, bp); err != nil {
				return InvalidPageId, err
			}
			return PageId(int64(extent)*BitmapCapacity + int64(offset)), nil
		}
	}

	// every extent full (or none exist yet): append a new one.
	bp := &BitmapPage{}
	offset, _ := bp.AllocatePage()
	if err := dm.writeBitmap(dm.numExtents, bp); err != nil {
		return InvalidPageId, fmt.Errorf("%w: %v", util.ErrDiskFull, err)
	}
	newLogical := PageId(int64(dm.numExtents) * BitmapCapacity)
	dm.numExtents++
	return newLogical + PageId(offset), nil
}

// DeallocatePage marks a logical data page free again.
func (dm *Manager) DeallocatePage(id PageId) error {
	extent, offset := dm.extentAndOffset(id)
	bp, err := dm.readBitmap(extent)
	if err != nil {
		return err
	}
	if !bp.DeAllocatePage(offset) {
		return fmt.Errorf("%w: page %d was already free", util.ErrFailed, id)
	}
	return dm.writeBitmap(extent, bp)
}

// IsPageFree reports the allocation status of a logical data page.
func (dm *Manager) IsPageFree(id PageId) (bool, error) {
	extent, offset := dm.extentAndOffset(id)
	bp, err := dm.readBitmap(extent)
	if err != nil {
		return false, err
	}
	return bp.IsPageFree(offset), nil
}

func (dm *Manager) extentAndOffset(id PageId) (uint32, uint32) {
	l := int64(id)
	return uint32(l / BitmapCapacity), uint32(l % BitmapCapacity)
}

// Close flushes and closes the underlying file.
func (dm *Manager) Close() error {
	if err := dm.file.Sync(); err != nil {
		return err
	}
	return dm.file.Close()
}
