package buffer

import "github.com/jobala/petro/storage/disk"

// Frame is a fixed-size byte buffer with identity plus dirty/pin flags.
// Frames are allocated once at pool construction and reused; only their
// PageId identity changes across evictions. Grounded on jobala-petro's
// buffer/frame.go, with the per-frame RWMutex dropped — the core is
// single-threaded, so there is no concurrent reader/writer to arbitrate
// between (see DESIGN.md).
type Frame struct {
	id       int
	Data     []byte
	pageId   disk.PageId
	pinCount int
	dirty    bool
}

func newFrame(id int) *Frame {
	return &Frame{
		id:     id,
		Data:   make([]byte, disk.PageSize),
		pageId: disk.InvalidPageId,
	}
}

func (f *Frame) reset() {
	f.pageId = disk.InvalidPageId
	f.pinCount = 0
	f.dirty = false
	for i := range f.Data {
		f.Data[i] = 0
	}
}

func (f *Frame) pin()  { f.pinCount++ }
func (f *Frame) unpin() {
	if f.pinCount > 0 {
		f.pinCount--
	}
}

// markDirty ORs the dirty flag — a later call with isDirty=false must never
// clear a dirty bit set by an earlier write.
func (f *Frame) markDirty(isDirty bool) {
	f.dirty = f.dirty || isDirty
}

func (f *Frame) PageId() disk.PageId { return f.pageId }
func (f *Frame) PinCount() int       { return f.pinCount }
func (f *Frame) IsDirty() bool       { return f.dirty }
