package buffer

import (
	"github.com/jobala/petro/storage/disk"
)

// PageGuard is a scoped handle pairing a pinned frame with the pool that
// owns it: it acquires a frame, exposes typed accessors, and unpins on
// drop. Grounded on jobala-petro's buffer/page_guard.go.
type PageGuard struct {
	frame *Frame
	pool  *PoolManager
}

type ReadPageGuard struct{ PageGuard }
type WritePageGuard struct{ PageGuard }

func newReadGuard(f *Frame, bp *PoolManager) *ReadPageGuard {
	return &ReadPageGuard{PageGuard{frame: f, pool: bp}}
}

func newWriteGuard(f *Frame, bp *PoolManager) *WritePageGuard {
	return &WritePageGuard{PageGuard{frame: f, pool: bp}}
}

func (g *ReadPageGuard) PageId() disk.PageId { return g.frame.pageId }
func (g *WritePageGuard) PageId() disk.PageId { return g.frame.pageId }

// Data exposes the raw page bytes for read-only decoding.
func (g *ReadPageGuard) Data() []byte { return g.frame.Data }

// Data exposes the raw page bytes for in-place mutation.
func (g *WritePageGuard) Data() []byte { return g.frame.Data }

// Drop unpins the underlying frame. A write guard marks it dirty; a read
// guard leaves its dirty flag as it was.
func (g *ReadPageGuard) Drop() error {
	if g == nil || g.frame == nil {
		return nil
	}
	err := g.pool.UnpinPage(g.frame.pageId, false)
	g.frame = nil
	return err
}

func (g *WritePageGuard) Drop() error {
	if g == nil || g.frame == nil {
		return nil
	}
	err := g.pool.UnpinPage(g.frame.pageId, true)
	g.frame = nil
	return err
}
