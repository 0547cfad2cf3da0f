// Package buffer caches disk pages in a fixed set of frames, enforcing
// pin/unpin discipline and LRU eviction of unpinned frames. Grounded on the
// jobala-petro's buffer/bufferpool_manager.go, generalized from the
// mode/callback-based GetPage API to named Fetch/New/Unpin/Delete/Flush
// operations and simplified for a single-threaded model (no mutex/condvar —
// see DESIGN.md).
package buffer

import (
	"fmt"

	"github.com/jobala/petro/storage/disk"
	"github.com/jobala/petro/util"
)

type PoolManager struct {
	frames     []*Frame
	pageTable  map[disk.PageId]int // page id -> frame index
	freeList   []int
	replacer   *lruReplacer
	scheduler  *disk.Scheduler
	diskMgr    *disk.Manager
}

// NewPoolManager constructs a pool of poolSize frames backed by scheduler
// for page I/O.
func NewPoolManager(poolSize int, diskMgr *disk.Manager, scheduler *disk.Scheduler) *PoolManager {
	frames := make([]*Frame, poolSize)
	freeList := make([]int, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = newFrame(i)
		freeList[i] = i
	}

	return &PoolManager{
		frames:    frames,
		pageTable: make(map[disk.PageId]int),
		freeList:  freeList,
		replacer:  newLRUReplacer(),
		scheduler: scheduler,
		diskMgr:   diskMgr,
	}
}

// victim obtains a frame index to (re)use: prefer the free list, else ask
// the replacer for an LRU victim, flushing it first if dirty.
func (bp *PoolManager) victim() (int, bool) {
	if n := len(bp.freeList); n > 0 {
		id := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return id, true
	}

	frameId, ok := bp.replacer.Victim()
	if !ok {
		return 0, false
	}

	frame := bp.frames[frameId]
	if frame.dirty {
		if err := bp.flushFrame(frame); err != nil {
			return 0, false
		}
	}
	delete(bp.pageTable, frame.pageId)
	return frameId, true
}

func (bp *PoolManager) flushFrame(f *Frame) error {
	respCh := bp.scheduler.Schedule(disk.NewWriteRequest(f.pageId, f.Data))
	resp := <-respCh
	if !resp.Success {
		return fmt.Errorf("%w: flushing page %d: %v", util.ErrFailed, f.pageId, resp.Err)
	}
	f.dirty = false
	return nil
}

// FetchPage loads pageId into a frame (from cache or disk) and pins it for
// reading. Drop()ping the returned guard unpins without marking the page
// dirty; callers that mean to mutate the page should call FetchPageForWrite
// instead rather than fetching read-only and separately recording a dirty
// unpin.
func (bp *PoolManager) FetchPage(pageId disk.PageId) (*ReadPageGuard, error) {
	frame, err := bp.fetch(pageId)
	if err != nil {
		return nil, err
	}
	return newReadGuard(frame, bp), nil
}

// FetchPageForWrite loads pageId into a frame (from cache or disk) and pins
// it for writing. Drop()ping the returned guard unpins and marks the page
// dirty, so the caller does not also need a separate UnpinPage call.
func (bp *PoolManager) FetchPageForWrite(pageId disk.PageId) (*WritePageGuard, error) {
	frame, err := bp.fetch(pageId)
	if err != nil {
		return nil, err
	}
	return newWriteGuard(frame, bp), nil
}

func (bp *PoolManager) fetch(pageId disk.PageId) (*Frame, error) {
	if idx, ok := bp.pageTable[pageId]; ok {
		frame := bp.frames[idx]
		frame.pin()
		bp.replacer.Pin(idx)
		return frame, nil
	}

	idx, ok := bp.victim()
	if !ok {
		return nil, fmt.Errorf("%w: FetchPage(%d)", util.ErrBufferPoolExhausted, pageId)
	}

	frame := bp.frames[idx]
	frame.reset()

	respCh := bp.scheduler.Schedule(disk.NewReadRequest(pageId))
	resp := <-respCh
	if !resp.Success {
		bp.freeList = append(bp.freeList, idx)
		return nil, fmt.Errorf("%w: reading page %d: %v", util.ErrFailed, pageId, resp.Err)
	}
	copy(frame.Data, resp.Data)

	frame.pageId = pageId
	frame.pin()
	bp.pageTable[pageId] = idx
	bp.replacer.Pin(idx)

	return frame, nil
}

// NewPage allocates a fresh logical page on disk, pins a zeroed frame for
// it, and returns both.
func (bp *PoolManager) NewPage() (disk.PageId, *WritePageGuard, error) {
	idx, ok := bp.victim()
	if !ok {
		return disk.InvalidPageId, nil, fmt.Errorf("%w: NewPage", util.ErrBufferPoolExhausted)
	}

	pageId, err := bp.diskMgr.AllocatePage()
	if err != nil {
		bp.freeList = append(bp.freeList, idx)
		return disk.InvalidPageId, nil, err
	}

	frame := bp.frames[idx]
	frame.reset()
	frame.pageId = pageId
	frame.pin()
	frame.dirty = false
	bp.pageTable[pageId] = idx
	bp.replacer.Pin(idx)

	return pageId, newWriteGuard(frame, bp), nil
}

// UnpinPage decrements the frame's pin count; at zero it is returned to the
// replacer. isDirty is OR'd into the existing dirty flag, never clears it.
func (bp *PoolManager) UnpinPage(pageId disk.PageId, isDirty bool) error {
	idx, ok := bp.pageTable[pageId]
	if !ok {
		return fmt.Errorf("%w: UnpinPage(%d): not resident", util.ErrFailed, pageId)
	}

	frame := bp.frames[idx]
	frame.markDirty(isDirty)
	frame.unpin()
	if frame.pinCount == 0 {
		bp.replacer.Unpin(idx)
	}
	return nil
}

// DeletePage refuses if the page is pinned; otherwise it frees the frame
// and deallocates the disk page. A page that is not resident is only
// deallocated. Returns true on success — the original C++ source returns
// false on success, which this implementation treats as a bug and corrects.
func (bp *PoolManager) DeletePage(pageId disk.PageId) (bool, error) {
	idx, ok := bp.pageTable[pageId]
	if !ok {
		if err := bp.diskMgr.DeallocatePage(pageId); err != nil {
			return false, err
		}
		return true, nil
	}

	frame := bp.frames[idx]
	if frame.pinCount > 0 {
		return false, fmt.Errorf("%w: DeletePage(%d): page is pinned", util.ErrFailed, pageId)
	}

	bp.replacer.Pin(idx)
	delete(bp.pageTable, pageId)
	frame.reset()
	bp.freeList = append(bp.freeList, idx)

	if err := bp.diskMgr.DeallocatePage(pageId); err != nil {
		return false, err
	}
	return true, nil
}

// FlushPage writes the resident page to disk and clears its dirty flag.
func (bp *PoolManager) FlushPage(pageId disk.PageId) error {
	idx, ok := bp.pageTable[pageId]
	if !ok {
		return fmt.Errorf("%w: FlushPage(%d): not resident", util.ErrFailed, pageId)
	}
	return bp.flushFrame(bp.frames[idx])
}

// FlushAll writes every resident dirty page to disk (called on shutdown).
func (bp *PoolManager) FlushAll() error {
	for pageId := range bp.pageTable {
		if err := bp.FlushPage(pageId); err != nil {
			return err
		}
	}
	return nil
}

// PoolSize returns the fixed number of frames.
func (bp *PoolManager) PoolSize() int { return len(bp.frames) }
