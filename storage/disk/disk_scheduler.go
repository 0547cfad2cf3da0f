package disk

import "sync"

// Scheduler serializes disk I/O requests per page through a worker
// goroutine, exactly as jobala-petro's storage/disk/disk_scheduler.go does.
// The buffer pool always waits on the response channel before continuing,
// so this goroutine fan-in never introduces visible concurrency into the
// single-threaded model — it only decouples "enqueue" from "run" the way
// jobala-petro's version did.
type Scheduler struct {
	manager *Manager

	reqCh chan Request

	mu        sync.Mutex
	pageQueue map[PageId]chan Request
}

type Request struct {
	PageId PageId
	Data   []byte
	Write  bool
	RespCh chan Response
}

type Response struct {
	Success bool
	Data    []byte
	Err     error
}

func NewScheduler(manager *Manager) *Scheduler {
	s := &Scheduler{
		manager:   manager,
		reqCh:     make(chan Request, 128),
		pageQueue: make(map[PageId]chan Request),
	}
	go s.dispatch()
	return s
}

func NewReadRequest(pageId PageId) Request {
	return Request{PageId: pageId, RespCh: make(chan Response, 1)}
}

func NewWriteRequest(pageId PageId, data []byte) Request {
	return Request{PageId: pageId, Data: data, Write: true, RespCh: make(chan Response, 1)}
}

// Schedule enqueues req and returns its (already-allocated) response
// channel; callers block on it to preserve the suspension-point model.
func (s *Scheduler) Schedule(req Request) <-chan Response {
	s.reqCh <- req
	return req.RespCh
}

func (s *Scheduler) dispatch() {
	for req := range s.reqCh {
		s.mu.Lock()
		queue, ok := s.pageQueue[req.PageId]
		if !ok {
			queue = make(chan Request, 16)
			s.pageQueue[req.PageId] = queue
		}
		s.mu.Unlock()

		queue <- req

		if !ok {
			go s.worker(req.PageId, queue)
		}
	}
}

func (s *Scheduler) worker(pageId PageId, queue chan Request) {
	for {
		select {
		case req := <-queue:
			s.handle(req)
		default:
			s.mu.Lock()
			delete(s.pageQueue, pageId)
			s.mu.Unlock()
			return
		}
	}
}

// isReservedPage reports whether id names one of the two fixed meta pages,
// which live outside the extent-mapped address space and must be routed
// through ReadMetaPage/WriteMetaPage rather than the bitmap-extent lookup.
func isReservedPage(id PageId) bool {
	return id == CatalogMetaPageId || id == IndexRootsPageId
}

func (s *Scheduler) handle(req Request) {
	if req.Write {
		var err error
		if isReservedPage(req.PageId) {
			err = s.manager.WriteMetaPage(req.PageId, req.Data)
		} else {
			err = s.manager.WritePage(req.PageId, req.Data)
		}
		req.RespCh <- Response{Success: err == nil, Err: err}
		return
	}

	buf := make([]byte, PageSize)
	var err error
	if isReservedPage(req.PageId) {
		err = s.manager.ReadMetaPage(req.PageId, buf)
	} else {
		err = s.manager.ReadPage(req.PageId, buf)
	}
	req.RespCh <- Response{Success: err == nil, Data: buf, Err: err}
}
