package storage

import (
	"sync"
	"time"
)

// DiskRequest is one read or write submitted to the scheduler. Done is
// a one-shot completion: the worker sends exactly one value (nil or the
// disk error) after the request has reached the disk manager.
type DiskRequest struct {
	IsWrite bool
	Data    []byte
	PageID  PageID
	Done    chan error
}

// schedulerQueueDepth bounds in-flight requests before Schedule blocks.
// Deep enough that a single-threaded pool never fills it.
const schedulerQueueDepth = 1024

// DiskScheduler owns a single background worker that drains a request
// queue and dispatches to the disk manager. Because there is one queue
// and one consumer, requests for the same page are processed in
// submission order; a caller serializes with disk state by waiting on
// its completion channel.
type DiskScheduler struct {
	diskManager DiskManager
	requests    chan *DiskRequest
	metrics     *Metrics
	wg          sync.WaitGroup
}

// NewDiskScheduler creates a scheduler and spawns its worker.
// metrics may be nil.
func NewDiskScheduler(dm DiskManager, metrics *Metrics) *DiskScheduler {
	s := &DiskScheduler{
		diskManager: dm,
		requests:    make(chan *DiskRequest, schedulerQueueDepth),
		metrics:     metrics,
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// NewCompletion returns a one-shot channel suitable for DiskRequest.Done
func NewCompletion() chan error {
	return make(chan error, 1)
}

// Schedule enqueues a request without waiting for the I/O.
// Scheduling after Shutdown panics.
func (s *DiskScheduler) Schedule(req *DiskRequest) {
	s.requests <- req
}

// worker drains the queue until it is closed
func (s *DiskScheduler) worker() {
	defer s.wg.Done()

	for req := range s.requests {
		start := time.Now()

		var err error
		if req.IsWrite {
			err = s.diskManager.WritePage(req.PageID, req.Data)
			if s.metrics != nil {
				s.metrics.RecordDiskWrite()
			}
		} else {
			err = s.diskManager.ReadPage(req.PageID, req.Data)
			if s.metrics != nil {
				s.metrics.RecordDiskRead()
			}
		}

		if s.metrics != nil {
			s.metrics.DiskLatency.Record(float64(time.Since(start).Microseconds()))
		}

		if req.Done != nil {
			req.Done <- err
		}
	}
}

// Shutdown drains the queue and joins the worker. No requests may be
// scheduled afterwards.
func (s *DiskScheduler) Shutdown() {
	close(s.requests)
	s.wg.Wait()
}
