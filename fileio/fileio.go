// Package fileio provides non-blocking disk reads into caller-provided
// buffers, serviced by a small worker pool. Completion is observable
// three ways: a callback stored with the request, IsComplete polling,
// and blocking WaitForRequest/WaitForAll.
package fileio

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/rhi/hal"
)

// ReadRequest describes one asynchronous read.
type ReadRequest struct {
	// FilePath is the file to read.
	FilePath string

	// Offset is the byte offset to read from.
	Offset int64

	// Size is the number of bytes to read. 0 means len(Dest).
	Size int64

	// Dest is the pre-allocated destination buffer; it must hold Size
	// bytes.
	Dest []byte

	// OnComplete, if non-nil, runs on the worker when the read finishes.
	// success is false on any disk error; bytesRead is 0 in that case.
	OnComplete func(success bool, bytesRead int64)
}

// RequestState tracks a request through its lifetime.
type RequestState uint8

const (
	// StateQueued means the request is waiting for a worker.
	StateQueued RequestState = iota
	// StateRunning means a worker is servicing the request.
	StateRunning
	// StateComplete means the request finished (possibly failed).
	StateComplete
	// StateCancelled means the request was cancelled before it started
	// or while its read was in progress; its callback is not invoked.
	StateCancelled
)

// request is the internal tracked record.
type request struct {
	id        uint64
	req       ReadRequest
	state     atomic.Uint32
	cancelled atomic.Bool
	success   bool
	bytesRead int64
	done      chan struct{}
}

// Stats is a snapshot of loader counters.
type Stats struct {
	TotalRequests     uint64
	CompletedRequests uint64
	PendingRequests   uint64
	FailedRequests    uint64
	TotalBytesRead    uint64
	// AverageBandwidthMBps is bytes read over wall time since Init.
	AverageBandwidthMBps float64
}

// Loader is an asynchronous file reader backed by a worker pool.
type Loader struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*request
	active   map[uint64]*request
	shutdown bool

	workers sync.WaitGroup
	nextID  atomic.Uint64

	startTime      time.Time
	totalRequests  atomic.Uint64
	completedCount atomic.Uint64
	failedCount    atomic.Uint64
	bytesRead      atomic.Uint64
}

// Init creates a loader and spawns numWorkers worker threads.
// numWorkers below 1 is clamped to 1.
func Init(numWorkers int) *Loader {
	if numWorkers < 1 {
		numWorkers = 1
	}
	l := &Loader{
		active:    make(map[uint64]*request),
		startTime: time.Now(),
	}
	l.cond = sync.NewCond(&l.mu)

	l.workers.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go l.workerLoop()
	}
	hal.Logger().Info("fileio: initialized", "workers", numWorkers)
	return l
}

// Shutdown stops the workers after the queue drains and waits for them
// to exit.
func (l *Loader) Shutdown() {
	l.mu.Lock()
	l.shutdown = true
	l.cond.Broadcast()
	l.mu.Unlock()
	l.workers.Wait()
}

// ReadAsync submits a read request and returns its id.
func (l *Loader) ReadAsync(req ReadRequest) uint64 {
	if req.Size == 0 {
		req.Size = int64(len(req.Dest))
	}
	r := &request{
		id:   l.nextID.Add(1),
		req:  req,
		done: make(chan struct{}),
	}
	l.totalRequests.Add(1)

	l.mu.Lock()
	l.queue = append(l.queue, r)
	l.active[r.id] = r
	l.cond.Signal()
	l.mu.Unlock()
	return r.id
}

// Cancel flags a request for cancellation. Workers check the flag before
// starting and after the read; a request already complete is unaffected.
// Returns false for unknown ids.
func (l *Loader) Cancel(id uint64) bool {
	l.mu.Lock()
	r, ok := l.active[id]
	l.mu.Unlock()
	if !ok {
		return false
	}
	r.cancelled.Store(true)
	return true
}

// WaitForRequest blocks until the request completes. Returns the success
// flag, or false for unknown ids.
func (l *Loader) WaitForRequest(id uint64) bool {
	l.mu.Lock()
	r, ok := l.active[id]
	l.mu.Unlock()
	if !ok {
		return false
	}
	<-r.done
	return r.success
}

// WaitForAll blocks until every submitted request has completed.
func (l *Loader) WaitForAll() {
	l.mu.Lock()
	pending := make([]*request, 0, len(l.active))
	for _, r := range l.active {
		pending = append(pending, r)
	}
	l.mu.Unlock()
	for _, r := range pending {
		<-r.done
	}
}

// IsComplete reports whether the request has finished. Unknown ids
// report true.
func (l *Loader) IsComplete(id uint64) bool {
	l.mu.Lock()
	r, ok := l.active[id]
	l.mu.Unlock()
	if !ok {
		return true
	}
	s := RequestState(r.state.Load())
	return s == StateComplete || s == StateCancelled
}

// GetStats snapshots the loader counters.
func (l *Loader) GetStats() Stats {
	var s Stats
	s.TotalRequests = l.totalRequests.Load()
	s.CompletedRequests = l.completedCount.Load()
	s.FailedRequests = l.failedCount.Load()
	s.TotalBytesRead = l.bytesRead.Load()
	s.PendingRequests = s.TotalRequests - s.CompletedRequests

	if elapsed := time.Since(l.startTime).Seconds(); elapsed > 0 {
		s.AverageBandwidthMBps = float64(s.TotalBytesRead) / (1 << 20) / elapsed
	}
	return s
}

// workerLoop consumes the request queue until shutdown.
func (l *Loader) workerLoop() {
	defer l.workers.Done()
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.shutdown {
			l.cond.Wait()
		}
		if len(l.queue) == 0 && l.shutdown {
			l.mu.Unlock()
			return
		}
		r := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.process(r)
	}
}

// process services one request: open, seek, read, complete.
func (l *Loader) process(r *request) {
	if r.cancelled.Load() {
		r.state.Store(uint32(StateCancelled))
		l.finish(r, false, 0, nil)
		return
	}
	r.state.Store(uint32(StateRunning))

	success := true
	var bytesRead int64
	err := func() error {
		f, err := os.Open(r.req.FilePath)
		if err != nil {
			return fmt.Errorf("%w: open %s: %v", hal.ErrFileIO, r.req.FilePath, err)
		}
		defer f.Close()

		dest := r.req.Dest
		if int64(len(dest)) > r.req.Size {
			dest = dest[:r.req.Size]
		}
		n, err := f.ReadAt(dest, r.req.Offset)
		bytesRead = int64(n)
		if err != nil && err != io.EOF {
			return fmt.Errorf("%w: read %s: %v", hal.ErrFileIO, r.req.FilePath, err)
		}
		if bytesRead < r.req.Size {
			return fmt.Errorf("%w: short read %s: %d of %d bytes",
				hal.ErrFileIO, r.req.FilePath, bytesRead, r.req.Size)
		}
		return nil
	}()
	if err != nil {
		hal.Logger().Warn("fileio: request failed", "id", r.id, "err", err)
		success = false
		bytesRead = 0
		l.failedCount.Add(1)
	}

	if r.cancelled.Load() {
		r.state.Store(uint32(StateCancelled))
		l.finish(r, false, 0, nil)
		return
	}

	r.state.Store(uint32(StateComplete))
	l.bytesRead.Add(uint64(bytesRead))
	l.finish(r, success, bytesRead, r.req.OnComplete)
}

// finish records the outcome, runs the callback, and releases waiters.
func (l *Loader) finish(r *request, success bool, bytesRead int64, callback func(bool, int64)) {
	r.success = success
	r.bytesRead = bytesRead
	l.completedCount.Add(1)
	if callback != nil {
		callback(success, bytesRead)
	}
	close(r.done)
}
