package device

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
)

// Manager owns a fixed set of Devices and schedules alignment work across
// them: round-robin between devices, priority-ordered within a device's
// lane queue — the Go realization of spec §5's "the driver assigns
// descending priorities from the highest available down to the lowest,
// wrapping back to the highest" (grounded on dba.hpp's
// cudaDeviceGetStreamPriorityRange/descendingPriority loop).
type Manager struct {
	devices []*Device
	queues  []*laneQueue
	next    uint64 // round-robin counter, atomic
}

// NewManager creates a Manager with deviceCount devices, each with the
// given per-device memory budget and lane count.
func NewManager(deviceCount int, memoryPerDeviceBytes uint64, lanesPerDevice int) *Manager {
	if deviceCount < 1 {
		deviceCount = 1
	}
	m := &Manager{}
	for i := 0; i < deviceCount; i++ {
		dev := NewDevice(i, memoryPerDeviceBytes, lanesPerDevice)
		m.devices = append(m.devices, dev)
		m.queues = append(m.queues, newLaneQueue(dev))
	}
	return m
}

// DeviceCount returns the number of devices the manager owns.
func (m *Manager) DeviceCount() int { return len(m.devices) }

// Device returns the device at index i.
func (m *Manager) Device(i int) *Device { return m.devices[i] }

// NextDevice picks the next device in round-robin order. Used by drivers
// (§4.E, §4.G) that need to pre-assign an anchor/member to a device before
// submitting its work.
func (m *Manager) NextDevice() *Device {
	n := atomic.AddUint64(&m.next, 1) - 1
	return m.devices[n%uint64(len(m.devices))]
}

// Future is a handle to asynchronously dispatched work, mirroring the
// "kernel launches are asynchronous... the host blocks only at explicit
// sync points" model of spec §5.
type Future struct {
	done chan error
}

// Wait blocks until the dispatched work completes and returns its error.
func (f *Future) Wait() error {
	return <-f.done
}

// WaitContext blocks until the dispatched work completes or ctx is done,
// whichever comes first. A ctx cancellation does not stop the underlying
// worker goroutine (it has no cooperative cancellation point mid-fn); it
// only unblocks the caller early, mirroring a host-side cudaEventSynchronize
// timeout against an already-launched kernel.
func (f *Future) WaitContext(ctx context.Context) error {
	select {
	case err := <-f.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues fn to run on dev's lane queue at the given priority
// (higher runs first) and returns immediately with a Future. fn is the
// full serialized sequence of swaths for one alignment — spec §5's
// "swaths of the same alignment are serialised" falls out for free because
// fn runs start-to-finish on a single worker goroutine.
func (m *Manager) Submit(dev *Device, priority int, fn func(*Device) error) *Future {
	f := &Future{done: make(chan error, 1)}
	q := m.queueFor(dev)
	q.push(&job{priority: priority, fn: fn, done: f.done})
	return f
}

// SubmitRoundRobin is Submit against NextDevice(), for callers that don't
// care which device handles the work as long as it's load-balanced.
func (m *Manager) SubmitRoundRobin(priority int, fn func(*Device) error) *Future {
	return m.Submit(m.NextDevice(), priority, fn)
}

// WaitAll blocks until every given future has completed, returning the
// first non-nil error encountered (if any). This is the explicit barrier
// point of spec §5 (end of an all-pairs anchor batch, end of a DBA round).
func WaitAll(futures []*Future) error {
	var firstErr error
	for _, f := range futures {
		if err := f.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WaitAllContext is WaitAll with early-exit support: it stops waiting (and
// returns ctx.Err()) as soon as ctx is done, without waiting on the
// remaining futures. Callers that need the dropped futures' eventual errors
// should not reuse them afterward.
func WaitAllContext(ctx context.Context, futures []*Future) error {
	for _, f := range futures {
		if err := f.WaitContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close stops every device's lane workers. Call once, after all work has
// been submitted and waited on.
func (m *Manager) Close() {
	for _, q := range m.queues {
		q.close()
	}
}

func (m *Manager) queueFor(dev *Device) *laneQueue {
	for _, q := range m.queues {
		if q.dev == dev {
			return q
		}
	}
	// Device not owned by this manager: run it on an ad hoc queue with
	// dev.Lanes() workers anyway rather than panic, since tests sometimes build Devices
	// directly.
	return newLaneQueue(dev)
}

// --- internal: a per-device priority queue with N worker lanes ---

type job struct {
	priority int
	fn       func(*Device) error
	done     chan error
}

type jobHeap []*job

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return h[i].priority > h[j].priority } // max-heap
func (h jobHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x interface{}) { *h = append(*h, x.(*job)) }
func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type laneQueue struct {
	dev     *Device
	mu      sync.Mutex
	cond    *sync.Cond
	pending jobHeap
	closed  bool
	wg      sync.WaitGroup
}

func newLaneQueue(dev *Device) *laneQueue {
	q := &laneQueue{dev: dev}
	q.cond = sync.NewCond(&q.mu)
	for i := 0; i < dev.Lanes(); i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *laneQueue) push(j *job) {
	q.mu.Lock()
	heap.Push(&q.pending, j)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *laneQueue) worker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		j := heap.Pop(&q.pending).(*job)
		q.mu.Unlock()

		j.done <- j.fn(q.dev)
	}
}

func (q *laneQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	q.wg.Wait()
}
