package timeline

import (
	"context"
	"sync"
)

// WaitFunc is a pending asynchronous continuation. The continuation must
// arrange for resolve to be called exactly once; a continuation that never
// resolves stalls the render loop indefinitely (detecting that is the
// surrounding application's concern, not the scheduler's).
type WaitFunc func(params Params, resolve func())

// WaitEntry pairs a continuation with the params it was registered with.
type WaitEntry struct {
	Continuation WaitFunc
	Params       Params
}

// WaitQueue is the FIFO list of pending continuations the frame loop drains
// before advancing. Registration is safe from any goroutine; draining
// happens only on the render goroutine.
type WaitQueue struct {
	mu      sync.Mutex
	entries []WaitEntry
}

// NewWaitQueue creates an empty wait queue.
func NewWaitQueue() *WaitQueue {
	return &WaitQueue{entries: make([]WaitEntry, 0, 8)}
}

// Add appends an entry to the back of the queue.
func (q *WaitQueue) Add(e WaitEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
}

// Len returns the number of pending entries.
func (q *WaitQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear drops all pending entries. Called when a render starts.
func (q *WaitQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = q.entries[:0]
}

// Drain invokes pending continuations oldest-first and blocks until each
// one resolves before starting the next, preserving FIFO ordering. An entry
// added by a continuation invoked during the drain is appended and processed
// within the same pass. Returns early only on context cancellation.
func (q *WaitQueue) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if len(q.entries) == 0 {
			q.mu.Unlock()
			return nil
		}
		e := q.entries[0]
		// Nil out the slot so the entry's captures can be collected.
		q.entries[0] = WaitEntry{}
		if len(q.entries) == 1 {
			q.entries = q.entries[:0]
		} else {
			q.entries = q.entries[1:]
		}
		q.mu.Unlock()

		done := make(chan struct{})
		var once sync.Once
		resolve := func() {
			once.Do(func() { close(done) })
		}

		e.Continuation(e.Params, resolve)

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
