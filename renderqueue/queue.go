// Package renderqueue transfers deferred work from producer threads to
// the single consumer thread that owns the device and the immediate
// command list. Commands are closures capturing their data by value on
// the producer side; they run on the consumer with a Context giving
// access to the active command list and frame number.
package renderqueue

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/rhi/hal"
)

// Context is passed to every command during execution. It carries the
// rendering state commands may need on the consumer thread.
type Context struct {
	// CommandList is the active command list, possibly nil outside a
	// frame.
	CommandList hal.CommandList

	// FrameNumber is the frame the context was prepared for.
	FrameNumber uint64
}

// Command is a unit of deferred work. Commands cannot return errors;
// they handle their own reporting through logging or captured state.
type Command func(*Context)

// namedCommand pairs a command with its debug name.
type namedCommand struct {
	name string
	fn   Command
}

// Queue is a thread-safe FIFO of render commands.
//
// Enqueue is safe from any thread. ExecuteCommands must only be called
// from the consumer thread. Flush blocks the caller until the queue is
// empty: it waits on the consumer when one is attached, and drains
// inline otherwise.
//
// At every observation point, TotalExecuted() + PendingCount() equals
// TotalEnqueued(): commands moved out for execution stay counted as
// pending until they finish.
type Queue struct {
	mu       sync.Mutex
	drained  *sync.Cond
	commands []namedCommand

	// inFlight counts commands moved out of the queue for execution but
	// not yet run.
	inFlight atomic.Int64

	// consumerAttached is set while a consumer loop is responsible for
	// draining; it decides whether Flush waits or drains inline.
	consumerAttached atomic.Bool
	executing        atomic.Bool

	totalEnqueued atomic.Uint64
	totalExecuted atomic.Uint64
}

// New creates an empty queue.
func New() *Queue {
	q := &Queue{}
	q.drained = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a command for execution on the consumer thread. The
// command and its captures must be safe to move across goroutines:
// capture by value on the producer side.
func (q *Queue) Enqueue(debugName string, fn Command) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.totalEnqueued.Add(1)
	q.commands = append(q.commands, namedCommand{name: debugName, fn: fn})
	q.mu.Unlock()
}

// ExecuteCommands drains the queue in FIFO order. Only the consumer
// thread may call it. The pending commands are moved out under the lock
// and executed without it, so producers keep enqueueing while commands
// run.
func (q *Queue) ExecuteCommands(ctx *Context) int {
	q.mu.Lock()
	batch := q.commands
	q.commands = nil
	q.inFlight.Add(int64(len(batch)))
	q.mu.Unlock()

	if len(batch) == 0 {
		q.signalIfDrained()
		return 0
	}

	q.executing.Store(true)
	for _, cmd := range batch {
		cmd.fn(ctx)
		q.totalExecuted.Add(1)
		q.inFlight.Add(-1)
	}
	q.executing.Store(false)

	q.signalIfDrained()
	return len(batch)
}

// signalIfDrained wakes Flush waiters when nothing is pending.
func (q *Queue) signalIfDrained() {
	q.mu.Lock()
	if len(q.commands) == 0 && q.inFlight.Load() == 0 {
		q.drained.Broadcast()
	}
	q.mu.Unlock()
}

// AttachConsumer marks that a consumer loop is draining the queue.
// While attached, Flush blocks until the consumer catches up instead of
// draining inline.
func (q *Queue) AttachConsumer() {
	q.consumerAttached.Store(true)
}

// DetachConsumer removes the consumer mark and wakes any Flush waiters
// so they can drain inline.
func (q *Queue) DetachConsumer() {
	q.consumerAttached.Store(false)
	q.mu.Lock()
	q.drained.Broadcast()
	q.mu.Unlock()
}

// Flush blocks until the queue is empty. With a consumer attached it
// waits for the consumer to drain; otherwise it executes the pending
// commands inline with an empty context.
func (q *Queue) Flush() {
	if q.consumerAttached.Load() {
		q.mu.Lock()
		for (len(q.commands) > 0 || q.inFlight.Load() > 0) && q.consumerAttached.Load() {
			q.drained.Wait()
		}
		stillAttached := q.consumerAttached.Load()
		q.mu.Unlock()
		if stillAttached {
			return
		}
	}
	ctx := &Context{}
	for {
		q.ExecuteCommands(ctx)
		q.mu.Lock()
		if len(q.commands) == 0 && q.inFlight.Load() == 0 {
			q.mu.Unlock()
			return
		}
		if q.inFlight.Load() > 0 && len(q.commands) == 0 {
			// Another executor owns the in-flight batch; wait it out.
			q.drained.Wait()
		}
		q.mu.Unlock()
	}
}

// HasPending reports whether commands are waiting or in flight.
func (q *Queue) HasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands) > 0 || q.inFlight.Load() > 0
}

// PendingCount returns the number of commands not yet executed.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.commands) + int(q.inFlight.Load())
}

// IsExecuting reports whether ExecuteCommands is currently running.
func (q *Queue) IsExecuting() bool { return q.executing.Load() }

// TotalEnqueued returns the number of commands ever enqueued.
func (q *Queue) TotalEnqueued() uint64 { return q.totalEnqueued.Load() }

// TotalExecuted returns the number of commands ever executed.
func (q *Queue) TotalExecuted() uint64 { return q.totalExecuted.Load() }
