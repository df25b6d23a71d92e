package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/order-admission-simulator/internal/model"
	"github.com/fairyhunter13/order-admission-simulator/internal/obs"
)

// Submission is one customer order waiting for admission.
type Submission struct {
	Customer model.Customer
	Sequence uint64
}

// Sequencer stamps submissions in arrival order, starting at 1.
type Sequencer struct{ n atomic.Uint64 }

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 { return s.n.Add(1) }

// Queue holds submissions in an unbounded backlog and feeds them, in order,
// into a bounded channel read by the workers.
type Queue struct {
	mu      sync.Mutex
	backlog []Submission
	notify  chan struct{}
	out     chan Submission
	closed  atomic.Bool

	enqueued  atomic.Uint64
	processed atomic.Uint64
	rejected  atomic.Uint64
}

// Stats is a point-in-time view of a Queue.
type Stats struct {
	Enqueued  uint64 `json:"enqueued"`
	Processed uint64 `json:"processed"`
	Rejected  uint64 `json:"rejected"`
	Backlog   int    `json:"backlog"`
	Depth     int    `json:"depth"`
}

// Drained reports whether every accepted submission has been processed.
func (s Stats) Drained() bool {
	return s.Depth == 0 && s.Enqueued == s.Processed
}

// New creates a Queue with a buffered output channel.
func New(outBuffer int) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	return &Queue{
		notify: make(chan struct{}, 1),
		out:    make(chan Submission, outBuffer),
	}
}

// broker feeds the backlog into Out until ctx is done. It warns once each
// time the backlog climbs past highWatermark.
func (q *Queue) broker(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	over := false
	for {
		left := q.flushOnce()
		switch {
		case highWatermark > 0 && left > highWatermark && !over:
			over = true
			obs.Logger.Warnw("queue_backlog_high", "backlog_size", left, "high_watermark", highWatermark)
		case left <= highWatermark:
			over = false
		}
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

// flushOnce moves as much of the backlog into Out as fits and returns what is
// left behind.
func (q *Queue) flushOnce() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for n < len(q.backlog) && len(q.out) < cap(q.out) {
		q.out <- q.backlog[n]
		n++
	}
	q.backlog = q.backlog[n:]
	return len(q.backlog)
}

// Enqueue appends s to the backlog. It returns false once intake is closed.
func (q *Queue) Enqueue(s Submission) bool {
	if q.closed.Load() {
		q.rejected.Add(1)
		return false
	}
	q.enqueued.Add(1)
	q.mu.Lock()
	q.backlog = append(q.backlog, s)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Out is the channel workers take submissions from.
func (q *Queue) Out() <-chan Submission { return q.out }

// BacklogSize returns the number of submissions not yet moved to Out.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// QueueDepth returns backlog plus submissions buffered in Out.
func (q *Queue) QueueDepth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog) + len(q.out)
}

// MarkProcessed counts one finished submission.
func (q *Queue) MarkProcessed() { q.processed.Add(1) }

// Stats returns the queue counters. Enqueued is read before the sizes so a
// submission in flight keeps Enqueued ahead of Processed.
func (q *Queue) Stats() Stats {
	st := Stats{
		Enqueued: q.enqueued.Load(),
		Rejected: q.rejected.Load(),
	}
	q.mu.Lock()
	st.Backlog = len(q.backlog)
	st.Depth = st.Backlog + len(q.out)
	q.mu.Unlock()
	st.Processed = q.processed.Load()
	return st
}

// CloseIntake makes every later Enqueue fail.
func (q *Queue) CloseIntake() { q.closed.Store(true) }

// IsShuttingDown reports whether intake has been closed.
func (q *Queue) IsShuttingDown() bool { return q.closed.Load() }
