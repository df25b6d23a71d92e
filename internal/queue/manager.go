// Package queue implements an in-memory order intake queue and the worker
// manager that feeds it into admission.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/fairyhunter13/order-admission-simulator/internal/admission"
	"github.com/fairyhunter13/order-admission-simulator/internal/config"
	"github.com/fairyhunter13/order-admission-simulator/internal/model"
	"github.com/fairyhunter13/order-admission-simulator/internal/obs"
)

// Submitter admits one customer order.
type Submitter interface {
	Submit(ctx context.Context, c model.Customer) (admission.Result, error)
}

// Manager coordinates workers processing queued submissions and scaling.
type Manager struct {
	cfg    config.Config
	q      *Queue
	sub    Submitter
	tally  *Tally
	seq    Sequencer
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	workerCancels []context.CancelFunc
}

// NewManager constructs a Manager with the given config, queue, and submitter.
func NewManager(cfg config.Config, q *Queue, sub Submitter) *Manager {
	return &Manager{cfg: cfg, q: q, sub: sub, tally: NewTally()}
}

// Start begins processing and autoscaling in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.q.broker(m.ctx, m.cfg.QueueHighWatermark)
	}()
	m.addWorkers(m.cfg.InitialWorkerCount)
	go func() {
		defer m.wg.Done()
		m.scaler()
	}()
}

// Stop cancels background routines and waits for them to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
	m.wg.Wait()
}

// scaler adjusts worker count based on backlog and configuration.
func (m *Manager) scaler() {
	interval := m.cfg.ScaleInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.BacklogSize()
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog == 0 {
				idleTicks++
				if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
					m.removeWorkers(1)
					idleTicks = 0
				}
			} else {
				idleTicks = 0
			}
		}
	}
}

// addWorkers spawns n workers.
func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.worker(wctx)
		}()
	}
	obs.Logger.Infow("workers_scaled", "worker_count", len(m.workerCancels))
}

// removeWorkers stops up to n workers.
func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.workerCancels) {
		n = len(m.workerCancels)
	}
	for i := 0; i < n; i++ {
		c := m.workerCancels[len(m.workerCancels)-1]
		m.workerCancels = m.workerCancels[:len(m.workerCancels)-1]
		c()
	}
	obs.Logger.Infow("workers_scaled", "worker_count", len(m.workerCancels))
}

// worker drains submissions from the queue into the submitter.
func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-m.q.Out():
			// ctx only stops the worker from taking more items; an admission
			// already taken always runs to completion.
			res, err := m.sub.Submit(context.WithoutCancel(ctx), s.Customer)
			if err != nil {
				obs.Logger.Errorw("submission_failed",
					"sequence", s.Sequence,
					"customer_id", s.Customer.ID,
					"error", err,
				)
			}
			m.tally.record(res, err)
			m.q.MarkProcessed()
		}
	}
}

// Enqueue stamps the next sequence number and hands the customer to the queue.
func (m *Manager) Enqueue(c model.Customer) (uint64, bool) {
	seq := m.seq.Next()
	return seq, m.q.Enqueue(Submission{Customer: c, Sequence: seq})
}

// Tally returns the outcome counters filled by the workers.
func (m *Manager) Tally() *Tally { return m.tally }

// BacklogSize returns pending items in the queue.
func (m *Manager) BacklogSize() int { return m.q.BacklogSize() }

// QueueDepth returns backlog plus buffered output items.
func (m *Manager) QueueDepth() int { return m.q.QueueDepth() }

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

// IsShuttingDown reports whether new enqueues are rejected.
func (m *Manager) IsShuttingDown() bool { return m.q.IsShuttingDown() }

// CloseIntake disallows future enqueues.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// QueueStats exposes the underlying queue counters.
func (m *Manager) QueueStats() Stats { return m.q.Stats() }

// DrainUntil blocks until the queue is fully drained or context is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		if m.q.Stats().Drained() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
