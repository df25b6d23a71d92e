package queue

import (
	"sync"

	"github.com/fairyhunter13/order-admission-simulator/internal/admission"
	"github.com/fairyhunter13/order-admission-simulator/internal/model"
)

// Tally counts admission outcomes seen by the workers and keeps the results
// in completion order.
type Tally struct {
	mu       sync.Mutex
	outcomes map[model.Outcome]int
	failures int
	results  []admission.Result
}

// NewTally returns an empty Tally.
func NewTally() *Tally {
	return &Tally{outcomes: make(map[model.Outcome]int)}
}

func (t *Tally) record(res admission.Result, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.failures++
	}
	if res.Outcome != 0 {
		t.outcomes[res.Outcome]++
	}
	t.results = append(t.results, res)
}

// Reset clears every counter and result.
func (t *Tally) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes = make(map[model.Outcome]int)
	t.failures = 0
	t.results = nil
}

// Count returns how many submissions ended with outcome o.
func (t *Tally) Count(o model.Outcome) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcomes[o]
}

// Failures returns how many submissions returned an error.
func (t *Tally) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}

// Results returns a copy of the recorded results.
func (t *Tally) Results() []admission.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]admission.Result, len(t.results))
	copy(out, t.results)
	return out
}
