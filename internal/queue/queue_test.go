package queue

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/fairyhunter13/order-admission-simulator/internal/admission"
	"github.com/fairyhunter13/order-admission-simulator/internal/config"
	"github.com/fairyhunter13/order-admission-simulator/internal/model"
	"github.com/fairyhunter13/order-admission-simulator/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T, products ...model.Product) *admission.Engine {
	t.Helper()
	inv := store.NewInventory()
	for _, p := range products {
		if err := inv.Upsert(context.Background(), p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return admission.NewEngine(store.NewCustomers(), inv, nil)
}

func customerFor(id, productID, qty int64) model.Customer {
	return model.Customer{ID: id, Name: "q", Order: model.Order{ProductID: productID, Quantity: qty}}
}

func TestQueueNonBlockingEnqueue(t *testing.T) {
	q := New(1)
	for i := 0; i < 1000; i++ {
		ok := q.Enqueue(Submission{Customer: customerFor(int64(i), 1, 1)})
		if !ok {
			t.Fatalf("enqueue failed at %d", i)
		}
	}
	if left := q.flushOnce(); left != 999 {
		t.Fatalf("expected 999 left after flush, got %d", left)
	}
	if q.BacklogSize() != 999 {
		t.Fatalf("expected backlog 999, got %d", q.BacklogSize())
	}
	if q.QueueDepth() != 1000 {
		t.Fatalf("expected depth 1000, got %d", q.QueueDepth())
	}
}

func TestQueueShutdownIntake(t *testing.T) {
	q := New(1)
	q.CloseIntake()
	if !q.IsShuttingDown() {
		t.Fatalf("expected shutting down true")
	}
	if ok := q.Enqueue(Submission{Customer: customerFor(1, 1, 1)}); ok {
		t.Fatalf("expected enqueue false when shutting down")
	}
	if st := q.Stats(); st.Rejected != 1 || st.Enqueued != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestQueueStatsDrained(t *testing.T) {
	q := New(4)
	if !q.Stats().Drained() {
		t.Fatalf("empty queue should be drained")
	}
	q.Enqueue(Submission{Customer: customerFor(1, 1, 1)})
	q.flushOnce()
	if st := q.Stats(); st.Drained() || st.Depth != 1 || st.Backlog != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	<-q.Out()
	if q.Stats().Drained() {
		t.Fatalf("taken but unprocessed submission must not count as drained")
	}
	q.MarkProcessed()
	if !q.Stats().Drained() {
		t.Fatalf("expected drained after MarkProcessed")
	}
}

// ctxSubmitter takes d to admit an order and gives up if its context ends first.
type ctxSubmitter struct{ d time.Duration }

func (s ctxSubmitter) Submit(ctx context.Context, c model.Customer) (admission.Result, error) {
	select {
	case <-ctx.Done():
		return admission.Result{}, ctx.Err()
	case <-time.After(s.d):
		return admission.Result{Outcome: model.Fulfilled, CustomerID: c.ID}, nil
	}
}

func TestManagerScaleDownFinishesInflightSubmissions(t *testing.T) {
	t.Setenv("WORKER_MIN", "1")
	t.Setenv("WORKER_MAX", "2")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("SCALE_INTERVAL_MS", "20")
	t.Setenv("SCALE_DOWN_IDLE_TICKS", "1")
	cfg := config.Load()

	mgr := NewManager(cfg, New(8), ctxSubmitter{d: 300 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)
	defer mgr.Stop()

	mgr.Enqueue(customerFor(1, 1, 1))
	mgr.Enqueue(customerFor(2, 1, 1))

	// The backlog empties at once, so a worker is removed while both orders
	// are still being admitted.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && mgr.WorkerCount() > 1 {
		time.Sleep(10 * time.Millisecond)
	}
	if wc := mgr.WorkerCount(); wc != 1 {
		t.Fatalf("expected scale down to 1, got %d", wc)
	}

	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDrain()
	if !mgr.DrainUntil(ctxDrain) {
		t.Fatalf("drain timeout")
	}
	tl := mgr.Tally()
	if tl.Failures() != 0 || tl.Count(model.Fulfilled) != 2 {
		t.Fatalf("failures=%d fulfilled=%d", tl.Failures(), tl.Count(model.Fulfilled))
	}
}

func TestManagerStopFinishesInflightSubmission(t *testing.T) {
	t.Setenv("WORKER_MIN", "1")
	t.Setenv("WORKER_MAX", "1")
	t.Setenv("WORKER_COUNT", "1")
	mgr := NewManager(config.Load(), New(4), ctxSubmitter{d: 100 * time.Millisecond})
	mgr.Start(context.Background())
	mgr.Enqueue(customerFor(1, 1, 1))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && mgr.QueueDepth() > 0 {
		time.Sleep(5 * time.Millisecond)
	}
	mgr.Stop()
	if tl := mgr.Tally(); tl.Failures() != 0 || tl.Count(model.Fulfilled) != 1 {
		t.Fatalf("failures=%d fulfilled=%d", tl.Failures(), tl.Count(model.Fulfilled))
	}
}

func TestSequencerMonotonic(t *testing.T) {
	var s Sequencer
	if s.Next() != 1 || s.Next() != 2 {
		t.Fatalf("unexpected sequence")
	}
}

func TestManagerDrainTalliesEveryOrder(t *testing.T) {
	cfg := config.Load()
	eng := newEngine(t, model.Product{ID: 1, Available: model.Bool(true), Count: model.Int64(30), Price: 10})
	mgr := NewManager(cfg, New(16), eng)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)
	defer mgr.Stop()

	for i := 0; i < 100; i++ {
		productID := int64(1)
		if i%10 == 0 {
			productID = 2
		}
		if _, ok := mgr.Enqueue(customerFor(int64(i), productID, 1)); !ok {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDrain()
	if ok := mgr.DrainUntil(ctxDrain); !ok {
		t.Fatalf("expected drain true")
	}
	tl := mgr.Tally()
	if tl.Count(model.Fulfilled) != 30 {
		t.Fatalf("fulfilled: %d", tl.Count(model.Fulfilled))
	}
	if tl.Count(model.ProductMissing) != 10 {
		t.Fatalf("missing: %d", tl.Count(model.ProductMissing))
	}
	if tl.Count(model.Backordered) != 60 {
		t.Fatalf("backordered: %d", tl.Count(model.Backordered))
	}
	if len(tl.Results()) != 100 || tl.Failures() != 0 {
		t.Fatalf("results=%d failures=%d", len(tl.Results()), tl.Failures())
	}
	if got := len(eng.Waiting(1)) + len(eng.Waiting(2)); got != 70 {
		t.Fatalf("expected 70 backorders, got %d", got)
	}
}

func TestManagerRejectsAfterCloseIntake(t *testing.T) {
	mgr := NewManager(config.Load(), New(4), newEngine(t))
	mgr.CloseIntake()
	if !mgr.IsShuttingDown() {
		t.Fatalf("expected shutting down")
	}
	if _, ok := mgr.Enqueue(customerFor(1, 1, 1)); ok {
		t.Fatalf("expected rejection")
	}
	mgr.Stop()
}
