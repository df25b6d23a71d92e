// Package app wires configuration, stores, the admission engine and the intake
// queue into one runnable simulator.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/fairyhunter13/order-admission-simulator/internal/admission"
	"github.com/fairyhunter13/order-admission-simulator/internal/backorder"
	"github.com/fairyhunter13/order-admission-simulator/internal/config"
	"github.com/fairyhunter13/order-admission-simulator/internal/model"
	"github.com/fairyhunter13/order-admission-simulator/internal/obs"
	"github.com/fairyhunter13/order-admission-simulator/internal/pricing"
	"github.com/fairyhunter13/order-admission-simulator/internal/queue"
	"github.com/fairyhunter13/order-admission-simulator/internal/scenario"
	"github.com/fairyhunter13/order-admission-simulator/internal/store"
	"github.com/fairyhunter13/order-admission-simulator/internal/store/postgres"
)

// Seeder loads products into an inventory.
type Seeder interface {
	Upsert(ctx context.Context, p model.Product) error
}

// Backend is the storage an App runs on.
type Backend struct {
	Customers admission.CustomerStore
	Inventory admission.Inventory
	Seeder    Seeder
	Closers   []io.Closer
}

// MemoryBackend returns fresh in-memory stores.
func MemoryBackend() Backend {
	inv := store.NewInventory()
	return Backend{Customers: store.NewCustomers(), Inventory: inv, Seeder: inv}
}

// OpenBackend builds the backend named in cfg.StoreBackend.
func OpenBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.StoreBackend {
	case "", config.BackendMemory:
		return MemoryBackend(), nil
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Backend{}, fmt.Errorf("DATABASE_URL is required for the %s backend", config.BackendPostgres)
		}
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return Backend{}, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return Backend{}, err
		}
		return Backend{Customers: pg, Inventory: pg, Seeder: pg, Closers: []io.Closer{pg}}, nil
	default:
		return Backend{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// App is a running simulator instance.
type App struct {
	Cfg     config.Config
	Engine  *admission.Engine
	Manager *queue.Manager
	backend Backend
}

// New builds an App on backend and starts its workers.
func New(ctx context.Context, cfg config.Config, backend Backend) *App {
	eng := admission.NewEngine(backend.Customers, backend.Inventory, backorder.New())
	mgr := queue.NewManager(cfg, queue.New(cfg.QueueBuffer), eng)
	mgr.Start(ctx)
	return &App{Cfg: cfg, Engine: eng, Manager: mgr, backend: backend}
}

// Close stops the workers and releases the backend.
func (a *App) Close() error {
	a.Manager.CloseIntake()
	a.Manager.Stop()
	st := a.Manager.QueueStats()
	obs.Logger.Infow("simulator_closed",
		"enqueued", st.Enqueued,
		"processed", st.Processed,
		"rejected", st.Rejected,
	)
	var err error
	for _, c := range a.backend.Closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// QuoteResult is one priced quote in a Report.
type QuoteResult struct {
	CustomerID int64         `json:"customer_id"`
	ProductID  int64         `json:"product_id"`
	Quantity   int64         `json:"quantity"`
	Quote      pricing.Quote `json:"quote"`
	Message    string        `json:"message"`
}

// Report summarizes one simulation run.
type Report struct {
	RunID      string                            `json:"run_id"`
	Submitted  int                               `json:"submitted"`
	Outcomes   map[string]int                    `json:"outcomes"`
	Failures   int                               `json:"failures"`
	Backorders map[int64][]model.Customer        `json:"backorders"`
	Inventory  []model.Product                   `json:"inventory"`
	Quotes     []QuoteResult                     `json:"quotes"`
	Lookups    map[string][]model.CustomerRecord `json:"lookups"`
	Elapsed    string                            `json:"elapsed"`
}

// Run seeds the inventory, pushes every order through the intake queue, waits
// for the queue to drain and prices the requested quotes.
//
// Outcome counts cover this run only. The backorder table keeps growing across
// runs on the same App.
func (a *App) Run(ctx context.Context, sc scenario.Scenario) (Report, error) {
	if a.Manager.IsShuttingDown() {
		return Report{}, fmt.Errorf("simulator is closed")
	}
	a.Manager.Tally().Reset()
	runID := uuid.NewString()
	start := time.Now()
	obs.Logger.Infow("simulation_starting",
		"run_id", runID,
		"products", len(sc.Products),
		"orders", len(sc.Orders),
	)

	for _, p := range sc.Products {
		if err := a.backend.Seeder.Upsert(ctx, p); err != nil {
			return Report{}, fmt.Errorf("seed product %d: %w", p.ID, err)
		}
	}
	for _, c := range sc.Orders {
		if _, ok := a.Manager.Enqueue(c); !ok {
			return Report{}, fmt.Errorf("intake closed before customer %d was queued", c.ID)
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, a.Cfg.ShutdownTimeout)
	defer cancel()
	if !a.Manager.DrainUntil(drainCtx) {
		obs.Logger.Warnw("simulation_drain_timeout",
			"run_id", runID,
			"backlog_size", a.Manager.BacklogSize(),
			"queue_depth", a.Manager.QueueDepth(),
		)
		return Report{}, fmt.Errorf("queue did not drain within %s", a.Cfg.ShutdownTimeout)
	}

	tally := a.Manager.Tally()
	rep := Report{
		RunID:     runID,
		Submitted: len(sc.Orders),
		Outcomes: map[string]int{
			model.Fulfilled.String():      tally.Count(model.Fulfilled),
			model.Backordered.String():    tally.Count(model.Backordered),
			model.ProductMissing.String(): tally.Count(model.ProductMissing),
		},
		Failures:   tally.Failures(),
		Backorders: a.Engine.Backorders(),
		Lookups:    make(map[string][]model.CustomerRecord, len(sc.Lookups)),
	}

	for _, p := range sc.Products {
		cur, ok, err := a.Engine.Product(ctx, p.ID)
		if err != nil {
			return Report{}, err
		}
		if ok {
			rep.Inventory = append(rep.Inventory, cur)
		}
	}
	for _, qr := range sc.Quotes {
		res, err := a.Quote(ctx, qr)
		if err != nil {
			return Report{}, err
		}
		rep.Quotes = append(rep.Quotes, res)
	}
	for _, name := range sc.Lookups {
		rep.Lookups[name] = a.Engine.FindCustomersByName(ctx, name)
	}

	rep.Elapsed = time.Since(start).String()
	st := a.Manager.QueueStats()
	obs.Logger.Infow("simulation_complete",
		"run_id", runID,
		"enqueued", st.Enqueued,
		"processed", st.Processed,
		"fulfilled", rep.Outcomes[model.Fulfilled.String()],
		"backordered", rep.Outcomes[model.Backordered.String()],
		"product_missing", rep.Outcomes[model.ProductMissing.String()],
		"failures", rep.Failures,
		"elapsed", rep.Elapsed,
	)
	return rep, nil
}

// Quote prices one request against the current inventory.
func (a *App) Quote(ctx context.Context, qr scenario.QuoteRequest) (QuoteResult, error) {
	p, ok, err := a.Engine.Product(ctx, qr.ProductID)
	if err != nil {
		return QuoteResult{}, err
	}
	var product *model.Product
	if ok {
		product = &p
	}
	c := model.Customer{ID: qr.CustomerID, Order: model.Order{ProductID: qr.ProductID, Quantity: qr.Quantity}}
	q := pricing.QuoteFor(product, c)
	return QuoteResult{
		CustomerID: qr.CustomerID,
		ProductID:  qr.ProductID,
		Quantity:   qr.Quantity,
		Quote:      q,
		Message:    q.Message(),
	}, nil
}
