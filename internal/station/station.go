// Package station simulates a fuel station: vehicles arrive, a dispatcher
// matches them to dispensers while a tanker races consumption, and every
// sale ends at a single cash register.
package station

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"petrolstation/internal/config"
	"petrolstation/internal/events"
	"petrolstation/internal/fuel"
)

// Station owns the shared state and the routines operating on it.
type Station struct {
	cfg    config.Config
	bus    *events.Bus
	logger *zap.SugaredLogger

	rng           *lockedRand
	requestAmount func() int
	generate      bool
	completed     []func(events.ServiceCompleted)

	clock      *Clock
	inventory  *Inventory
	queue      *Queue
	dispensers []*Dispenser
	tanker     *Tanker
	register   *CashRegister
	stats      *Stats

	nextID atomic.Int64
	wake   chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	closing bool
	workers sync.WaitGroup
}

// Option customizes a Station.
type Option func(*Station)

// WithRequestAmount replaces the random requested-liters draw.
func WithRequestAmount(f func() int) Option {
	return func(st *Station) { st.requestAmount = f }
}

// WithoutArrivals disables the arrival generator; vehicles enter only
// through Arrive.
func WithoutArrivals() Option {
	return func(st *Station) { st.generate = false }
}

// OnServiceCompleted registers f to receive every completed service on the
// session's goroutine. Unlike bus subscribers, f never misses one.
func OnServiceCompleted(f func(events.ServiceCompleted)) Option {
	return func(st *Station) { st.completed = append(st.completed, f) }
}

// New builds a station from cfg. Events go to bus, diagnostics to logger.
func New(cfg config.Config, bus *events.Bus, logger *zap.SugaredLogger, opts ...Option) (*Station, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid station config: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	st := &Station{
		cfg:       cfg,
		bus:       bus,
		logger:    logger,
		rng:       newLockedRand(cfg.Seed),
		generate:  true,
		clock:     NewClock(cfg.StartHour, cfg.HourInterval, bus),
		inventory: NewInventory(cfg.Capacity, cfg.Levels),
		queue:     NewQueue(),
		register:  NewCashRegister(cfg.PaymentTime),
		stats:     &Stats{},
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
	st.requestAmount = func() int { return st.rng.between(cfg.RequestMin, cfg.RequestMax) }
	for i, spec := range cfg.Dispensers {
		st.dispensers = append(st.dispensers, NewFuelStand(i, spec.Name, spec.Kind))
	}
	st.tanker = NewTanker(st.inventory, cfg.TankerTransit, bus, logger.Named("tanker"), st.signal)
	for _, opt := range opts {
		opt(st)
	}
	return st, nil
}

// Run drives the clock, the arrival generator and the dispatcher until ctx
// is done or Close is called, then waits for sessions and tanker trips to
// wind down. A station runs once.
func (st *Station) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(st.ctx, cancel)
	defer stop()

	st.publishState()
	st.logger.Infow("station open",
		"dispensers", len(st.dispensers),
		"capacity", st.cfg.Capacity,
		"hour", st.clock.Hour(),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return st.clock.Run(ctx) })
	if st.generate {
		g.Go(func() error { return st.arrivalRoutine(ctx) })
	}
	g.Go(func() error { return st.dispatchRoutine(ctx) })
	err := g.Wait()

	st.mu.Lock()
	st.closing = true
	st.mu.Unlock()
	st.cancel()
	st.workers.Wait()
	st.logger.Infow("station closed", "served", st.stats.Served(), "waiting", st.queue.Len())
	return err
}

// Close stops a running station and abandons in-flight sessions.
func (st *Station) Close() {
	st.cancel()
}

// RequestManualReplenishment sends the tanker regardless of levels. It
// reports false, and does nothing, when a tanker is already active.
func (st *Station) RequestManualReplenishment() bool {
	if !st.inventory.Claim() {
		st.logger.Debugw("manual replenishment ignored, tanker already active")
		return false
	}
	return st.launchTanker(func() {
		st.bus.Publish(events.NewLog(events.Tanker, "Tanker: called manually by the operator."))
		st.logger.Infow("manual replenishment")
	})
}

// launchTanker announces and starts a trip; the caller holds the
// replenishment claim, which is given back without announcing if the station
// is shutting down. The tanker is en route before launchTanker returns.
func (st *Station) launchTanker(announce func()) bool {
	if !st.spawn(st.tanker.Deliver, announce, st.tanker.Depart) {
		st.inventory.Release()
		return false
	}
	return true
}

// spawn runs f on its own goroutine under the station lifetime unless the
// station is shutting down. Each prepare runs first, on the caller's goroutine.
func (st *Station) spawn(f func(ctx context.Context), prepare ...func()) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closing {
		return false
	}
	for _, p := range prepare {
		if p != nil {
			p()
		}
	}
	st.workers.Add(1)
	go func() {
		defer st.workers.Done()
		f(st.ctx)
	}()
	return true
}

// publishState sends the full current state to observers
func (st *Station) publishState() {
	st.bus.Publish(events.HourChanged{Hour: st.clock.Hour()})
	levels := st.inventory.Levels()
	for _, k := range fuel.Kinds {
		st.bus.Publish(events.InventoryChanged{Kind: k, Level: levels[k], Capacity: st.cfg.Capacity})
	}
	for _, d := range st.dispensers {
		st.bus.Publish(events.DispenserStatusChanged{DispenserID: d.ID, Dispenser: d.Name, Status: events.Free})
	}
	st.bus.Publish(events.ServedCountChanged{Count: st.stats.Served()})
}

// Inventory returns the shared fuel stocks.
func (st *Station) Inventory() *Inventory { return st.inventory }

// Tanker returns the replenishment vehicle.
func (st *Station) Tanker() *Tanker { return st.tanker }

// Dispensers returns the dispensers in matching order.
func (st *Station) Dispensers() []*Dispenser { return st.dispensers }

// Served returns the number of vehicles that paid and left.
func (st *Station) Served() int { return st.stats.Served() }

// Clock returns the simulated clock.
func (st *Station) Clock() *Clock { return st.clock }
