package station

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"petrolstation/internal/events"
	"petrolstation/internal/fuel"
)

// Tanker states
const (
	TankerIdle      = "idle"
	TankerEnRoute   = "en_route"
	TankerRefilling = "refilling"

	departTanker = "depart"
	arriveTanker = "arrive"
	finishRefill = "finish_refill"
	abortTrip    = "abort_trip"
)

// Tanker is the single replenishment vehicle. A trip may only start while
// the caller holds the inventory's replenishment claim; the trip releases it.
type Tanker struct {
	inventory *Inventory
	transit   time.Duration
	bus       *events.Bus
	logger    *zap.SugaredLogger
	fsm       *fsm.FSM
	trips     atomic.Int64
	onRefill  func()
}

// NewTanker creates an idle tanker that refills inv after transit.
func NewTanker(inv *Inventory, transit time.Duration, bus *events.Bus, logger *zap.SugaredLogger, onRefill func()) *Tanker {
	t := &Tanker{
		inventory: inv,
		transit:   transit,
		bus:       bus,
		logger:    logger,
		onRefill:  onRefill,
	}
	t.fsm = fsm.NewFSM(
		TankerIdle,
		fsm.Events{
			{Name: departTanker, Src: []string{TankerIdle}, Dst: TankerEnRoute},
			{Name: arriveTanker, Src: []string{TankerEnRoute}, Dst: TankerRefilling},
			{Name: finishRefill, Src: []string{TankerRefilling}, Dst: TankerIdle},
			{Name: abortTrip, Src: []string{TankerEnRoute}, Dst: TankerIdle},
		},
		fsm.Callbacks{},
	)
	return t
}

// State returns the current lifecycle state.
func (t *Tanker) State() string {
	return t.fsm.Current()
}

// Trips returns the number of completed refills.
func (t *Tanker) Trips() int64 {
	return t.trips.Load()
}

// Depart puts an idle tanker on the road. The caller must hold the claim
// and follow up with Deliver.
func (t *Tanker) Depart() {
	t.transition(departTanker)
	t.bus.Publish(events.NewLog(events.Tanker,
		fmt.Sprintf("Tanker: leaving the depot (%s on the road).", t.transit)))
}

// Deliver drives a departed tanker through its trip: travel, refill every
// tank, go idle and release the claim. Cancelling ctx during travel abandons
// the trip without refilling.
func (t *Tanker) Deliver(ctx context.Context) {
	if err := doSleeping(ctx, t.transit); err != nil {
		t.transition(abortTrip)
		t.inventory.Release()
		t.logger.Infow("tanker trip abandoned", "reason", err)
		return
	}

	t.transition(arriveTanker)
	t.inventory.RefillAll()
	capacity := t.inventory.Capacity()
	for _, k := range fuel.Kinds {
		t.bus.Publish(events.InventoryChanged{Kind: k, Level: capacity, Capacity: capacity})
	}
	trip := t.trips.Add(1)
	t.bus.Publish(events.NewLog(events.Tanker,
		fmt.Sprintf("Tanker: arrived, every tank is full (%d L).", capacity)))
	t.logger.Infow("tanker refilled", "trip", trip, "capacity", capacity)

	t.transition(finishRefill)
	t.inventory.Release()
	if t.onRefill != nil {
		t.onRefill()
	}
}

// transition fires event; an invalid transition means two trips overlapped
func (t *Tanker) transition(event string) {
	from := t.fsm.Current()
	if err := t.fsm.Event(context.Background(), event); err != nil {
		panic(fmt.Sprintf("tanker: %s from %s: %v", event, from, err))
	}
	to := t.fsm.Current()
	t.logger.Debugw("tanker transition", "from", from, "to", to)
	t.bus.Publish(events.TankerStateChanged{From: from, To: to})
}
