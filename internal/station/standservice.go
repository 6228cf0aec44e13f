package station

import (
	"context"
	"fmt"
	"time"

	"petrolstation/internal/events"
	"petrolstation/internal/fuel"
)

// Dispenser is a service bay. Its one-slot channel is the reservation: only
// the holder of the slot may fuel at it.
type Dispenser struct {
	ID   int
	Name string
	Tag  fuel.Kind
	slot chan struct{}
}

// NewFuelStand creates a free dispenser compatible with tag.
func NewFuelStand(id int, name string, tag fuel.Kind) *Dispenser {
	return &Dispenser{
		ID:   id,
		Name: name,
		Tag:  tag,
		slot: make(chan struct{}, 1),
	}
}

// Accepts reports whether the dispenser can serve kind k.
func (d *Dispenser) Accepts(k fuel.Kind) bool {
	return d.Tag.Accepts(k)
}

// TryAcquire reserves the dispenser if it is free.
func (d *Dispenser) TryAcquire() bool {
	select {
	case d.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the dispenser. Releasing a free dispenser panics.
func (d *Dispenser) Release() {
	select {
	case <-d.slot:
	default:
		panic(fmt.Sprintf("dispenser %d released while free", d.ID))
	}
}

// Busy reports whether a session holds the dispenser.
func (d *Dispenser) Busy() bool {
	return len(d.slot) == 1
}

// Routines

// dispatchRoutine pops vehicles in arrival order and hands each one to a
// dispenser before looking at the next.
func (st *Station) dispatchRoutine(ctx context.Context) error {
	for {
		v, err := st.queue.Pop(ctx)
		if err != nil {
			return nil
		}
		if err := st.dispatch(ctx, v); err != nil {
			return nil
		}
	}
}

// dispatch retries one vehicle until it is assigned. Each pass probes the
// inventory (claiming a tanker when low), backs off while the kind is
// critically short and otherwise looks for a free compatible dispenser.
func (st *Station) dispatch(ctx context.Context, v *Vehicle) error {
	for {
		level, claimed := st.inventory.Probe(v.Kind, st.cfg.LowThreshold)
		if claimed {
			st.launchTanker(func() {
				st.bus.Publish(events.NewLog(events.Alert,
					fmt.Sprintf("Alert: %s low (%d L), calling the tanker.", v.Kind, level)))
				st.logger.Infow("automatic replenishment", "kind", v.Kind, "level", level)
			})
		}

		if level < st.cfg.CriticalThreshold {
			st.logger.Debugw("critical shortage, holding vehicle", "vehicle", v.ID, "kind", v.Kind, "level", level)
			if err := st.pause(ctx, st.cfg.CriticalBackoff); err != nil {
				return err
			}
			continue
		}

		if d := st.findStand(v.Kind); d != nil {
			st.logger.Debugw("vehicle assigned", "vehicle", v.ID, "dispenser", d.Name)
			st.startSession(v, d)
			return nil
		}

		if err := st.pause(ctx, st.cfg.MatchRetry); err != nil {
			return err
		}
	}
}

// Utilities

// findStand reserves the first free dispenser, in declaration order, that accepts kind
func (st *Station) findStand(kind fuel.Kind) *Dispenser {
	for _, d := range st.dispensers {
		if d.Accepts(kind) && d.TryAcquire() {
			return d
		}
	}
	return nil
}

// pause waits for delay, returning early when a dispenser frees up or a
// refill lands
func (st *Station) pause(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-st.wake:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// signal wakes a pausing dispatcher
func (st *Station) signal() {
	select {
	case st.wake <- struct{}{}:
	default:
	}
}
