package station

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"petrolstation/internal/events"
)

// progressSteps is the number of increments of the 0-100 fueling indicator
const progressSteps = 100

// ServiceRecord follows one vehicle through a session. It is dropped once
// the vehicle has paid.
type ServiceRecord struct {
	ID        uuid.UUID
	Vehicle   *Vehicle
	Dispenser *Dispenser
	Requested int
	Dispensed int
	Assigned  time.Time
	Fueled    time.Time
	Queued    time.Time
	Paying    time.Time
	Paid      time.Time
}

// Completed converts the record into its notification.
func (r *ServiceRecord) Completed() events.ServiceCompleted {
	return events.ServiceCompleted{
		SessionID: r.ID.String(),
		VehicleID: r.Vehicle.ID,
		Kind:      r.Vehicle.Kind,
		Dispenser: r.Dispenser.Name,
		Requested: r.Requested,
		Dispensed: r.Dispensed,
		Arrived:   r.Vehicle.Arrived,
		Assigned:  r.Assigned,
		Fueled:    r.Fueled,
		Queued:    r.Queued,
		Paying:    r.Paying,
		Paid:      r.Paid,
	}
}

// startSession hands a vehicle and the dispenser reserved for it to a new
// session goroutine.
func (st *Station) startSession(v *Vehicle, d *Dispenser) {
	rec := &ServiceRecord{
		ID:        uuid.New(),
		Vehicle:   v,
		Dispenser: d,
		Assigned:  time.Now(),
	}
	if !st.spawn(func(ctx context.Context) { st.serveRoutine(ctx, rec) }) {
		d.Release()
	}
}

// Routines

// serveRoutine fuels the vehicle, frees the dispenser and then pays at the
// cash register.
func (st *Station) serveRoutine(ctx context.Context, rec *ServiceRecord) {
	v, d := rec.Vehicle, rec.Dispenser

	rec.Requested = st.requestAmount()
	rec.Dispensed = st.inventory.Withdraw(v.Kind, rec.Requested)
	if rec.Dispensed < 0 || rec.Dispensed > rec.Requested {
		panic(fmt.Sprintf("session %s: dispensed %d L of %d requested", rec.ID, rec.Dispensed, rec.Requested))
	}

	st.bus.Publish(events.InventoryChanged{
		Kind:     v.Kind,
		Level:    st.inventory.LevelOf(v.Kind),
		Capacity: st.inventory.Capacity(),
	})

	err := st.doFueling(ctx, rec)
	rec.Fueled = time.Now()
	st.bus.Publish(events.DispenserStatusChanged{DispenserID: d.ID, Dispenser: d.Name, Status: events.Free})
	d.Release()
	st.signal()
	if err != nil {
		st.logger.Debugw("session abandoned while fueling", "vehicle", v.ID, "reason", err)
		return
	}
	st.bus.Publish(events.NewLog(events.Fuel,
		fmt.Sprintf("Vehicle %d finished fueling %d L of %s at %s.", v.ID, rec.Dispensed, v.Kind, d.Name)))

	rec.Queued = time.Now()
	rec.Paying, err = st.register.Pay(ctx, func() {
		served := st.stats.Increment()
		st.bus.Publish(events.ServedCountChanged{Count: served})
	})
	if err != nil {
		st.logger.Debugw("session abandoned before payment", "vehicle", v.ID, "reason", err)
		return
	}
	rec.Paid = time.Now()

	st.bus.Publish(events.NewLog(events.Payment, fmt.Sprintf("Vehicle %d paid and left.", v.ID)))
	completed := rec.Completed()
	for _, f := range st.completed {
		f(completed)
	}
	st.bus.Publish(completed)
	st.logger.Debugw("vehicle served",
		"session", rec.ID,
		"vehicle", v.ID,
		"kind", v.Kind,
		"requested", rec.Requested,
		"dispensed", rec.Dispensed,
		"total", rec.Paid.Sub(v.Arrived),
	)
}

// doFueling holds the dispenser for a time proportional to the dispensed
// amount, publishing progress as it goes
func (st *Station) doFueling(ctx context.Context, rec *ServiceRecord) error {
	v, d := rec.Vehicle, rec.Dispenser
	status := events.DispenserStatusChanged{
		DispenserID: d.ID,
		Dispenser:   d.Name,
		Status:      events.Fueling,
		VehicleID:   v.ID,
		Kind:        v.Kind,
		SessionID:   rec.ID.String(),
	}
	st.bus.Publish(status)

	step := st.fuelTime(rec.Dispensed) / progressSteps
	for i := 1; i <= progressSteps; i++ {
		if err := doSleeping(ctx, step); err != nil {
			return err
		}
		status.Progress = i
		st.bus.Publish(status)
	}
	return nil
}

// Utilities

// fuelTime is how long dispensing liters takes at the configured rate
func (st *Station) fuelTime(liters int) time.Duration {
	return time.Duration(liters) * st.cfg.FuelUnit / time.Duration(st.cfg.FuelRate)
}
