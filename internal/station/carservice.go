package station

import (
	"context"
	"time"

	"petrolstation/internal/fuel"
)

// Vehicle is a car waiting for, or receiving, service.
type Vehicle struct {
	ID      int
	Kind    fuel.Kind
	Arrived time.Time
}

// Routines

// arrivalRoutine creates vehicles at a rate that follows the simulated hour.
// It runs until ctx is done or CarCount vehicles have arrived.
func (st *Station) arrivalRoutine(ctx context.Context) error {
	for created := 0; st.cfg.CarCount == 0 || created < st.cfg.CarCount; created++ {
		if err := doSleeping(ctx, st.arrivalDelay()); err != nil {
			return nil
		}
		st.Arrive(st.rng.genFuelKind())
	}
	st.logger.Infow("arrivals finished", "vehicles", st.cfg.CarCount)
	return nil
}

// Arrive creates a vehicle requesting kind and puts it in the dispatch queue.
func (st *Station) Arrive(kind fuel.Kind) *Vehicle {
	v := &Vehicle{
		ID:      int(st.nextID.Add(1)),
		Kind:    kind,
		Arrived: time.Now(),
	}
	st.queue.Push(v)
	st.logger.Debugw("vehicle arrived", "vehicle", v.ID, "kind", v.Kind, "queued", st.queue.Len())
	return v
}

// Utilities

// arrivalDelay samples the day or night inter-arrival band
func (st *Station) arrivalDelay() time.Duration {
	band := st.cfg.NightArrival
	if IsDaytime(st.clock.Hour(), st.cfg.DayStart, st.cfg.DayEnd) {
		band = st.cfg.DayArrival
	}
	return st.rng.randomTime(band.Min, band.Max)
}
