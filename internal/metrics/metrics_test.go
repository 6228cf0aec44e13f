package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petrolstation/internal/events"
	"petrolstation/internal/fuel"
	"petrolstation/internal/station"
)

type fakeStation struct {
	snapshot station.Snapshot
}

func (f *fakeStation) Snapshot() station.Snapshot { return f.snapshot }

func newFake() *fakeStation {
	return &fakeStation{snapshot: station.Snapshot{
		Hour:     9,
		Capacity: 500,
		Levels:   map[fuel.Kind]int{fuel.Gasoline: 140, fuel.Diesel: 200, fuel.LPG: 150},
		Dispensers: []station.DispenserView{
			{ID: 0, Name: "Dispenser 1 (G)", Tag: fuel.Gasoline, Busy: true},
			{ID: 1, Name: "Dispenser 3 (U)", Tag: fuel.Universal},
		},
		Served:  4,
		Waiting: 2,
		Tanker:  station.TankerEnRoute,
		Trips:   1,
	}}
}

func TestCollectReadsSnapshot(t *testing.T) {
	c := NewCollector(newFake(), events.NewBus(1))

	expected := `
# HELP petrolstation_fuel_level_liters Current tank level.
# TYPE petrolstation_fuel_level_liters gauge
petrolstation_fuel_level_liters{kind="diesel"} 200
petrolstation_fuel_level_liters{kind="gasoline"} 140
petrolstation_fuel_level_liters{kind="lpg"} 150
# HELP petrolstation_vehicles_served_total Vehicles that paid and left.
# TYPE petrolstation_vehicles_served_total counter
petrolstation_vehicles_served_total 4
# HELP petrolstation_tanker_state 1 for the current tanker state.
# TYPE petrolstation_tanker_state gauge
petrolstation_tanker_state{state="en_route"} 1
petrolstation_tanker_state{state="idle"} 0
petrolstation_tanker_state{state="refilling"} 0
`
	err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"petrolstation_fuel_level_liters",
		"petrolstation_vehicles_served_total",
		"petrolstation_tanker_state",
	)
	assert.NoError(t, err)
}

func TestConsumeCountsLiters(t *testing.T) {
	bus := events.NewBus(8)
	c := NewCollector(newFake(), bus)
	sub := bus.Subscribe()

	at := time.Now()
	bus.Publish(events.ServiceCompleted{Kind: fuel.LPG, Dispensed: 40, Arrived: at, Paid: at.Add(3 * time.Second)})
	bus.Publish(events.ServiceCompleted{Kind: fuel.LPG, Dispensed: 25, Arrived: at, Paid: at.Add(time.Second)})
	sub.Close()

	require.NoError(t, c.Consume(context.Background(), sub))
	assert.Equal(t, 65.0, testutil.ToFloat64(c.liters.WithLabelValues("lpg")))
}

func TestHandlerServesExposition(t *testing.T) {
	c := NewCollector(newFake(), events.NewBus(1))
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `petrolstation_dispenser_busy{dispenser="Dispenser 1 (G)",tag="gasoline"} 1`)
	assert.Contains(t, body, "petrolstation_simulated_hour 9")
	assert.Contains(t, body, "petrolstation_events_dropped_total 0")
}
