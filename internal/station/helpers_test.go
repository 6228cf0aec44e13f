package station

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"petrolstation/internal/config"
	"petrolstation/internal/events"
	"petrolstation/internal/logging"
)

// testConfig is the reference station on a millisecond time scale
func testConfig() config.Config {
	c := config.Default()
	c.HourInterval = 50 * time.Millisecond
	c.DayArrival = config.Band{Min: 5 * time.Millisecond, Max: 10 * time.Millisecond}
	c.NightArrival = config.Band{Min: 20 * time.Millisecond, Max: 30 * time.Millisecond}
	c.FuelUnit = 10 * time.Millisecond
	c.PaymentTime = 5 * time.Millisecond
	c.TankerTransit = 60 * time.Millisecond
	c.CriticalBackoff = 20 * time.Millisecond
	c.MatchRetry = 10 * time.Millisecond
	c.EventBuffer = 8192
	c.Seed = 42
	return c
}

type running struct {
	station *Station
	bus     *events.Bus
	stop    func()
}

// startStation runs a station without its arrival generator until the test ends
func startStation(t *testing.T, cfg config.Config, opts ...Option) running {
	t.Helper()
	bus := events.NewBus(cfg.EventBuffer)
	opts = append([]Option{WithoutArrivals()}, opts...)
	st, err := New(cfg, bus, logging.Nop(), opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- st.Run(ctx) }()

	var stopped bool
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("station did not shut down")
		}
	}
	t.Cleanup(stop)
	return running{station: st, bus: bus, stop: stop}
}

func fixedAmount(liters int) Option {
	return WithRequestAmount(func() int { return liters })
}
