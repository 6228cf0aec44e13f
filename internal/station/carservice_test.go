package station

import (
	"testing"
	"time"

	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"petrolstation/internal/config"
	"petrolstation/internal/events"
	"petrolstation/internal/logging"
)

func TestArrivals(t *testing.T) {
	spec.Run(t, "arrivalDelay", testArrivalDelay, spec.Report(report.Terminal{}))
}

func testArrivalDelay(t *testing.T, describe spec.G, it spec.S) {
	var cfg config.Config

	it.Before(func() {
		cfg = config.Default()
		cfg.Seed = 7
	})

	stationAt := func(hour int) *Station {
		cfg.StartHour = hour
		st, err := New(cfg, events.NewBus(1), logging.Nop())
		require.NoError(t, err)
		return st
	}

	inBand := func(st *Station, band config.Band) {
		for i := 0; i < 200; i++ {
			d := st.arrivalDelay()
			assert.GreaterOrEqual(t, d, band.Min)
			assert.LessOrEqual(t, d, band.Max)
		}
	}

	describe("during the day", func() {
		it("uses the day band from the first day hour", func() {
			inBand(stationAt(cfg.DayStart), cfg.DayArrival)
		})

		it("uses the day band until the last day hour", func() {
			inBand(stationAt(cfg.DayEnd-1), cfg.DayArrival)
		})
	})

	describe("at night", func() {
		it("uses the night band before the day starts", func() {
			inBand(stationAt(cfg.DayStart-1), cfg.NightArrival)
		})

		it("uses the night band from the end of the day", func() {
			inBand(stationAt(cfg.DayEnd), cfg.NightArrival)
		})

		it("follows the clock as it crosses into the night", func() {
			st := stationAt(cfg.DayEnd - 1)
			st.Clock().Advance()
			inBand(st, cfg.NightArrival)
		})
	})
}

func TestDefaultRequestAmountStaysInRange(t *testing.T) {
	cfg := config.Default()
	cfg.Seed = 3
	st, err := New(cfg, events.NewBus(1), logging.Nop())
	require.NoError(t, err)

	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		liters := st.requestAmount()
		require.GreaterOrEqual(t, liters, cfg.RequestMin)
		require.LessOrEqual(t, liters, cfg.RequestMax)
		seen[liters] = true
	}
	assert.True(t, seen[cfg.RequestMin])
	assert.True(t, seen[cfg.RequestMax])
}

func TestBetweenIsInclusive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := newLockedRand(rapid.Int64Range(1, 1<<20).Draw(t, "seed"))
		min := rapid.IntRange(-100, 100).Draw(t, "min")
		max := rapid.IntRange(min, min+100).Draw(t, "max")
		for i := 0; i < 20; i++ {
			if n := r.between(min, max); n < min || n > max {
				t.Fatalf("between(%d, %d) = %d", min, max, n)
			}
		}
	})
}

func TestRandomTimeIsInclusive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := newLockedRand(rapid.Int64Range(1, 1<<20).Draw(t, "seed"))
		min := time.Duration(rapid.Int64Range(0, int64(time.Minute)).Draw(t, "min"))
		max := min + time.Duration(rapid.Int64Range(0, 10).Draw(t, "spread"))
		for i := 0; i < 20; i++ {
			if d := r.randomTime(min, max); d < min || d > max {
				t.Fatalf("randomTime(%s, %s) = %s", min, max, d)
			}
		}
	})
}

func TestBetweenReachesBothEnds(t *testing.T) {
	r := newLockedRand(11)
	var low, high bool
	for i := 0; i < 1000 && !(low && high); i++ {
		switch r.between(35, 85) {
		case 35:
			low = true
		case 85:
			high = true
		}
	}
	assert.True(t, low)
	assert.True(t, high)
}
