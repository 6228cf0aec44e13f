package station

import (
	"context"
	"sync"
	"time"

	"petrolstation/internal/events"
)

// Clock advances the simulated hour on a fixed real-time cadence.
type Clock struct {
	mu       sync.RWMutex
	hour     int
	interval time.Duration
	bus      *events.Bus
}

// NewClock creates a clock showing start and advancing every interval.
func NewClock(start int, interval time.Duration, bus *events.Bus) *Clock {
	return &Clock{hour: start % 24, interval: interval, bus: bus}
}

// Hour returns the current simulated hour.
func (c *Clock) Hour() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hour
}

// Advance moves to the next hour, wrapping at midnight, and publishes it.
func (c *Clock) Advance() int {
	c.mu.Lock()
	c.hour = (c.hour + 1) % 24
	h := c.hour
	c.mu.Unlock()
	c.bus.Publish(events.HourChanged{Hour: h})
	return h
}

// Run advances the clock until ctx is done.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Advance()
		case <-ctx.Done():
			return nil
		}
	}
}

// IsDaytime reports whether hour falls in the day band [start, end).
func IsDaytime(hour, start, end int) bool {
	return hour >= start && hour < end
}
