// Package report aggregates completed services into the final station statistics.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/yaml.v2"

	"petrolstation/internal/events"
	"petrolstation/internal/fuel"
)

// Summary is the aggregate for one fuel kind or for the register.
type Summary struct {
	TotalCars    int   `yaml:"total_cars"`
	Liters       int   `yaml:"liters,omitempty"`
	TotalTimeMs  int64 `yaml:"total_time_ms"`
	AvgQueueMs   int64 `yaml:"avg_queue_time_ms"`
	MaxQueueMs   int64 `yaml:"max_queue_time_ms"`
	ShortSales   int   `yaml:"short_sales,omitempty"`
	queueTotalMs int64
}

func (s *Summary) add(total, queue time.Duration) {
	s.TotalCars++
	s.TotalTimeMs += total.Milliseconds()
	q := queue.Milliseconds()
	s.queueTotalMs += q
	if q > s.MaxQueueMs {
		s.MaxQueueMs = q
	}
	s.AvgQueueMs = s.queueTotalMs / int64(s.TotalCars)
}

// Aggregator collects ServiceCompleted events.
type Aggregator struct {
	mu       sync.Mutex
	kinds    map[fuel.Kind]*Summary
	register Summary
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	a := &Aggregator{kinds: make(map[fuel.Kind]*Summary)}
	for _, k := range fuel.Kinds {
		a.kinds[k] = &Summary{}
	}
	return a
}

// Add records one completed service. It is safe for concurrent use.
func (a *Aggregator) Add(e events.ServiceCompleted) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.kinds[e.Kind]
	if !ok {
		return
	}
	s.add(e.Total(), e.StandWait())
	s.Liters += e.Dispensed
	if e.Dispensed < e.Requested {
		s.ShortSales++
	}
	a.register.add(e.Paid.Sub(e.Queued), e.RegisterWait())
}

// Kind returns the summary for k.
func (a *Aggregator) Kind(k fuel.Kind) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.kinds[k]; ok {
		return *s
	}
	return Summary{}
}

// Register returns the cash register summary.
func (a *Aggregator) Register() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.register
}

// Render writes the final statistics as YAML, kinds first, then the register.
func (a *Aggregator) Render(w io.Writer) error {
	doc := yaml.MapSlice{}
	for _, k := range fuel.Kinds {
		doc = append(doc, yaml.MapItem{Key: string(k), Value: a.Kind(k)})
	}
	doc = append(doc, yaml.MapItem{Key: "register", Value: a.Register()})

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	if _, err := fmt.Fprintln(w, "Final statistics"); err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
