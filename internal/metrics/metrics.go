// Package metrics exposes station state and service history to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"petrolstation/internal/events"
	"petrolstation/internal/station"
)

const namespace = "petrolstation"

// Snapshotter is the read side of a station.
type Snapshotter interface {
	Snapshot() station.Snapshot
}

// Collector reads gauges from the station at scrape time and accumulates
// service counters from the event bus.
type Collector struct {
	src      Snapshotter
	registry *prometheus.Registry

	level    *prometheus.Desc
	busy     *prometheus.Desc
	hour     *prometheus.Desc
	served   *prometheus.Desc
	waiting  *prometheus.Desc
	trips    *prometheus.Desc
	tanker   *prometheus.Desc
	liters   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	dropped  prometheus.CounterFunc
}

// NewCollector registers station metrics on a fresh registry.
func NewCollector(src Snapshotter, bus *events.Bus) *Collector {
	c := &Collector{
		src:      src,
		registry: prometheus.NewRegistry(),
		level: prometheus.NewDesc(namespace+"_fuel_level_liters",
			"Current tank level.", []string{"kind"}, nil),
		busy: prometheus.NewDesc(namespace+"_dispenser_busy",
			"1 while a session holds the dispenser.", []string{"dispenser", "tag"}, nil),
		hour: prometheus.NewDesc(namespace+"_simulated_hour",
			"Simulated hour of day.", nil, nil),
		served: prometheus.NewDesc(namespace+"_vehicles_served_total",
			"Vehicles that paid and left.", nil, nil),
		waiting: prometheus.NewDesc(namespace+"_vehicles_waiting",
			"Vehicles in the dispatch queue.", nil, nil),
		trips: prometheus.NewDesc(namespace+"_tanker_trips_total",
			"Completed replenishments.", nil, nil),
		tanker: prometheus.NewDesc(namespace+"_tanker_state",
			"1 for the current tanker state.", []string{"state"}, nil),
		liters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispensed_liters_total",
			Help:      "Fuel sold.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_duration_seconds",
			Help:      "Time from arrival to payment.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"kind"}),
		dropped: prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events lost to slow observers.",
		}, func() float64 { return float64(bus.Dropped()) }),
	}
	c.registry.MustRegister(c, c.liters, c.duration, c.dropped)
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.level
	ch <- c.busy
	ch <- c.hour
	ch <- c.served
	ch <- c.waiting
	ch <- c.trips
	ch <- c.tanker
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Snapshot()
	for kind, level := range s.Levels {
		ch <- prometheus.MustNewConstMetric(c.level, prometheus.GaugeValue, float64(level), string(kind))
	}
	for _, d := range s.Dispensers {
		busy := 0.0
		if d.Busy {
			busy = 1
		}
		ch <- prometheus.MustNewConstMetric(c.busy, prometheus.GaugeValue, busy, d.Name, string(d.Tag))
	}
	ch <- prometheus.MustNewConstMetric(c.hour, prometheus.GaugeValue, float64(s.Hour))
	ch <- prometheus.MustNewConstMetric(c.served, prometheus.CounterValue, float64(s.Served))
	ch <- prometheus.MustNewConstMetric(c.waiting, prometheus.GaugeValue, float64(s.Waiting))
	ch <- prometheus.MustNewConstMetric(c.trips, prometheus.CounterValue, float64(s.Trips))
	for _, state := range []string{station.TankerIdle, station.TankerEnRoute, station.TankerRefilling} {
		v := 0.0
		if s.Tanker == state {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.tanker, prometheus.GaugeValue, v, state)
	}
}

// Consume feeds service counters from sub until ctx is done or the
// subscription closes.
func (c *Collector) Consume(ctx context.Context, sub *events.Subscription) error {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if e, ok := ev.(events.ServiceCompleted); ok {
				kind := string(e.Kind)
				c.liters.WithLabelValues(kind).Add(float64(e.Dispensed))
				c.duration.WithLabelValues(kind).Observe(e.Total().Seconds())
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Registry returns the registry holding the station metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
