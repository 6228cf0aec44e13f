package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"petrolstation/internal/config"
	"petrolstation/internal/console"
	"petrolstation/internal/events"
	"petrolstation/internal/logging"
	"petrolstation/internal/metrics"
	"petrolstation/internal/operator"
	"petrolstation/internal/report"
	"petrolstation/internal/station"
)

var (
	envFile = flag.String("env", "setup.env", "Station setup file (empty to use only the environment).")
	quiet   = flag.Bool("quiet", false, "Do not print station events.")
	noColor = flag.Bool("no-color", false, "Print events without colors.")
)

// main runs the station until interrupted and prints the final statistics
func main() {
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	bus := events.NewBus(cfg.EventBuffer)
	aggregator := report.NewAggregator()
	st, err := station.New(cfg, bus, logger, station.OnServiceCompleted(aggregator.Add))
	if err != nil {
		log.Fatalf("Error creating station: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Subscriptions are taken before the station starts
	collector := metrics.NewCollector(st, bus)
	metricsSub := bus.Subscribe()
	var consoleSub *events.Subscription
	if !*quiet {
		consoleSub = bus.Subscribe()
	}

	observers, observersCtx := errgroup.WithContext(context.Background())
	observers.Go(func() error { return collector.Consume(observersCtx, metricsSub) })
	if consoleSub != nil {
		observer := console.NewObserver(os.Stdout, !*noColor)
		observers.Go(func() error { return observer.Run(observersCtx, consoleSub) })
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return st.Run(gctx) })
	if cfg.HTTPAddr != "" {
		srv := operator.NewServer(st, bus, collector.Handler(), cfg.ManualRate, logger.Named("operator"))
		g.Go(func() error { return srv.ListenAndServe(gctx, cfg.HTTPAddr) })
	}
	runErr := g.Wait()

	// Closing the subscriptions lets the observers drain and return
	metricsSub.Close()
	if consoleSub != nil {
		consoleSub.Close()
	}
	if err := observers.Wait(); err != nil {
		logger.Warnw("observer failed", "err", err)
	}

	if dropped := bus.Dropped(); dropped > 0 {
		logger.Warnw("observers fell behind", "dropped_events", dropped)
	}
	if err := aggregator.Render(os.Stdout); err != nil {
		logger.Errorw("printing report", "err", err)
	}
	if runErr != nil {
		log.Fatalf("Station stopped: %v", runErr)
	}
}
