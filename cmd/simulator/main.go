package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OldStager01/crop-yield-predictor/internal/logger"
	"github.com/OldStager01/crop-yield-predictor/internal/resilience"
	"github.com/OldStager01/crop-yield-predictor/internal/simulator"
	"github.com/OldStager01/crop-yield-predictor/pkg/client"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	target := flag.String("target", "http://localhost:5000", "base URL of the prediction service")
	rate := flag.Float64("rate", 5, "base requests per second")
	pattern := flag.String("pattern", "steady", "traffic pattern: steady, random, gradual_rise, sine_wave, burst")
	invalidRatio := flag.Float64("invalid-ratio", 0.1, "share of requests carrying one invalid field")
	concurrency := flag.Int("concurrency", 16, "maximum in-flight requests")
	duration := flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "input generator seed")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Infof("Starting traffic simulator against %s", *target)

	api := client.NewResilient(client.ResilientConfig{
		Client:      client.New(client.Config{Endpoint: *target}),
		MaxFailures: 5,
		Timeout:     10 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warnf("Circuit %s: %s -> %s", name, from, to)
		},
	})
	defer api.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := api.HealthCheck(ctx); err != nil {
		return fmt.Errorf("service not healthy: %w", err)
	}

	opts, err := api.Options(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch options: %w", err)
	}

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	sim := simulator.New(simulator.Config{
		BaseRate:       *rate,
		Pattern:        simulator.ParsePattern(*pattern),
		MaxConcurrency: *concurrency,
	}, api, simulator.NewGenerator(*seed, opts.Areas, opts.Items, *invalidRatio))

	sim.Run(ctx)
	return nil
}
