// Package simulator drives synthetic prediction traffic against the JSON API.
package simulator

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OldStager01/crop-yield-predictor/internal/logger"
	"github.com/OldStager01/crop-yield-predictor/pkg/client"
	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

// Predictor is the API surface the simulator calls.
type Predictor interface {
	Predict(ctx context.Context, raw models.RawInput) (*client.PredictResponse, error)
}

type Config struct {
	BaseRate       float64 // requests per second
	Pattern        Pattern
	MaxConcurrency int
	Tick           time.Duration
	ReportEvery    time.Duration
}

type Stats struct {
	Sent      int64 `json:"sent"`
	Succeeded int64 `json:"succeeded"`
	Rejected  int64 `json:"rejected"`
	Failed    int64 `json:"failed"`
}

type Simulator struct {
	config    Config
	predictor Predictor
	generator *Generator
	genMu     sync.Mutex
	sem       chan struct{}

	sent      atomic.Int64
	succeeded atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
}

func New(cfg Config, predictor Predictor, generator *Generator) *Simulator {
	if cfg.Pattern == nil {
		cfg.Pattern = &SteadyPattern{}
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 16
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.ReportEvery <= 0 {
		cfg.ReportEvery = 10 * time.Second
	}

	return &Simulator{
		config:    cfg,
		predictor: predictor,
		generator: generator,
		sem:       make(chan struct{}, cfg.MaxConcurrency),
	}
}

// Run sends traffic until ctx is done, then waits for in-flight requests.
func (s *Simulator) Run(ctx context.Context) Stats {
	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()
	report := time.NewTicker(s.config.ReportEvery)
	defer report.Stop()

	var wg sync.WaitGroup
	start := time.Now()
	carry := 0.0

	logger.Infof("Simulating %s traffic at %.1f req/s", s.config.Pattern.Name(), s.config.BaseRate)

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			stats := s.Stats()
			logger.Infof("Simulation finished: sent=%d ok=%d rejected=%d failed=%d",
				stats.Sent, stats.Succeeded, stats.Rejected, stats.Failed)
			return stats

		case <-report.C:
			stats := s.Stats()
			logger.Infof("Simulation progress: sent=%d ok=%d rejected=%d failed=%d",
				stats.Sent, stats.Succeeded, stats.Rejected, stats.Failed)

		case <-ticker.C:
			rate := s.config.Pattern.Apply(s.config.BaseRate, time.Since(start))
			want := rate*s.config.Tick.Seconds() + carry
			n := int(math.Floor(want))
			carry = want - float64(n)

			for i := 0; i < n && ctx.Err() == nil; i++ {
				select {
				case s.sem <- struct{}{}:
				case <-ctx.Done():
					continue
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer func() { <-s.sem }()
					s.send(ctx)
				}()
			}
		}
	}
}

func (s *Simulator) next() models.RawInput {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generator.Next()
}

func (s *Simulator) send(ctx context.Context) {
	s.sent.Add(1)

	_, err := s.predictor.Predict(ctx, s.next())
	var verr *client.ValidationError
	switch {
	case err == nil:
		s.succeeded.Add(1)
	case errors.As(err, &verr):
		s.rejected.Add(1)
	default:
		s.failed.Add(1)
		logger.Debugf("Simulated request failed: %v", err)
	}
}

func (s *Simulator) Stats() Stats {
	return Stats{
		Sent:      s.sent.Load(),
		Succeeded: s.succeeded.Load(),
		Rejected:  s.rejected.Load(),
		Failed:    s.failed.Load(),
	}
}
