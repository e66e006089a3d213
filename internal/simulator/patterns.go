package simulator

import (
	"math"
	"math/rand"
	"time"
)

// Pattern shapes the request rate over the run.
type Pattern interface {
	Apply(baseRate float64, elapsed time.Duration) float64
	Name() string
}

func ParsePattern(name string) Pattern {
	switch name {
	case "random":
		return &RandomPattern{}
	case "gradual_rise":
		return &GradualRisePattern{}
	case "sine_wave":
		return &SineWavePattern{}
	case "burst":
		return &BurstPattern{}
	default:
		return &SteadyPattern{}
	}
}

// SteadyPattern - constant rate
type SteadyPattern struct{}

func (p *SteadyPattern) Apply(baseRate float64, _ time.Duration) float64 {
	return baseRate
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// RandomPattern - between half and one and a half times the base rate
type RandomPattern struct{}

func (p *RandomPattern) Apply(baseRate float64, _ time.Duration) float64 {
	return baseRate * (0.5 + rand.Float64())
}

func (p *RandomPattern) Name() string {
	return "random"
}

// GradualRisePattern - 10% more per minute, capped at triple
type GradualRisePattern struct{}

func (p *GradualRisePattern) Apply(baseRate float64, elapsed time.Duration) float64 {
	increase := math.Min(elapsed.Minutes()*0.1, 2)
	return baseRate * (1 + increase)
}

func (p *GradualRisePattern) Name() string {
	return "gradual_rise"
}

// SineWavePattern - smooth oscillation around the base rate
type SineWavePattern struct {
	Period    time.Duration
	Amplitude float64
}

func (p *SineWavePattern) Apply(baseRate float64, elapsed time.Duration) float64 {
	period := p.Period
	if period == 0 {
		period = 2 * time.Minute
	}
	amplitude := p.Amplitude
	if amplitude == 0 {
		amplitude = 0.5
	}

	phase := float64(elapsed) / float64(period) * 2 * math.Pi
	return math.Max(0, baseRate*(1+amplitude*math.Sin(phase)))
}

func (p *SineWavePattern) Name() string {
	return "sine_wave"
}

// BurstPattern - five times the base rate for the first 10s of every minute
type BurstPattern struct{}

func (p *BurstPattern) Apply(baseRate float64, elapsed time.Duration) float64 {
	if elapsed%time.Minute < 10*time.Second {
		return baseRate * 5
	}
	return baseRate
}

func (p *BurstPattern) Name() string {
	return "burst"
}
