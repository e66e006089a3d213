package client

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/OldStager01/crop-yield-predictor/internal/logger"
	"github.com/OldStager01/crop-yield-predictor/internal/resilience"
	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

// ResilientClient retries transport failures with exponential backoff behind
// a circuit breaker. Validation errors are returned at once.
type ResilientClient struct {
	client         *Client
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
}

type ResilientConfig struct {
	Client        *Client
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilient(cfg ResilientConfig) *ResilientClient {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "prediction-api",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientClient{
		client:         cfg.Client,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

func (c *ResilientClient) Predict(ctx context.Context, raw models.RawInput) (*PredictResponse, error) {
	var out *PredictResponse
	var verr *ValidationError

	err := c.circuitBreaker.Execute(func() error {
		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = c.retryDelay
		bo := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retryAttempts-1)), ctx)

		return backoff.RetryNotify(func() error {
			resp, err := c.client.Predict(ctx, raw)
			if errors.As(err, &verr) {
				// rejected input does not count against the breaker
				return nil
			}
			if err != nil {
				return err
			}
			out = resp
			return nil
		}, bo, func(err error, wait time.Duration) {
			logger.Warnf("Prediction request failed, retrying in %v: %v", wait, err)
		})
	})
	if err != nil {
		return nil, err
	}
	if verr != nil {
		return nil, verr
	}

	return out, nil
}

func (c *ResilientClient) Options(ctx context.Context) (*Options, error) {
	return c.client.Options(ctx)
}

func (c *ResilientClient) HealthCheck(ctx context.Context) error {
	return c.client.HealthCheck(ctx)
}

func (c *ResilientClient) Close() error {
	return c.client.Close()
}

func (c *ResilientClient) CircuitState() resilience.State {
	return c.circuitBreaker.State()
}
