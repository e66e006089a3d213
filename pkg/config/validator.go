package config

import (
	"errors"
	"fmt"
	"strings"
)

const defaultJWTSecret = "change-me-in-production"

func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	if c.App.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("app.shutdown_timeout must be positive"))
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	if c.API.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("api.max_body_bytes must be positive"))
	}
	if c.API.DefaultLimit <= 0 || c.API.MaxLimit < c.API.DefaultLimit {
		errs = append(errs, errors.New("api.default_limit must be positive and <= api.max_limit"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}

	if c.Inference.PreprocessorPath == "" {
		errs = append(errs, errors.New("inference.preprocessor_path is required"))
	}
	if c.Inference.ModelPath == "" {
		errs = append(errs, errors.New("inference.model_path is required"))
	}
	if c.Inference.CacheSize < 0 {
		errs = append(errs, errors.New("inference.cache_size must not be negative"))
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
		if c.Recorder.MaxFailures <= 0 {
			errs = append(errs, errors.New("recorder.max_failures must be positive"))
		}
	}

	if c.Prometheus.Enabled && !strings.HasPrefix(c.Prometheus.Path, "/") {
		errs = append(errs, errors.New("prometheus.path must start with /"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
