package config

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithStoreURL selects the store backend
func WithStoreURL(raw string) Option {
	return func(c *ServerConfig) error {
		if _, err := ParseStoreURL(raw); err != nil {
			return err
		}
		c.StoreURL = raw
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithJWTSecret sets the HS256 secret for bearer tokens
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithEventTarget enables CloudEvents delivery to target
func WithEventTarget(target, source string) Option {
	return func(c *ServerConfig) error {
		c.EventTargetURL = target
		if source != "" {
			c.EventSource = source
		}
		return nil
	}
}

// WithEventLogging toggles the logging event sink
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithLogger sets the logger handed to the service and event sinks
func WithLogger(logger *slog.Logger) Option {
	return func(c *ServerConfig) error {
		c.Logger = logger
		return nil
	}
}

// WithMetricsRegisterer enables ledger metrics on reg
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(c *ServerConfig) error {
		c.MetricsRegisterer = reg
		return nil
	}
}
