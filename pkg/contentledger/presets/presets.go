// Package presets builds ready-to-use ledger services for common setups.
package presets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/tendant/content-ledger/pkg/contentledger"
	"github.com/tendant/content-ledger/pkg/contentledger/config"
	"github.com/tendant/content-ledger/pkg/contentledger/store/badger"
	"github.com/tendant/content-ledger/pkg/contentledger/store/memory"
)

// NewDevelopment creates a service for local development backed by a Badger
// store under ./dev-data, with event logging enabled.
//
// The returned cleanup func closes the service and removes the data
// directory.
//
// Example:
//
//	svc, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (contentledger.Service, func(), error) {
	cfg := &devConfig{
		dataDir: "./dev-data",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store, err := badger.Open(cfg.dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open development store: %w", err)
	}

	svc, err := contentledger.New(
		contentledger.WithStore(store),
		contentledger.WithLogger(cfg.logger),
		contentledger.WithEventSink(contentledger.NewLoggingEventSink(contentledger.NewSlogLogger(cfg.logger))),
	)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		svc.Close()
		os.RemoveAll(cfg.dataDir)
	}
	return svc, cleanup, nil
}

// NewTesting creates an isolated in-memory service for tests. The service is
// closed when the test completes.
//
//	func TestMyFeature(t *testing.T) {
//	    svc := presets.NewTesting(t)
//	    ...
//	}
func NewTesting(t testing.TB, opts ...TestingOption) contentledger.Service {
	t.Helper()

	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	options := []contentledger.Option{contentledger.WithStore(memory.New())}
	if cfg.sink != nil {
		options = append(options, contentledger.WithEventSink(cfg.sink))
	}

	svc, err := contentledger.New(options...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	return svc
}

// NewProduction creates a service from LEDGER_* environment variables.
// Production requires a persistent store and a JWT secret.
//
// Required Environment Variables:
//   - LEDGER_STORE_URL: postgres://, sqlite:// or s3:// location
//   - LEDGER_JWT_SECRET: HMAC secret for write endpoints
func NewProduction(ctx context.Context, opts ...config.Option) (contentledger.Service, *config.ServerConfig, error) {
	// The production environment is applied last so env and options cannot
	// relax it.
	all := append([]config.Option{config.WithEnv("LEDGER_")}, opts...)
	all = append(all, config.WithEnvironment("production"))
	cfg, err := config.Load(all...)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.StoreType() {
	case "memory", "badger":
		return nil, nil, fmt.Errorf("production preset requires a shared store, got %s", cfg.StoreType())
	}

	svc, err := cfg.BuildService(ctx)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

type devConfig struct {
	dataDir string
	logger  *slog.Logger
}

type testConfig struct {
	sink contentledger.EventSink
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevDataDir sets the development data directory
func WithDevDataDir(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.dataDir = dir
	}
}

// WithDevLogger sets the development logger
func WithDevLogger(logger *slog.Logger) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.logger = logger
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestEventSink routes service events to sink
func WithTestEventSink(sink contentledger.EventSink) TestingOption {
	return func(cfg *testConfig) {
		cfg.sink = sink
	}
}
