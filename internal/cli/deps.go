package cli

import (
	"github.com/ksyq12/sslops/internal/config"
	"github.com/ksyq12/sslops/internal/executor"
	"github.com/ksyq12/sslops/internal/input"
	"github.com/ksyq12/sslops/internal/metrics"
	"github.com/ksyq12/sslops/internal/remote"
	"github.com/ksyq12/sslops/internal/ssl"
	"github.com/ksyq12/sslops/internal/store"
)

// Dependencies aggregates all CLI external dependencies for testability
type Dependencies struct {
	ConfigLoader   ConfigLoader
	StoreFactory   StoreFactory
	GatewayFactory GatewayFactory
	StdinReader    input.Reader
}

// ConfigLoader handles configuration loading and saving
type ConfigLoader interface {
	Load(path string) (*config.Config, error)
	Save(cfg *config.Config, path string) error
}

// StoreFactory opens the domain store
type StoreFactory interface {
	Open(cfg store.Config) (store.Store, error)
}

// GatewayFactory creates the remote gateway
type GatewayFactory interface {
	Create(cfg *config.Config, m *metrics.Metrics) ssl.Gateway
}

// Package-level dependencies (can be overridden for testing)
var deps = &Dependencies{
	ConfigLoader:   &realConfigLoader{},
	StoreFactory:   &realStoreFactory{},
	GatewayFactory: &realGatewayFactory{},
	StdinReader:    input.NewStdinReader(),
}

// SetDeps replaces the package dependencies (for testing)
func SetDeps(d *Dependencies) {
	deps = d
}

// GetDeps returns the current dependencies (for testing)
func GetDeps() *Dependencies {
	return deps
}

// Real implementations that delegate to existing functions

type realConfigLoader struct{}

func (r *realConfigLoader) Load(path string) (*config.Config, error) {
	return config.Load(path)
}

func (r *realConfigLoader) Save(cfg *config.Config, path string) error {
	return cfg.Save(path)
}

type realStoreFactory struct{}

func (r *realStoreFactory) Open(cfg store.Config) (store.Store, error) {
	return store.Open(cfg)
}

type realGatewayFactory struct{}

func (r *realGatewayFactory) Create(cfg *config.Config, m *metrics.Metrics) ssl.Gateway {
	exec := executor.NewSystemExecutor(cfg.SSH.MaxOutputBytes)
	return remote.NewGateway(exec, cfg.Remote(), remote.WithMetrics(m))
}
