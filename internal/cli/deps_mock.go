package cli

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ksyq12/sslops/internal/config"
	"github.com/ksyq12/sslops/internal/input"
	"github.com/ksyq12/sslops/internal/metrics"
	"github.com/ksyq12/sslops/internal/model"
	"github.com/ksyq12/sslops/internal/remote"
	"github.com/ksyq12/sslops/internal/ssl"
	"github.com/ksyq12/sslops/internal/store"
)

// MockConfigLoader is a test double for ConfigLoader
type MockConfigLoader struct {
	Cfg       *config.Config
	LoadErr   error
	SaveErr   error
	LoadPaths []string
	SavePaths []string
}

func (m *MockConfigLoader) Load(path string) (*config.Config, error) {
	m.LoadPaths = append(m.LoadPaths, path)
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Cfg == nil {
		m.Cfg = config.New()
	}
	// Commands may adjust the loaded config; hand out a copy.
	cfg := *m.Cfg
	return &cfg, nil
}

func (m *MockConfigLoader) Save(cfg *config.Config, path string) error {
	m.SavePaths = append(m.SavePaths, path)
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Cfg = cfg
	return nil
}

// MockStoreFactory is a test double for StoreFactory
type MockStoreFactory struct {
	Store   store.Store
	Err     error
	Configs []store.Config
}

func (m *MockStoreFactory) Open(cfg store.Config) (store.Store, error) {
	m.Configs = append(m.Configs, cfg)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Store, nil
}

// MockGatewayCall records one Execute call
type MockGatewayCall struct {
	Target  remote.HostTarget
	Command string
	Options remote.Options
}

// MockGateway is a test double for ssl.Gateway. Without ExecuteFunc every
// command succeeds with empty output.
type MockGateway struct {
	mu          sync.Mutex
	ExecuteFunc func(target remote.HostTarget, command string, opts remote.Options) (*remote.Result, error)
	Calls       []MockGatewayCall
}

func (m *MockGateway) Execute(ctx context.Context, target remote.HostTarget, command string, opts remote.Options) (*remote.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockGatewayCall{Target: target, Command: command, Options: opts})
	fn := m.ExecuteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(target, command, opts)
	}
	return &remote.Result{Succeeded: true}, nil
}

// CallCount returns the number of Execute calls
func (m *MockGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Commands returns the commands passed to Execute, in order
func (m *MockGateway) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmds := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		cmds[i] = c.Command
	}
	return cmds
}

// MockGatewayFactory is a test double for GatewayFactory
type MockGatewayFactory struct {
	Gateway ssl.Gateway
	Metrics []*metrics.Metrics
}

func (m *MockGatewayFactory) Create(cfg *config.Config, mt *metrics.Metrics) ssl.Gateway {
	m.Metrics = append(m.Metrics, mt)
	return m.Gateway
}

// MockDependenciesBuilder helps create mock dependencies for tests
type MockDependenciesBuilder struct {
	deps *Dependencies
}

// NewMockDeps creates a new MockDependenciesBuilder with sensible defaults
func NewMockDeps() *MockDependenciesBuilder {
	return &MockDependenciesBuilder{
		deps: &Dependencies{
			ConfigLoader:   &MockConfigLoader{Cfg: config.New()},
			StoreFactory:   &MockStoreFactory{},
			GatewayFactory: &MockGatewayFactory{Gateway: &MockGateway{}},
			StdinReader:    input.NewStringReader("y\n"),
		},
	}
}

// WithConfig sets the config for the mock
func (b *MockDependenciesBuilder) WithConfig(cfg *config.Config) *MockDependenciesBuilder {
	b.deps.ConfigLoader = &MockConfigLoader{Cfg: cfg}
	return b
}

// WithConfigLoader sets a custom config loader
func (b *MockDependenciesBuilder) WithConfigLoader(loader ConfigLoader) *MockDependenciesBuilder {
	b.deps.ConfigLoader = loader
	return b
}

// WithStore sets the store returned by the store factory
func (b *MockDependenciesBuilder) WithStore(st store.Store) *MockDependenciesBuilder {
	b.deps.StoreFactory = &MockStoreFactory{Store: st}
	return b
}

// WithStoreFactory sets a custom store factory
func (b *MockDependenciesBuilder) WithStoreFactory(factory StoreFactory) *MockDependenciesBuilder {
	b.deps.StoreFactory = factory
	return b
}

// WithGateway sets the gateway returned by the gateway factory
func (b *MockDependenciesBuilder) WithGateway(gw ssl.Gateway) *MockDependenciesBuilder {
	b.deps.GatewayFactory = &MockGatewayFactory{Gateway: gw}
	return b
}

// WithStdinInput sets the stdin input for the mock
func (b *MockDependenciesBuilder) WithStdinInput(inputs ...string) *MockDependenciesBuilder {
	b.deps.StdinReader = input.NewStringReader(inputs...)
	return b
}

// Build returns the configured Dependencies
func (b *MockDependenciesBuilder) Build() *Dependencies {
	return b.deps
}

// TestHelper provides utilities for CLI tests
type TestHelper struct {
	T interface {
		Helper()
		Cleanup(func())
		TempDir() string
		Fatalf(format string, args ...interface{})
	}
	OldDeps    *Dependencies
	Store      *store.FileStore
	Gateway    *MockGateway
	MockConfig *MockConfigLoader
}

// Names seeded by NewTestHelper.
const (
	TestServer        = "web1"
	TestProject       = "shop"
	TestDomain        = "example.com"
	TestOrphanDomain  = "orphan.example.com"
	TestEmail         = "ops@example.com"
	TestServerAddress = "203.0.113.10"
)

// NewTestHelper installs mock dependencies backed by a FileStore in a temp
// dir. The store holds TestDomain on TestServer and TestOrphanDomain, which
// belongs to no project.
func NewTestHelper(t interface {
	Helper()
	Cleanup(func())
	TempDir() string
	Fatalf(format string, args ...interface{})
}) *TestHelper {
	t.Helper()

	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "domains.yaml"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	seed := []func() error{
		func() error {
			return st.AddServer(&model.Server{Name: TestServer, Address: TestServerAddress, Port: 22, Username: "deploy"})
		},
		func() error { return st.AddProject(TestProject, TestServer) },
		func() error { return st.AddDomain(TestDomain, TestProject) },
		func() error { return st.AddDomain(TestOrphanDomain, "") },
	}
	for _, fn := range seed {
		if err := fn(); err != nil {
			t.Fatalf("failed to seed store: %v", err)
		}
	}

	cfg := config.New()
	cfg.ACME.Email = TestEmail

	helper := &TestHelper{
		T:          t,
		OldDeps:    deps,
		Store:      st,
		Gateway:    &MockGateway{},
		MockConfig: &MockConfigLoader{Cfg: cfg},
	}

	deps = NewMockDeps().
		WithConfigLoader(helper.MockConfig).
		WithStore(st).
		WithGateway(helper.Gateway).
		Build()

	// Cleanup function to restore original deps
	t.Cleanup(func() {
		deps = helper.OldDeps
	})

	return helper
}

// SetStdinInput sets the stdin input
func (h *TestHelper) SetStdinInput(inputs ...string) {
	deps.StdinReader = input.NewStringReader(inputs...)
}

// GetConfig returns the current mock config
func (h *TestHelper) GetConfig() *config.Config {
	return h.MockConfig.Cfg
}

// Domain reads a domain back from the store
func (h *TestHelper) Domain(name string) *model.Domain {
	h.T.Helper()
	d, err := h.Store.Get(context.Background(), name)
	if err != nil {
		h.T.Fatalf("failed to get %s: %v", name, err)
	}
	return d
}

// SetSSL records state for a domain directly in the store
func (h *TestHelper) SetSSL(name string, state model.SSLState) {
	h.T.Helper()
	if err := h.Store.SaveSSL(context.Background(), h.Domain(name), state); err != nil {
		h.T.Fatalf("failed to save ssl state of %s: %v", name, err)
	}
}

// RespondTo makes the gateway answer commands containing substr with stdout.
// Other commands succeed with empty output.
func (h *TestHelper) RespondTo(substr, stdout string) {
	prev := h.Gateway.ExecuteFunc
	h.Gateway.ExecuteFunc = func(target remote.HostTarget, command string, opts remote.Options) (*remote.Result, error) {
		if strings.Contains(command, substr) {
			return &remote.Result{Succeeded: true, Stdout: stdout}, nil
		}
		if prev != nil {
			return prev(target, command, opts)
		}
		return &remote.Result{Succeeded: true}, nil
	}
}
