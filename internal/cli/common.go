package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ksyq12/sslops/internal/config"
	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/metrics"
	"github.com/ksyq12/sslops/internal/model"
	"github.com/ksyq12/sslops/internal/output"
	"github.com/ksyq12/sslops/internal/ssl"
	"github.com/ksyq12/sslops/internal/store"
	"github.com/spf13/cobra"
)

// loadConfig loads the config named by --config
func loadConfig() (*config.Config, error) {
	cfg, err := deps.ConfigLoader.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newManager opens the store and wires a certificate manager to it.
// m may be nil.
func newManager(cfg *config.Config, m *metrics.Metrics) (store.Store, *ssl.Manager, error) {
	st, err := deps.StoreFactory.Open(cfg.StoreOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	gw := deps.GatewayFactory.Create(cfg, m)
	return st, ssl.New(cfg.SSL(), gw, st, ssl.WithMetrics(m)), nil
}

// loadDomain runs the common prelude of single-domain commands
func loadDomain(ctx context.Context, name string, adjust func(*config.Config)) (*model.Domain, *ssl.Manager, error) {
	if err := validateDomain(name); err != nil {
		return nil, nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}

	st, mgr, err := newManager(cfg, nil)
	if err != nil {
		return nil, nil, err
	}

	d, err := st.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return d, mgr, nil
}

// commandContext returns the command's context, or Background when run
// without one (tests call runX(nil, args) directly).
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// outputResult handles JSON or human-readable output
func outputResult(data interface{}, successMsg string, args ...interface{}) error {
	if jsonOutput {
		return output.JSON(data)
	}
	output.Success(successMsg, args...)
	return nil
}

// progress prints a step message unless output is JSON
func progress(format string, args ...interface{}) {
	if !jsonOutput {
		output.Info(format, args...)
	}
}

// operationFailed shows the remote output captured with err and wraps it
func operationFailed(msg string, err error) error {
	if out := errors.OutputOf(err); out != "" && !jsonOutput {
		output.Print("%s", strings.TrimRight(out, "\n"))
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// validateDomain checks if domain is valid
func validateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if strings.ContainsAny(domain, " \t\n") {
		return fmt.Errorf("domain cannot contain spaces")
	}
	if strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") {
		return fmt.Errorf("domain cannot start or end with hyphen")
	}
	return nil
}

// formatTime renders an optional timestamp for tables
func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}

// CommandResult represents a common result structure for CLI commands
type CommandResult struct {
	Success   bool       `json:"success"`
	Domain    string     `json:"domain"`
	Action    string     `json:"action,omitempty"`
	Message   string     `json:"message,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// newSuccessResult creates a success result
func newSuccessResult(domain, action string) CommandResult {
	return CommandResult{
		Success: true,
		Domain:  domain,
		Action:  action,
	}
}
