package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksyq12/sslops/internal/config"
	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/output"
)

func init() {
	// Disable color for tests
	color.NoColor = true
}

// setup installs a TestHelper and captures user-facing output.
func setup(t *testing.T) (*TestHelper, *bytes.Buffer) {
	t.Helper()
	h := NewTestHelper(t)

	var buf bytes.Buffer
	output.SetOutput(&buf)
	resetFlags()
	t.Cleanup(func() {
		output.SetOutput(nil)
		resetFlags()
	})
	return h, &buf
}

func resetFlags() {
	cfgFile = ""
	jsonOutput = false
	obtainEmail = ""
	obtainStaging = false
	obtainInstall = false
	forceRevoke = false
	statusRemote = false
	initEmail = ""
	initForce = false
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		wantErr bool
	}{
		{"valid simple domain", "example.com", false},
		{"valid subdomain", "www.example.com", false},
		{"valid deep subdomain", "api.v2.example.com", false},
		{"valid with hyphen", "my-site.example.com", false},
		{"valid with numbers", "api123.example.com", false},
		{"empty domain", "", true},
		{"domain with space", "example .com", true},
		{"domain with tab", "example\t.com", true},
		{"domain with newline", "example.com\nrm -rf /", true},
		{"starts with hyphen", "-example.com", true},
		{"ends with hyphen", "example.com-", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDomain(tt.domain)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDomain(%q) error = %v, wantErr %v", tt.domain, err, tt.wantErr)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", formatTime(nil))

	ts := time.Date(2026, 5, 30, 23, 30, 0, 0, time.FixedZone("KST", 9*3600))
	assert.Equal(t, "2026-05-30", formatTime(&ts))
}

func TestOutputResult(t *testing.T) {
	t.Run("human", func(t *testing.T) {
		_, buf := setup(t)

		require.NoError(t, outputResult(newSuccessResult("example.com", "renewed"), "Done for %s", "example.com"))
		assert.Equal(t, "✓ Done for example.com\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		_, buf := setup(t)
		jsonOutput = true

		require.NoError(t, outputResult(newSuccessResult("example.com", "renewed"), "Done"))
		assert.JSONEq(t, `{"success":true,"domain":"example.com","action":"renewed"}`, buf.String())
	})
}

func TestOperationFailed(t *testing.T) {
	t.Run("prints remote output", func(t *testing.T) {
		_, buf := setup(t)
		cause := errors.Remote(errors.ErrCodeRemoteCommand, "remote command failed", "Challenge failed for domain example.com\n", nil)

		err := operationFailed("failed to obtain certificate", cause)

		assert.Equal(t, errors.ErrCodeRemoteCommand, errors.CodeOf(err))
		assert.Contains(t, err.Error(), "failed to obtain certificate")
		assert.Equal(t, "Challenge failed for domain example.com\n", buf.String())
	})

	t.Run("quiet in json mode", func(t *testing.T) {
		_, buf := setup(t)
		jsonOutput = true
		cause := errors.Remote(errors.ErrCodeRemoteCommand, "remote command failed", "noise", nil)

		_ = operationFailed("failed", cause)
		assert.Empty(t, buf.String())
	})
}

func TestLoadConfig(t *testing.T) {
	h, _ := setup(t)
	cfgFile = "/etc/sslops/config.yaml"

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, TestEmail, cfg.ACME.Email)
	assert.Equal(t, []string{"/etc/sslops/config.yaml"}, h.MockConfig.LoadPaths)

	h.MockConfig.LoadErr = errors.Wrap(errors.ErrCodeConfig, "invalid configuration", nil)
	_, err = loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
	assert.Equal(t, errors.ErrCodeConfig, errors.CodeOf(err))
}

func TestNewManager(t *testing.T) {
	t.Run("passes store options", func(t *testing.T) {
		setup(t)
		factory := &MockStoreFactory{Store: deps.StoreFactory.(*MockStoreFactory).Store}
		deps.StoreFactory = factory

		cfg := config.New()
		cfg.Store.Path = "/var/lib/sslops/domains.yaml"
		_, mgr, err := newManager(cfg, nil)
		require.NoError(t, err)
		require.NotNil(t, mgr)

		require.Len(t, factory.Configs, 1)
		assert.Equal(t, "/var/lib/sslops/domains.yaml", factory.Configs[0].Path)
	})

	t.Run("store failure", func(t *testing.T) {
		setup(t)
		deps.StoreFactory = &MockStoreFactory{Err: fmt.Errorf("connection refused")}

		_, _, err := newManager(config.New(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open store")
	})
}

func TestCommandContext(t *testing.T) {
	assert.Equal(t, context.Background(), commandContext(nil))
}
