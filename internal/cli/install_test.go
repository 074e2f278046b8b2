package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksyq12/sslops/internal/errors"
)

func TestRunInstall(t *testing.T) {
	t.Run("already installed", func(t *testing.T) {
		h, buf := setup(t)
		h.RespondTo("command -v certbot", "installed\n")

		require.NoError(t, runInstall(nil, []string{TestDomain}))

		require.Equal(t, 1, h.Gateway.CallCount())
		assert.False(t, h.Gateway.Calls[0].Options.Elevated, "check runs without sudo")
		assert.Contains(t, buf.String(), "certbot is already installed")
	})

	t.Run("installs", func(t *testing.T) {
		h, buf := setup(t)
		h.GetConfig().ACME.Plugin = "apache"
		h.RespondTo("command -v certbot", "not_installed\n")

		require.NoError(t, runInstall(nil, []string{TestDomain}))

		cmds := h.Gateway.Commands()
		require.Len(t, cmds, 2)
		assert.Contains(t, cmds[1], "certbot python3-certbot-apache")
		assert.True(t, h.Gateway.Calls[1].Options.Elevated)
		assert.Contains(t, buf.String(), "certbot installed on the server of example.com")
	})

	t.Run("domain without server", func(t *testing.T) {
		h, _ := setup(t)

		err := runInstall(nil, []string{TestOrphanDomain})
		assert.Equal(t, errors.ErrCodeNoServer, errors.CodeOf(err))
		assert.Zero(t, h.Gateway.CallCount())
	})
}

func TestRunAutoRenew(t *testing.T) {
	t.Run("timer already active", func(t *testing.T) {
		h, buf := setup(t)
		h.RespondTo("certbot.timer", "timer\n")

		require.NoError(t, runAutoRenew(nil, []string{TestDomain}))

		assert.Equal(t, 1, h.Gateway.CallCount())
		assert.Contains(t, buf.String(), "already configured")
	})

	t.Run("adds cron entry", func(t *testing.T) {
		h, buf := setup(t)
		h.RespondTo("certbot.timer", "not_configured\n")

		require.NoError(t, runAutoRenew(nil, []string{TestDomain}))

		cmds := h.Gateway.Commands()
		require.Len(t, cmds, 2)
		assert.Contains(t, cmds[1], "crontab -")
		assert.Contains(t, cmds[1], "certbot renew --quiet")
		assert.Contains(t, buf.String(), "Daily renewal scheduled")
	})
}

func TestRunInit(t *testing.T) {
	t.Run("writes config", func(t *testing.T) {
		h, buf := setup(t)
		cfgFile = filepath.Join(t.TempDir(), "config.yaml")
		initEmail = "admin@example.com"

		require.NoError(t, runInit(nil, nil))

		assert.Equal(t, []string{cfgFile}, h.MockConfig.SavePaths)
		assert.Equal(t, "admin@example.com", h.GetConfig().ACME.Email)
		assert.Contains(t, buf.String(), "Config written to")
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		h, _ := setup(t)
		cfgFile = filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(cfgFile, []byte("acme: {}\n"), 0o644))

		err := runInit(nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
		assert.Empty(t, h.MockConfig.SavePaths)

		initForce = true
		require.NoError(t, runInit(nil, nil))
		assert.Len(t, h.MockConfig.SavePaths, 1)
	})

	t.Run("invalid email", func(t *testing.T) {
		h, _ := setup(t)
		cfgFile = filepath.Join(t.TempDir(), "config.yaml")
		initEmail = "not-an-email"

		err := runInit(nil, nil)
		assert.Equal(t, errors.ErrCodeConfig, errors.CodeOf(err))
		assert.Empty(t, h.MockConfig.SavePaths)
	})
}
