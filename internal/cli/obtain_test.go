package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/remote"
	"github.com/ksyq12/sslops/internal/ssl"
)

func TestRunObtain(t *testing.T) {
	t.Run("obtains and records certificate", func(t *testing.T) {
		h, buf := setup(t)

		err := runObtain(nil, []string{TestDomain})
		require.NoError(t, err)

		require.Equal(t, 1, h.Gateway.CallCount())
		call := h.Gateway.Calls[0]
		assert.Equal(t, "certbot certonly --nginx -d example.com --non-interactive --agree-tos --email ops@example.com", call.Command)
		assert.True(t, call.Options.Elevated)
		assert.Equal(t, TestServerAddress, call.Target.Address)
		assert.Equal(t, "deploy", call.Target.User)

		d := h.Domain(TestDomain)
		assert.True(t, d.SSLEnabled)
		require.NotNil(t, d.SSLIssuedAt)
		require.NotNil(t, d.SSLExpiresAt)
		assert.Equal(t, ssl.CertValidity, d.SSLExpiresAt.Sub(*d.SSLIssuedAt))
		assert.Equal(t, "active", d.Status)

		assert.Contains(t, buf.String(), "Certificate obtained for example.com")
		assert.Contains(t, buf.String(), "/etc/letsencrypt/live/example.com/fullchain.pem")
	})

	t.Run("flags override config", func(t *testing.T) {
		h, _ := setup(t)
		obtainEmail = "certs@example.org"
		obtainStaging = true

		require.NoError(t, runObtain(nil, []string{TestDomain}))

		cmd := h.Gateway.Commands()[0]
		assert.Contains(t, cmd, "--email certs@example.org")
		assert.Contains(t, cmd, "--staging")
		assert.Equal(t, TestEmail, h.GetConfig().ACME.Email, "stored config is not modified")
	})

	t.Run("install when missing", func(t *testing.T) {
		h, buf := setup(t)
		obtainInstall = true
		h.RespondTo("command -v certbot", "not_installed\n")

		require.NoError(t, runObtain(nil, []string{TestDomain}))

		cmds := h.Gateway.Commands()
		require.Len(t, cmds, 3)
		assert.Contains(t, cmds[0], "command -v certbot")
		assert.Contains(t, cmds[1], "apt-get install -y certbot python3-certbot-nginx")
		assert.Contains(t, cmds[2], "certbot certonly")
		assert.Contains(t, buf.String(), "certbot installed")
	})

	t.Run("install skipped when present", func(t *testing.T) {
		h, _ := setup(t)
		obtainInstall = true
		h.RespondTo("command -v certbot", "installed\n")

		require.NoError(t, runObtain(nil, []string{TestDomain}))
		assert.Equal(t, 2, h.Gateway.CallCount())
	})

	t.Run("json output", func(t *testing.T) {
		_, buf := setup(t)
		jsonOutput = true

		require.NoError(t, runObtain(nil, []string{TestDomain}))

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &result), buf.String())
		assert.Equal(t, true, result["success"])
		assert.Equal(t, "/etc/letsencrypt/live/example.com/fullchain.pem", result["cert_path"])
		assert.Equal(t, "/etc/letsencrypt/live/example.com/privkey.pem", result["key_path"])
		assert.Equal(t, false, result["staging"])
		assert.NotEmpty(t, result["expires_at"])
	})

	t.Run("remote failure leaves state unchanged", func(t *testing.T) {
		h, buf := setup(t)
		h.Gateway.ExecuteFunc = func(target remote.HostTarget, command string, opts remote.Options) (*remote.Result, error) {
			res := &remote.Result{ExitCode: 1, Stderr: "Challenge failed for domain example.com"}
			return res, errors.Remote(errors.ErrCodeRemoteCommand, "remote command failed", res.Stderr, nil)
		}

		err := runObtain(nil, []string{TestDomain})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeRemoteCommand, errors.CodeOf(err))
		assert.Contains(t, buf.String(), "Challenge failed")

		d := h.Domain(TestDomain)
		assert.False(t, d.SSLEnabled)
		assert.Nil(t, d.SSLExpiresAt)
		assert.Equal(t, "pending", d.Status)
	})

	t.Run("domain without server", func(t *testing.T) {
		h, _ := setup(t)

		err := runObtain(nil, []string{TestOrphanDomain})
		assert.True(t, errors.Is(err, errors.ErrNoServerAssociated))
		assert.Zero(t, h.Gateway.CallCount())
	})

	t.Run("unknown domain", func(t *testing.T) {
		h, _ := setup(t)

		err := runObtain(nil, []string{"missing.example.com"})
		assert.True(t, errors.Is(err, errors.ErrDomainNotFound))
		assert.Zero(t, h.Gateway.CallCount())
	})

	t.Run("invalid domain", func(t *testing.T) {
		h, _ := setup(t)

		err := runObtain(nil, []string{"-example.com"})
		require.Error(t, err)
		assert.Zero(t, h.Gateway.CallCount())
	})

	t.Run("email required", func(t *testing.T) {
		h, _ := setup(t)
		h.GetConfig().ACME.Email = ""

		err := runObtain(nil, []string{TestDomain})
		assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
		assert.Zero(t, h.Gateway.CallCount())
	})
}
