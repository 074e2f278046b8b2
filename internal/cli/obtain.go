package cli

import (
	"github.com/ksyq12/sslops/internal/config"
	"github.com/ksyq12/sslops/internal/output"
	"github.com/spf13/cobra"
)

var (
	obtainEmail   string
	obtainStaging bool
	obtainInstall bool
)

var obtainCmd = &cobra.Command{
	Use:   "obtain <domain>",
	Short: "Obtain a certificate for a domain",
	Long: `Obtain a Let's Encrypt certificate for a domain on its server.

The domain must belong to a project deployed on a server. certbot runs
there with the configured plugin and the certificate state is recorded.

Examples:
  sslops obtain example.com
  sslops obtain example.com --install --email ops@example.com
  sslops obtain example.com --staging`,
	Args: cobra.ExactArgs(1),
	RunE: runObtain,
}

func init() {
	obtainCmd.Flags().StringVarP(&obtainEmail, "email", "e", "", "ACME account email (overrides acme.email)")
	obtainCmd.Flags().BoolVar(&obtainStaging, "staging", false, "Use the Let's Encrypt staging environment")
	obtainCmd.Flags().BoolVar(&obtainInstall, "install", false, "Install certbot on the server first if it is missing")

	rootCmd.AddCommand(obtainCmd)
}

func runObtain(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	domain := args[0]

	d, mgr, err := loadDomain(ctx, domain, func(cfg *config.Config) {
		if obtainEmail != "" {
			cfg.ACME.Email = obtainEmail
		}
		if obtainStaging {
			cfg.ACME.Staging = true
		}
	})
	if err != nil {
		return err
	}

	if obtainInstall {
		progress("Checking certbot on the server...")
		installed, err := mgr.EnsureClient(ctx, d)
		if err != nil {
			return operationFailed("failed to install certbot", err)
		}
		if installed && !jsonOutput {
			output.Success("certbot installed")
		}
	}

	progress("Requesting certificate for %s...", domain)
	cert, err := mgr.Obtain(ctx, d)
	if err != nil {
		return operationFailed("failed to obtain certificate", err)
	}

	if jsonOutput {
		return output.JSON(map[string]interface{}{
			"success":    true,
			"domain":     domain,
			"cert_path":  cert.CertPath,
			"key_path":   cert.KeyPath,
			"staging":    mgr.Config().Staging,
			"expires_at": d.SSLExpiresAt,
		})
	}

	output.Success("Certificate obtained for %s", domain)
	output.Print("  Certificate: %s", cert.CertPath)
	output.Print("  Key:         %s", cert.KeyPath)
	output.Print("  Expires:     %s", formatTime(d.SSLExpiresAt))
	return nil
}
