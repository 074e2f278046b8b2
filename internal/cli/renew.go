package cli

import (
	"github.com/spf13/cobra"
)

var renewCmd = &cobra.Command{
	Use:   "renew <domain>",
	Short: "Renew the certificate of a domain",
	Long: `Renew the certificate of a single domain now.

Use sweep to renew every certificate that is about to expire.

Examples:
  sslops renew example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runRenew,
}

func init() {
	rootCmd.AddCommand(renewCmd)
}

func runRenew(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	domain := args[0]

	d, mgr, err := loadDomain(ctx, domain, nil)
	if err != nil {
		return err
	}

	progress("Renewing certificate for %s...", domain)
	if err := mgr.Renew(ctx, d); err != nil {
		return operationFailed("failed to renew certificate", err)
	}

	result := newSuccessResult(domain, "renewed")
	result.ExpiresAt = d.SSLExpiresAt
	return outputResult(result, "Certificate renewed for %s (expires %s)", domain, formatTime(d.SSLExpiresAt))
}
