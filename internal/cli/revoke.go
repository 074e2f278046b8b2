package cli

import (
	"github.com/ksyq12/sslops/internal/input"
	"github.com/ksyq12/sslops/internal/output"
	"github.com/spf13/cobra"
)

var (
	forceRevoke bool
)

var revokeCmd = &cobra.Command{
	Use:   "revoke <domain>",
	Short: "Revoke the certificate of a domain",
	Long: `Revoke the certificate of a domain and clear its recorded SSL state.

Examples:
  sslops revoke example.com
  sslops revoke example.com --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRevoke,
}

func init() {
	revokeCmd.Flags().BoolVarP(&forceRevoke, "force", "f", false, "Revoke without confirmation")

	rootCmd.AddCommand(revokeCmd)
}

func runRevoke(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	domain := args[0]

	d, mgr, err := loadDomain(ctx, domain, nil)
	if err != nil {
		return err
	}

	// Confirm revocation if not forced
	if !forceRevoke {
		output.Prompt("Revoke the certificate of '%s'? This cannot be undone. [y/N]: ", domain)
		if !input.Confirm(deps.StdinReader) {
			output.Info("Revocation cancelled")
			return nil
		}
	}

	progress("Revoking certificate for %s...", domain)
	if err := mgr.Revoke(ctx, d); err != nil {
		return operationFailed("failed to revoke certificate", err)
	}

	return outputResult(newSuccessResult(domain, "revoked"), "Certificate revoked for %s", domain)
}
