package cli

import (
	"github.com/spf13/cobra"
)

var autorenewCmd = &cobra.Command{
	Use:   "autorenew <domain>",
	Short: "Schedule certbot renewals on a domain's server",
	Long: `Make sure certbot renews certificates on its own on the server that
hosts a domain. An active certbot.timer or an existing "certbot renew" cron
entry is left alone; otherwise a daily cron entry is added to root's crontab.

Examples:
  sslops autorenew example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runAutoRenew,
}

func init() {
	rootCmd.AddCommand(autorenewCmd)
}

func runAutoRenew(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	domain := args[0]

	d, mgr, err := loadDomain(ctx, domain, nil)
	if err != nil {
		return err
	}

	progress("Checking scheduled renewals on the server of %s...", domain)
	existing, err := mgr.SetupAutoRenewal(ctx, d)
	if err != nil {
		return operationFailed("failed to set up automatic renewal", err)
	}

	if existing {
		result := newSuccessResult(domain, "none")
		result.Message = "automatic renewal already configured"
		return outputResult(result, "Automatic renewal is already configured")
	}
	result := newSuccessResult(domain, "configured")
	result.Message = "daily renewal cron entry added"
	return outputResult(result, "Daily renewal scheduled on the server of %s", domain)
}
