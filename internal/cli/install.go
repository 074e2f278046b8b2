package cli

import (
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <domain>",
	Short: "Install certbot on a domain's server",
	Long: `Install certbot and the configured web server plugin on the server
that hosts a domain. Nothing is changed when certbot is already present.

Examples:
  sslops install example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	domain := args[0]

	d, mgr, err := loadDomain(ctx, domain, nil)
	if err != nil {
		return err
	}

	progress("Checking certbot on the server of %s...", domain)
	installed, err := mgr.EnsureClient(ctx, d)
	if err != nil {
		return operationFailed("failed to install certbot", err)
	}

	if !installed {
		result := newSuccessResult(domain, "none")
		result.Message = "certbot already installed"
		return outputResult(result, "certbot is already installed")
	}
	result := newSuccessResult(domain, "installed")
	result.Message = "certbot installed"
	return outputResult(result, "certbot installed on the server of %s", domain)
}
