package cli

import (
	"github.com/ksyq12/sslops/internal/output"
	"github.com/spf13/cobra"
)

var certsCmd = &cobra.Command{
	Use:   "certs <domain>",
	Short: "List certificates on a domain's server",
	Long: `List the certificates certbot manages on the server that hosts a domain.

Examples:
  sslops certs example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runCerts,
}

func init() {
	rootCmd.AddCommand(certsCmd)
}

func runCerts(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	domain := args[0]

	d, mgr, err := loadDomain(ctx, domain, nil)
	if err != nil {
		return err
	}

	names, err := mgr.ListCertificates(ctx, d)
	if err != nil {
		return operationFailed("failed to list certificates", err)
	}

	server := d.ResolveServer().Name
	if jsonOutput {
		if names == nil {
			names = []string{}
		}
		return output.JSON(map[string]interface{}{
			"server":       server,
			"certificates": names,
		})
	}

	if len(names) == 0 {
		output.Info("No certificates on %s", server)
		return nil
	}
	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name}
	}
	output.Table([]string{"CERTIFICATE"}, rows)
	return nil
}
