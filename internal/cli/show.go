package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/ksyq12/sslops/internal/output"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <domain>",
	Short: "Show the deployed certificate of a domain",
	Long: `Read the certificate of a domain from its server and show the subject,
issuer, serial number and validity window.

Examples:
  sslops show example.com
  sslops show example.com --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	domain := args[0]

	d, mgr, err := loadDomain(ctx, domain, nil)
	if err != nil {
		return err
	}

	info, err := mgr.CertificateInfo(ctx, d)
	if err != nil {
		return operationFailed("failed to read certificate", err)
	}

	if jsonOutput {
		return output.JSON(info)
	}

	names := "-"
	if len(info.Names) > 0 {
		names = strings.Join(info.Names, ", ")
	}
	output.Table([]string{"FIELD", "VALUE"}, [][]string{
		{"Domain", info.Domain},
		{"Subject", info.Subject},
		{"Issuer", info.Issuer},
		{"Serial", info.Serial},
		{"Names", names},
		{"Not before", formatTime(&info.NotBefore)},
		{"Not after", formatTime(&info.NotAfter)},
		{"Days left", strconv.Itoa(info.DaysRemaining(time.Now()))},
	})
	return nil
}
