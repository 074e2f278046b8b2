package cli

import (
	"os"

	"github.com/ksyq12/sslops/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	jsonOutput bool
	verbose    bool
	version    = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sslops",
	Short: "TLS certificate lifecycle over SSH",
	Long: `sslops manages Let's Encrypt certificates on remote web servers.

It runs certbot on each domain's server over SSH to obtain, renew and revoke
certificates, records the certificate state, and renews expiring certificates
in periodic sweeps.

Host keys are not verified: every ssh call uses StrictHostKeyChecking=no, so
only point sslops at servers you trust on the network path.`,
}

// Execute runs the root command
func Execute() {
	// Initialize logger based on verbose flag (parsed by cobra)
	cobra.OnInitialize(func() {
		logger.Init(verbose)
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default ~/.config/sslops/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging for debugging")
}
