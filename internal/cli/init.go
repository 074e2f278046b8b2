package cli

import (
	"fmt"
	"os"

	"github.com/ksyq12/sslops/internal/config"
	"github.com/spf13/cobra"
)

var (
	initEmail string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a config file with the default settings.

Examples:
  sslops init --email ops@example.com
  sslops init --config /etc/sslops/config.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initEmail, "email", "e", "", "ACME account email")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	cfg := config.New()
	cfg.ACME.Email = initEmail
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := deps.ConfigLoader.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return outputResult(
		map[string]interface{}{
			"success": true,
			"path":    path,
		},
		"Config written to %s", path,
	)
}
