package cli

import (
	"fmt"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/output"
	"github.com/ksyq12/sslops/internal/ssl"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Renew every certificate that is about to expire",
	Long: `Renew every domain with auto-renew enabled whose certificate expires
within the renew window (sweep.window, 30 days by default).

Each domain is attempted once; a failure does not stop the others. The
command exits non-zero when any renewal failed.

Examples:
  sslops sweep
  sslops sweep --json`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

// sweepFailure is the JSON form of ssl.SweepFailure
type sweepFailure struct {
	Domain string `json:"domain"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// sweepResult is the JSON form of ssl.SweepReport
type sweepResult struct {
	ID         string         `json:"id"`
	Candidates int            `json:"candidates"`
	Renewed    []string       `json:"renewed"`
	Failed     []sweepFailure `json:"failed"`
	Duration   string         `json:"duration"`
}

func newSweepResult(report *ssl.SweepReport) sweepResult {
	result := sweepResult{
		ID:         report.ID,
		Candidates: report.Candidates,
		Renewed:    append([]string{}, report.Renewed...),
		Failed:     []sweepFailure{},
		Duration:   report.Duration.String(),
	}
	for _, f := range report.Failed {
		result.Failed = append(result.Failed, sweepFailure{
			Domain: f.Domain,
			Code:   string(errors.CodeOf(f.Err)),
			Error:  f.Err.Error(),
		})
	}
	return result
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, mgr, err := newManager(cfg, nil)
	if err != nil {
		return err
	}

	progress("Sweeping certificates expiring within %s...", mgr.Config().RenewWindow)
	report, err := mgr.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	if jsonOutput {
		if err := output.JSON(newSweepResult(report)); err != nil {
			return err
		}
	} else {
		printSweepReport(report)
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d renewals failed", len(report.Failed), report.Candidates)
	}
	return nil
}

func printSweepReport(report *ssl.SweepReport) {
	if report.Candidates == 0 {
		output.Info("No certificates are due for renewal")
		return
	}

	rows := make([][]string, 0, report.Candidates)
	for _, name := range report.Renewed {
		rows = append(rows, []string{name, "renewed", ""})
	}
	for _, f := range report.Failed {
		rows = append(rows, []string{f.Domain, "failed", string(errors.CodeOf(f.Err))})
	}
	output.Table([]string{"DOMAIN", "RESULT", "ERROR"}, rows)

	if len(report.Failed) == 0 {
		output.Success("Renewed %d certificate(s)", len(report.Renewed))
		return
	}
	output.Warn("Renewed %d, failed %d", len(report.Renewed), len(report.Failed))
}
