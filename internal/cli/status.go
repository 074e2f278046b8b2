package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/model"
	"github.com/ksyq12/sslops/internal/output"
	"github.com/ksyq12/sslops/internal/ssl"
	"github.com/spf13/cobra"
)

var (
	statusRemote bool
)

var statusCmd = &cobra.Command{
	Use:     "status [domain]",
	Aliases: []string{"ls", "list"},
	Short:   "Show certificate status",
	Long: `Show the recorded certificate state of one or all domains.

With --remote the expiry date is also read from the certificate on each
server.

Examples:
  sslops status
  sslops status example.com --remote`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusRemote, "remote", false, "Read the expiry date from each server")

	rootCmd.AddCommand(statusCmd)
}

// domainStatus is one row of status output
type domainStatus struct {
	Domain        string     `json:"domain"`
	Server        string     `json:"server,omitempty"`
	Status        string     `json:"status"`
	SSLEnabled    bool       `json:"ssl_enabled"`
	Provider      string     `json:"ssl_provider,omitempty"`
	IssuedAt      *time.Time `json:"ssl_issued_at,omitempty"`
	ExpiresAt     *time.Time `json:"ssl_expires_at,omitempty"`
	AutoRenew     bool       `json:"auto_renew_ssl"`
	RemoteExpires *time.Time `json:"remote_expires_at,omitempty"`
	RemoteError   string     `json:"remote_error,omitempty"`
}

func newDomainStatus(d *model.Domain) domainStatus {
	s := domainStatus{
		Domain:     d.Name,
		Status:     d.Status,
		SSLEnabled: d.SSLEnabled,
		IssuedAt:   d.SSLIssuedAt,
		ExpiresAt:  d.SSLExpiresAt,
		AutoRenew:  d.AutoRenewSSL,
	}
	if d.SSLProvider != nil {
		s.Provider = *d.SSLProvider
	}
	if srv := d.ResolveServer(); srv != nil {
		s.Server = srv.Name
	}
	return s
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, mgr, err := newManager(cfg, nil)
	if err != nil {
		return err
	}

	var domains []*model.Domain
	if len(args) == 1 {
		if err := validateDomain(args[0]); err != nil {
			return err
		}
		d, err := st.Get(ctx, args[0])
		if err != nil {
			return err
		}
		domains = []*model.Domain{d}
	} else {
		domains, err = st.List(ctx)
		if err != nil {
			return err
		}
	}

	statuses := make([]domainStatus, 0, len(domains))
	for _, d := range domains {
		s := newDomainStatus(d)
		if statusRemote {
			checkRemoteExpiry(ctx, mgr, d, &s)
		}
		statuses = append(statuses, s)
	}

	if jsonOutput {
		return output.JSON(statuses)
	}

	if len(statuses) == 0 {
		output.Info("No domains configured")
		return nil
	}

	headers := []string{"DOMAIN", "SERVER", "STATUS", "SSL", "EXPIRES", "AUTO-RENEW"}
	if statusRemote {
		headers = append(headers, "REMOTE")
	}
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		server := s.Server
		if server == "" {
			server = "-"
		}
		row := []string{
			s.Domain,
			server,
			s.Status,
			strconv.FormatBool(s.SSLEnabled),
			formatTime(s.ExpiresAt),
			strconv.FormatBool(s.AutoRenew),
		}
		if statusRemote {
			remoteCol := formatTime(s.RemoteExpires)
			if s.RemoteError != "" {
				remoteCol = s.RemoteError
			}
			row = append(row, remoteCol)
		}
		rows = append(rows, row)
	}
	output.Table(headers, rows)
	return nil
}

// checkRemoteExpiry fills in the remote columns for domains that have a
// certificate on a known server.
func checkRemoteExpiry(ctx context.Context, mgr *ssl.Manager, d *model.Domain, s *domainStatus) {
	if !d.SSLEnabled || d.ResolveServer() == nil {
		return
	}
	expires, err := mgr.CheckExpiry(ctx, d)
	if err != nil {
		s.RemoteError = "error: " + string(errors.CodeOf(err))
		return
	}
	s.RemoteExpires = &expires
}
