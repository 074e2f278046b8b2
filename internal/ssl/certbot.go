package ssl

import (
	"path"
	"strings"
	"time"

	"github.com/ksyq12/sslops/internal/remote"
)

// Cert represents an SSL certificate on the remote server
type Cert struct {
	Domain   string `json:"domain"`
	CertPath string `json:"certPath"`
	KeyPath  string `json:"keyPath"`
}

// letsencryptDir is the base directory for Let's Encrypt certificates
const letsencryptDir = "/etc/letsencrypt/live"

// Certbot authenticator plugins
const (
	PluginNginx      = "nginx"
	PluginApache     = "apache"
	PluginStandalone = "standalone"
)

// ValidPlugins returns all supported plugins
func ValidPlugins() []string {
	return []string{PluginNginx, PluginApache, PluginStandalone}
}

// IsValidPlugin checks if the given plugin is supported
func IsValidPlugin(p string) bool {
	for _, valid := range ValidPlugins() {
		if p == valid {
			return true
		}
	}
	return false
}

// GetCertPaths returns the certificate paths for a domain
func GetCertPaths(domain string) *Cert {
	return &Cert{
		Domain:   domain,
		CertPath: path.Join(letsencryptDir, domain, "fullchain.pem"),
		KeyPath:  path.Join(letsencryptDir, domain, "privkey.pem"),
	}
}

// obtainCommand builds certonly for a single domain.
func obtainCommand(domain, email, plugin string, staging bool) string {
	args := []string{
		"certbot", "certonly",
		"--" + plugin,
		"-d", domain,
		"--non-interactive",
		"--agree-tos",
		"--email", email,
	}
	if staging {
		args = append(args, "--staging")
	}
	return remote.QuoteArgs(args...)
}

func renewCommand(domain string) string {
	return remote.QuoteArgs("certbot", "renew", "--cert-name", domain, "--non-interactive")
}

func revokeCommand(certPath string) string {
	return remote.QuoteArgs("certbot", "revoke", "--cert-path", certPath, "--non-interactive")
}

// Check output markers.
const (
	markerInstalled     = "installed"
	markerNotInstalled  = "not_installed"
	markerTimerActive   = "timer"
	markerCronPresent   = "cron"
	markerNotConfigured = "not_configured"
)

var clientCheckCommand = "command -v certbot >/dev/null 2>&1 && echo " + markerInstalled + " || echo " + markerNotInstalled

// installCommand installs certbot and the plugin package with whichever
// package manager the host has.
func installCommand(plugin string) string {
	pkgs := []string{"certbot"}
	if plugin == PluginNginx || plugin == PluginApache {
		pkgs = append(pkgs, "python3-certbot-"+plugin)
	}
	list := remote.QuoteArgs(pkgs...)

	var b strings.Builder
	b.WriteString("if command -v apt-get >/dev/null 2>&1; then ")
	b.WriteString("DEBIAN_FRONTEND=noninteractive apt-get update -qq && ")
	b.WriteString("DEBIAN_FRONTEND=noninteractive apt-get install -y " + list + "; ")
	b.WriteString("elif command -v dnf >/dev/null 2>&1; then dnf install -y " + list + "; ")
	b.WriteString("elif command -v yum >/dev/null 2>&1; then yum install -y " + list + "; ")
	b.WriteString("else echo 'no supported package manager found' >&2; exit 1; fi")
	return b.String()
}

func expiryCommand(certPath string) string {
	return remote.QuoteArgs("openssl", "x509", "-enddate", "-noout", "-in", certPath)
}

// opensslTimeLayout matches notAfter values such as "Mar  1 12:00:00 2026 GMT".
const opensslTimeLayout = "Jan _2 15:04:05 2006 MST"

// parseNotAfter extracts the expiry from openssl x509 -enddate output.
func parseNotAfter(output string) (time.Time, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		value, ok := strings.CutPrefix(line, "notAfter=")
		if !ok {
			continue
		}
		t, err := time.Parse(opensslTimeLayout, strings.TrimSpace(value))
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

func infoCommand(certPath string) string {
	return remote.QuoteArgs("openssl", "x509", "-in", certPath, "-text", "-noout")
}

// CertInfo holds the fields of a deployed certificate that matter to an
// operator.
type CertInfo struct {
	Domain    string    `json:"domain"`
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	Serial    string    `json:"serial"`
	Names     []string  `json:"names,omitempty"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
}

// DaysRemaining returns whole days until NotAfter, negative once expired.
func (c *CertInfo) DaysRemaining(now time.Time) int {
	return int(c.NotAfter.Sub(now).Hours() / 24)
}

// parseCertInfo reads openssl x509 -text output. The serial and the
// subject alternative names are printed on the line after their label.
// ok is false when no expiry date was found.
func parseCertInfo(output string) (*CertInfo, bool) {
	info := &CertInfo{}
	var next string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch next {
		case "serial":
			info.Serial = line
		case "names":
			for _, name := range strings.Split(line, ",") {
				if dns, ok := strings.CutPrefix(strings.TrimSpace(name), "DNS:"); ok {
					info.Names = append(info.Names, dns)
				}
			}
		}
		if next != "" {
			next = ""
			continue
		}

		switch {
		case strings.HasPrefix(line, "Serial Number:"):
			value := strings.TrimSpace(strings.TrimPrefix(line, "Serial Number:"))
			if value == "" {
				next = "serial"
			} else if info.Serial == "" {
				info.Serial = value
			}
		case strings.HasPrefix(line, "Issuer:") && info.Issuer == "":
			info.Issuer = strings.TrimSpace(strings.TrimPrefix(line, "Issuer:"))
		case strings.HasPrefix(line, "Subject:") && info.Subject == "":
			info.Subject = strings.TrimSpace(strings.TrimPrefix(line, "Subject:"))
		case strings.HasPrefix(line, "Not Before"):
			info.NotBefore, _ = parseValidity(strings.TrimPrefix(line, "Not Before"))
		case strings.HasPrefix(line, "Not After"):
			info.NotAfter, _ = parseValidity(strings.TrimPrefix(line, "Not After"))
		case strings.HasPrefix(line, "X509v3 Subject Alternative Name:"):
			next = "names"
		}
	}
	if info.NotAfter.IsZero() {
		return nil, false
	}
	return info, true
}

// parseValidity parses the rest of a "Not After : <date>" line.
func parseValidity(rest string) (time.Time, bool) {
	value, ok := strings.CutPrefix(strings.TrimSpace(rest), ":")
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(opensslTimeLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

var renewalCheckCommand = "systemctl is-active --quiet certbot.timer 2>/dev/null && echo " + markerTimerActive +
	" || { crontab -l 2>/dev/null | grep -q 'certbot renew' && echo " + markerCronPresent +
	" || echo " + markerNotConfigured + "; }"

// cronEntry runs certbot renew daily at 03:00 and reloads the web server
// after a successful renewal.
func cronEntry(plugin string) string {
	entry := "0 3 * * * certbot renew --quiet"
	switch plugin {
	case PluginNginx:
		entry += ` --post-hook "systemctl reload nginx"`
	case PluginApache:
		entry += ` --post-hook "systemctl reload apache2"`
	}
	return entry
}

// cronInstallCommand replaces any existing certbot line in root's crontab.
func cronInstallCommand(plugin string) string {
	return "(crontab -l 2>/dev/null | grep -v 'certbot renew'; echo " + remote.Quote(cronEntry(plugin)) + ") | crontab -"
}

const listCommand = "certbot certificates"

// parseCertificateNames extracts certificate names from certbot certificates.
func parseCertificateNames(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		_, name, ok := strings.Cut(line, "Certificate Name:")
		if !ok {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// lastLine returns the last non-empty line of output.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
