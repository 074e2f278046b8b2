package ssl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/logger"
	"github.com/ksyq12/sslops/internal/metrics"
	"github.com/ksyq12/sslops/internal/model"
	"github.com/ksyq12/sslops/internal/remote"
)

// CertValidity is how long a Let's Encrypt certificate is valid.
const CertValidity = 90 * 24 * time.Hour

// Defaults applied by New to zero Config fields.
const (
	DefaultPlugin           = PluginNginx
	DefaultRenewWindow      = 30 * 24 * time.Hour
	DefaultSweepConcurrency = 1

	DefaultObtainTimeout  = 5 * time.Minute
	DefaultRenewTimeout   = 5 * time.Minute
	DefaultRevokeTimeout  = 2 * time.Minute
	DefaultInstallTimeout = 10 * time.Minute
	DefaultCheckTimeout   = 30 * time.Second
)

// Operation names used in logs and metrics.
const (
	OpObtain    = "obtain"
	OpRenew     = "renew"
	OpRevoke    = "revoke"
	OpInstall   = "install"
	OpExpiry    = "expiry"
	OpInfo      = "info"
	OpAutoRenew = "autorenew"
	OpList      = "list"
)

// Gateway runs a command on a remote host.
type Gateway interface {
	Execute(ctx context.Context, target remote.HostTarget, command string, opts remote.Options) (*remote.Result, error)
}

// DomainStore persists certificate state.
type DomainStore interface {
	SaveSSL(ctx context.Context, d *model.Domain, state model.SSLState) error
	ListRenewable(ctx context.Context, now time.Time, window time.Duration) ([]*model.Domain, error)
}

// Timeouts bound each kind of remote call.
type Timeouts struct {
	Obtain  time.Duration
	Renew   time.Duration
	Revoke  time.Duration
	Install time.Duration
	Check   time.Duration
}

// Config holds the process-wide settings for certificate operations.
type Config struct {
	Email            string
	Staging          bool
	Plugin           string
	Timeouts         Timeouts
	RenewWindow      time.Duration
	SweepConcurrency int
}

func (c Config) withDefaults() Config {
	if c.Plugin == "" {
		c.Plugin = DefaultPlugin
	}
	if c.RenewWindow <= 0 {
		c.RenewWindow = DefaultRenewWindow
	}
	if c.SweepConcurrency <= 0 {
		c.SweepConcurrency = DefaultSweepConcurrency
	}
	setDefault(&c.Timeouts.Obtain, DefaultObtainTimeout)
	setDefault(&c.Timeouts.Renew, DefaultRenewTimeout)
	setDefault(&c.Timeouts.Revoke, DefaultRevokeTimeout)
	setDefault(&c.Timeouts.Install, DefaultInstallTimeout)
	setDefault(&c.Timeouts.Check, DefaultCheckTimeout)
	return c
}

func setDefault(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

// Manager drives certbot on each domain's server and records the result.
// Operations on different domains may run concurrently; callers must not run
// two operations on the same domain at once.
type Manager struct {
	cfg     Config
	gw      Gateway
	store   DomainStore
	now     func() time.Time
	metrics *metrics.Metrics
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithMetrics records operation outcomes on mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// New creates a Manager.
func New(cfg Config, gw Gateway, store DomainStore, opts ...Option) *Manager {
	m := &Manager{
		cfg:   cfg.withDefaults(),
		gw:    gw,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Obtain requests a new certificate for d. On success d is marked active
// with a 90 day certificate; on failure d is unchanged.
func (m *Manager) Obtain(ctx context.Context, d *model.Domain) (cert *Cert, err error) {
	defer func() { m.observe(OpObtain, d, err) }()

	srv := d.ResolveServer()
	if srv == nil {
		return nil, errors.NoServer(d.Name)
	}
	if strings.TrimSpace(m.cfg.Email) == "" {
		return nil, errors.WithDomain(errors.Validation("acme email is not configured"), d.Name)
	}

	cmd := obtainCommand(d.Name, m.cfg.Email, m.cfg.Plugin, m.cfg.Staging)
	if _, err := m.run(ctx, srv, cmd, m.cfg.Timeouts.Obtain, true); err != nil {
		return nil, errors.WithDomain(err, d.Name)
	}

	if err := m.persist(ctx, d, model.Issued(m.now(), CertValidity)); err != nil {
		return nil, err
	}
	return GetCertPaths(d.Name), nil
}

// Renew renews the certificate of d and extends its expiry.
func (m *Manager) Renew(ctx context.Context, d *model.Domain) (err error) {
	defer func() { m.observe(OpRenew, d, err) }()

	srv := d.ResolveServer()
	if srv == nil {
		return errors.NoServer(d.Name)
	}

	if !d.SSLEnabled || d.SSLIssuedAt == nil {
		return errors.WithDomain(errors.Validation("domain has no certificate to renew; obtain one first"), d.Name)
	}

	if _, err := m.run(ctx, srv, renewCommand(d.Name), m.cfg.Timeouts.Renew, true); err != nil {
		return errors.WithDomain(err, d.Name)
	}
	return m.persist(ctx, d, d.SSLState().Renewed(m.now(), CertValidity))
}

// Revoke revokes the certificate of d and clears its SSL fields.
// Status is left as it was.
func (m *Manager) Revoke(ctx context.Context, d *model.Domain) (err error) {
	defer func() { m.observe(OpRevoke, d, err) }()

	srv := d.ResolveServer()
	if srv == nil {
		return errors.NoServer(d.Name)
	}

	cmd := revokeCommand(GetCertPaths(d.Name).CertPath)
	if _, err := m.run(ctx, srv, cmd, m.cfg.Timeouts.Revoke, true); err != nil {
		return errors.WithDomain(err, d.Name)
	}
	return m.persist(ctx, d, d.SSLState().Revoked())
}

// EnsureClient installs certbot on d's server if it is missing. installed
// reports whether an installation was performed.
func (m *Manager) EnsureClient(ctx context.Context, d *model.Domain) (installed bool, err error) {
	defer func() { m.observe(OpInstall, d, err) }()

	srv := d.ResolveServer()
	if srv == nil {
		return false, errors.NoServer(d.Name)
	}

	res, err := m.run(ctx, srv, clientCheckCommand, m.cfg.Timeouts.Check, false)
	if err != nil {
		return false, errors.WithDomain(err, d.Name)
	}
	if lastLine(res.Stdout) == markerInstalled {
		return false, nil
	}

	logger.InfoFields("installing certbot", map[string]interface{}{
		"domain": d.Name,
		"server": srv.Name,
		"plugin": m.cfg.Plugin,
	})
	if _, err := m.run(ctx, srv, installCommand(m.cfg.Plugin), m.cfg.Timeouts.Install, true); err != nil {
		return false, errors.WithDomain(err, d.Name)
	}
	return true, nil
}

// CheckExpiry reads the notAfter date of d's certificate on the server.
func (m *Manager) CheckExpiry(ctx context.Context, d *model.Domain) (expires time.Time, err error) {
	defer func() { m.observe(OpExpiry, d, err) }()

	srv := d.ResolveServer()
	if srv == nil {
		return time.Time{}, errors.NoServer(d.Name)
	}

	res, err := m.run(ctx, srv, expiryCommand(GetCertPaths(d.Name).CertPath), m.cfg.Timeouts.Check, true)
	if err != nil {
		return time.Time{}, errors.WithDomain(err, d.Name)
	}

	expires, ok := parseNotAfter(res.Stdout)
	if !ok {
		err := errors.Remote(errors.ErrCodeRemoteCommand, "could not parse certificate expiry", res.Stdout, nil)
		return time.Time{}, errors.WithDomain(err, d.Name)
	}
	return expires, nil
}

// CertificateInfo reads the subject, issuer, serial and validity window of
// d's certificate on the server.
func (m *Manager) CertificateInfo(ctx context.Context, d *model.Domain) (info *CertInfo, err error) {
	defer func() { m.observe(OpInfo, d, err) }()

	srv := d.ResolveServer()
	if srv == nil {
		return nil, errors.NoServer(d.Name)
	}

	res, err := m.run(ctx, srv, infoCommand(GetCertPaths(d.Name).CertPath), m.cfg.Timeouts.Check, true)
	if err != nil {
		return nil, errors.WithDomain(err, d.Name)
	}

	info, ok := parseCertInfo(res.Stdout)
	if !ok {
		err := errors.Remote(errors.ErrCodeRemoteCommand, "could not parse certificate details", res.Stdout, nil)
		return nil, errors.WithDomain(err, d.Name)
	}
	info.Domain = d.Name
	return info, nil
}

// SetupAutoRenewal makes sure certbot renews certificates on d's server on
// its own. alreadyConfigured is true when a systemd timer or cron entry
// already existed.
func (m *Manager) SetupAutoRenewal(ctx context.Context, d *model.Domain) (alreadyConfigured bool, err error) {
	defer func() { m.observe(OpAutoRenew, d, err) }()

	srv := d.ResolveServer()
	if srv == nil {
		return false, errors.NoServer(d.Name)
	}

	res, err := m.run(ctx, srv, renewalCheckCommand, m.cfg.Timeouts.Check, true)
	if err != nil {
		return false, errors.WithDomain(err, d.Name)
	}
	switch lastLine(res.Stdout) {
	case markerTimerActive, markerCronPresent:
		return true, nil
	}

	if _, err := m.run(ctx, srv, cronInstallCommand(m.cfg.Plugin), m.cfg.Timeouts.Check, true); err != nil {
		return false, errors.WithDomain(err, d.Name)
	}
	return false, nil
}

// ListCertificates returns the certificate names certbot manages on d's server.
func (m *Manager) ListCertificates(ctx context.Context, d *model.Domain) (names []string, err error) {
	defer func() { m.observe(OpList, d, err) }()

	srv := d.ResolveServer()
	if srv == nil {
		return nil, errors.NoServer(d.Name)
	}

	res, err := m.run(ctx, srv, listCommand, m.cfg.Timeouts.Check, true)
	if err != nil {
		return nil, errors.WithDomain(err, d.Name)
	}
	return parseCertificateNames(res.Stdout), nil
}

func (m *Manager) run(ctx context.Context, srv *model.Server, command string, timeout time.Duration, elevated bool) (*remote.Result, error) {
	return m.gw.Execute(ctx, srv.Target(), command, remote.Options{
		Timeout:  timeout,
		Elevated: elevated,
	})
}

// persist writes state and only then copies it onto d.
func (m *Manager) persist(ctx context.Context, d *model.Domain, state model.SSLState) error {
	if err := m.store.SaveSSL(ctx, d, state); err != nil {
		if errors.CodeOf(err) != errors.ErrCodeStore {
			err = errors.Wrap(errors.ErrCodeStore, "failed to save certificate state", err)
		}
		return errors.WithDomain(err, d.Name)
	}
	d.ApplySSL(state)
	return nil
}

func (m *Manager) observe(op string, d *model.Domain, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(string(errors.CodeOf(err)))
	}
	m.metrics.ObserveOperation(op, outcome)

	fields := map[string]interface{}{
		"operation": op,
		"domain":    d.Name,
		"outcome":   outcome,
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.WarnFields(fmt.Sprintf("%s failed", op), fields)
		return
	}
	logger.DebugFields(fmt.Sprintf("%s succeeded", op), fields)
}
