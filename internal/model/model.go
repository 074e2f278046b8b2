package model

import (
	"time"

	"github.com/ksyq12/sslops/internal/remote"
)

// Domain status constants
const (
	DomainStatusPending  = "pending"
	DomainStatusActive   = "active"
	DomainStatusInactive = "inactive"
)

// ProviderLetsEncrypt is the only SSL provider recorded on domains.
const ProviderLetsEncrypt = "letsencrypt"

// Server is a host reachable over ssh.
type Server struct {
	ID         int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Address    string `gorm:"type:varchar(255);not null" json:"address"`
	Port       int    `gorm:"not null;default:22" json:"port"`
	Username   string `gorm:"type:varchar(64);not null" json:"username"`
	PrivateKey string `gorm:"type:text" json:"-"`
	// PrivateKeyFile is read when a command runs, not when the server loads.
	PrivateKeyFile string `gorm:"-" json:"-"`
}

// TableName specifies the table name for Server
func (Server) TableName() string {
	return "servers"
}

// Target returns the ssh target for the server.
func (s *Server) Target() remote.HostTarget {
	t := remote.HostTarget{
		Address:        s.Address,
		Port:           s.Port,
		User:           s.Username,
		PrivateKeyFile: s.PrivateKeyFile,
	}
	if s.PrivateKey != "" {
		t.PrivateKey = []byte(s.PrivateKey)
	}
	return t
}

// Project groups domains deployed to one server.
type Project struct {
	ID       int     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	ServerID *int    `gorm:"index" json:"serverId,omitempty"`
	Server   *Server `gorm:"foreignKey:ServerID" json:"server,omitempty"`
}

// TableName specifies the table name for Project
func (Project) TableName() string {
	return "projects"
}

// Domain is a hostname whose certificate is managed on its project's server.
type Domain struct {
	ID           int        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string     `gorm:"column:domain;type:varchar(255);uniqueIndex;not null" json:"domain"`
	ProjectID    *int       `gorm:"index" json:"projectId,omitempty"`
	Project      *Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	SSLEnabled   bool       `gorm:"column:ssl_enabled;not null;default:false" json:"sslEnabled"`
	SSLProvider  *string    `gorm:"column:ssl_provider;type:varchar(32)" json:"sslProvider,omitempty"`
	SSLIssuedAt  *time.Time `gorm:"column:ssl_issued_at" json:"sslIssuedAt,omitempty"`
	SSLExpiresAt *time.Time `gorm:"column:ssl_expires_at;index" json:"sslExpiresAt,omitempty"`
	AutoRenewSSL bool       `gorm:"column:auto_renew_ssl;not null;default:true" json:"autoRenewSsl"`
	Status       string     `gorm:"type:varchar(20);not null;default:pending" json:"status"`
}

// TableName specifies the table name for Domain
func (Domain) TableName() string {
	return "domains"
}

// ResolveServer follows Project to Server. It returns nil when either link
// is missing.
func (d *Domain) ResolveServer() *Server {
	if d == nil || d.Project == nil {
		return nil
	}
	return d.Project.Server
}

// SSLState is a copy of the certificate fields of a Domain.
type SSLState struct {
	Enabled   bool
	Provider  *string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
	Status    string
}

// SSLState returns a snapshot of d's certificate fields.
func (d *Domain) SSLState() SSLState {
	return SSLState{
		Enabled:   d.SSLEnabled,
		Provider:  d.SSLProvider,
		IssuedAt:  d.SSLIssuedAt,
		ExpiresAt: d.SSLExpiresAt,
		Status:    d.Status,
	}
}

// ApplySSL overwrites d's certificate fields with s.
func (d *Domain) ApplySSL(s SSLState) {
	d.SSLEnabled = s.Enabled
	d.SSLProvider = s.Provider
	d.SSLIssuedAt = s.IssuedAt
	d.SSLExpiresAt = s.ExpiresAt
	d.Status = s.Status
}

// Issued returns the state after a successful issuance at now.
func Issued(now time.Time, validity time.Duration) SSLState {
	provider := ProviderLetsEncrypt
	issued := now
	expires := now.Add(validity)
	return SSLState{
		Enabled:   true,
		Provider:  &provider,
		IssuedAt:  &issued,
		ExpiresAt: &expires,
		Status:    DomainStatusActive,
	}
}

// Renewed returns s with the expiry moved to now+validity.
func (s SSLState) Renewed(now time.Time, validity time.Duration) SSLState {
	expires := now.Add(validity)
	s.ExpiresAt = &expires
	return s
}

// Revoked returns s with every certificate field cleared. Status is kept.
func (s SSLState) Revoked() SSLState {
	return SSLState{Status: s.Status}
}

// Equal reports whether both snapshots hold the same values.
func (s SSLState) Equal(o SSLState) bool {
	return s.Enabled == o.Enabled &&
		s.Status == o.Status &&
		strPtrEqual(s.Provider, o.Provider) &&
		timePtrEqual(s.IssuedAt, o.IssuedAt) &&
		timePtrEqual(s.ExpiresAt, o.ExpiresAt)
}

// RenewalDue reports whether d is eligible for automatic renewal at now.
func (d *Domain) RenewalDue(now time.Time, window time.Duration) bool {
	if !d.SSLEnabled || !d.AutoRenewSSL || d.SSLExpiresAt == nil {
		return false
	}
	exp := *d.SSLExpiresAt
	return exp.After(now) && !exp.After(now.Add(window))
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
