package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/model"
)

const (
	dataDir  = ".config/sslops"
	dataFile = "domains.yaml"
)

// DefaultPath returns ~/.config/sslops/domains.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dataDir, dataFile), nil
}

// fileData is the on-disk layout. Records are keyed by name.
type fileData struct {
	Servers  map[string]*serverRecord  `yaml:"servers"`
	Projects map[string]*projectRecord `yaml:"projects"`
	Domains  map[string]*domainRecord  `yaml:"domains"`
}

type serverRecord struct {
	Address        string `yaml:"address"`
	Port           int    `yaml:"port,omitempty"`
	Username       string `yaml:"username"`
	PrivateKey     string `yaml:"private_key,omitempty"`
	PrivateKeyFile string `yaml:"private_key_file,omitempty"`
}

type projectRecord struct {
	Server string `yaml:"server,omitempty"`
}

type domainRecord struct {
	Project      string     `yaml:"project,omitempty"`
	SSLEnabled   bool       `yaml:"ssl_enabled"`
	SSLProvider  *string    `yaml:"ssl_provider,omitempty"`
	SSLIssuedAt  *time.Time `yaml:"ssl_issued_at,omitempty"`
	SSLExpiresAt *time.Time `yaml:"ssl_expires_at,omitempty"`
	AutoRenewSSL *bool      `yaml:"auto_renew_ssl,omitempty"`
	Status       string     `yaml:"status,omitempty"`
}

func newFileData() *fileData {
	return &fileData{
		Servers:  make(map[string]*serverRecord),
		Projects: make(map[string]*projectRecord),
		Domains:  make(map[string]*domainRecord),
	}
}

// FileStore keeps domains in a YAML file. Every write replaces the file
// atomically. It is safe for concurrent use within one process.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore at path, or DefaultPath when empty.
// The file is created on the first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, "failed to resolve store path", err)
		}
		path = p
	}
	return &FileStore{path: expandHome(path)}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns a domain by name.
func (s *FileStore) Get(ctx context.Context, name string) (*model.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := data.Domains[name]
	if !ok {
		return nil, errors.NotFound(name)
	}
	return data.domain(name, rec), nil
}

// List returns all domains ordered by name.
func (s *FileStore) List(ctx context.Context) ([]*model.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	return data.domains(func(*domainRecord) bool { return true }), nil
}

// ListRenewable returns domains due for automatic renewal.
func (s *FileStore) ListRenewable(ctx context.Context, now time.Time, window time.Duration) ([]*model.Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	return data.domains(func(r *domainRecord) bool {
		d := model.Domain{
			SSLEnabled:   r.SSLEnabled,
			SSLExpiresAt: r.SSLExpiresAt,
			AutoRenewSSL: r.autoRenew(),
		}
		return d.RenewalDue(now, window)
	}), nil
}

// SaveSSL writes state to the record named d.Name.
func (s *FileStore) SaveSSL(ctx context.Context, d *model.Domain, state model.SSLState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	rec, ok := data.Domains[d.Name]
	if !ok {
		return errors.NotFound(d.Name)
	}
	rec.SSLEnabled = state.Enabled
	rec.SSLProvider = state.Provider
	rec.SSLIssuedAt = state.IssuedAt
	rec.SSLExpiresAt = state.ExpiresAt
	rec.Status = state.Status
	return s.save(data)
}

// AddServer adds a server record.
func (s *FileStore) AddServer(srv *model.Server) error {
	return s.update(func(data *fileData) error {
		if _, exists := data.Servers[srv.Name]; exists {
			return errors.Validation(fmt.Sprintf("server %s already exists", srv.Name))
		}
		data.Servers[srv.Name] = &serverRecord{
			Address:        srv.Address,
			Port:           srv.Port,
			Username:       srv.Username,
			PrivateKey:     srv.PrivateKey,
			PrivateKeyFile: srv.PrivateKeyFile,
		}
		return nil
	})
}

// AddProject adds a project bound to the named server. serverName may be
// empty for a project that is not deployed anywhere yet.
func (s *FileStore) AddProject(name, serverName string) error {
	return s.update(func(data *fileData) error {
		if _, exists := data.Projects[name]; exists {
			return errors.Validation(fmt.Sprintf("project %s already exists", name))
		}
		if serverName != "" {
			if _, ok := data.Servers[serverName]; !ok {
				return errors.Validation(fmt.Sprintf("server %s not found", serverName))
			}
		}
		data.Projects[name] = &projectRecord{Server: serverName}
		return nil
	})
}

// AddDomain adds a domain in projectName with auto-renew on.
func (s *FileStore) AddDomain(name, projectName string) error {
	return s.update(func(data *fileData) error {
		if _, exists := data.Domains[name]; exists {
			return errors.Validation(fmt.Sprintf("domain %s already exists", name))
		}
		if projectName != "" {
			if _, ok := data.Projects[projectName]; !ok {
				return errors.Validation(fmt.Sprintf("project %s not found", projectName))
			}
		}
		data.Domains[name] = &domainRecord{Project: projectName, Status: model.DomainStatusPending}
		return nil
	})
}

// SetAutoRenew toggles automatic renewal for a domain.
func (s *FileStore) SetAutoRenew(name string, enabled bool) error {
	return s.update(func(data *fileData) error {
		rec, ok := data.Domains[name]
		if !ok {
			return errors.NotFound(name)
		}
		rec.AutoRenewSSL = &enabled
		return nil
	})
}

func (s *FileStore) update(fn func(*fileData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	return s.save(data)
}

// load reads the file. A missing file is an empty store.
func (s *FileStore) load() (*fileData, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return newFileData(), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, "failed to read store", err)
	}

	data := newFileData()
	if err := yaml.Unmarshal(raw, data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, "failed to parse store", err)
	}
	if data.Servers == nil {
		data.Servers = make(map[string]*serverRecord)
	}
	if data.Projects == nil {
		data.Projects = make(map[string]*projectRecord)
	}
	if data.Domains == nil {
		data.Domains = make(map[string]*domainRecord)
	}
	return data, nil
}

// save writes data to a temp file in the same directory and renames it over
// the store so readers never see a partial file.
func (s *FileStore) save(data *fileData) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeStore, "failed to create store directory", err)
	}

	raw, err := yaml.Marshal(data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, "failed to marshal store", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	// Inline private keys may live in this file.
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(errors.ErrCodeStore, "failed to set store permissions", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return errors.Wrap(errors.ErrCodeStore, "failed to write store", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(errors.ErrCodeStore, "failed to sync store", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStore, "failed to close store", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(errors.ErrCodeStore, "failed to replace store", err)
	}
	return nil
}

func (data *fileData) domains(keep func(*domainRecord) bool) []*model.Domain {
	names := make([]string, 0, len(data.Domains))
	for name, rec := range data.Domains {
		if keep(rec) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]*model.Domain, 0, len(names))
	for _, name := range names {
		out = append(out, data.domain(name, data.Domains[name]))
	}
	return out
}

// domain builds a model.Domain with its Project and Server resolved.
// Dangling references leave the link nil. Key files are not read here, so
// one bad server entry cannot fail a listing.
func (data *fileData) domain(name string, rec *domainRecord) *model.Domain {
	d := &model.Domain{
		Name:         name,
		SSLEnabled:   rec.SSLEnabled,
		SSLProvider:  rec.SSLProvider,
		SSLIssuedAt:  rec.SSLIssuedAt,
		SSLExpiresAt: rec.SSLExpiresAt,
		AutoRenewSSL: rec.autoRenew(),
		Status:       rec.Status,
	}

	prj, ok := data.Projects[rec.Project]
	if rec.Project == "" || !ok {
		return d
	}
	d.Project = &model.Project{Name: rec.Project}

	srv, ok := data.Servers[prj.Server]
	if prj.Server == "" || !ok {
		return d
	}
	d.Project.Server = srv.server(prj.Server)
	return d
}

func (r *serverRecord) server(name string) *model.Server {
	srv := &model.Server{
		Name:       name,
		Address:    r.Address,
		Port:       r.Port,
		Username:   r.Username,
		PrivateKey: r.PrivateKey,
	}
	if r.PrivateKeyFile != "" {
		srv.PrivateKeyFile = expandHome(r.PrivateKeyFile)
	}
	return srv
}

func (r *domainRecord) autoRenew() bool {
	return r.AutoRenewSSL == nil || *r.AutoRenewSSL
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
