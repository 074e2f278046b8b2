package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/model"
)

// Driver names accepted by Open.
const (
	DriverFile  = "file"
	DriverMySQL = "mysql"
)

// Store persists domains and their certificate state.
type Store interface {
	// Get returns the domain with its Project and Server loaded.
	Get(ctx context.Context, name string) (*model.Domain, error)

	// List returns every domain ordered by name.
	List(ctx context.Context) ([]*model.Domain, error)

	// SaveSSL writes state to the stored record of d in a single update.
	// d itself is not modified.
	SaveSSL(ctx context.Context, d *model.Domain, state model.SSLState) error

	// ListRenewable returns domains with SSL and auto-renew enabled whose
	// certificate expires in (now, now+window].
	ListRenewable(ctx context.Context, now time.Time, window time.Duration) ([]*model.Domain, error)
}

// Config selects and configures a backend.
type Config struct {
	Driver  string
	Path    string
	DSN     string
	Migrate bool
}

// Open returns the backend named by cfg.Driver.
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFile:
		return NewFileStore(cfg.Path)
	case DriverMySQL:
		s, err := OpenMySQL(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := s.Migrate(); err != nil {
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, errors.Wrap(errors.ErrCodeConfig, fmt.Sprintf("unknown store driver %q", cfg.Driver), nil)
	}
}
