package store

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/logger"
	"github.com/ksyq12/sslops/internal/model"
)

// GormStore keeps domains in a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// OpenMySQL connects to MySQL. dsn must set parseTime=true.
func OpenMySQL(dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, "failed to connect to database", err)
	}
	return NewGormStore(db), nil
}

// Migrate creates or updates the servers, projects and domains tables.
func (s *GormStore) Migrate() error {
	models := []interface{}{
		&model.Server{},
		&model.Project{},
		&model.Domain{},
	}
	if err := s.db.AutoMigrate(models...); err != nil {
		return errors.Wrap(errors.ErrCodeStore, "failed to migrate database", err)
	}
	logger.Info("database migration completed (%d tables)", len(models))
	return nil
}

// Get returns a domain by name with Project and Server preloaded.
func (s *GormStore) Get(ctx context.Context, name string) (*model.Domain, error) {
	var d model.Domain
	err := s.db.WithContext(ctx).
		Preload("Project.Server").
		Where("domain = ?", name).
		First(&d).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound(name)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, "failed to load domain", err)
	}
	return &d, nil
}

// List returns every domain ordered by name.
func (s *GormStore) List(ctx context.Context) ([]*model.Domain, error) {
	var domains []*model.Domain
	err := s.db.WithContext(ctx).
		Preload("Project.Server").
		Order("domain").
		Find(&domains).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, "failed to list domains", err)
	}
	return domains, nil
}

// ListRenewable returns domains due for renewal in one query.
func (s *GormStore) ListRenewable(ctx context.Context, now time.Time, window time.Duration) ([]*model.Domain, error) {
	var domains []*model.Domain
	err := renewable(s.db.WithContext(ctx), now, window).
		Preload("Project.Server").
		Find(&domains).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, "failed to list renewable domains", err)
	}
	return domains, nil
}

// SaveSSL updates the SSL columns and status of d in one statement.
func (s *GormStore) SaveSSL(ctx context.Context, d *model.Domain, state model.SSLState) error {
	if err := saveSSL(s.db.WithContext(ctx), d, state).Error; err != nil {
		return errors.Wrap(errors.ErrCodeStore, "failed to save certificate state", err)
	}
	return nil
}

func renewable(tx *gorm.DB, now time.Time, window time.Duration) *gorm.DB {
	return tx.Model(&model.Domain{}).
		Where("ssl_enabled = ? AND auto_renew_ssl = ?", true, true).
		Where("ssl_expires_at > ? AND ssl_expires_at <= ?", now, now.Add(window)).
		Order("domain")
}

func saveSSL(tx *gorm.DB, d *model.Domain, state model.SSLState) *gorm.DB {
	q := tx.Model(&model.Domain{})
	if d.ID != 0 {
		q = q.Where("id = ?", d.ID)
	} else {
		q = q.Where("domain = ?", d.Name)
	}
	return q.Updates(map[string]interface{}{
		"ssl_enabled":    state.Enabled,
		"ssl_provider":   state.Provider,
		"ssl_issued_at":  state.IssuedAt,
		"ssl_expires_at": state.ExpiresAt,
		"status":         state.Status,
	})
}
