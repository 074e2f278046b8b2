package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ksyq12/sslops/internal/model"
)

// dryRunDB builds statements without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "sslops:secret@tcp(127.0.0.1:3306)/sslops?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestGormStore_RenewableQuery(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var domains []*model.Domain
		return renewable(tx, now, 30*24*time.Hour).Find(&domains)
	})

	assert.Contains(t, sql, "FROM `domains`")
	assert.Contains(t, sql, "ssl_enabled = true AND auto_renew_ssl = true")
	assert.Contains(t, sql, "ssl_expires_at > '2026-03-01 12:00:00'")
	assert.Contains(t, sql, "ssl_expires_at <= '2026-03-31 12:00:00'")
	assert.Contains(t, sql, "ORDER BY domain")
}

func TestGormStore_SaveSSLQuery(t *testing.T) {
	db := dryRunDB(t)
	state := model.Issued(now, 90*24*time.Hour)

	t.Run("by id", func(t *testing.T) {
		sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			return saveSSL(tx, &model.Domain{ID: 7, Name: "example.com"}, state)
		})

		assert.Contains(t, sql, "UPDATE `domains` SET")
		assert.Contains(t, sql, "`ssl_enabled`=true")
		assert.Contains(t, sql, "`ssl_provider`='letsencrypt'")
		assert.Contains(t, sql, "`ssl_expires_at`='2026-05-30 12:00:00'")
		assert.Contains(t, sql, "`status`='active'")
		assert.Contains(t, sql, "WHERE id = 7")
		assert.NotContains(t, sql, "auto_renew_ssl")
	})

	t.Run("by name clears fields", func(t *testing.T) {
		sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			return saveSSL(tx, &model.Domain{Name: "example.com"}, state.Revoked())
		})

		assert.Contains(t, sql, "`ssl_enabled`=false")
		assert.Contains(t, sql, "`ssl_provider`=NULL")
		assert.Contains(t, sql, "`ssl_issued_at`=NULL")
		assert.Contains(t, sql, "`ssl_expires_at`=NULL")
		assert.Contains(t, sql, "WHERE domain = 'example.com'")
	})
}
