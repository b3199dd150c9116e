// Package archive records downloaded tracks in a SQLite database so reruns
// can skip them.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mos9527/librespot-dl/downloader"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is one archived download
type Entry struct {
	TrackID      string    `gorm:"primaryKey;size:22"`
	Path         string    `gorm:"not null"`
	DownloadedAt time.Time `gorm:"not null;index"`
}

func (Entry) TableName() string {
	return "downloads"
}

// Archive is a SQLite-backed downloader.Archive
type Archive struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens or creates the archive database at path
func Open(path string, logger *zap.Logger) (*Archive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create archive directory %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}

	// SQLite allows one writer; workers share a single connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access archive connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Entry{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}

	logger.Debug("Opened download archive", zap.String("path", path))
	return &Archive{db: db, logger: logger}, nil
}

// Has reports whether id was downloaded before
func (a *Archive) Has(ctx context.Context, id downloader.TrackID) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&Entry{}).Where("track_id = ?", id.Base62()).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query archive: %w", err)
	}
	return count > 0, nil
}

// Record stores id with its output path, replacing an earlier record
func (a *Archive) Record(ctx context.Context, id downloader.TrackID, path string) error {
	entry := Entry{
		TrackID:      id.Base62(),
		Path:         path,
		DownloadedAt: time.Now().UTC(),
	}
	err := a.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", entry.TrackID, err)
	}
	return nil
}

// Entries returns every archived download, oldest first
func (a *Archive) Entries(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := a.db.WithContext(ctx).Order("downloaded_at, track_id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	return entries, nil
}

// Close releases the database
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
