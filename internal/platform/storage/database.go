package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"autosubrt-server-go/internal/platform/errors"
	"autosubrt-server-go/internal/platform/storage/migrations"
)

// JobRow 识别任务表 jobs 的 GORM 模型
type JobRow struct {
	ID              string         `gorm:"primaryKey;type:varchar(64)"`
	Kind            string         `gorm:"type:varchar(16);index;not null"`
	SourceURL       string         `gorm:"type:text;not null"`
	Status          string         `gorm:"type:varchar(16);index;not null"`
	Stage           string         `gorm:"type:varchar(32)"`
	ErrorCode       int
	Detail          string         `gorm:"type:text"`
	SrtPath         string         `gorm:"type:text"`
	SrtURL          string         `gorm:"type:text"`
	CueCount        int
	MediaBytes      int64
	MediaDurationMs int64
	Timings         datatypes.JSON
	CreatedAt       time.Time      `gorm:"index"`
	UpdatedAt       time.Time
}

func (JobRow) TableName() string { return "jobs" }

// Open 打开（必要时创建）SQLite 数据库并执行迁移
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	const op = "storage.open"
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New(errors.KindStorage, op, "empty sqlite dsn")
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(errors.KindStorage, op, "create data directory", err)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, op, "open database", err)
	}

	manager := NewMigrationManager(db, migrations.All()...)
	if _, err := manager.Run(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
