package job

import (
	"context"
	"fmt"
	"strings"

	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/storage"
)

// Driver identifiers supported by jobs.store.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// New 按 jobs.store 创建任务存储。sqlite 驱动自行打开数据库并执行迁移。
func New(ctx context.Context, cfg config.JobsConfig) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Store))
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg.TTL), nil
	case DriverSQLite:
		db, err := storage.Open(ctx, cfg.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		return &sqliteStore{db: db, ttl: cfg.TTL, own: true}, nil
	case DriverRedis:
		return NewRedis(cfg.Redis, cfg.TTL)
	default:
		return nil, fmt.Errorf("unsupported job store driver: %s", driver)
	}
}
