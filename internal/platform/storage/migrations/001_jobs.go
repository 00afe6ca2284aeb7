package migrations

import "gorm.io/gorm"

// Migration 单个数据库迁移
type Migration interface {
	Version() string
	Description() string
	Up(tx *gorm.DB) error
	Down(tx *gorm.DB) error
}

// Migration001Jobs 创建识别任务表
type Migration001Jobs struct{}

func (m *Migration001Jobs) Version() string { return "001_jobs" }

func (m *Migration001Jobs) Description() string { return "Create jobs table" }

func (m *Migration001Jobs) Up(tx *gorm.DB) error {
	if err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			source_url TEXT NOT NULL,
			status VARCHAR(16) NOT NULL,
			stage VARCHAR(32),
			error_code INTEGER,
			detail TEXT,
			srt_path TEXT,
			srt_url TEXT,
			cue_count INTEGER,
			media_bytes INTEGER,
			media_duration_ms INTEGER,
			timings JSON,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return err
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_jobs_kind ON jobs(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
	} {
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration001Jobs) Down(tx *gorm.DB) error {
	return tx.Exec(`DROP TABLE IF EXISTS jobs`).Error
}

// All 按顺序返回全部迁移
func All() []Migration {
	return []Migration{
		&Migration001Jobs{},
	}
}
