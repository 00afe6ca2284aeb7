package job

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autosubrt-server-go/internal/platform/errors"
	"autosubrt-server-go/internal/platform/storage"
)

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
	// own 为 true 时 Close 负责关闭连接
	own bool
}

// NewSQLite 基于已迁移的 gorm 连接创建任务存储
func NewSQLite(db *gorm.DB, ttl time.Duration) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	return &sqliteStore{db: db, ttl: ttl}, nil
}

func (s *sqliteStore) Save(ctx context.Context, rec Record) error {
	const op = "job.save"
	if rec.ID == "" {
		return errors.New(errors.KindValidation, op, "job id required")
	}
	touch(&rec, time.Now())

	row, err := toRow(rec)
	if err != nil {
		return errors.Wrap(errors.KindStorage, op, "encode timings", err)
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, op, "upsert job "+rec.ID, err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (Record, error) {
	const op = "job.get"
	var row storage.JobRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, errors.New(errors.KindNotFound, op, fmt.Sprintf("job not found: %s", id))
	}
	if err != nil {
		return Record{}, errors.Wrap(errors.KindStorage, op, "query job "+id, err)
	}
	if s.ttl > 0 && time.Since(row.CreatedAt) > s.ttl {
		return Record{}, errors.New(errors.KindNotFound, op, fmt.Sprintf("job not found: %s", id))
	}
	return fromRow(row), nil
}

func (s *sqliteStore) List(ctx context.Context, limit int) ([]Record, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if s.ttl > 0 {
		query = query.Where("created_at >= ?", time.Now().Add(-s.ttl))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []storage.JobRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "job.list", "list jobs", err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("created_at < ?", time.Now().Add(-s.ttl)).
		Delete(&storage.JobRow{}).
		Error
}

func (s *sqliteStore) Close(context.Context) error {
	if !s.own {
		return nil
	}
	return storage.Close(s.db)
}

func toRow(rec Record) (storage.JobRow, error) {
	var timings datatypes.JSON
	if len(rec.Timings) > 0 {
		data, err := sonic.Marshal(rec.Timings)
		if err != nil {
			return storage.JobRow{}, err
		}
		timings = datatypes.JSON(data)
	}
	return storage.JobRow{
		ID:              rec.ID,
		Kind:            string(rec.Kind),
		SourceURL:       rec.SourceURL,
		Status:          string(rec.Status),
		Stage:           rec.Stage,
		ErrorCode:       rec.ErrorCode,
		Detail:          rec.Detail,
		SrtPath:         rec.SrtPath,
		SrtURL:          rec.SrtURL,
		CueCount:        rec.CueCount,
		MediaBytes:      rec.MediaBytes,
		MediaDurationMs: rec.MediaDurationMs,
		Timings:         timings,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}, nil
}

func fromRow(row storage.JobRow) Record {
	rec := Record{
		ID:              row.ID,
		Kind:            Kind(row.Kind),
		SourceURL:       row.SourceURL,
		Status:          Status(row.Status),
		Stage:           row.Stage,
		ErrorCode:       row.ErrorCode,
		Detail:          row.Detail,
		SrtPath:         row.SrtPath,
		SrtURL:          row.SrtURL,
		CueCount:        row.CueCount,
		MediaBytes:      row.MediaBytes,
		MediaDurationMs: row.MediaDurationMs,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if len(row.Timings) > 0 {
		var timings map[string]int64
		if err := sonic.Unmarshal(row.Timings, &timings); err == nil {
			rec.Timings = timings
		}
	}
	return rec
}
