package job

import (
	"context"
	"time"
)

// Kind 任务类型
type Kind string

const (
	KindSrt   Kind = "srt"
	KindText  Kind = "text"
	KindEmbed Kind = "embed"
)

// Status 任务状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Stage 流水线阶段
const (
	StageAcquire   = "acquire_media"
	StageRecognize = "recognize"
	StageSegment   = "segment"
	StageSerialize = "serialize"
	StagePublish   = "publish_url"
	StageDone      = "done"
)

// Record 一次识别请求的执行记录
type Record struct {
	ID              string           `json:"id"`
	Kind            Kind             `json:"kind"`
	SourceURL       string           `json:"source_url"`
	Status          Status           `json:"status"`
	Stage           string           `json:"stage"`
	ErrorCode       int              `json:"error_code,omitempty"`
	Detail          string           `json:"detail,omitempty"`
	SrtPath         string           `json:"srt_path,omitempty"`
	SrtURL          string           `json:"srt_url,omitempty"`
	CueCount        int              `json:"cue_count"`
	MediaBytes      int64            `json:"media_bytes"`
	MediaDurationMs int64            `json:"media_duration_ms"`
	Timings         map[string]int64 `json:"timings,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Finished 任务是否已结束
func (r Record) Finished() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}

// Store 任务记录存储。Get 找不到记录时返回 KindNotFound 错误。
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	// List 按创建时间倒序返回，limit <= 0 表示不限制
	List(ctx context.Context, limit int) ([]Record, error)
	CleanupExpired(ctx context.Context) error
	Close(ctx context.Context) error
}

func touch(rec *Record, now time.Time) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
}
