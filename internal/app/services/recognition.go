package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"autosubrt-server-go/internal/domain/eventbus"
	"autosubrt-server-go/internal/domain/job"
	"autosubrt-server-go/internal/domain/media"
	"autosubrt-server-go/internal/domain/subtitle"
	"autosubrt-server-go/internal/platform/config"
	"autosubrt-server-go/internal/platform/errors"
	"autosubrt-server-go/internal/platform/logging"
	"autosubrt-server-go/internal/platform/observability"
)

const logTag = "任务"

// MediaFetcher 下载远程媒体到本地
type MediaFetcher interface {
	Download(ctx context.Context, rawURL, destDir, filename string) (string, error)
}

// Transcriber 识别本地音频
type Transcriber interface {
	Recognize(ctx context.Context, audioPath string) (subtitle.Transcript, error)
}

// RecognitionConfig 识别服务依赖
type RecognitionConfig struct {
	Fetcher  MediaFetcher
	Engine   Transcriber
	Jobs     job.Store
	Events   *eventbus.AsyncEventBus
	Logger   *logging.Logger
	Storage  config.StorageConfig
	Subtitle config.SubtitleConfig
	// Now 用于生成文件名，测试中可替换
	Now func() time.Time
}

// RecognitionService 编排 下载 → 识别 → 分句 → 写字幕 → 生成下载地址
type RecognitionService struct {
	fetcher   MediaFetcher
	engine    Transcriber
	jobs      job.Store
	events    *eventbus.AsyncEventBus
	logger    *logging.Logger
	storage   config.StorageConfig
	segmenter *subtitle.Segmenter
	now       func() time.Time
}

// SubtitleResult 字幕生成结果
type SubtitleResult struct {
	JobID   string         `json:"job_id"`
	SrtURL  string         `json:"srt_url"`
	SrtPath string         `json:"-"`
	Cues    []subtitle.Cue `json:"-"`
}

// TextResult 纯文本识别结果
type TextResult struct {
	JobID string `json:"job_id"`
	Text  string `json:"text"`
}

// EmbedResult 嵌入字幕结果，目前恒为空地址
type EmbedResult struct {
	JobID    string `json:"job_id"`
	VideoURL string `json:"video_url"`
}

// NewRecognitionService 创建识别服务。输出目录被解析为绝对路径，
// 以便按 internal_prefix 生成下载地址。
func NewRecognitionService(cfg *RecognitionConfig) (*RecognitionService, error) {
	if cfg.Fetcher == nil || cfg.Engine == nil || cfg.Jobs == nil {
		return nil, errors.New(errors.KindConfig, "services.recognition", "fetcher, engine and job store are required")
	}
	storage := cfg.Storage
	for _, dir := range []*string{&storage.TempDir, &storage.SrtOutputDir, &storage.VideoOutputDir} {
		if *dir == "" {
			continue
		}
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, errors.Wrap(errors.KindConfig, "services.recognition", "resolve "+*dir, err)
		}
		*dir = abs
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDiscard()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	segmenter := subtitle.NewSegmenter(cfg.Subtitle.GapThresholdMs)
	if cfg.Subtitle.DefaultDurationMs > 0 {
		segmenter.DefaultDurationMs = cfg.Subtitle.DefaultDurationMs
	}

	return &RecognitionService{
		fetcher:   cfg.Fetcher,
		engine:    cfg.Engine,
		jobs:      cfg.Jobs,
		events:    cfg.Events,
		logger:    logger,
		storage:   storage,
		segmenter: segmenter,
		now:       now,
	}, nil
}

// PrepareDirs 创建临时目录与输出目录，已存在时跳过
func (s *RecognitionService) PrepareDirs() error {
	for _, dir := range []string{s.storage.TempDir, s.storage.VideoOutputDir, s.storage.SrtOutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.KindPlatform, "services.prepare_dirs", "create "+dir, err)
		}
	}
	return nil
}

// GenUniqueID 生成 YYYYMMDDhhmmss + 8 位十六进制的唯一 ID
func GenUniqueID(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return now.Format("20060102150405") + hex[:8]
}

// PublishURL 把以 prefix 开头的本地路径替换为下载地址；不以 prefix 开头时原样返回
func PublishURL(path, prefix, downloadURL string) string {
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return path
	}
	return strings.Replace(path, prefix, downloadURL, 1)
}

// run 单次请求的执行上下文
type run struct {
	rec     job.Record
	started time.Time
	stageAt time.Time
}

func (s *RecognitionService) begin(ctx context.Context, kind job.Kind, sourceURL string) *run {
	now := s.now()
	r := &run{
		rec: job.Record{
			ID:        GenUniqueID(now),
			Kind:      kind,
			SourceURL: sourceURL,
			Status:    job.StatusRunning,
			Stage:     job.StageAcquire,
			Timings:   map[string]int64{},
			CreatedAt: now,
		},
		started: time.Now(),
		stageAt: time.Now(),
	}
	s.save(ctx, &r.rec)
	s.publish(eventbus.EventRecognitionStarted, eventbus.RecognitionEventData{
		JobID: r.rec.ID, Kind: string(kind), SourceURL: sourceURL, At: now,
	})
	observability.RecordMetric(ctx, "autosubrt.jobs.started", 1, map[string]string{"kind": string(kind)})
	return r
}

// enter 记录上一阶段耗时并进入下一阶段
func (s *RecognitionService) enter(r *run, stage string) {
	r.rec.Timings[r.rec.Stage] = time.Since(r.stageAt).Milliseconds()
	r.rec.Stage = stage
	r.stageAt = time.Now()
}

func (s *RecognitionService) succeed(ctx context.Context, r *run) {
	s.enter(r, job.StageDone)
	r.rec.Status = job.StatusSucceeded
	s.save(ctx, &r.rec)
	s.publish(eventbus.EventRecognitionCompleted, eventbus.RecognitionEventData{
		JobID:     r.rec.ID,
		Kind:      string(r.rec.Kind),
		SourceURL: r.rec.SourceURL,
		SrtURL:    r.rec.SrtURL,
		CueCount:  r.rec.CueCount,
		Elapsed:   time.Since(r.started),
		At:        s.now(),
	})
	observability.RecordMetric(ctx, "autosubrt.jobs.completed", 1, map[string]string{"kind": string(r.rec.Kind)})
}

// fail 把错误归类为业务异常，更新任务记录并发布失败事件
func (s *RecognitionService) fail(ctx context.Context, r *run, err error) *errors.Exception {
	exc := errors.FromError(err)
	r.rec.Status = job.StatusFailed
	r.rec.ErrorCode = exc.Err.Code
	r.rec.Detail = exc.Detail
	r.rec.Timings[r.rec.Stage] = time.Since(r.stageAt).Milliseconds()
	s.save(ctx, &r.rec)

	s.logger.ErrorTag(logTag, "job=%s url=%s stage=%s code=%d cause=%v",
		r.rec.ID, r.rec.SourceURL, r.rec.Stage, exc.Err.Code, err)
	s.publish(eventbus.EventRecognitionFailed, eventbus.RecognitionEventData{
		JobID:     r.rec.ID,
		Kind:      string(r.rec.Kind),
		SourceURL: r.rec.SourceURL,
		Stage:     r.rec.Stage,
		Code:      exc.Err.Code,
		Detail:    exc.Detail,
		Elapsed:   time.Since(r.started),
		At:        s.now(),
	})
	observability.RecordMetric(ctx, "autosubrt.jobs.failed", 1, map[string]string{
		"kind":  string(r.rec.Kind),
		"stage": r.rec.Stage,
	})
	return exc
}

func (s *RecognitionService) save(ctx context.Context, rec *job.Record) {
	// 任务记录只用于查询，写入失败不影响主流程
	if err := s.jobs.Save(context.WithoutCancel(ctx), *rec); err != nil {
		s.logger.WarnTag("存储", "保存任务 %s 失败: %v", rec.ID, err)
	}
}

func (s *RecognitionService) publish(topic string, data eventbus.RecognitionEventData) {
	if s.events != nil {
		s.events.PublishAsync(topic, data)
	}
}

func requireURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.Raise(errors.ParamValidationFailed, field+" is required", nil)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.Raise(errors.ParamValidationFailed, field+" must be an http(s) URL", err)
	}
	return nil
}

// acquire 下载媒体并返回本地路径与清理函数
func (s *RecognitionService) acquire(ctx context.Context, r *run, rawURL string) (string, func(), error) {
	ctx, end := observability.StartSpan(ctx, "media", "download")
	if err := s.PrepareDirs(); err != nil {
		end(err)
		return "", func() {}, err
	}
	path, err := s.fetcher.Download(ctx, rawURL, s.storage.TempDir, r.rec.ID)
	end(err)
	if err != nil {
		return "", func() {}, err
	}
	s.logger.InfoTag("下载", "Download audio file success, audio_url: %s, audio_file: %s", rawURL, path)

	if info, perr := media.Probe(path); perr == nil {
		r.rec.MediaBytes = info.Bytes
		r.rec.MediaDurationMs = info.DurationMs
	}
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.WarnTag("下载", "删除临时文件 %s 失败: %v", path, err)
		}
	}
	return path, cleanup, nil
}

func (s *RecognitionService) recognize(ctx context.Context, r *run, path string) (subtitle.Transcript, error) {
	s.enter(r, job.StageRecognize)
	ctx, end := observability.StartSpan(ctx, "asr", "recognize")
	transcript, err := s.engine.Recognize(ctx, path)
	end(err)
	return transcript, err
}

// writeSubtitle 分句、写入 SRT 并生成下载地址
func (s *RecognitionService) writeSubtitle(ctx context.Context, r *run, transcript subtitle.Transcript) (*SubtitleResult, error) {
	s.enter(r, job.StageSegment)
	cues := s.segmenter.Segment(transcript)
	r.rec.CueCount = len(cues)

	s.enter(r, job.StageSerialize)
	srtPath := filepath.Join(s.storage.SrtOutputDir, r.rec.ID+".srt")
	_, end := observability.StartSpan(ctx, "subtitle", "write")
	err := subtitle.WriteFile(srtPath, cues)
	end(err)
	if err != nil {
		return nil, err
	}
	s.logger.InfoTag("字幕", "Create %d SRT entries, srt_file: %s", len(cues), srtPath)

	s.enter(r, job.StagePublish)
	srtURL := PublishURL(srtPath, s.storage.InternalPrefix, s.storage.DownloadURL)
	r.rec.SrtPath = srtPath
	r.rec.SrtURL = srtURL
	return &SubtitleResult{JobID: r.rec.ID, SrtURL: srtURL, SrtPath: srtPath, Cues: cues}, nil
}

// SubtitleFromURL 下载音频并生成 SRT 字幕，返回字幕下载地址
func (s *RecognitionService) SubtitleFromURL(ctx context.Context, audioURL string) (*SubtitleResult, error) {
	if err := requireURL("audio_url", audioURL); err != nil {
		return nil, err
	}
	r := s.begin(ctx, job.KindSrt, audioURL)

	path, cleanup, err := s.acquire(ctx, r, audioURL)
	defer cleanup()
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}

	transcript, err := s.recognize(ctx, r, path)
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}

	result, err := s.writeSubtitle(ctx, r, transcript)
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}
	s.succeed(ctx, r)
	return result, nil
}

// SubtitleFromFile 对本地文件生成字幕，不会删除输入文件
func (s *RecognitionService) SubtitleFromFile(ctx context.Context, audioPath string) (*SubtitleResult, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, errors.Raise(errors.ParamValidationFailed, "audio file is required", nil)
	}
	r := s.begin(ctx, job.KindSrt, audioPath)

	info, err := media.Probe(audioPath)
	if err != nil {
		return nil, s.fail(ctx, r, errors.Wrap(errors.KindValidation, "services.subtitle_from_file", "read "+audioPath, err))
	}
	r.rec.MediaBytes = info.Bytes
	r.rec.MediaDurationMs = info.DurationMs
	if err := s.PrepareDirs(); err != nil {
		return nil, s.fail(ctx, r, err)
	}

	transcript, err := s.recognize(ctx, r, audioPath)
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}
	result, err := s.writeSubtitle(ctx, r, transcript)
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}
	s.succeed(ctx, r)
	return result, nil
}

// TextFromURL 下载音频并返回识别出的纯文本
func (s *RecognitionService) TextFromURL(ctx context.Context, audioURL string) (*TextResult, error) {
	if err := requireURL("audio_url", audioURL); err != nil {
		return nil, err
	}
	r := s.begin(ctx, job.KindText, audioURL)

	path, cleanup, err := s.acquire(ctx, r, audioURL)
	defer cleanup()
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}

	transcript, err := s.recognize(ctx, r, path)
	if err != nil {
		return nil, s.fail(ctx, r, err)
	}
	r.rec.CueCount = len(transcript.Tokens())
	s.succeed(ctx, r)
	return &TextResult{JobID: r.rec.ID, Text: transcript.Text}, nil
}

// EmbedFromURL 校验视频地址；字幕嵌入尚未实现，返回空地址
func (s *RecognitionService) EmbedFromURL(ctx context.Context, videoURL string) (*EmbedResult, error) {
	if err := requireURL("video_url", videoURL); err != nil {
		return nil, err
	}
	r := s.begin(ctx, job.KindEmbed, videoURL)
	s.logger.InfoTag(logTag, "video_url: %s", videoURL)
	s.succeed(ctx, r)
	return &EmbedResult{JobID: r.rec.ID, VideoURL: ""}, nil
}

// Job 查询任务记录
func (s *RecognitionService) Job(ctx context.Context, id string) (job.Record, error) {
	if strings.TrimSpace(id) == "" {
		return job.Record{}, errors.Raise(errors.ParamValidationFailed, "job id is required", nil)
	}
	rec, err := s.jobs.Get(ctx, id)
	if err != nil {
		return job.Record{}, errors.FromError(err)
	}
	return rec, nil
}

// Jobs 按创建时间倒序列出任务
func (s *RecognitionService) Jobs(ctx context.Context, limit int) ([]job.Record, error) {
	records, err := s.jobs.List(ctx, limit)
	if err != nil {
		return nil, errors.FromError(err)
	}
	return records, nil
}

func (r SubtitleResult) String() string {
	return fmt.Sprintf("job=%s srt=%s cues=%d", r.JobID, r.SrtURL, len(r.Cues))
}
