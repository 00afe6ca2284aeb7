package asrapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"

	"autosubrt-server-go/internal/app/services"
	"autosubrt-server-go/internal/domain/job"
	"autosubrt-server-go/internal/platform/errors"
	"autosubrt-server-go/internal/platform/logging"
	httptransport "autosubrt-server-go/internal/transport/http"
)

// Recognition 识别编排接口，由 services.RecognitionService 实现
type Recognition interface {
	SubtitleFromURL(ctx context.Context, audioURL string) (*services.SubtitleResult, error)
	TextFromURL(ctx context.Context, audioURL string) (*services.TextResult, error)
	EmbedFromURL(ctx context.Context, videoURL string) (*services.EmbedResult, error)
	Job(ctx context.Context, id string) (job.Record, error)
}

// EngineStatus 识别引擎状态
type EngineStatus interface {
	Ready() bool
	Provider() string
}

// SrtRequest 音频转字幕请求
type SrtRequest struct {
	AudioURL string `json:"audio_url" binding:"required,url"`
}

// SrtResponse 音频转字幕结果
type SrtResponse struct {
	SrtURL string `json:"srt_url"`
}

// TextRequest 音频转文本请求
type TextRequest struct {
	AudioURL string `json:"audio_url"`
}

// TextResponse 音频转文本结果
type TextResponse struct {
	Text string `json:"text"`
}

// EmbedRequest 嵌入字幕请求
type EmbedRequest struct {
	VideoURL string `json:"video_url"`
}

// EmbedResponse 嵌入字幕结果
type EmbedResponse struct {
	VideoURL string `json:"video_url"`
}

// HealthResponse 健康检查结果
type HealthResponse struct {
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	UptimeSeconds  int64   `json:"uptime_s"`
	MemUsedPercent float64 `json:"mem_used_percent"`
	Engine         string  `json:"engine"`
	EngineReady    bool    `json:"engine_ready"`
}

// Service ASR 接口的 HTTP 传输层实现
type Service struct {
	recognition Recognition
	engine      EngineStatus
	logger      *logging.Logger
	startedAt   time.Time
}

// NewService 创建 ASR HTTP 服务
func NewService(recognition Recognition, engine EngineStatus, logger *logging.Logger) (*Service, error) {
	if recognition == nil {
		return nil, errors.New(errors.KindConfig, "asrapi.new", "recognition service is required")
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}
	return &Service{
		recognition: recognition,
		engine:      engine,
		logger:      logger,
		startedAt:   time.Now(),
	}, nil
}

// Register 注册路由。public 不做鉴权，secured 在开启鉴权时校验 JWT
func (s *Service) Register(public, secured *gin.RouterGroup) {
	public.GET("/health", s.handleHealth)

	asr := secured.Group("/asr")
	asr.POST("/srt", s.handleSrt)
	asr.POST("/text", s.handleText)
	asr.POST("/embed", s.handleEmbed)
	asr.GET("/jobs/:id", s.handleJob)

	s.logger.InfoTag("HTTP", "ASR 服务路由注册完成")
}

func bindError(err error) error {
	return errors.Raise(errors.ParamValidationFailed, err.Error(), err)
}

// handleSrt 音频转字幕
// @Summary 音频转字幕
// @Tags ASR
// @Accept json
// @Produce json
// @Param body body SrtRequest true "音频地址"
// @Success 200 {object} httptransport.Envelope
// @Router /asr/srt [post]
func (s *Service) handleSrt(c *gin.Context) {
	var req SrtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, bindError(err))
		return
	}
	result, err := s.recognition.SubtitleFromURL(c.Request.Context(), req.AudioURL)
	if err != nil {
		httptransport.RespondError(c, err)
		return
	}
	c.Header("X-Job-Id", result.JobID)
	httptransport.RespondSuccess(c, SrtResponse{SrtURL: result.SrtURL})
}

// handleText 音频转文本
// @Summary 音频转文本
// @Tags ASR
// @Router /asr/text [post]
func (s *Service) handleText(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, bindError(err))
		return
	}
	result, err := s.recognition.TextFromURL(c.Request.Context(), req.AudioURL)
	if err != nil {
		httptransport.RespondError(c, err)
		return
	}
	c.Header("X-Job-Id", result.JobID)
	httptransport.RespondSuccess(c, TextResponse{Text: result.Text})
}

func (s *Service) handleEmbed(c *gin.Context) {
	var req EmbedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, bindError(err))
		return
	}
	result, err := s.recognition.EmbedFromURL(c.Request.Context(), req.VideoURL)
	if err != nil {
		httptransport.RespondError(c, err)
		return
	}
	c.Header("X-Job-Id", result.JobID)
	httptransport.RespondSuccess(c, EmbedResponse{VideoURL: result.VideoURL})
}

func (s *Service) handleJob(c *gin.Context) {
	rec, err := s.recognition.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		httptransport.RespondError(c, err)
		return
	}
	httptransport.RespondSuccess(c, rec)
}

// handleHealth 服务状态
// @Summary 服务健康状态
// @Tags System
// @Router /health [get]
func (s *Service) handleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:        "running",
		Message:       "AutoSubRT Service is running",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	if vm, err := mem.VirtualMemoryWithContext(c.Request.Context()); err == nil {
		resp.MemUsedPercent = vm.UsedPercent
	} else {
		s.logger.DebugTag("HTTP", "读取内存信息失败: %v", err)
	}
	if s.engine != nil {
		resp.Engine = s.engine.Provider()
		resp.EngineReady = s.engine.Ready()
	}
	httptransport.RespondSuccess(c, resp)
}
